package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-booking/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestListServices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/services", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "success",
			"data":   []map[string]any{{"id": uuid.NewString(), "title": "تنظيف الأسنان"}},
		})
	}))
	defer srv.Close()

	services, err := New(srv.URL).ListServices(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "تنظيف الأسنان", services[0].Title)
}

func TestCreateBooking(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req model.CreateBookingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeJSON(w, http.StatusCreated, map[string]any{
			"status": "success",
			"data": model.Booking{
				ID:          uuid.New(),
				PatientName: req.PatientName,
				Phone:       req.Phone,
				Status:      model.BookingStatusPending,
			},
		})
	}))
	defer srv.Close()

	b, err := New(srv.URL).CreateBooking(context.Background(), &model.CreateBookingRequest{PatientName: "أحمد", Phone: "712345678"})
	require.NoError(t, err)
	assert.Equal(t, "712345678", b.Phone)
	assert.Equal(t, model.BookingStatusPending, b.Status)
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"status":  "error",
			"message": "رقم الهاتف يجب أن يبدأ بـ 7",
			"errors":  []map[string]string{{"field": "phone", "message": "رقم الهاتف يجب أن يبدأ بـ 7"}},
		})
	}))
	defer srv.Close()

	_, err := New(srv.URL).CreateBooking(context.Background(), &model.CreateBookingRequest{})
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusBadRequest))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Len(t, apiErr.Fields, 1)
	assert.Equal(t, "phone", apiErr.Fields[0].Field)
}

func TestNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).ListServices(context.Background())
	assert.True(t, IsStatus(err, http.StatusBadGateway))
}

func TestLoginSetsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			writeJSON(w, http.StatusOK, map[string]any{
				"status": "success",
				"data":   map[string]any{"access_token": "tok", "expires_at": time.Now().Add(time.Hour)},
			})
		case pushSubscriptionPath:
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	resp, err := c.Login(context.Background(), "ops@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok", resp.AccessToken)

	require.NoError(t, c.DeletePushSubscription(context.Background()))
}

func TestPushSubscription(t *testing.T) {
	var stored *model.PushSubscription
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			var sub model.PushSubscription
			require.NoError(t, json.NewDecoder(r.Body).Decode(&sub))
			stored = &sub
			writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": sub})
		case http.MethodGet:
			if stored == nil {
				writeJSON(w, http.StatusNotFound, map[string]any{"status": "error", "message": "push subscription not found"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": stored})
		}
	}))
	defer srv.Close()

	c := New(srv.URL, WithToken("tok"))
	sub, err := c.GetPushSubscription(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sub)

	require.NoError(t, c.SavePushSubscription(context.Background(), &model.PushSubscription{DeviceID: "d1", Platform: "linux", Channel: "bookings:INSERT"}))

	sub, err = c.GetPushSubscription(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "d1", sub.DeviceID)
}

func TestStreamFeed(t *testing.T) {
	booking, err := json.Marshal(model.Booking{ID: uuid.New(), PatientName: "أحمد", Phone: "712345678"})
	require.NoError(t, err)
	event, err := json.Marshal(model.ChangeEvent{Collection: "bookings", Event: model.ChangeInsert, New: booking})
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/admin/realtime/bookings", r.URL.Path)
		assert.Equal(t, "INSERT", r.URL.Query().Get("event"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, ":ping\n\n")
		_, _ = fmt.Fprintf(w, "event:change\ndata:%s\n\n", event)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	feed := New(srv.URL, WithToken("tok")).Feed(nil)
	got := make(chan model.ChangeEvent, 1)
	sub, err := feed.Subscribe(context.Background(), "bookings", model.ChangeInsert, func(ctx context.Context, e model.ChangeEvent) {
		got <- e
	})
	require.NoError(t, err)

	select {
	case e := <-got:
		assert.Equal(t, model.ChangeInsert, e.Event)
		var b model.Booking
		require.NoError(t, json.Unmarshal(e.New, &b))
		assert.Equal(t, "712345678", b.Phone)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	sub.Unsubscribe()
	sub.Unsubscribe()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop")
	}
}

func TestStreamFeedUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"status": "error", "message": "unauthorized"})
	}))
	defer srv.Close()

	_, err := New(srv.URL).Feed(nil).Subscribe(context.Background(), "bookings", model.ChangeInsert, func(context.Context, model.ChangeEvent) {})
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
}

type closeCounter struct {
	io.Reader
	closes atomic.Int32
}

func (c *closeCounter) Close() error {
	c.closes.Add(1)
	return nil
}

func TestStreamReadReleasesBodyOnce(t *testing.T) {
	body := &closeCounter{Reader: strings.NewReader(":ping\n\n")}
	ctx, cancel := context.WithCancel(context.Background())

	feed := New("http://localhost").Feed(nil)
	err := feed.read(ctx, &http.Response{Body: body}, func(context.Context, model.ChangeEvent) {})
	require.NoError(t, err)
	assert.Equal(t, int32(1), body.closes.Load())

	// a finished read must not keep watching the subscription context
	cancel()
	assert.Never(t, func() bool { return body.closes.Load() > 1 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestStreamFeedReconnects(t *testing.T) {
	event, err := json.Marshal(model.ChangeEvent{Collection: "bookings", Event: model.ChangeInsert})
	require.NoError(t, err)

	var opens atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		opens.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "event:change\ndata:%s\n\n", event)
	}))
	defer srv.Close()

	var errs atomic.Int32
	feed := New(srv.URL, WithToken("tok")).Feed(func(error) { errs.Add(1) })
	feed.backOff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }

	got := make(chan model.ChangeEvent, 16)
	sub, err := feed.Subscribe(context.Background(), "bookings", model.ChangeInsert, func(ctx context.Context, e model.ChangeEvent) {
		select {
		case got <- e:
		default:
		}
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	for i := 0; i < 3; i++ {
		select {
		case <-got:
		case <-time.After(2 * time.Second):
			t.Fatalf("event %d not received", i)
		}
	}
	assert.GreaterOrEqual(t, opens.Load(), int32(3))
	assert.Positive(t, errs.Load())

	sub.Unsubscribe()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop")
	}
}
