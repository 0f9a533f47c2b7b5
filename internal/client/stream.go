package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jwalitptl/clinic-booking/internal/model"
	"github.com/jwalitptl/clinic-booking/internal/realtime"
)

func reconnectBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// StreamFeed reads the server-sent change events of the API. A dropped
// stream is reopened with exponential backoff until the subscription is
// released.
type StreamFeed struct {
	client  *Client
	onError func(error)
	backOff func() backoff.BackOff
}

var _ realtime.Feed = (*StreamFeed)(nil)

func (c *Client) Feed(onError func(error)) *StreamFeed {
	return &StreamFeed{client: c, onError: onError, backOff: reconnectBackOff}
}

// Subscribe opens the stream once before returning so that a rejected token
// or an unreachable server is reported to the caller.
func (f *StreamFeed) Subscribe(ctx context.Context, collection string, kind model.ChangeKind, handler realtime.Handler) (realtime.Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	path := fmt.Sprintf("/api/v1/admin/realtime/%s?event=%s", collection, kind)

	res, err := f.open(subCtx, path)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &streamSubscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		retry := f.backOff()
		for {
			err := f.read(subCtx, res, handler)
			if subCtx.Err() != nil {
				return
			}
			if err == nil {
				err = errors.New("server closed the stream")
			}
			f.report(fmt.Errorf("realtime stream interrupted: %w", err))

			for {
				select {
				case <-subCtx.Done():
					return
				case <-time.After(retry.NextBackOff()):
				}

				res, err = f.open(subCtx, path)
				if err == nil {
					retry.Reset()
					break
				}
				if subCtx.Err() != nil {
					return
				}
				f.report(err)
			}
		}
	}()
	return sub, nil
}

func (f *StreamFeed) report(err error) {
	if f.onError != nil {
		f.onError(err)
	}
}

func (f *StreamFeed) open(ctx context.Context, path string) (*http.Response, error) {
	req, err := f.client.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	res, err := f.client.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open realtime stream: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, &APIError{StatusCode: res.StatusCode, Message: "failed to open realtime stream"}
	}
	return res, nil
}

// read dispatches "change" events until the body ends.
func (f *StreamFeed) read(ctx context.Context, res *http.Response, handler realtime.Handler) error {
	defer res.Body.Close()
	stop := context.AfterFunc(ctx, func() { res.Body.Close() })
	defer stop()

	scanner := bufio.NewScanner(res.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var name string
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if name == "change" && data.Len() > 0 {
				var event model.ChangeEvent
				if err := json.Unmarshal([]byte(data.String()), &event); err != nil {
					f.report(fmt.Errorf("failed to decode change event: %w", err))
				} else if ctx.Err() == nil {
					handler(ctx, event)
				}
			}
			name = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	return scanner.Err()
}

type streamSubscription struct {
	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *streamSubscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// Done is closed once the stream is no longer read.
func (s *streamSubscription) Done() <-chan struct{} {
	return s.done
}
