package realtime

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-booking/internal/middleware"
	"github.com/jwalitptl/clinic-booking/internal/model"
	"github.com/jwalitptl/clinic-booking/internal/realtime"
	apperrors "github.com/jwalitptl/clinic-booking/pkg/errors"
	"github.com/jwalitptl/clinic-booking/pkg/httputil"
	"github.com/jwalitptl/clinic-booking/pkg/metrics"
)

// EventName is the SSE event carrying a model.ChangeEvent.
const EventName = "change"

type Handler struct {
	feed      realtime.Feed
	metrics   *metrics.Metrics
	keepAlive time.Duration
	buffer    int
}

func NewHandler(feed realtime.Feed, m *metrics.Metrics) *Handler {
	return &Handler{feed: feed, metrics: m, keepAlive: 15 * time.Second, buffer: 32}
}

func (h *Handler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.GET("/realtime/:collection", h.Stream)
}

// Stream relays change events of a collection as server-sent events until
// the client goes away. The event kind comes from ?event=, INSERT by
// default.
func (h *Handler) Stream(c *gin.Context) {
	collection := c.Param("collection")
	if collection != model.BookingCollection {
		httputil.RespondWithError(c, apperrors.NewNotFound("collection", nil))
		return
	}

	kind := model.ChangeKind(strings.ToUpper(c.DefaultQuery("event", string(model.ChangeInsert))))
	switch kind {
	case model.ChangeInsert, model.ChangeUpdate, model.ChangeDelete:
	default:
		httputil.RespondWithError(c, apperrors.NewBadRequest("event must be INSERT, UPDATE or DELETE", nil))
		return
	}

	ctx := c.Request.Context()
	// the feed may call back after c has gone back to gin's pool
	requestID := c.GetString(middleware.ContextRequestID)
	events := make(chan model.ChangeEvent, h.buffer)
	sub, err := h.feed.Subscribe(ctx, collection, kind, func(_ context.Context, e model.ChangeEvent) {
		select {
		case events <- e:
		default:
			log.Warn().
				Str("request_id", requestID).
				Msg("realtime client too slow, event dropped")
		}
	})
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewInternal(err))
		return
	}
	defer sub.Unsubscribe()

	h.metrics.RealtimeSubscribers.Inc()
	defer h.metrics.RealtimeSubscribers.Dec()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	_, _ = io.WriteString(c.Writer, ": connected\n\n")
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case e := <-events:
			c.SSEvent(EventName, e)
			return true
		case <-ticker.C:
			_, err := io.WriteString(w, ": ping\n\n")
			return err == nil
		}
	})
}
