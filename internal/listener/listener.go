// Package listener alerts the operator about new bookings while it runs.
package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/jwalitptl/clinic-booking/internal/alert"
	"github.com/jwalitptl/clinic-booking/internal/model"
	"github.com/jwalitptl/clinic-booking/internal/notify"
	"github.com/jwalitptl/clinic-booking/internal/realtime"
)

const (
	NotificationTitle = "🔔 حجز جديد!"
	NotificationTag   = "new-booking"
)

var ErrAlreadyStarted = errors.New("listener: already started")

// NotificationBody is the text shown for a new booking.
func NotificationBody(b *model.Booking) string {
	return fmt.Sprintf("حجز جديد من: %s\nالهاتف: %s", b.PatientName, b.Phone)
}

type Listener struct {
	feed      realtime.Feed
	player    alert.Player
	displayer notify.Displayer
	logger    *zap.Logger

	mu      sync.Mutex
	sub     realtime.Subscription
	stopped bool
	// OnBooking, if set, is called after the alerts for every booking.
	OnBooking func(*model.Booking)
}

func New(feed realtime.Feed, player alert.Player, displayer notify.Displayer, logger *zap.Logger) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{feed: feed, player: player, displayer: displayer, logger: logger}
}

// Start opens the INSERT subscription on bookings.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sub != nil {
		return ErrAlreadyStarted
	}
	sub, err := l.feed.Subscribe(ctx, model.BookingCollection, model.ChangeInsert, l.handle)
	if err != nil {
		return fmt.Errorf("failed to subscribe to bookings: %w", err)
	}
	l.sub = sub
	l.stopped = false
	l.logger.Info("listening for new bookings")
	return nil
}

// Stop releases the subscription. Events delivered afterwards are ignored.
// The returned channel is closed once the feed has delivered its last event.
func (l *Listener) Stop() <-chan struct{} {
	l.mu.Lock()
	sub := l.sub
	l.sub = nil
	l.stopped = true
	l.mu.Unlock()

	if sub == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	sub.Unsubscribe()
	l.logger.Info("stopped listening for new bookings")
	return sub.Done()
}

func (l *Listener) active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sub != nil && !l.stopped
}

func (l *Listener) handle(ctx context.Context, event model.ChangeEvent) {
	if !l.active() {
		return
	}

	var booking model.Booking
	if err := json.Unmarshal(event.New, &booking); err != nil {
		l.logger.Error("failed to decode booking event", zap.Error(err))
		return
	}

	if err := l.player.Play(ctx); err != nil {
		l.logger.Warn("failed to play alert", zap.Error(err))
	}

	if l.displayer.Permission() == notify.PermissionGranted {
		n := notify.Notification{
			Title: NotificationTitle,
			Body:  NotificationBody(&booking),
			Tag:   NotificationTag,
		}
		if err := l.displayer.Show(ctx, n); err != nil {
			l.logger.Warn("failed to show notification", zap.Error(err))
		}
	}

	l.logger.Info("new booking",
		zap.String("booking_id", booking.ID.String()),
		zap.String("patient_name", booking.PatientName))

	if l.OnBooking != nil {
		l.OnBooking(&booking)
	}
}
