package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jwalitptl/clinic-booking/internal/alert"
	"github.com/jwalitptl/clinic-booking/internal/email"
	"github.com/jwalitptl/clinic-booking/internal/listener"
	"github.com/jwalitptl/clinic-booking/internal/model"
	"github.com/jwalitptl/clinic-booking/internal/notify"
	"github.com/jwalitptl/clinic-booking/internal/realtime"
	"github.com/jwalitptl/clinic-booking/pkg/messaging/redis"
)

const stopTimeout = 5 * time.Second

func newListenCommand(a *app) *cobra.Command {
	var bellOnly bool

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Chime and notify for every new booking until interrupted",
		Long: `Subscribes to new bookings through the API stream, or straight from
Redis when CLINIC_REDIS_URL is set. Every booking plays the chime and, when
notifications are allowed, shows a desktop notification and sends mail to
CLINIC_MAIL_TO.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			feed, closeFeed, err := a.feed()
			if err != nil {
				return err
			}
			defer closeFeed()

			command := a.cfg.AudioCommand
			if bellOnly {
				command = nil
			}
			player := alert.NewPlayer(alert.DefaultChime, command, os.Stdout)

			desktop, displayer := a.displayers()
			if desktop.Permission() == notify.PermissionDefault {
				if _, err := desktop.RequestPermission(ctx); err != nil {
					a.logger.Warn("failed to request notification permission", zap.Error(err))
				}
			}

			l := listener.New(feed, player, displayer, a.logger)
			l.OnBooking = func(b *model.Booking) {
				fmt.Fprintf(a.out, "[%s] %s\n", b.CreatedAt.In(a.cfg.Location()).Format("15:04"),
					listener.NotificationBody(b))
			}
			if err := l.Start(ctx); err != nil {
				return err
			}

			fmt.Fprintln(a.out, "بانتظار الحجوزات الجديدة... (Ctrl+C للخروج)")
			<-ctx.Done()

			select {
			case <-l.Stop():
			case <-time.After(stopTimeout):
				a.logger.Warn("realtime feed did not stop in time")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&bellOnly, "bell", false, "use the terminal bell instead of the audio command")
	return cmd
}

// feed reads Redis directly when configured and the API stream otherwise.
func (a *app) feed() (realtime.Feed, func(), error) {
	onError := func(err error) {
		a.logger.Warn("realtime feed error", zap.Error(err))
	}

	if a.cfg.RedisURL != "" {
		broker, err := redis.NewRedisBroker(redis.Config{URL: a.cfg.RedisURL}, nil, nil)
		if err != nil {
			return nil, nil, err
		}
		return realtime.NewBrokerFeed(broker, onError), func() { _ = broker.Close() }, nil
	}

	c, err := a.operatorClient()
	if err != nil {
		return nil, nil, err
	}
	return c.Feed(onError), func() {}, nil
}

// displayers returns the desktop notifier alone and combined with mail when
// mail is enabled.
func (a *app) displayers() (*notify.DesktopDisplayer, notify.Displayer) {
	desktop := notify.NewDesktopDisplayer(a.store, a.in, a.out)
	all := notify.Multi{desktop}
	if a.cfg.Mail.Enabled {
		sender := email.NewSMTPService(a.cfg.Mail.emailConfig())
		all = append(all, notify.NewMailDisplayer(sender, a.cfg.Mail.To))
	}
	return desktop, all
}

