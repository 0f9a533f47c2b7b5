package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/clinic-booking/internal/model"
	"github.com/jwalitptl/clinic-booking/internal/notify"
	"github.com/jwalitptl/clinic-booking/internal/pushsub"
)

func newNotificationsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Manage booking notifications for this device",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "enable",
			Short: "Ask for permission and register this device",
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := a.pushManager()
				if err != nil {
					return err
				}
				created, err := m.Subscribe(cmd.Context())
				if errors.Is(err, pushsub.ErrPermissionDenied) {
					fmt.Fprintln(a.out, pushsub.MsgPermissionDenied)
					return err
				}
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintln(a.out, "تم تفعيل الإشعارات")
				} else {
					fmt.Fprintln(a.out, "الإشعارات مفعلة مسبقاً")
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "disable",
			Short: "Remove the registration of this device",
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := a.pushManager()
				if err != nil {
					return err
				}
				if err := m.Unsubscribe(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(a.out, "تم إيقاف الإشعارات")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the permission and registration of this device",
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := a.pushManager()
				if err != nil {
					return err
				}
				st, err := m.Status(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "permission: %s\n", st.Permission)
				if st.Subscribed() {
					fmt.Fprintf(a.out, "subscribed: yes (device %s, %s, channel %s, since %s)\n",
						st.Subscription.DeviceID, st.Subscription.Platform, st.Subscription.Channel,
						st.Subscription.CreatedAt.In(a.cfg.Location()).Format("2006-01-02 15:04"))
				} else {
					fmt.Fprintln(a.out, "subscribed: no")
				}
				switch {
				case st.Server == nil:
					fmt.Fprintln(a.out, "server: none")
				case st.InSync():
					fmt.Fprintln(a.out, "server: this device")
				default:
					fmt.Fprintf(a.out, "server: device %s (%s)\n", st.Server.DeviceID, st.Server.Platform)
				}
				return nil
			},
		},
	)
	return cmd
}

func (a *app) pushManager() (*pushsub.Manager, error) {
	c, err := a.operatorClient()
	if err != nil {
		return nil, err
	}
	var desktop notify.Displayer = notify.NewDesktopDisplayer(a.store, a.in, a.out)
	return pushsub.NewManager(
		desktop,
		pushsub.NewStateRegistry(a.store, a.cfg.Endpoint),
		c,
		model.ChangeChannel(model.BookingCollection, model.ChangeInsert),
		a.logger,
	), nil
}
