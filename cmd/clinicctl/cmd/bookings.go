package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/clinic-booking/internal/model"
)

func newBookingsCommand(a *app) *cobra.Command {
	var status, date string

	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "List booking requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.operatorClient()
			if err != nil {
				return err
			}

			var day *model.Date
			if date != "" {
				d, err := model.ParseDate(date)
				if err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
				day = &d
			}

			bookings, err := c.ListBookings(cmd.Context(), model.BookingStatus(status), day)
			if err != nil {
				return err
			}
			a.printBookings(bookings)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "pending, confirmed, cancelled, completed or all")
	cmd.Flags().StringVar(&date, "date", "", "preferred date YYYY-MM-DD")

	cmd.AddCommand(&cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change the status of a booking",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid booking id: %w", err)
			}
			next := model.BookingStatus(args[1])
			if !next.Valid() {
				return fmt.Errorf("invalid status %q", args[1])
			}

			c, err := a.operatorClient()
			if err != nil {
				return err
			}
			b, err := c.UpdateBookingStatus(cmd.Context(), id, next)
			if err != nil {
				return err
			}
			a.printBookings([]*model.BookingView{b})
			return nil
		},
	})
	return cmd
}

func (a *app) printBookings(bookings []*model.BookingView) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tNAME\tPHONE\tSERVICE\tDATE\tTIME\tWHATSAPP")
	for _, b := range bookings {
		if b == nil || b.Booking == nil {
			continue
		}
		service := "-"
		if b.ServiceTitle != nil {
			service = *b.ServiceTitle
		}
		day := "-"
		if b.PreferredDate != nil {
			day = b.PreferredDate.String()
		}
		slot := "-"
		if b.PreferredTime != nil {
			slot = *b.PreferredTime
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, b.Status, b.PatientName, b.Phone, service, day, slot, b.WhatsAppURL)
	}
	_ = tw.Flush()
}
