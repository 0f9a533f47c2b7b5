package notify

import (
	"context"
	"fmt"

	"github.com/jwalitptl/clinic-booking/internal/email"
)

// MailDisplayer forwards notifications to the operators' mailboxes.
// Permission is granted whenever it is configured with recipients.
type MailDisplayer struct {
	sender email.Service
	to     []string
}

func NewMailDisplayer(sender email.Service, to []string) *MailDisplayer {
	return &MailDisplayer{sender: sender, to: to}
}

func (d *MailDisplayer) Permission() Permission {
	if d.sender == nil || len(d.to) == 0 {
		return PermissionDenied
	}
	return PermissionGranted
}

func (d *MailDisplayer) RequestPermission(ctx context.Context) (Permission, error) {
	return d.Permission(), nil
}

func (d *MailDisplayer) Show(ctx context.Context, n Notification) error {
	if d.Permission() != PermissionGranted {
		return ErrNotGranted
	}
	if err := d.sender.SendCustom(ctx, d.to, n.Title, n.Body); err != nil {
		return fmt.Errorf("failed to mail notification: %w", err)
	}
	return nil
}
