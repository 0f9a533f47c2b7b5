package booking

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/jwalitptl/clinic-booking/internal/model"
)

const unscheduled = "سيتم التحديد"

// WhatsAppLinker builds wa.me links that open a confirmation message to the
// patient.
type WhatsAppLinker struct {
	region string
	clinic string
}

func NewWhatsAppLinker(region, clinicName string) *WhatsAppLinker {
	return &WhatsAppLinker{region: strings.ToUpper(region), clinic: clinicName}
}

// International returns the phone number in E.164 form, e.g. +967712345678.
func (l *WhatsAppLinker) International(phone string) (string, error) {
	num, err := phonenumbers.Parse(phone, l.region)
	if err != nil {
		return "", fmt.Errorf("failed to parse phone %q: %w", phone, err)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func (l *WhatsAppLinker) Message(b *model.Booking) string {
	date, slot := unscheduled, unscheduled
	if b.PreferredDate != nil {
		date = b.PreferredDate.String()
	}
	if b.PreferredTime != nil && *b.PreferredTime != "" {
		slot = *b.PreferredTime
	}
	return fmt.Sprintf("مرحباً %s،\n\nتم تأكيد موعدك في %s.\n\n📅 التاريخ: %s\n⏰ الوقت: %s\n\nنتطلع لرؤيتك!",
		b.PatientName, l.clinic, date, slot)
}

// Link returns an empty string when the stored phone cannot be parsed.
func (l *WhatsAppLinker) Link(b *model.Booking) string {
	e164, err := l.International(b.Phone)
	if err != nil {
		return ""
	}
	text := strings.ReplaceAll(url.QueryEscape(l.Message(b)), "+", "%20")
	return fmt.Sprintf("https://wa.me/%s?text=%s", strings.TrimPrefix(e164, "+"), text)
}

func (l *WhatsAppLinker) View(b *model.Booking) *model.BookingView {
	return &model.BookingView{Booking: b, WhatsAppURL: l.Link(b)}
}
