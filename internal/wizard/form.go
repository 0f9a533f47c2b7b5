package wizard

import (
	"github.com/jwalitptl/clinic-booking/internal/model"
)

// Step is a position in the booking wizard.
type Step int

const (
	ServiceSelection Step = iota
	ScheduleSelection
	ContactDetails
	Confirmed
)

func (s Step) String() string {
	switch s {
	case ServiceSelection:
		return "service"
	case ScheduleSelection:
		return "schedule"
	case ContactDetails:
		return "contact"
	case Confirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// Number is the 1-based step number shown to the visitor.
func (s Step) Number() int {
	return int(s) + 1
}

// GeneralConsultation is the title shown when no service is chosen.
const GeneralConsultation = "استشارة عامة"

// Form is the data collected so far. It is a value: every edit produces a
// new Form and the wizard swaps it in whole.
type Form struct {
	ServiceID    string
	ServiceTitle string
	Date         string
	Time         string
	Name         string
	Phone        string
	Notes        string
}

func (f Form) WithService(id, title string) Form {
	f.ServiceID = id
	f.ServiceTitle = title
	return f
}

func (f Form) WithDate(date string) Form {
	f.Date = date
	return f
}

func (f Form) WithTime(slot string) Form {
	f.Time = slot
	return f
}

func (f Form) WithName(name string) Form {
	f.Name = name
	return f
}

func (f Form) WithPhone(phone string) Form {
	f.Phone = phone
	return f
}

func (f Form) WithNotes(notes string) Form {
	f.Notes = notes
	return f
}

// ServiceLabel is the chosen service title, or the general consultation label.
func (f Form) ServiceLabel() string {
	if f.ServiceID == "" {
		return GeneralConsultation
	}
	return f.ServiceTitle
}

// Request converts the form into the payload sent to the bookings store.
func (f Form) Request() *model.CreateBookingRequest {
	return &model.CreateBookingRequest{
		PatientName:   f.Name,
		Phone:         f.Phone,
		ServiceID:     f.ServiceID,
		PreferredDate: f.Date,
		PreferredTime: f.Time,
		Notes:         f.Notes,
	}
}
