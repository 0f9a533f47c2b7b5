// Package wizard implements the multi-step booking intake flow: service,
// schedule, contact details, confirmation.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/jwalitptl/clinic-booking/internal/model"
	"github.com/jwalitptl/clinic-booking/pkg/validator"
)

var (
	ErrSubmitInFlight   = errors.New("wizard: a submission is already in progress")
	ErrInvalidForm      = errors.New("wizard: form has invalid fields")
	ErrScheduleRequired = errors.New("wizard: date and time are required")
	ErrCompleted        = errors.New("wizard: booking already confirmed")
	ErrClosed           = errors.New("wizard: closed")
)

// Messages shown by the wizard itself.
const (
	NoticeSubmitFailed = "حدث خطأ، يرجى المحاولة مرة أخرى"
	MsgDateRequired    = "يرجى اختيار التاريخ"
	MsgTimeRequired    = "يرجى اختيار الوقت"
)

// Policy decides whether the schedule step may be skipped.
type Policy int

const (
	// PolicyRelaxed lets the visitor continue without a date or time.
	PolicyRelaxed Policy = iota
	// PolicyStrict requires both a date and a time before the contact step.
	PolicyStrict
)

type ServiceLister interface {
	ListServices(ctx context.Context) ([]*model.Service, error)
}

type Submitter interface {
	CreateBooking(ctx context.Context, req *model.CreateBookingRequest) (*model.Booking, error)
}

// Backend is the bookings store as seen by the wizard.
type Backend interface {
	ServiceLister
	Submitter
}

type Config struct {
	Policy Policy
	Logger *zap.Logger
}

// State is a snapshot of the wizard.
type State struct {
	Step       Step
	Form       Form
	Services   []*model.Service
	Errors     map[string]string
	Notice     string
	Submitting bool
	Booking    *model.Booking
}

// Wizard drives one visitor's booking. It is safe for concurrent use, but
// only one submission can be in flight at a time.
type Wizard struct {
	mu        sync.Mutex
	backend   Backend
	validator *validator.Validator
	policy    Policy
	logger    *zap.Logger

	state  State
	closed bool
	// gen changes whenever the wizard is reset or closed, so a submission
	// started before that can tell its result is stale.
	gen uint64
}

func New(backend Backend, v *validator.Validator, cfg Config) *Wizard {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Wizard{
		backend:   backend,
		validator: v,
		policy:    cfg.Policy,
		logger:    logger,
		state:     State{Step: ServiceSelection, Errors: map[string]string{}},
	}
}

func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := w.state
	s.Errors = make(map[string]string, len(w.state.Errors))
	for k, v := range w.state.Errors {
		s.Errors[k] = v
	}
	s.Services = append([]*model.Service(nil), w.state.Services...)
	return s
}

// MinDate is the earliest date the visitor may pick.
func (w *Wizard) MinDate() model.Date {
	return w.validator.Today()
}

// LoadServices fetches the service options for the first step.
func (w *Wizard) LoadServices(ctx context.Context) error {
	services, err := w.backend.ListServices(ctx)
	if err != nil {
		w.logger.Error("failed to load services", zap.Error(err))
		return fmt.Errorf("failed to load services: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.state.Services = services
	return nil
}

// edit applies fn to the form under the lock. Edits are rejected once the
// wizard is closed, confirmed, or while a submission is pending.
func (w *Wizard) edit(fn func(Form) (Form, error)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editableLocked(); err != nil {
		return err
	}
	next, err := fn(w.state.Form)
	if err != nil {
		return err
	}
	w.state.Form = next
	return nil
}

func (w *Wizard) editableLocked() error {
	switch {
	case w.closed:
		return ErrClosed
	case w.state.Submitting:
		return ErrSubmitInFlight
	case w.state.Step == Confirmed:
		return ErrCompleted
	}
	return nil
}

// SelectService picks a service. An empty id selects a general consultation.
func (w *Wizard) SelectService(id, title string) error {
	return w.edit(func(f Form) (Form, error) {
		if id == "" {
			title = ""
		}
		return f.WithService(id, title), nil
	})
}

// SelectDate sets the preferred date. Dates before today are refused and
// leave the previous choice in place. An empty value clears the date.
func (w *Wizard) SelectDate(date string) error {
	return w.edit(func(f Form) (Form, error) {
		if fe := w.validator.Date(date); fe != nil {
			w.state.Errors[fe.Field] = fe.Message
			return f, ErrInvalidForm
		}
		delete(w.state.Errors, "preferred_date")
		return f.WithDate(date), nil
	})
}

// SelectTime sets the preferred slot. An empty value clears it.
func (w *Wizard) SelectTime(slot string) error {
	return w.edit(func(f Form) (Form, error) {
		if fe := validator.TimeSlot(slot); fe != nil {
			w.state.Errors[fe.Field] = fe.Message
			return f, ErrInvalidForm
		}
		delete(w.state.Errors, "preferred_time")
		return f.WithTime(slot), nil
	})
}

func (w *Wizard) SetName(name string) error {
	return w.edit(func(f Form) (Form, error) {
		delete(w.state.Errors, "patient_name")
		return f.WithName(name), nil
	})
}

// SetPhone stores the phone as typed: non-digits are dropped and the value is
// cut to nine digits. A complete number is checked right away.
func (w *Wizard) SetPhone(raw string) error {
	return w.edit(func(f Form) (Form, error) {
		cleaned := validator.CleanPhone(raw)
		delete(w.state.Errors, "phone")
		if len(cleaned) == validator.PhoneDigits {
			if fe := validator.Phone(cleaned); fe != nil {
				w.state.Errors[fe.Field] = fe.Message
			}
		}
		return f.WithPhone(cleaned), nil
	})
}

func (w *Wizard) SetNotes(notes string) error {
	return w.edit(func(f Form) (Form, error) {
		return f.WithNotes(notes), nil
	})
}

// Back returns to the previous step keeping everything entered so far.
// It is a no-op on the first step.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editableLocked(); err != nil {
		return err
	}
	if w.state.Step > ServiceSelection {
		w.state.Step--
	}
	w.state.Notice = ""
	return nil
}

// Next advances one step. From ContactDetails it validates the form and
// submits it; ctx bounds the submission.
func (w *Wizard) Next(ctx context.Context) error {
	w.mu.Lock()
	if err := w.editableLocked(); err != nil {
		w.mu.Unlock()
		return err
	}

	switch w.state.Step {
	case ServiceSelection:
		w.state.Step = ScheduleSelection
		w.mu.Unlock()
		return nil
	case ScheduleSelection:
		err := w.leaveScheduleLocked()
		w.mu.Unlock()
		return err
	}

	// ContactDetails
	if errs := w.validateLocked(); len(errs) > 0 {
		w.state.Errors = errs
		w.mu.Unlock()
		return ErrInvalidForm
	}
	req := w.state.Form.Request()
	w.state.Submitting = true
	w.state.Notice = ""
	gen := w.gen
	w.mu.Unlock()

	booking, err := w.backend.CreateBooking(ctx, req)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.gen != gen {
		return ErrClosed
	}
	w.state.Submitting = false

	if err != nil {
		w.logger.Error("failed to submit booking", zap.Error(err))
		w.state.Notice = NoticeSubmitFailed
		return fmt.Errorf("failed to submit booking: %w", err)
	}

	w.state.Booking = booking
	w.state.Step = Confirmed
	return nil
}

func (w *Wizard) leaveScheduleLocked() error {
	if w.policy == PolicyStrict {
		missing := false
		if w.state.Form.Date == "" {
			w.state.Errors["preferred_date"] = MsgDateRequired
			missing = true
		}
		if w.state.Form.Time == "" {
			w.state.Errors["preferred_time"] = MsgTimeRequired
			missing = true
		}
		if missing {
			return ErrScheduleRequired
		}
	}
	w.state.Step = ContactDetails
	return nil
}

func (w *Wizard) validateLocked() map[string]string {
	errs := map[string]string{}
	f := w.state.Form

	if fe := validator.Name(f.Name); fe != nil {
		errs[fe.Field] = fe.Message
	}
	if fe := validator.Phone(f.Phone); fe != nil {
		errs[fe.Field] = fe.Message
	}
	if fe := w.validator.Date(f.Date); fe != nil {
		errs[fe.Field] = fe.Message
	}
	if fe := validator.TimeSlot(f.Time); fe != nil {
		errs[fe.Field] = fe.Message
	}
	return errs
}

// BookAnother clears every field and starts over at ServiceSelection. The
// loaded service options are kept.
func (w *Wizard) BookAnother() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.state.Submitting {
		return ErrSubmitInFlight
	}
	w.gen++
	w.state = State{
		Step:     ServiceSelection,
		Services: w.state.Services,
		Errors:   map[string]string{},
	}
	return nil
}

// Close tears the wizard down. A submission still in flight is not
// cancelled, but its result is dropped.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	w.gen++
}
