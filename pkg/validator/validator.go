package validator

import (
	"reflect"
	"strings"
	"time"
	"unicode"

	playground "github.com/go-playground/validator/v10"

	"github.com/jwalitptl/clinic-booking/internal/model"
	apperrors "github.com/jwalitptl/clinic-booking/pkg/errors"
)

const PhoneDigits = 9

// User facing messages.
const (
	MsgPhoneLength    = "رقم الهاتف يجب أن يكون 9 أرقام (مثال: 7XXXXXXXX)"
	MsgPhonePrefix    = "رقم الهاتف يجب أن يبدأ بـ 7"
	MsgNameRequired   = "يرجى إدخال الاسم"
	MsgNameTooLong    = "الاسم طويل جداً"
	MsgPastDate       = "لا يمكن اختيار تاريخ سابق"
	MsgInvalidDate    = "صيغة التاريخ غير صحيحة"
	MsgInvalidTime    = "يرجى اختيار وقت من المواعيد المتاحة"
	MsgInvalidService = "الخدمة المختارة غير صحيحة"
	MsgNotesTooLong   = "الملاحظات طويلة جداً"
	MsgInvalidValue   = "قيمة غير صحيحة"
)

// messages maps "<json field>.<tag>" to the message shown for that failure.
var messages = map[string]string{
	"patient_name.required":     MsgNameRequired,
	"patient_name.max":          MsgNameTooLong,
	"phone.required":            MsgPhoneLength,
	"phone.len":                 MsgPhoneLength,
	"phone.numeric":             MsgPhoneLength,
	"phone.startswith":          MsgPhonePrefix,
	"service_id.uuid":           MsgInvalidService,
	"preferred_date.dateformat": MsgInvalidDate,
	"preferred_date.notpast":    MsgPastDate,
	"preferred_time.timeslot":   MsgInvalidTime,
	"notes.max":                 MsgNotesTooLong,
}

type FieldError = apperrors.FieldError

// DigitsOnly drops every character that is not an ASCII digit.
func DigitsOnly(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CleanPhone is applied as the phone number is typed: non-digits are
// stripped and the result is cut to PhoneDigits characters.
func CleanPhone(raw string) string {
	digits := DigitsOnly(raw)
	if len(digits) > PhoneDigits {
		digits = digits[:PhoneDigits]
	}
	return digits
}

// Phone checks an already cleaned phone number.
func Phone(cleaned string) *FieldError {
	if len(cleaned) != PhoneDigits || DigitsOnly(cleaned) != cleaned {
		return &FieldError{Field: "phone", Message: MsgPhoneLength}
	}
	if cleaned[0] != '7' {
		return &FieldError{Field: "phone", Message: MsgPhonePrefix}
	}
	return nil
}

func Name(name string) *FieldError {
	if strings.TrimFunc(name, unicode.IsSpace) == "" {
		return &FieldError{Field: "patient_name", Message: MsgNameRequired}
	}
	return nil
}

// Validator runs struct-tag validation with the clinic's custom rules.
type Validator struct {
	validate *playground.Validate
	loc      *time.Location
	now      func() time.Time
}

// New builds a validator. Dates are compared with "today" in loc; a nil loc
// means UTC.
func New(loc *time.Location) *Validator {
	if loc == nil {
		loc = time.UTC
	}
	v := &Validator{
		validate: playground.New(),
		loc:      loc,
		now:      time.Now,
	}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// Registration only fails on an empty tag or nil func.
	_ = v.validate.RegisterValidation("dateformat", func(fl playground.FieldLevel) bool {
		_, err := model.ParseDate(fl.Field().String())
		return err == nil
	})
	_ = v.validate.RegisterValidation("notpast", func(fl playground.FieldLevel) bool {
		d, err := model.ParseDate(fl.Field().String())
		if err != nil {
			return true
		}
		return !d.Before(v.Today())
	})
	_ = v.validate.RegisterValidation("timeslot", func(fl playground.FieldLevel) bool {
		return model.IsTimeSlot(fl.Field().String())
	})

	return v
}

// WithClock replaces the time source used for "today".
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

func (v *Validator) Location() *time.Location {
	return v.loc
}

// Today is the current calendar day in the clinic's time zone.
func (v *Validator) Today() model.Date {
	return model.DateOf(v.now().In(v.loc))
}

// Date checks an optional YYYY-MM-DD value.
func (v *Validator) Date(s string) *FieldError {
	if s == "" {
		return nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return &FieldError{Field: "preferred_date", Message: MsgInvalidDate}
	}
	if d.Before(v.Today()) {
		return &FieldError{Field: "preferred_date", Message: MsgPastDate}
	}
	return nil
}

// TimeSlot checks an optional preferred time.
func TimeSlot(s string) *FieldError {
	if s == "" || model.IsTimeSlot(s) {
		return nil
	}
	return &FieldError{Field: "preferred_time", Message: MsgInvalidTime}
}

// NormalizeBooking trims the name and strips non-digits from the phone.
// It does not truncate, so an over-long phone is still rejected.
func NormalizeBooking(req *model.CreateBookingRequest) {
	req.PatientName = strings.TrimSpace(req.PatientName)
	req.Phone = DigitsOnly(req.Phone)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.PreferredDate = strings.TrimSpace(req.PreferredDate)
	req.PreferredTime = strings.TrimSpace(req.PreferredTime)
}

// Booking normalizes and validates a booking request. It returns nil when
// the request may be stored.
func (v *Validator) Booking(req *model.CreateBookingRequest) []FieldError {
	NormalizeBooking(req)
	return v.Struct(req)
}

// Struct validates any struct carrying `validate` tags.
func (v *Validator) Struct(obj interface{}) []FieldError {
	err := v.validate.Struct(obj)
	if err == nil {
		return nil
	}
	verrs, ok := err.(playground.ValidationErrors)
	if !ok {
		return []FieldError{{Message: err.Error()}}
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, e := range verrs {
		msg, ok := messages[e.Field()+"."+e.Tag()]
		if !ok {
			msg = MsgInvalidValue
		}
		fields = append(fields, FieldError{Field: e.Field(), Message: msg})
	}
	return fields
}
