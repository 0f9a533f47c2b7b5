package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-booking/internal/model"
)

func fixedValidator(t *testing.T) *Validator {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Aden")
	require.NoError(t, err)
	// 22:30 UTC on the 9th is already the 10th in Aden.
	now := time.Date(2026, 3, 9, 22, 30, 0, 0, time.UTC)
	return New(loc).WithClock(func() time.Time { return now })
}

func TestCleanPhone(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"712345678", "712345678"},
		{"712-345-678", "712345678"},
		{"+967 712 345 678", "967712345"},
		{"7123456789999", "712345678"},
		{"abc", ""},
		{"٧١٢", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanPhone(tt.raw), "raw=%q", tt.raw)
	}
}

func TestPhone(t *testing.T) {
	assert.Nil(t, Phone("712345678"))

	err := Phone("612345678")
	require.NotNil(t, err)
	assert.Equal(t, MsgPhonePrefix, err.Message)
	assert.Equal(t, "phone", err.Field)

	for _, bad := range []string{"", "12345", "71234567", "7123456789", "71234567a"} {
		err := Phone(bad)
		require.NotNil(t, err, "phone=%q", bad)
		assert.Equal(t, MsgPhoneLength, err.Message)
	}
}

func TestName(t *testing.T) {
	assert.Nil(t, Name("أحمد"))
	require.NotNil(t, Name("   "))
	assert.Equal(t, MsgNameRequired, Name("").Message)
}

func TestDateUsesClinicTimeZone(t *testing.T) {
	v := fixedValidator(t)

	assert.Equal(t, "2026-03-10", v.Today().String())
	assert.Nil(t, v.Date(""))
	assert.Nil(t, v.Date("2026-03-10"))
	assert.Nil(t, v.Date("2026-04-01"))

	err := v.Date("2026-03-09")
	require.NotNil(t, err)
	assert.Equal(t, MsgPastDate, err.Message)

	err = v.Date("10/03/2026")
	require.NotNil(t, err)
	assert.Equal(t, MsgInvalidDate, err.Message)
}

func TestTimeSlot(t *testing.T) {
	assert.Nil(t, TimeSlot(""))
	assert.Nil(t, TimeSlot("09:00"))
	assert.Nil(t, TimeSlot("19:30"))
	assert.NotNil(t, TimeSlot("12:00"))
	assert.NotNil(t, TimeSlot("20:00"))
	assert.Len(t, model.TimeSlots, 18)
}

func TestBooking(t *testing.T) {
	v := fixedValidator(t)

	t.Run("minimal booking is accepted", func(t *testing.T) {
		req := &model.CreateBookingRequest{PatientName: " أحمد ", Phone: "712 345 678"}
		assert.Empty(t, v.Booking(req))
		assert.Equal(t, "أحمد", req.PatientName)
		assert.Equal(t, "712345678", req.Phone)
	})

	t.Run("full booking is accepted", func(t *testing.T) {
		req := &model.CreateBookingRequest{
			PatientName:   "Sara",
			Phone:         "771234567",
			ServiceID:     "4f3a6a5e-8a3c-4a8e-9d55-0c1f3a0b2d11",
			PreferredDate: "2026-03-12",
			PreferredTime: "14:30",
			Notes:         "first visit",
		}
		assert.Empty(t, v.Booking(req))
	})

	tests := []struct {
		name  string
		req   model.CreateBookingRequest
		field string
		msg   string
	}{
		{"wrong leading digit", model.CreateBookingRequest{PatientName: "a", Phone: "612345678"}, "phone", MsgPhonePrefix},
		{"short phone", model.CreateBookingRequest{PatientName: "a", Phone: "12345"}, "phone", MsgPhoneLength},
		{"long phone is not truncated", model.CreateBookingRequest{PatientName: "a", Phone: "7123456789"}, "phone", MsgPhoneLength},
		{"empty phone", model.CreateBookingRequest{PatientName: "a"}, "phone", MsgPhoneLength},
		{"blank name", model.CreateBookingRequest{PatientName: "  ", Phone: "712345678"}, "patient_name", MsgNameRequired},
		{"past date", model.CreateBookingRequest{PatientName: "a", Phone: "712345678", PreferredDate: "2026-03-09"}, "preferred_date", MsgPastDate},
		{"bad date", model.CreateBookingRequest{PatientName: "a", Phone: "712345678", PreferredDate: "tomorrow"}, "preferred_date", MsgInvalidDate},
		{"unknown slot", model.CreateBookingRequest{PatientName: "a", Phone: "712345678", PreferredTime: "12:15"}, "preferred_time", MsgInvalidTime},
		{"bad service", model.CreateBookingRequest{PatientName: "a", Phone: "712345678", ServiceID: "x"}, "service_id", MsgInvalidService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			errs := v.Booking(&req)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
			assert.Equal(t, tt.msg, errs[0].Message)
		})
	}
}
