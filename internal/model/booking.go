package model

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

// BookingStatuses lists every status an operator may set, in display order.
var BookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusCancelled,
	BookingStatusCompleted,
}

func (s BookingStatus) Valid() bool {
	for _, st := range BookingStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// BookingCollection is the change-feed collection name for bookings.
const BookingCollection = "bookings"

type Booking struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	PatientName   string        `db:"patient_name" json:"patient_name"`
	Phone         string        `db:"phone" json:"phone"`
	ServiceID     *uuid.UUID    `db:"service_id" json:"service_id"`
	ServiceTitle  *string       `db:"service_title" json:"service_title,omitempty"`
	PreferredDate *Date         `db:"preferred_date" json:"preferred_date"`
	PreferredTime *string       `db:"preferred_time" json:"preferred_time"`
	Notes         *string       `db:"notes" json:"notes"`
	Status        BookingStatus `db:"status" json:"status"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// CreateBookingRequest is the public intake payload. Empty optional fields
// are stored as NULL.
type CreateBookingRequest struct {
	PatientName   string `json:"patient_name" validate:"required,max=200"`
	Phone         string `json:"phone" validate:"required,len=9,numeric,startswith=7"`
	ServiceID     string `json:"service_id" validate:"omitempty,uuid"`
	PreferredDate string `json:"preferred_date" validate:"omitempty,dateformat,notpast"`
	PreferredTime string `json:"preferred_time" validate:"omitempty,timeslot"`
	Notes         string `json:"notes" validate:"max=2000"`
}

type UpdateBookingStatusRequest struct {
	Status BookingStatus `json:"status" binding:"required"`
}

// BookingFilter narrows the operator listing. Zero values mean "any".
type BookingFilter struct {
	Status BookingStatus
	Date   *Date
	Limit  int
}

// BookingView is a booking as returned to operators.
type BookingView struct {
	*Booking
	WhatsAppURL string `json:"whatsapp_url,omitempty"`
}

// CalendarDay groups the bookings requested for one preferred date.
type CalendarDay struct {
	Date     Date                  `json:"date"`
	Total    int                   `json:"total"`
	Counts   map[BookingStatus]int `json:"counts"`
	Bookings []*BookingView        `json:"bookings"`
}
