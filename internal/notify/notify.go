// Package notify asks for and shows operator notifications.
package notify

import (
	"context"
	"errors"
)

type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

var ErrNotGranted = errors.New("notify: permission not granted")

// Notification is one message for the operator. Notifications sharing a Tag
// replace each other where the display supports it.
type Notification struct {
	Title string
	Body  string
	Tag   string
}

// Displayer is the host's notification facility.
type Displayer interface {
	Permission() Permission
	// RequestPermission asks the operator when no answer is stored yet and
	// returns the resulting permission.
	RequestPermission(ctx context.Context) (Permission, error)
	// Show fails with ErrNotGranted unless permission was granted.
	Show(ctx context.Context, n Notification) error
}

// Multi shows on every displayer that has permission. Permission is granted
// if any displayer has it.
type Multi []Displayer

func (m Multi) Permission() Permission {
	result := PermissionDenied
	for _, d := range m {
		switch d.Permission() {
		case PermissionGranted:
			return PermissionGranted
		case PermissionDefault:
			result = PermissionDefault
		}
	}
	return result
}

func (m Multi) RequestPermission(ctx context.Context) (Permission, error) {
	var errs []error
	for _, d := range m {
		if _, err := d.RequestPermission(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return m.Permission(), errors.Join(errs...)
}

func (m Multi) Show(ctx context.Context, n Notification) error {
	var errs []error
	shown := false
	for _, d := range m {
		if d.Permission() != PermissionGranted {
			continue
		}
		if err := d.Show(ctx, n); err != nil {
			errs = append(errs, err)
			continue
		}
		shown = true
	}
	if !shown && len(errs) == 0 {
		return ErrNotGranted
	}
	return errors.Join(errs...)
}
