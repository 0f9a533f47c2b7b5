package email

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

func TestSendCustom(t *testing.T) {
	svc := NewSMTPService(Config{Enabled: true, From: "clinic@example.com"}).(*smtpService)

	var sent *gomail.Message
	svc.send = func(m *gomail.Message) error {
		sent = m
		return nil
	}

	err := svc.SendCustom(context.Background(), []string{" ops@example.com ", ""}, "حجز جديد", "body")
	require.NoError(t, err)
	require.NotNil(t, sent)
	assert.Equal(t, []string{"ops@example.com"}, sent.GetHeader("To"))

	var raw bytes.Buffer
	_, err = sent.WriteTo(&raw)
	require.NoError(t, err)
	assert.Contains(t, raw.String(), "body")
}

func TestSendCustomDisabled(t *testing.T) {
	svc := NewSMTPService(Config{From: "clinic@example.com"})
	assert.ErrorIs(t, svc.SendCustom(context.Background(), []string{"a@example.com"}, "s", "b"), ErrDisabled)
}

func TestSendCustomValidation(t *testing.T) {
	svc := NewSMTPService(Config{Enabled: true, From: "clinic@example.com"})
	assert.Error(t, svc.SendCustom(context.Background(), nil, "s", "b"))
	assert.Error(t, svc.SendCustom(context.Background(), []string{"a@example.com"}, " ", "b"))
}

func TestSendCustomTimeout(t *testing.T) {
	svc := NewSMTPService(Config{Enabled: true, From: "clinic@example.com", Timeout: 10 * time.Millisecond}).(*smtpService)
	release := make(chan struct{})
	defer close(release)
	svc.send = func(*gomail.Message) error {
		<-release
		return errors.New("too late")
	}

	err := svc.SendCustom(context.Background(), []string{"a@example.com"}, "s", "b")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
