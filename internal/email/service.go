package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"
)

var ErrDisabled = errors.New("email: sending is disabled")

// Service sends plain text mail.
type Service interface {
	SendCustom(ctx context.Context, to []string, subject string, content string) error
}

type Config struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	SSL      bool
	Timeout  time.Duration
}

type smtpService struct {
	cfg  Config
	send func(*gomail.Message) error
}

func NewSMTPService(cfg Config) Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	s := &smtpService{cfg: cfg}
	s.send = func(msg *gomail.Message) error {
		d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
		d.SSL = cfg.SSL
		if cfg.SSL {
			d.TLSConfig = &tls.Config{ServerName: cfg.Host}
		}
		return d.DialAndSend(msg)
	}
	return s
}

func (s *smtpService) SendCustom(ctx context.Context, to []string, subject string, content string) error {
	if !s.cfg.Enabled {
		return ErrDisabled
	}

	msg, err := buildMessage(s.cfg.From, to, subject, content)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- s.send(msg)
	}()

	// ctx may have a sooner deadline than the configured timeout
	wait := s.cfg.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < wait {
			wait = d
		}
	}

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send mail: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return context.DeadlineExceeded
	}
}

func buildMessage(from string, to []string, subject, content string) (*gomail.Message, error) {
	from = strings.TrimSpace(from)
	if from == "" {
		return nil, errors.New("email: from is required")
	}
	recipients := cleanAddrs(to)
	if len(recipients) == 0 {
		return nil, errors.New("email: at least one recipient is required")
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, errors.New("email: subject is required")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", recipients...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", content)
	return msg, nil
}

func cleanAddrs(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
