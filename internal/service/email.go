package service

import (
	"context"
	"fmt"

	"equiprent-backend/internal/domain"
	"equiprent-backend/internal/logger"

	"gopkg.in/gomail.v2"
)

type emailDeliverer struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailDeliverer(host string, port int, username, password, from string) Deliverer {
	return &emailDeliverer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (s *emailDeliverer) Name() string { return "smtp" }

func (s *emailDeliverer) Deliver(ctx context.Context, intent domain.Intent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := s.message(intent)

	logger.ExternalServiceCall("smtp", "DialAndSend", "to", intent.Recipient, "kind", intent.Kind)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email via gomail: %w", err)
	}
	return nil
}

func (s *emailDeliverer) message(intent domain.Intent) *gomail.Message {
	subject, body := RenderIntent(intent)

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", intent.Recipient)
	m.SetHeader("Subject", subject)
	m.SetHeader("X-Intent-ID", intent.ID)
	m.SetBody("text/plain", body+"\nBest regards,\nThe EquipRent Team")
	return m
}
