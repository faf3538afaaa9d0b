package service

import (
	"context"
	"encoding/json"
	"fmt"

	"equiprent-backend/internal/domain"
	"equiprent-backend/internal/logger"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sendGridDeliverer struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	templates map[string]string
}

// NewSendGridDeliverer sends intents through SendGrid. Kinds with a configured
// dynamic template get the payload as template data; the rest go out as plain text.
func NewSendGridDeliverer(apiKey, fromEmail, fromName string, templates map[string]string) Deliverer {
	return &sendGridDeliverer{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
		templates: templates,
	}
}

func (s *sendGridDeliverer) Name() string { return "sendgrid" }

func (s *sendGridDeliverer) Deliver(ctx context.Context, intent domain.Intent) error {
	message, err := s.message(intent)
	if err != nil {
		return err
	}

	logger.ExternalServiceCall("sendgrid", "Send", "to", intent.Recipient, "kind", intent.Kind)
	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}

func (s *sendGridDeliverer) message(intent domain.Intent) (*mail.SGMailV3, error) {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail("", intent.Recipient)

	templateID, ok := s.templates[string(intent.Kind)]
	if !ok {
		subject, body := RenderIntent(intent)
		return mail.NewSingleEmail(from, subject, recipient, body, ""), nil
	}

	data, err := payloadData(intent)
	if err != nil {
		return nil, err
	}

	message := mail.NewV3Mail()
	message.SetFrom(from)
	message.SetTemplateID(templateID)

	personalization := mail.NewPersonalization()
	personalization.AddTos(recipient)
	for key, value := range data {
		personalization.SetDynamicTemplateData(key, value)
	}
	personalization.SetDynamicTemplateData("kind", string(intent.Kind))
	personalization.SetDynamicTemplateData("intent_id", intent.ID)
	message.AddPersonalizations(personalization)
	return message, nil
}

// payloadData flattens the payload's JSON form into template variables.
func payloadData(intent domain.Intent) (map[string]interface{}, error) {
	raw, err := json.Marshal(intent.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", intent.Kind, err)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", intent.Kind, err)
	}
	return data, nil
}
