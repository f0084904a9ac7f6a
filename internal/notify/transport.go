package notify

import (
	"context"
	"fmt"

	"github.com/offolaunch/launchtrack/internal/config"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/wneessen/go-mail"
)

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, html string) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// SMTPSender delivers HTML mail through one SMTP relay.
type SMTPSender struct {
	client *mail.Client
	from   string
}

func NewSMTPSender(cfg config.SMTPConfig) (*SMTPSender, error) {
	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	if cfg.TLS {
		opts = append(opts, mail.WithSSLPort(false))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPSender{client: client, from: cfg.From}, nil
}

func (s *SMTPSender) SendEmail(ctx context.Context, to, subject, html string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat("OFFO Launch", s.from); err != nil {
		return fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)

	return s.client.DialAndSendWithContext(ctx, msg)
}

// TwilioSender sends text messages from one Twilio number.
type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioSender(cfg config.TwilioConfig) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioSender{client: client, from: cfg.From}
}

func (s *TwilioSender) SendSMS(_ context.Context, to, body string) error {
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	_, err := s.client.Api.CreateMessage(params)
	return err
}
