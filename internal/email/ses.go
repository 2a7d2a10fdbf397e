package email

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// Email is a rendered message ready to send
type Email struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Mailer sends emails
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// SESClient is the subset of the SES API the mailer uses
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESMailer sends emails via AWS SES
type SESMailer struct {
	client    SESClient
	fromEmail string
	fromName  string
}

// NewSESMailer creates a mailer using the default AWS credential chain
func NewSESMailer(region, fromEmail, fromName string) (*SESMailer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSESMailerWithClient(ses.NewFromConfig(cfg), fromEmail, fromName), nil
}

// NewSESMailerWithClient creates a mailer over an existing client
func NewSESMailerWithClient(client SESClient, fromEmail, fromName string) *SESMailer {
	return &SESMailer{client: client, fromEmail: fromEmail, fromName: fromName}
}

// Send sends msg with html and text parts
func (m *SESMailer) Send(ctx context.Context, msg Email) error {
	from := m.fromEmail
	if m.fromName != "" {
		from = fmt.Sprintf("%s <%s>", m.fromName, m.fromEmail)
	}

	input := &ses.SendEmailInput{
		Source: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(msg.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    aws.String(msg.HTMLBody),
					Charset: aws.String("UTF-8"),
				},
				Text: &types.Content{
					Data:    aws.String(msg.TextBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := m.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	return nil
}
