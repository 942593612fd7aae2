// Package notify sends guardian notices through Amazon SES.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// sender is the subset of the SES client used by Mailer
type sender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Mailer sends guardian emails. A Mailer without a sender address is disabled
// and only logs what it would have sent.
type Mailer struct {
	client    sender
	fromEmail string
	fromName  string
	enabled   bool
	logger    *slog.Logger
}

// Config holds the SES settings
type Config struct {
	AWSRegion string
	FromEmail string
	FromName  string
}

// New creates a mailer. It is disabled when cfg.FromEmail is empty.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Mailer, error) {
	if cfg.FromEmail == "" {
		logger.Info("guardian notices disabled: no sender address configured")
		return &Mailer{logger: logger}, nil
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("guardian notices enabled", slog.String("from", cfg.FromEmail), slog.String("region", cfg.AWSRegion))
	return newWithClient(sesv2.NewFromConfig(awsCfg), cfg, logger), nil
}

func newWithClient(client sender, cfg Config, logger *slog.Logger) *Mailer {
	return &Mailer{
		client:    client,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		enabled:   cfg.FromEmail != "",
		logger:    logger,
	}
}

// Disabled returns a mailer that never sends
func Disabled(logger *slog.Logger) *Mailer {
	return &Mailer{logger: logger}
}

// IsEnabled returns whether the mailer sends email
func (m *Mailer) IsEnabled() bool {
	return m.enabled
}

// SendWelcome greets a newly registered guardian
func (m *Mailer) SendWelcome(ctx context.Context, toEmail string) error {
	return m.send(ctx, toEmail, "Welcome to Puzzle Pals!", notice{
		Heading: "Welcome to Puzzle Pals!",
		Lines: []string{
			"Your guardian account is ready.",
			"You can now add child profiles and lock settings sections behind a PIN.",
		},
	})
}

// SendPinChanged tells the guardian that the parental control PIN was set or changed
func (m *Mailer) SendPinChanged(ctx context.Context, toEmail string) error {
	return m.send(ctx, toEmail, "Your Puzzle Pals PIN was changed", notice{
		Heading: "Parental control PIN changed",
		Lines: []string{
			"The parental control PIN on one of your devices was just set or changed.",
			"If this wasn't you, sign in on the device and set a new PIN.",
		},
	})
}

// SendAccountDeleted confirms the removal of an account and its cloud backup
func (m *Mailer) SendAccountDeleted(ctx context.Context, toEmail string) error {
	return m.send(ctx, toEmail, "Your Puzzle Pals account was deleted", notice{
		Heading: "Account deleted",
		Lines: []string{
			"Your account and its cloud backup have been deleted.",
			"Settings stored on your devices were reset to their defaults.",
		},
	})
}

func (m *Mailer) send(ctx context.Context, toEmail, subject string, n notice) error {
	if !m.enabled {
		m.logger.Debug("skipping email send (mailer disabled)", slog.String("subject", subject))
		return nil
	}
	if toEmail == "" {
		return nil
	}

	fromAddress := m.fromEmail
	if m.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", m.fromName, m.fromEmail)
	}

	htmlBody, textBody := n.render()
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := m.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	attrs := []any{slog.String("subject", subject)}
	if result.MessageId != nil {
		attrs = append(attrs, slog.String("message_id", *result.MessageId))
	}
	m.logger.Info("email sent", attrs...)
	return nil
}
