package utils

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

var (
	ErrMailerNotConfigured = errors.New("SMTP is not configured")
	ErrInvalidRecipient    = errors.New("invalid recipient email")
)

// MailSender delivers messages. *gomail.Dialer implements it.
type MailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type MailerOptions struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	Sender    MailSender
	Logger    *logrus.Entry
}

// TestEmail is a rendered step preview sent to a single address.
type TestEmail struct {
	To              string
	Subject         string
	Body            string
	UnsubscribeLink string
}

// Mailer sends test emails for sequence steps.
type Mailer struct {
	sender    MailSender
	fromEmail string
	fromName  string
	logger    *logrus.Entry
}

func NewMailer(opts MailerOptions) *Mailer {
	m := &Mailer{
		sender:    opts.Sender,
		fromEmail: opts.FromEmail,
		fromName:  opts.FromName,
		logger:    opts.Logger,
	}
	if m.logger == nil {
		m.logger = ComponentLogger("mailer")
	}
	if m.sender == nil && opts.Host != "" {
		m.sender = gomail.NewDialer(opts.Host, opts.Port, opts.Username, opts.Password)
	}
	return m
}

var testEmailTemplate = template.Must(template.New("test_email").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .banner { font-size: 12px; color: #7f8c8d; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="banner">This is a test send of a sequence step.</div>
    {{range .Paragraphs}}<p>{{.}}</p>
    {{end}}
    {{if .UnsubscribeLink}}<div class="footer">
        <p><a href="{{.UnsubscribeLink}}">Unsubscribe</a></p>
        <p>© {{.Year}}</p>
    </div>{{end}}
</body>
</html>`))

// RenderTestEmail renders the HTML body of a test email.
func RenderTestEmail(email TestEmail) (string, error) {
	var body bytes.Buffer
	err := testEmailTemplate.Execute(&body, struct {
		Subject         string
		Paragraphs      []string
		UnsubscribeLink string
		Year            int
	}{
		Subject:         email.Subject,
		Paragraphs:      strings.Split(email.Body, "\n\n"),
		UnsubscribeLink: email.UnsubscribeLink,
		Year:            time.Now().Year(),
	})
	if err != nil {
		return "", fmt.Errorf("error executing template: %w", err)
	}
	return body.String(), nil
}

// SendTest delivers email to its single recipient.
func (m *Mailer) SendTest(email TestEmail) error {
	if m.sender == nil || m.fromEmail == "" {
		return ErrMailerNotConfigured
	}
	if err := checkmail.ValidateFormat(email.To); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRecipient, email.To)
	}

	html, err := RenderTestEmail(email)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.fromEmail, m.fromName)
	msg.SetHeader("To", email.To)
	msg.SetHeader("Subject", email.Subject)
	if email.UnsubscribeLink != "" {
		msg.SetHeader("List-Unsubscribe", "<"+email.UnsubscribeLink+">")
	}
	msg.SetBody("text/plain", email.Body)
	msg.AddAlternative("text/html", html)

	if err := m.sender.DialAndSend(msg); err != nil {
		LogError("test_email_failed", err, map[string]interface{}{"to": email.To})
		return fmt.Errorf("error sending email: %w", err)
	}

	m.logger.WithField("to", email.To).Info("Test email sent")
	return nil
}
