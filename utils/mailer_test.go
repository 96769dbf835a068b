package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type recordingSender struct {
	sent []*gomail.Message
	err  error
}

func (s *recordingSender) DialAndSend(m ...*gomail.Message) error {
	s.sent = append(s.sent, m...)
	return s.err
}

func TestSendTestDeliversMessage(t *testing.T) {
	sender := &recordingSender{}
	m := NewMailer(MailerOptions{FromEmail: "team@example.com", FromName: "Team", Sender: sender})

	err := m.SendTest(TestEmail{
		To:              "jane@acme.com",
		Subject:         "Hello Jane",
		Body:            "First line\n\nSecond paragraph",
		UnsubscribeLink: "https://example.com/u",
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, []string{"jane@acme.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Hello Jane"}, msg.GetHeader("Subject"))
	assert.Equal(t, []string{"<https://example.com/u>"}, msg.GetHeader("List-Unsubscribe"))
}

func TestSendTestRejectsBadInput(t *testing.T) {
	sender := &recordingSender{}

	unconfigured := NewMailer(MailerOptions{Sender: sender})
	assert.ErrorIs(t, unconfigured.SendTest(TestEmail{To: "jane@acme.com"}), ErrMailerNotConfigured)

	m := NewMailer(MailerOptions{FromEmail: "team@example.com", Sender: sender})
	assert.ErrorIs(t, m.SendTest(TestEmail{To: "not-an-email"}), ErrInvalidRecipient)
	assert.Empty(t, sender.sent)
}

func TestSendTestWrapsTransportError(t *testing.T) {
	boom := errors.New("dial tcp: refused")
	m := NewMailer(MailerOptions{FromEmail: "team@example.com", Sender: &recordingSender{err: boom}})
	assert.ErrorIs(t, m.SendTest(TestEmail{To: "jane@acme.com", Subject: "s"}), boom)
}

func TestRenderTestEmail(t *testing.T) {
	html, err := RenderTestEmail(TestEmail{Subject: "Hi", Body: "one\n\n<b>two</b>"})
	require.NoError(t, err)
	assert.Contains(t, html, "<p>one</p>")
	assert.Contains(t, html, "&lt;b&gt;two&lt;/b&gt;")
	assert.NotContains(t, html, "Unsubscribe")
}
