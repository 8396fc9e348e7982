package mail

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Name    string
	Subject string
	Text    string
}

// Sender delivers email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SendGrid delivers through the SendGrid v3 API.
type SendGrid struct {
	client     *sendgrid.Client
	from       *sgmail.Email
	subjPrefix string
}

// NewSendGrid creates a sender using an API key.
func NewSendGrid(key, appName, fromEmail string) *SendGrid {
	return &SendGrid{
		client:     sendgrid.NewSendClient(key),
		from:       sgmail.NewEmail(appName, fromEmail),
		subjPrefix: "[" + appName + "] ",
	}
}

// Send posts msg to SendGrid. Non-2xx responses are errors.
func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	m := sgmail.NewSingleEmail(s.from, s.subjPrefix+msg.Subject, sgmail.NewEmail(msg.Name, msg.To), msg.Text, "")
	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return errors.Wrap(err, "sendgrid send")
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return errors.Errorf("sendgrid send failed (%d): %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// Console writes messages to the log instead of sending them, and keeps them for inspection.
type Console struct {
	mu   sync.Mutex
	sent []Message
	std  *log.Logger
}

// NewConsole creates a console sender. A nil logger keeps output silent.
func NewConsole(std *log.Logger) *Console {
	return &Console{std: std}
}

// Send records msg.
func (c *Console) Send(_ context.Context, msg Message) error {
	c.mu.Lock()
	c.sent = append(c.sent, msg)
	c.mu.Unlock()
	if c.std != nil {
		c.std.Printf("mail to=%s subject=%q\n%s", msg.To, msg.Subject, msg.Text)
	}
	return nil
}

// Sent returns a copy of every message sent so far.
func (c *Console) Sent() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.sent))
	copy(out, c.sent)
	return out
}
