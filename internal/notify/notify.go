package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/pkg/errors"

	"college/internal/mail"
	"college/internal/metrics"
	"college/internal/queue"
)

// Message types carried on the notification queue.
const (
	TypeAbsence = "absence.notice"
	TypeOTP     = "otp.code"
)

// Absence tells a student they were marked absent.
type Absence struct {
	StudentEmail string `json:"studentEmail"`
	StudentName  string `json:"studentName"`
	Subject      string `json:"subject"`
	FacultyEmail string `json:"facultyEmail"`
	Date         string `json:"date"`
}

// Message encodes the notice for the queue.
func (a Absence) Message() (queue.Message, error) {
	return encode(TypeAbsence, a)
}

// OTP carries a one-time code to an address.
type OTP struct {
	Email string `json:"email"`
	Code  string `json:"code"`
	TTL   string `json:"ttl"`
}

// Message encodes the code for the queue.
func (o OTP) Message() (queue.Message, error) {
	return encode(TypeOTP, o)
}

func encode(typ string, v any) (queue.Message, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return queue.Message{}, errors.Wrapf(err, "encode %s", typ)
	}
	return queue.Message{Type: typ, Body: body}, nil
}

// MaxAttempts is how many times a notice is tried before it is dropped.
const MaxAttempts = 3

var errMalformed = errors.New("malformed notice")

// Dispatcher turns queued notifications into email.
type Dispatcher struct {
	mailer mail.Sender
}

// NewDispatcher creates a dispatcher sending through mailer.
func NewDispatcher(mailer mail.Sender) *Dispatcher {
	return &Dispatcher{mailer: mailer}
}

// Handle delivers one queued message. Unknown types are an error.
func (d *Dispatcher) Handle(ctx context.Context, msg queue.Message) error {
	m, err := compose(msg)
	if err != nil {
		metrics.NoticesSent.WithLabelValues(msg.Type, "invalid").Inc()
		return errors.Wrap(errMalformed, err.Error())
	}
	if err := d.mailer.Send(ctx, m); err != nil {
		metrics.NoticesSent.WithLabelValues(msg.Type, "failed").Inc()
		return err
	}
	metrics.NoticesSent.WithLabelValues(msg.Type, "sent").Inc()
	return nil
}

// Run handles messages from q until ctx is done. A failed send goes back on q until
// MaxAttempts is reached. Malformed messages are dropped at once. Requeues happen off the
// consume loop so a full in-memory queue still drains.
func (d *Dispatcher) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return errors.Wrap(err, "consume notices")
	}
	var pending sync.WaitGroup
	defer pending.Wait()

	for msg := range messages {
		err := d.Handle(ctx, msg)
		if err == nil {
			continue
		}
		if errors.Is(err, errMalformed) || msg.Attempts+1 >= MaxAttempts {
			log.Printf("notify: %s dropped after %d attempts: %v", msg.Type, msg.Attempts+1, err)
			continue
		}
		pending.Add(1)
		go func(retry queue.Message) {
			defer pending.Done()
			if err := q.Publish(ctx, retry); err != nil {
				log.Printf("notify: %s dropped, requeue failed: %v", retry.Type, err)
			}
		}(msg.Retry())
	}
	return nil
}

func compose(msg queue.Message) (mail.Message, error) {
	switch msg.Type {
	case TypeAbsence:
		var a Absence
		if err := json.Unmarshal(msg.Body, &a); err != nil {
			return mail.Message{}, errors.Wrap(err, "decode absence notice")
		}
		return mail.Message{
			To:      a.StudentEmail,
			Name:    a.StudentName,
			Subject: "Marked absent in " + a.Subject,
			Text: fmt.Sprintf("Hello %s,\n\nYou were marked absent for %s on %s by %s.\n",
				nameOr(a.StudentName, a.StudentEmail), a.Subject, a.Date, a.FacultyEmail),
		}, nil
	case TypeOTP:
		var o OTP
		if err := json.Unmarshal(msg.Body, &o); err != nil {
			return mail.Message{}, errors.Wrap(err, "decode otp")
		}
		return mail.Message{
			To:      o.Email,
			Subject: "Your verification code",
			Text:    fmt.Sprintf("Your verification code is %s. It expires in %s.\n", o.Code, o.TTL),
		}, nil
	}
	return mail.Message{}, errors.Errorf("unknown notification type %q", msg.Type)
}

func nameOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}
