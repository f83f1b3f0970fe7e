package email

import (
	"context"
	"fmt"

	"github.com/prameswara/medibook/internal/kafka"
)

type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	fmt.Printf("send email to %s about %s for booking %s on %s\n", event.PatientEmail, event.Type, event.Token, event.Date)
	return nil
}
