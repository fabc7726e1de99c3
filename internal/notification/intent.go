// Package notification carries outbound messages from the workflow to the
// delivery channels.
//
// The workflow only builds Intents and hands them to a Port. A Port is either
// an in-process Queue or a Kafka topic; in both cases a Dispatcher renders the
// intent and delivers it through the channel's Sender. Delivery failures never
// reach the workflow.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=intent.go -destination=mocks/mocks.go -package=mocks Port

// Kind selects the message template.
type Kind string

const (
	KindVerificationCode         Kind = "verification_code"
	KindRegistrationConfirmation Kind = "registration_confirmation"
	KindPaymentConfirmation      Kind = "payment_confirmation"
	KindHardshipFollowup         Kind = "hardship_followup"
)

// Channel selects the delivery route.
type Channel string

const (
	ChannelEmail     Channel = "email"
	ChannelMessaging Channel = "messaging"
	// ChannelOperator reaches the association's operators, not the registrant.
	ChannelOperator Channel = "operator"
)

// Attachment is a binary part of an email.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// Intent is one message the workflow wants delivered.
type Intent struct {
	ID          string            `json:"id"`
	Kind        Kind              `json:"kind"`
	Channel     Channel           `json:"channel"`
	Recipient   string            `json:"recipient"`
	Data        map[string]string `json:"data,omitempty"`
	Attachments []Attachment      `json:"attachments,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewIntent stamps an id and creation time.
func NewIntent(kind Kind, channel Channel, recipient string, data map[string]string, now time.Time) Intent {
	return Intent{
		ID:        uuid.NewString(),
		Kind:      kind,
		Channel:   channel,
		Recipient: recipient,
		Data:      data,
		CreatedAt: now,
	}
}

// Port accepts intents for asynchronous delivery.
type Port interface {
	Enqueue(ctx context.Context, intent Intent) error
}
