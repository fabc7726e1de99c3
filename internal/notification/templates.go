package notification

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// Message is a rendered intent.
type Message struct {
	Subject string
	Body    string
}

// Renderer turns intents into text. It owns the event name and the wording of
// every message kind.
type Renderer struct {
	EventName string
}

// Render produces the message text for intent. Unknown kinds are an error so a
// producer on a newer version cannot silently send an empty message.
func (r Renderer) Render(intent Intent) (Message, error) {
	d := intent.Data
	switch intent.Kind {
	case KindVerificationCode:
		window := d["validity_minutes"]
		body := fmt.Sprintf("Your verification code for %s registration is %s. It expires in %s minutes.",
			r.EventName, d["code"], window)
		return Message{Subject: "Verification code for " + r.EventName + " registration", Body: body}, nil

	case KindRegistrationConfirmation:
		var b strings.Builder
		fmt.Fprintf(&b, "Dear %s,\n\n", fallback(d["name"], "registrant"))
		fmt.Fprintf(&b, "Thank you for registering for %s.\n", r.EventName)
		fmt.Fprintf(&b, "Registration id: %s\n", d["registration_id"])
		fmt.Fprintf(&b, "Status: %s\n", d["registration_status"])
		if d["attending"] == "true" {
			fmt.Fprintf(&b, "Party size: %s\n", d["total_attendees"])
			b.WriteString("Show the attached pass at the check-in desk.\n")
		}
		return Message{Subject: r.EventName + " registration confirmed", Body: b.String()}, nil

	case KindPaymentConfirmation:
		body := fmt.Sprintf("We received your contribution of %s %s for %s.\nTransaction id: %s\nPurpose: %s\n",
			d["currency"], d["amount"], r.EventName, d["transaction_id"], d["purpose"])
		return Message{Subject: "Contribution received: " + d["transaction_id"], Body: body}, nil

	case KindHardshipFollowup:
		body := fmt.Sprintf("<b>Hardship follow-up</b>\n%s (%s, %s)\nPledged %s against a minimum of %s.\nRegistration: %s",
			html.EscapeString(d["name"]), html.EscapeString(d["email"]), html.EscapeString(d["contact_number"]),
			d["pledged"], d["minimum"], d["registration_id"])
		return Message{Subject: "Hardship follow-up", Body: body}, nil
	}
	return Message{}, fmt.Errorf("unknown notification kind %q", intent.Kind)
}

// ValidityMinutes renders the enforced validity window in whole minutes,
// rounding partial minutes up.
func ValidityMinutes(window time.Duration) string {
	minutes := int((window + time.Minute - 1) / time.Minute)
	return fmt.Sprintf("%d", max(minutes, 1))
}

func fallback(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
