package notification

import (
	"fmt"
	"net/url"

	qrcode "github.com/skip2/go-qrcode"
)

// CheckInPass encodes the check-in URL for a registration as a PNG QR code.
func CheckInPass(baseURL, registrationID string) (Attachment, error) {
	link, err := url.Parse(baseURL)
	if err != nil {
		return Attachment{}, fmt.Errorf("parse check-in base url: %w", err)
	}
	q := link.Query()
	q.Set("registration", registrationID)
	link.RawQuery = q.Encode()

	png, err := qrcode.Encode(link.String(), qrcode.Medium, 256)
	if err != nil {
		return Attachment{}, fmt.Errorf("encode check-in pass: %w", err)
	}
	return Attachment{
		Name:        "checkin-" + registrationID + ".png",
		ContentType: "image/png",
		Data:        png,
	}, nil
}
