package notification

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"
)

// ErrNotConfigured is returned by senders whose channel credentials are missing.
var ErrNotConfigured = errors.New("notification channel not configured")

// Sender delivers a rendered message over one channel.
type Sender interface {
	Send(ctx context.Context, recipient string, msg Message, attachments []Attachment) error
}

// SMTPSender sends multipart email through a relay.
type SMTPSender struct {
	addr     string
	from     string
	auth     smtp.Auth
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender builds a sender for addr ("host:port"). Empty credentials send
// without AUTH.
func NewSMTPSender(addr, from, username, password string) *SMTPSender {
	s := &SMTPSender{addr: addr, from: from, sendMail: smtp.SendMail}
	if username != "" {
		host := addr
		if i := strings.LastIndexByte(addr, ':'); i > 0 {
			host = addr[:i]
		}
		s.auth = smtp.PlainAuth("", username, password, host)
	}
	return s
}

func (s *SMTPSender) Send(_ context.Context, recipient string, msg Message, attachments []Attachment) error {
	if s.addr == "" {
		return ErrNotConfigured
	}
	raw, err := buildMIME(s.from, recipient, msg, attachments)
	if err != nil {
		return err
	}
	if err := s.sendMail(s.addr, s.auth, s.from, []string{recipient}, raw); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func buildMIME(from, to string, msg Message, attachments []Attachment) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", w.Boundary())

	text, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, fmt.Errorf("create text part: %w", err)
	}
	if _, err := io.WriteString(text, msg.Body); err != nil {
		return nil, fmt.Errorf("write text part: %w", err)
	}

	for _, a := range attachments {
		part, err := w.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {a.ContentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", a.Name)},
		})
		if err != nil {
			return nil, fmt.Errorf("create attachment %s: %w", a.Name, err)
		}
		enc := base64.NewEncoder(base64.StdEncoding, &lineBreaker{w: part})
		if _, err := enc.Write(a.Data); err != nil {
			return nil, fmt.Errorf("encode attachment %s: %w", a.Name, err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode attachment %s: %w", a.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}
	return buf.Bytes(), nil
}

// lineBreaker wraps base64 output at 76 columns.
type lineBreaker struct {
	w    io.Writer
	line int
}

func (l *lineBreaker) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		room := 76 - l.line
		chunk := min(room, len(p))
		n, err := l.w.Write(p[:chunk])
		written += n
		if err != nil {
			return written, err
		}
		p = p[chunk:]
		l.line += chunk
		if l.line == 76 {
			if _, err := l.w.Write([]byte("\r\n")); err != nil {
				return written, err
			}
			l.line = 0
		}
	}
	return written, nil
}

// WhatsAppSender posts text messages to a WhatsApp Business gateway.
type WhatsAppSender struct {
	apiURL string
	token  string
	client *http.Client
}

func NewWhatsAppSender(apiURL, token string, timeout time.Duration) *WhatsAppSender {
	return &WhatsAppSender{apiURL: apiURL, token: token, client: &http.Client{Timeout: timeout}}
}

type whatsAppMessage struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

func (s *WhatsAppSender) Send(ctx context.Context, recipient string, msg Message, _ []Attachment) error {
	if s.apiURL == "" || s.token == "" {
		return ErrNotConfigured
	}
	payload := whatsAppMessage{
		MessagingProduct: "whatsapp",
		To:               strings.TrimPrefix(recipient, "+"),
		Type:             "text",
	}
	payload.Text.Body = msg.Body
	return postJSON(ctx, s.client, s.apiURL, "Bearer "+s.token, payload)
}

// TelegramSender posts HTML messages to the operators' chat through the Bot API.
type TelegramSender struct {
	baseURL     string
	botToken    string
	adminChatID string
	client      *http.Client
}

func NewTelegramSender(botToken, adminChatID string, timeout time.Duration) *TelegramSender {
	return &TelegramSender{
		baseURL:     "https://api.telegram.org",
		botToken:    botToken,
		adminChatID: adminChatID,
		client:      &http.Client{Timeout: timeout},
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Send ignores recipient when it is empty and posts to the admin chat.
func (s *TelegramSender) Send(ctx context.Context, recipient string, msg Message, _ []Attachment) error {
	chatID := recipient
	if chatID == "" {
		chatID = s.adminChatID
	}
	if s.botToken == "" || chatID == "" {
		return ErrNotConfigured
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)
	return postJSON(ctx, s.client, url, "", telegramMessage{ChatID: chatID, Text: msg.Body, ParseMode: "HTML"})
}

func postJSON(ctx context.Context, client *http.Client, url, authorization string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return nil
}

// LogSender writes messages to the log. It stands in for channels that have
// no credentials in development.
type LogSender struct {
	logger  *slog.Logger
	channel Channel
}

func NewLogSender(logger *slog.Logger, channel Channel) *LogSender {
	return &LogSender{logger: logger, channel: channel}
}

func (s *LogSender) Send(ctx context.Context, recipient string, msg Message, attachments []Attachment) error {
	s.logger.InfoContext(ctx, "notification delivered to log",
		"channel", s.channel,
		"recipient", recipient,
		"subject", msg.Subject,
		"attachments", len(attachments),
	)
	return nil
}
