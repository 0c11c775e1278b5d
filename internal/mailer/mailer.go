// Package mailer delivers account emails through SendGrid, or to the log when
// no API key is configured.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MdSium003/AgamiOps/internal/logger"
)

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	log *logger.Logger
}

func NewLogMailer(log *logger.Logger) *LogMailer {
	return &LogMailer{log: logger.OrNop(log)}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.log.Info("email not sent (no provider configured)", "to", msg.To, "subject", msg.Subject, "text", msg.Text)
	return nil
}

const defaultSendGridURL = "https://api.sendgrid.com"

type SendGrid struct {
	apiKey  string
	from    string
	baseURL string
	client  *http.Client
}

func NewSendGrid(apiKey, from, baseURL string) (*SendGrid, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("missing SENDGRID_API_KEY")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("missing sender address")
	}
	if baseURL == "" {
		baseURL = defaultSendGridURL
	}
	return &SendGrid{
		apiKey:  apiKey,
		from:    from,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type sgAddress struct {
	Email string `json:"email"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgRequest struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	req := sgRequest{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: msg.To}}}},
		From:             sgAddress{Email: s.from},
		Subject:          msg.Subject,
	}
	// SendGrid requires text/plain before text/html.
	if msg.Text != "" {
		req.Content = append(req.Content, sgContent{Type: "text/plain", Value: msg.Text})
	}
	if msg.HTML != "" {
		req.Content = append(req.Content, sgContent{Type: "text/html", Value: msg.HTML})
	}
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}

var verificationTmpl = template.Must(template.New("verify").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #4a7c59;">Welcome to AgamiOps: Marking the future!</h2>
  <p>Thank you for registering. Please verify your email address to complete your account setup.</p>
  <div style="text-align: center; margin: 30px 0;">
    <a href="{{.URL}}" style="background-color: #4a7c59; color: white; padding: 12px 24px; text-decoration: none; border-radius: 8px; display: inline-block;">Verify Email Address</a>
  </div>
  <p>If the button doesn't work, copy and paste this link into your browser:</p>
  <p style="word-break: break-all; color: #666;">{{.URL}}</p>
  <p>This link will expire in 24 hours.</p>
</div>`))

// VerificationURL points at the frontend verify page for token.
func VerificationURL(frontendOrigin, token string) string {
	return strings.TrimRight(frontendOrigin, "/") + "/verify-email?token=" + url.QueryEscape(token)
}

func VerificationEmail(frontendOrigin, to, token string) Message {
	link := VerificationURL(frontendOrigin, token)
	var buf bytes.Buffer
	_ = verificationTmpl.Execute(&buf, struct{ URL string }{link})
	return Message{
		To:      to,
		Subject: "Verify Your AgamiOps: Marking the future Account",
		HTML:    buf.String(),
		Text:    "Verify your email address: " + link + "\nThis link will expire in 24 hours.",
	}
}
