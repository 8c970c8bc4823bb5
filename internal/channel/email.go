package channel

import (
	"context"
	"fmt"
	"net/smtp"
	"sort"
	"strings"

	"github.com/printwatch/printwatch/internal/alert"
	"github.com/printwatch/printwatch/internal/config"
)

// sendMailFunc matches smtp.SendMail. Injectable so tests can capture the
// outgoing message without a live relay.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Email delivers notifications over SMTP with an HTML body.
type Email struct {
	cfg  config.EmailConfig
	send sendMailFunc
}

// NewEmail creates the SMTP adapter from config.
func NewEmail(cfg config.EmailConfig) *Email {
	return &Email{cfg: cfg, send: smtp.SendMail}
}

func (e *Email) Name() alert.Channel { return alert.ChannelEmail }

// Send formats req as an HTML mail and submits it to the configured relay.
func (e *Email) Send(_ context.Context, req *alert.NotificationRequest) alert.NotificationResponse {
	if e.cfg.SMTPHost == "" || e.cfg.From == "" {
		return failure(req, alert.ChannelEmail, "email channel not configured: smtp_host and from are required")
	}

	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password(), e.cfg.SMTPHost)
	}

	msg := e.buildMessage(req)
	if err := e.send(e.cfg.Addr(), auth, e.cfg.From, req.Recipients, msg); err != nil {
		return failure(req, alert.ChannelEmail, fmt.Sprintf("smtp send: %v", err))
	}
	return success(req, alert.ChannelEmail, len(req.Recipients))
}

// buildMessage renders the RFC 5322 message with an HTML body.
func (e *Email) buildMessage(req *alert.NotificationRequest) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", e.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(req.Recipients, ", "))
	fmt.Fprintf(&b, "Subject: %s %s\r\n", severityLabel(req.Severity), req.Title)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "<html><body>")
	fmt.Fprintf(&b, "<h2 style=\"color:#%s\">%s %s</h2>",
		severityColor(req.Severity), severityLabel(req.Severity), req.Title)
	fmt.Fprintf(&b, "<p>%s</p>", req.Message)
	if req.RequireAck {
		b.WriteString("<p><b>This notification requires acknowledgment.</b></p>")
	}
	if len(req.Metadata) > 0 {
		b.WriteString("<table border=\"0\" cellpadding=\"2\">")
		for _, k := range sortedKeys(req.Metadata) {
			fmt.Fprintf(&b, "<tr><td><b>%s</b></td><td>%s</td></tr>", k, req.Metadata[k])
		}
		b.WriteString("</table>")
	}
	b.WriteString("</body></html>\r\n")

	return []byte(b.String())
}

// sortedKeys returns map keys in stable order so message bodies are
// reproducible.
func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
