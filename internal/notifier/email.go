// Package notifier delivers best-effort email alerts for novel feed entries.
package notifier

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
	xhtml "golang.org/x/net/html"

	"github.com/pauljones0/artist-push-bot/internal/models"
)

type Client struct {
	client    *mail.Client
	from      string
	recipient string
}

// New builds the email notifier. The user doubles as the sender address, so
// an empty host, user or recipient disables it: Notify becomes a logged
// no-op instead of an error, and the pipeline runs unchanged without SMTP
// credentials.
func New(host string, port int, user, pass, recipient string) (*Client, error) {
	if host == "" || user == "" || recipient == "" {
		return &Client{}, nil
	}

	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(10 * time.Second),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(user),
		mail.WithPassword(pass),
	}
	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return &Client{client: client, from: user, recipient: recipient}, nil
}

// Enabled reports whether the notifier will actually send anything.
func (c *Client) Enabled() bool {
	return c.client != nil
}

// Notify sends one alert for a novel feed entry. Failures are the caller's
// to log; they never roll back feed state.
func (c *Client) Notify(ctx context.Context, entry models.FeedEntry) error {
	if !c.Enabled() {
		slog.Debug("Email disabled, skipping notification", "account", entry.AccountID, "post", entry.PostID)
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(c.from); err != nil {
		return fmt.Errorf("invalid sender address %q: %w", c.from, err)
	}
	if err := msg.To(c.recipient); err != nil {
		return fmt.Errorf("invalid recipient address %q: %w", c.recipient, err)
	}
	msg.Subject(fmt.Sprintf("New post from %s on Instagram", entry.AccountID))
	msg.SetBodyString(mail.TypeTextHTML, formatBody(entry))

	if err := c.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send notification for %s/%s: %w", entry.AccountID, entry.PostID, err)
	}
	return nil
}

func formatBody(entry models.FeedEntry) string {
	caption := PlainText(entry.Caption)
	if caption == "" {
		caption = "No caption"
	}
	return fmt.Sprintf(`<h2>New Instagram Post</h2>
<p><strong>%s</strong> (@%s) just posted:</p>
<p>%s</p>
<p><a href="%s">View on Instagram</a></p>
<p>Posted at: %s</p>`,
		html.EscapeString(entry.DisplayName),
		html.EscapeString(entry.AccountID),
		html.EscapeString(caption),
		entry.Permalink,
		entry.Timestamp.Format(time.RFC1123),
	)
}

// PlainText flattens any markup that rode along in a scraped caption down to
// its text content.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	node, err := xhtml.Parse(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	var b strings.Builder
	var walk func(*xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(node)
	return strings.TrimSpace(b.String())
}
