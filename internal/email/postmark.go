package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendMagicLink sends a sign-in link. The link expires in 15 minutes.
func (c *Client) SendMagicLink(toEmail, tokenValue string) error {
	link := fmt.Sprintf("%s/auth/verify?token=%s", c.baseURL, tokenValue)
	text := fmt.Sprintf("Click the link below to sign in:\n\n%s\n\nThis link expires in 15 minutes.", link)
	html := fmt.Sprintf(`<p>Click the link below to sign in:</p><p><a href="%s">Sign in</a></p><p>This link expires in 15 minutes.</p>`, link)
	return c.send(postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  "Sign in to Keyturn",
		HtmlBody: html,
		TextBody: text,
	})
}

// SendInvite sends a tenant invitation for a unit. The link expires in 7 days.
func (c *Client) SendInvite(toEmail, tokenValue, propertyName, unitLabel string) error {
	link := fmt.Sprintf("%s/auth/invite?token=%s", c.baseURL, tokenValue)
	text := fmt.Sprintf("You've been invited to %s, unit %s.\n\nAccept your invitation:\n\n%s\n\nThis link expires in 7 days.", propertyName, unitLabel, link)
	html := fmt.Sprintf(
		`<p>You've been invited to %s, unit %s.</p><p><a href="%s">Accept your invitation</a></p><p>This link expires in 7 days.</p>`,
		propertyName, unitLabel, link,
	)
	return c.send(postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  fmt.Sprintf("You've been invited to %s on Keyturn", propertyName),
		HtmlBody: html,
		TextBody: text,
	})
}

// SendPaymentReceipt confirms a recorded rent payment.
func (c *Client) SendPaymentReceipt(toEmail string, amountCents int64, unitLabel string) error {
	amount := fmt.Sprintf("$%d.%02d", amountCents/100, amountCents%100)
	text := fmt.Sprintf("We received your payment of %s for unit %s. Thank you.", amount, unitLabel)
	html := fmt.Sprintf(`<p>We received your payment of <strong>%s</strong> for unit %s. Thank you.</p>`, amount, unitLabel)
	return c.send(postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  "Payment received",
		HtmlBody: html,
		TextBody: text,
	})
}

// send posts to the Postmark API, retrying transient failures with
// exponential backoff. 4xx responses are terminal.
func (c *Client) send(payload postmarkEmail) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	return retry.Do(context.Background(), backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, "POST", "https://api.postmarkapp.com/email", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Postmark-Server-Token", c.serverToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("send email: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("postmark API error: status %d", resp.StatusCode))
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
		}
		return nil
	})
}
