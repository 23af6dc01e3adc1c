package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client sends transactional mail through an HTTP send API. Implements
// usecase.Mailer.
type Client struct {
	apiURL    string
	apiKey    string
	fromEmail string
	fromName  string
	client    *http.Client
}

func New(apiURL, apiKey, fromEmail, fromName string, timeout time.Duration) *Client {
	return &Client{
		apiURL:    apiURL,
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
		client:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) SendVerification(ctx context.Context, email, fullName, link string) error {
	subject := "Verify your email"
	text := fmt.Sprintf("Hi %s,\n\nPlease verify your email by opening this link:\n%s\n\nThe link expires in one hour.", fullName, link)
	return c.send(ctx, email, subject, text)
}

func (c *Client) SendWelcome(ctx context.Context, email, fullName string) error {
	subject := "Welcome to xdulist"
	text := fmt.Sprintf("Hi %s,\n\nYour email is verified and your account is ready. Happy tracking!", fullName)
	return c.send(ctx, email, subject, text)
}

func (c *Client) send(ctx context.Context, to, subject, text string) error {
	payload := map[string]interface{}{
		"from":    map[string]string{"email": c.fromEmail, "name": c.fromName},
		"to":      []map[string]string{{"email": to}},
		"subject": subject,
		"text":    text,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return fmt.Errorf("mail send failed: %d", res.StatusCode)
	}
	return nil
}
