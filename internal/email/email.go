// Package email sends transactional mail through a listmonk instance.
// Unconfigured installs log the message content instead of failing, so
// local development works without a mail server.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

type Config struct {
	BaseURL    string
	Username   string
	Password   string
	TemplateID int
}

type Client struct {
	config Config
	http   *http.Client
}

func New(cfg Config) *Client {
	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

type txRequest struct {
	SubscriberEmail string            `json:"subscriber_email"`
	TemplateID      int               `json:"template_id"`
	Data            map[string]string `json:"data"`
	ContentType     string            `json:"content_type"`
}

func (c *Client) SendPasswordReset(ctx context.Context, toEmail, toName, resetLink string) error {
	if c.config.BaseURL == "" {
		log.Printf("email not configured — reset link for %s: %s", toEmail, resetLink)
		return nil
	}
	return c.send(ctx, toEmail, map[string]string{
		"resetLink": resetLink,
		"name":      toName,
	})
}

func (c *Client) send(ctx context.Context, toEmail string, data map[string]string) error {
	body := txRequest{
		SubscriberEmail: toEmail,
		TemplateID:      c.config.TemplateID,
		Data:            data,
		ContentType:     "html",
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/tx", bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create email request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.config.Username, c.config.Password)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("listmonk returned status %d", resp.StatusCode)
	}

	return nil
}
