package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/DanMeraDev/ElMayoristaProject/pkg/config"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/logger"
)

const sendEndpoint = "https://api.sendgrid.com/v3/mail/send"

// Mailer delivers the reconciliation reminder emails. Implementations must
// tolerate being called from batch jobs: a delivery failure is reported as
// an error but must never panic.
type Mailer interface {
	SendSellerReminder(ctx context.Context, to, name, orderLabel string, daysPending int) error
	SendAdminAlert(ctx context.Context, to, name, orderLabel, sellerName string, daysPending int) error
}

// Client sends transactional mail through the SendGrid v3 API. When no API
// key is configured it degrades to a logged no-op so local environments work
// without credentials.
type Client struct {
	httpClient *http.Client
	apiKey     string
	fromEmail  string
	fromName   string
	endpoint   string
	log        *logger.Logger
}

func New(cfg config.MailerConfig, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     cfg.APIKey,
		fromEmail:  cfg.FromEmail,
		fromName:   cfg.FromName,
		endpoint:   sendEndpoint,
		log:        log,
	}
}

func (c *Client) SendSellerReminder(ctx context.Context, to, name, orderLabel string, daysPending int) error {
	subject := fmt.Sprintf("Venta %s pendiente de pago", orderLabel)
	body := fmt.Sprintf(
		"Hola %s,\n\nLa venta %s lleva %d dias pendiente de pago. "+
			"Por favor registra los pagos faltantes o contacta al cliente.\n\nEl Mayorista",
		name, orderLabel, daysPending,
	)
	return c.send(ctx, to, name, subject, body)
}

func (c *Client) SendAdminAlert(ctx context.Context, to, name, orderLabel, sellerName string, daysPending int) error {
	subject := fmt.Sprintf("Alerta: venta %s sin cobrar hace %d dias", orderLabel, daysPending)
	body := fmt.Sprintf(
		"Hola %s,\n\nLa venta %s del vendedor %s lleva %d dias pendiente de pago "+
			"y requiere seguimiento.\n\nEl Mayorista",
		name, orderLabel, sellerName, daysPending,
	)
	return c.send(ctx, to, name, subject, body)
}

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

type personalization struct {
	To []address `json:"to"`
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (c *Client) send(ctx context.Context, to, name, subject, body string) error {
	if to == "" {
		return errors.New("recipient email is empty")
	}
	if c.apiKey == "" {
		if c.log != nil {
			c.log.Warn(ctx, "mailer disabled, skipping email to "+to)
		}
		return nil
	}

	payload := sendRequest{
		Personalizations: []personalization{{To: []address{{Email: to, Name: name}}}},
		From:             address{Email: c.fromEmail, Name: c.fromName},
		Subject:          subject,
		Content:          []content{{Type: "text/plain", Value: body}},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("sendgrid rejected message: %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}
	return nil
}
