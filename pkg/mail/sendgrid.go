package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultSendGridBaseURL = "https://api.sendgrid.com/v3"

// SendGridMailer sends dynamic-template emails through the SendGrid v3 API.
type SendGridMailer struct {
	baseURL    string
	apiKey     string
	fromEmail  string
	fromName   string
	templateID string
	httpClient *http.Client
}

// SendGridOptions configures the mailer. BaseURL may be empty for the public
// API.
type SendGridOptions struct {
	BaseURL    string
	APIKey     string
	FromEmail  string
	FromName   string
	TemplateID string
}

// NewSendGridMailer builds a SendGrid-backed Mailer.
func NewSendGridMailer(opts SendGridOptions) (*SendGridMailer, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("sendgrid api key is required")
	}
	if strings.TrimSpace(opts.FromEmail) == "" {
		return nil, fmt.Errorf("sendgrid from address is required")
	}
	if strings.TrimSpace(opts.TemplateID) == "" {
		return nil, fmt.Errorf("sendgrid template id is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultSendGridBaseURL
	}
	return &SendGridMailer{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(opts.APIKey),
		fromEmail:  strings.TrimSpace(opts.FromEmail),
		fromName:   strings.TrimSpace(opts.FromName),
		templateID: strings.TrimSpace(opts.TemplateID),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// SendPasswordReset delivers the reset-link template to one recipient.
func (m *SendGridMailer) SendPasswordReset(ctx context.Context, toEmail, firstName, resetURL string) error {
	payload := sgMailRequest{
		From:       sgAddress{Email: m.fromEmail, Name: m.fromName},
		TemplateID: m.templateID,
		Personalizations: []sgPersonalization{{
			To: []sgAddress{{Email: toEmail}},
			DynamicTemplateData: map[string]string{
				"first_name": firstName,
				"reset_url":  resetURL,
			},
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/mail/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("sendgrid api error: %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}
	return nil
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgPersonalization struct {
	To                  []sgAddress       `json:"to"`
	DynamicTemplateData map[string]string `json:"dynamic_template_data,omitempty"`
}

type sgMailRequest struct {
	From             sgAddress           `json:"from"`
	TemplateID       string              `json:"template_id"`
	Personalizations []sgPersonalization `json:"personalizations"`
}
