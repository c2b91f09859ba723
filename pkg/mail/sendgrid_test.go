package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendGridMailerSendPasswordReset(t *testing.T) {
	var gotAuth string
	var gotBody sgMailRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mail/send" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	mailer, err := NewSendGridMailer(SendGridOptions{
		BaseURL:    ts.URL,
		APIKey:     "sg-key",
		FromEmail:  "no-reply@promptdesk.io",
		FromName:   "PromptDesk",
		TemplateID: "d-12345",
	})
	if err != nil {
		t.Fatalf("new mailer: %v", err)
	}
	if err := mailer.SendPasswordReset(context.Background(), "dana@example.com", "Dana", "https://app.example.com/reset/abc"); err != nil {
		t.Fatalf("send: %v", err)
	}

	if gotAuth != "Bearer sg-key" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotBody.TemplateID != "d-12345" {
		t.Fatalf("unexpected template id %q", gotBody.TemplateID)
	}
	if len(gotBody.Personalizations) != 1 || gotBody.Personalizations[0].To[0].Email != "dana@example.com" {
		t.Fatalf("unexpected personalizations: %+v", gotBody.Personalizations)
	}
	data := gotBody.Personalizations[0].DynamicTemplateData
	if data["first_name"] != "Dana" || data["reset_url"] != "https://app.example.com/reset/abc" {
		t.Fatalf("unexpected template data: %+v", data)
	}
}

func TestSendGridMailerSurfacesAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer ts.Close()

	mailer, err := NewSendGridMailer(SendGridOptions{
		BaseURL:    ts.URL,
		APIKey:     "bad",
		FromEmail:  "no-reply@promptdesk.io",
		TemplateID: "d-12345",
	})
	if err != nil {
		t.Fatalf("new mailer: %v", err)
	}
	if err := mailer.SendPasswordReset(context.Background(), "dana@example.com", "Dana", "url"); err == nil {
		t.Fatalf("expected error from api failure")
	}
}

func TestNewSendGridMailerValidation(t *testing.T) {
	if _, err := NewSendGridMailer(SendGridOptions{FromEmail: "a@b.c", TemplateID: "d-1"}); err == nil {
		t.Fatalf("expected missing api key to fail")
	}
	if _, err := NewSendGridMailer(SendGridOptions{APIKey: "k", TemplateID: "d-1"}); err == nil {
		t.Fatalf("expected missing from address to fail")
	}
	if _, err := NewSendGridMailer(SendGridOptions{APIKey: "k", FromEmail: "a@b.c"}); err == nil {
		t.Fatalf("expected missing template id to fail")
	}
}
