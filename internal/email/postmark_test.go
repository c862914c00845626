package email

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendMagicLink(t *testing.T) {
	var received postmarkEmail
	var gotToken string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Postmark-Server-Token")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@example.com", "https://keyturn.test")
	// The client hardcodes the Postmark API URL, so redirect through a
	// rewriting transport.
	client.httpClient = &http.Client{Transport: &rewriteTransport{base: http.DefaultTransport, target: server.URL}}

	err := client.SendMagicLink("alice@example.com", "abc123")
	if err != nil {
		t.Fatalf("send magic link: %v", err)
	}

	if gotToken != "test-token" {
		t.Errorf("server token = %q, want %q", gotToken, "test-token")
	}
	if received.To != "alice@example.com" {
		t.Errorf("To = %q, want %q", received.To, "alice@example.com")
	}
	if received.From != "noreply@example.com" {
		t.Errorf("From = %q, want %q", received.From, "noreply@example.com")
	}
	if received.Subject != "Sign in to Keyturn" {
		t.Errorf("Subject = %q, want %q", received.Subject, "Sign in to Keyturn")
	}
	if !strings.Contains(received.TextBody, "https://keyturn.test/auth/verify?token=abc123") {
		t.Errorf("body missing verify link: %q", received.TextBody)
	}
	if !strings.Contains(received.TextBody, "15 minutes") {
		t.Errorf("body should mention expiry: %q", received.TextBody)
	}
}

func TestSendInvite(t *testing.T) {
	var received postmarkEmail

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@example.com", "https://keyturn.test")
	client.httpClient = &http.Client{Transport: &rewriteTransport{base: http.DefaultTransport, target: server.URL}}

	err := client.SendInvite("bob@example.com", "xyz789", "Maple Court", "2B")
	if err != nil {
		t.Fatalf("send invite: %v", err)
	}

	if received.Subject != "You've been invited to Maple Court on Keyturn" {
		t.Errorf("Subject = %q, want invite subject", received.Subject)
	}
	if !strings.Contains(received.TextBody, "unit 2B") {
		t.Errorf("body missing unit label: %q", received.TextBody)
	}
	if !strings.Contains(received.TextBody, "7 days") {
		t.Errorf("body should mention expiry: %q", received.TextBody)
	}
}

func TestSendPaymentReceipt(t *testing.T) {
	var received postmarkEmail

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@example.com", "https://keyturn.test")
	client.httpClient = &http.Client{Transport: &rewriteTransport{base: http.DefaultTransport, target: server.URL}}

	err := client.SendPaymentReceipt("bob@example.com", 150050, "2B")
	if err != nil {
		t.Fatalf("send receipt: %v", err)
	}

	if received.Subject != "Payment received" {
		t.Errorf("Subject = %q, want %q", received.Subject, "Payment received")
	}
	if !strings.Contains(received.TextBody, "$1500.50") {
		t.Errorf("body should carry the formatted amount: %q", received.TextBody)
	}
}

func TestSendNotConfigured(t *testing.T) {
	client := NewClient("", "noreply@example.com", "https://keyturn.test")

	err := client.SendMagicLink("alice@example.com", "abc123")
	if err == nil {
		t.Fatal("expected error for unconfigured client")
	}
}

func TestSendAPIError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@example.com", "https://keyturn.test")
	client.httpClient = &http.Client{Transport: &rewriteTransport{base: http.DefaultTransport, target: server.URL}}

	err := client.SendMagicLink("alice@example.com", "abc123")
	if err == nil {
		t.Fatal("expected error for API failure")
	}
	// 4xx is terminal, not retried.
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestConfigured(t *testing.T) {
	c1 := NewClient("token", "from@test.com", "https://test.com")
	if !c1.Configured() {
		t.Error("expected Configured() = true")
	}

	c2 := NewClient("", "from@test.com", "https://test.com")
	if c2.Configured() {
		t.Error("expected Configured() = false")
	}
}

// rewriteTransport redirects all requests to a test server URL.
type rewriteTransport struct {
	base   http.RoundTripper
	target string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = t.target[len("http://"):]
	return t.base.RoundTrip(req)
}
