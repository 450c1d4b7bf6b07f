package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	c := NewClient("sk_test_secret", "", "", nil)
	body := []byte(`{"event":"charge.success","data":{"reference":"ref-1"}}`)

	if !c.VerifyWebhookSignature(body, sign("sk_test_secret", body)) {
		t.Fatal("valid signature rejected")
	}
	if c.VerifyWebhookSignature(body, sign("sk_wrong_secret", body)) {
		t.Fatal("signature from the wrong secret accepted")
	}
	if c.VerifyWebhookSignature(body, "") {
		t.Fatal("empty signature accepted")
	}

	// One flipped byte in the body must break the signature: the check runs
	// over exact raw bytes.
	tampered := append([]byte(nil), body...)
	tampered[10] ^= 1
	if c.VerifyWebhookSignature(tampered, sign("sk_test_secret", body)) {
		t.Fatal("tampered body accepted")
	}

	unkeyed := NewClient("", "", "", nil)
	if unkeyed.VerifyWebhookSignature(body, sign("", body)) {
		t.Fatal("verification must fail closed without a secret key")
	}
}

func TestInitialize_SendsOrderIDMetadata(t *testing.T) {
	var captured initializeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/initialize" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]any{
				"authorization_url": "https://checkout.paystack.com/abc",
				"access_code":       "abc",
				"reference":         "ref-1",
			},
		})
	}))
	defer srv.Close()

	c := NewClient("sk_test_secret", srv.URL, "https://shop.example", srv.Client())
	result, err := c.Initialize(context.Background(), "buyer@example.com", decimal.NewFromInt(5000), "order-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured.Amount != 500000 {
		t.Fatalf("amount must be sent in kobo, got %d", captured.Amount)
	}
	if captured.Metadata.OrderID != "order-1" {
		t.Fatalf("order id must ride in metadata, got %q", captured.Metadata.OrderID)
	}
	if captured.CallbackURL != "https://shop.example/payments/verify" {
		t.Fatalf("unexpected callback url %q", captured.CallbackURL)
	}
	if result.AuthorizationURL != "https://checkout.paystack.com/abc" || result.Reference != "ref-1" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestInitialize_RejectedByProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": false, "message": "Invalid key"})
	}))
	defer srv.Close()

	c := NewClient("sk_bad", srv.URL, "", srv.Client())
	if _, err := c.Initialize(context.Background(), "buyer@example.com", decimal.NewFromInt(5000), "order-1"); err == nil {
		t.Fatal("expected error from rejected initialization")
	}
}

func TestInitialize_MissingSecretKey(t *testing.T) {
	c := NewClient("", "", "", nil)
	if _, err := c.Initialize(context.Background(), "buyer@example.com", decimal.NewFromInt(5000), "order-1"); err == nil {
		t.Fatal("expected error without secret key")
	}
}

func TestVerify_ParsesSettlement(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/verify/ref-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]any{
				"status":    "success",
				"reference": "ref-1",
				"amount":    500000,
				"paid_at":   "2026-08-30T12:00:00Z",
				"metadata":  map[string]any{"order_id": "order-1"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient("sk_test_secret", srv.URL, "", srv.Client())
	result, err := c.Verify(context.Background(), "ref-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Succeeded || result.Status != "success" {
		t.Fatalf("expected succeeded result, got %+v", result)
	}
	if result.AmountMinor != 500000 || result.OrderID != "order-1" {
		t.Fatalf("unexpected settlement facts %+v", result)
	}
	if result.PaidAt == nil {
		t.Fatal("expected parsed paid_at")
	}
}

func TestVerify_PendingTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]any{
				"status":    "pending",
				"reference": "ref-1",
				"amount":    500000,
			},
		})
	}))
	defer srv.Close()

	c := NewClient("sk_test_secret", srv.URL, "", srv.Client())
	result, err := c.Verify(context.Background(), "ref-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Succeeded {
		t.Fatal("a pending transaction must not report success")
	}
	if result.Status != "pending" {
		t.Fatalf("unexpected status %q", result.Status)
	}
}
