package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://api.paystack.co"

// SignatureHeader is the header Paystack signs webhook deliveries with.
const SignatureHeader = "x-paystack-signature"

// Gateway is the slice of the Paystack API the payment workflows consume.
// Tests substitute a fake.
type Gateway interface {
	Initialize(ctx context.Context, email string, amount decimal.Decimal, orderID string) (*InitializeResult, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
}

type Client struct {
	secretKey   string
	baseURL     string
	callbackURL string
	httpClient  *http.Client
}

type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

type VerifyResult struct {
	Succeeded   bool
	Status      string // "success", "abandoned", "pending", "failed", ...
	Reference   string
	AmountMinor int64 // kobo
	OrderID     string
	PaidAt      *time.Time
}

// NewClientFromEnv reads PAYSTACK_SECRET_KEY, PAYSTACK_BASE_URL and APP_URL.
// The secret key doubles as the webhook HMAC secret, which is how Paystack
// signs deliveries.
func NewClientFromEnv() *Client {
	baseURL := os.Getenv("PAYSTACK_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		secretKey:   os.Getenv("PAYSTACK_SECRET_KEY"),
		baseURL:     baseURL,
		callbackURL: os.Getenv("APP_URL"),
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

func NewClient(secretKey, baseURL, callbackURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{secretKey: secretKey, baseURL: baseURL, callbackURL: callbackURL, httpClient: httpClient}
}

type initializeRequest struct {
	Email       string             `json:"email"`
	Amount      int64              `json:"amount"`
	CallbackURL string             `json:"callback_url,omitempty"`
	Metadata    initializeMetadata `json:"metadata"`
}

type initializeMetadata struct {
	OrderID string `json:"order_id"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// Initialize creates a hosted-page transaction. The order id rides along in
// metadata so the webhook and the verification poller can recover the order
// from a bare provider reference later.
func (c *Client) Initialize(ctx context.Context, email string, amount decimal.Decimal, orderID string) (*InitializeResult, error) {
	if c.secretKey == "" {
		return nil, fmt.Errorf("PAYSTACK_SECRET_KEY is not defined")
	}

	payload := initializeRequest{
		Email:       email,
		Amount:      ToMinorUnits(amount),
		CallbackURL: c.callbackURL + "/payments/verify",
		Metadata:    initializeMetadata{OrderID: orderID},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("paystack initialization failed: %s", resp.Status)
	}

	var parsed initializeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if !parsed.Status {
		return nil, fmt.Errorf("paystack initialization rejected: %s", parsed.Message)
	}

	return &InitializeResult{
		AuthorizationURL: parsed.Data.AuthorizationURL,
		AccessCode:       parsed.Data.AccessCode,
		Reference:        parsed.Data.Reference,
	}, nil
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		PaidAt    string `json:"paid_at"`
		Metadata  struct {
			OrderID string `json:"order_id"`
		} `json:"metadata"`
	} `json:"data"`
}

func (c *Client) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	if c.secretKey == "" {
		return nil, fmt.Errorf("PAYSTACK_SECRET_KEY is not defined")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("paystack verification failed: %s", resp.Status)
	}

	var parsed verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	result := VerifyResult{
		Succeeded:   parsed.Status && parsed.Data.Status == "success",
		Status:      parsed.Data.Status,
		Reference:   parsed.Data.Reference,
		AmountMinor: parsed.Data.Amount,
		OrderID:     parsed.Data.Metadata.OrderID,
	}
	if parsed.Data.PaidAt != "" {
		if t, perr := time.Parse(time.RFC3339, parsed.Data.PaidAt); perr == nil {
			result.PaidAt = &t
		}
	}
	return &result, nil
}

// VerifyWebhookSignature checks the HMAC-SHA512 of the exact raw request body
// against the signature header. The raw bytes must be captured before any
// JSON parsing; re-serializing a parsed object produces different bytes.
func (c *Client) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	if c.secretKey == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(c.secretKey))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
