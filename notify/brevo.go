package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

type BrevoClient struct {
	apiKey      string
	senderEmail string
	senderName  string
	endpoint    string
	httpClient  *http.Client
}

// NewBrevoClientFromEnv returns nil when BREVO_API_KEY is unset; the notifier
// treats a nil mailer as "suppress and warn".
func NewBrevoClientFromEnv() *BrevoClient {
	apiKey := os.Getenv("BREVO_API_KEY")
	if apiKey == "" {
		return nil
	}
	sender := os.Getenv("BREVO_SENDER_EMAIL")
	if sender == "" {
		sender = "no-reply@lead-driven.com"
	}
	return &BrevoClient{
		apiKey:      apiKey,
		senderEmail: sender,
		senderName:  "OML Soles",
		endpoint:    brevoEndpoint,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

type brevoEmail struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

type brevoAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

func (c *BrevoClient) Send(to string, subject string, htmlContent string) error {
	payload := brevoEmail{
		Sender:      brevoAddress{Name: c.senderName, Email: c.senderEmail},
		To:          []brevoAddress{{Email: to}},
		Subject:     subject,
		HTMLContent: wrapHTML(subject, htmlContent),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("brevo responded %s", resp.Status)
	}
	return nil
}

func wrapHTML(title string, content string) string {
	return fmt.Sprintf(`
  <div style="background-color:#f6f6f6;padding:40px 20px;font-family:Helvetica,Arial,sans-serif;color:#1a1a1a;line-height:1.6;">
    <div style="max-width:600px;margin:0 auto;background-color:#ffffff;border-radius:12px;overflow:hidden;">
      <div style="padding:40px;">
        <h2 style="margin-top:0;font-size:24px;color:#000000;">%s</h2>
        <div style="font-size:16px;color:#444444;">%s</div>
      </div>
      <div style="padding:20px 40px;background-color:#fafafa;font-size:12px;color:#999999;">
        OML Soles, thanks for shopping with us.
      </div>
    </div>
  </div>`, title, content)
}
