package notify

import (
	"fmt"
	"net/url"
	"os"

	"github.com/Wayles-D/Lead-Driven-Ecommerce/utils"
)

// WhatsApp links are pre-filled wa.me URLs; the store's support number comes
// from env and is validated once at startup.

func SupportWhatsAppNumber() (string, error) {
	number := os.Getenv("WHATSAPP_NUMBER")
	if number == "" {
		return "", fmt.Errorf("WHATSAPP_NUMBER is not set")
	}
	if err := utils.ValidatePhoneNumber("+"+number, utils.CountryCode); err != nil {
		return "", fmt.Errorf("WHATSAPP_NUMBER is invalid: %w", err)
	}
	return number, nil
}

func WhatsAppLink(number string, message string) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s", number, url.QueryEscape(message))
}

func OrderConfirmationMessage(userName string, orderID string) string {
	return fmt.Sprintf("Hi! My name is %s and I just completed payment for Order #%.8s. I'd like to confirm it to prioritize fulfillment. Thanks!", userName, orderID)
}

func ProductInquiryMessage(userName string, productName string, productID int) string {
	return fmt.Sprintf("Hello! I'm %s. I'm interested in the %s (ID: %d). Could you provide more details about it?", userName, productName, productID)
}
