package notify

import (
	"strings"
	"testing"
)

func TestWhatsAppLink_EscapesMessage(t *testing.T) {
	link := WhatsAppLink("2348012345678", "Hi! Order #abc & more")
	if !strings.HasPrefix(link, "https://wa.me/2348012345678?text=") {
		t.Fatalf("unexpected link %q", link)
	}
	if strings.ContainsAny(strings.TrimPrefix(link, "https://wa.me/2348012345678?text="), " &#") {
		t.Fatalf("message not escaped: %q", link)
	}
}

func TestOrderConfirmationMessage_TruncatesOrderID(t *testing.T) {
	msg := OrderConfirmationMessage("Ada", "0d4f2a9b-1111-2222-3333-444455556666")
	if !strings.Contains(msg, "Order #0d4f2a9b") {
		t.Fatalf("expected short order id in message, got %q", msg)
	}
	if strings.Contains(msg, "444455556666") {
		t.Fatalf("full uuid must not leak into the message: %q", msg)
	}
}
