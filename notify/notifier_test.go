package notify

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestOrderPaidContent_IncludesWhatsAppLinkWhenConfigured(t *testing.T) {
	t.Setenv("WHATSAPP_NUMBER", "2348031234567")

	content := orderPaidContent("Ada", "0d4f2a9b-1111-2222-3333-444455556666", decimal.NewFromInt(5000))
	if !strings.Contains(content, "₦5000.00") {
		t.Fatalf("amount missing from content: %q", content)
	}
	if !strings.Contains(content, "https://wa.me/2348031234567?text=") {
		t.Fatalf("expected wa.me confirmation link, got %q", content)
	}
	if !strings.Contains(content, "Ada") {
		t.Fatalf("customer name missing from the pre-filled message: %q", content)
	}
}

func TestOrderPaidContent_OmitsLinkWithoutNumber(t *testing.T) {
	t.Setenv("WHATSAPP_NUMBER", "")

	content := orderPaidContent("Ada", "order-1", decimal.NewFromInt(5000))
	if strings.Contains(content, "wa.me") {
		t.Fatalf("no link expected without WHATSAPP_NUMBER: %q", content)
	}
}
