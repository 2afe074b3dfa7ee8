package enums

import "testing"

func TestParseOrderStatus(t *testing.T) {
	got, err := ParseOrderStatus("shipped")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != OrderStatusShipped {
		t.Fatalf("expected shipped, got %s", got)
	}
	if _, err := ParseOrderStatus("refunded"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
	if OrderStatus("COMPLETED").IsValid() {
		t.Fatal("status parsing is case sensitive")
	}
}

func TestParseCurrencyNormalizes(t *testing.T) {
	got, err := ParseCurrency(" eur ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != CurrencyEUR {
		t.Fatalf("expected EUR, got %s", got)
	}
	if _, err := ParseCurrency("BTC"); err == nil {
		t.Fatal("expected unsupported currency to fail")
	}
}
