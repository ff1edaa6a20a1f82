package money

import "testing"

func TestDiscountedUnitPrice(t *testing.T) {
	tests := []struct {
		name     string
		price    int
		discount int
		want     int
	}{
		{name: "ten percent off 5000", price: 5000, discount: 10, want: 4500},
		{name: "no discount", price: 1234, discount: 0, want: 1234},
		{name: "full discount", price: 1234, discount: 100, want: 0},
		{name: "rounds half up", price: 999, discount: 15, want: 849}, // 849.15 -> 849
		{name: "rounds half up at boundary", price: 1, discount: 50, want: 1}, // 0.5 -> 1
		{name: "odd cents", price: 333, discount: 33, want: 223},      // 223.11 -> 223
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiscountedUnitPrice(tt.price, tt.discount)
			if err != nil {
				t.Fatalf("DiscountedUnitPrice: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestDiscountedUnitPriceRejectsBadInput(t *testing.T) {
	if _, err := DiscountedUnitPrice(-1, 10); err == nil {
		t.Fatal("expected error for negative price")
	}
	if _, err := DiscountedUnitPrice(100, 101); err == nil {
		t.Fatal("expected error for discount above 100")
	}
	if _, err := DiscountedUnitPrice(100, -1); err == nil {
		t.Fatal("expected error for negative discount")
	}
}

func TestLineTotal(t *testing.T) {
	total, err := LineTotal(4500, 2)
	if err != nil {
		t.Fatalf("LineTotal: %v", err)
	}
	if total != 9000 {
		t.Fatalf("expected 9000, got %d", total)
	}

	if _, err := LineTotal(4500, 0); err == nil {
		t.Fatal("expected error for zero quantity")
	}
}

func TestValidateChargeAmount(t *testing.T) {
	if err := ValidateChargeAmount(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateChargeAmount(0); err == nil {
		t.Fatal("expected error for zero amount")
	}
	if err := ValidateChargeAmount(-5); err == nil {
		t.Fatal("expected error for negative amount")
	}
}
