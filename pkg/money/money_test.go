package money

import "testing"

func TestDollars(t *testing.T) {
	cases := map[int]float64{
		0:    0,
		1000: 10,
		550:  5.5,
		2100: 21,
		1:    0.01,
	}
	for cents, want := range cases {
		if got := Dollars(cents); got != want {
			t.Fatalf("Dollars(%d) = %v, want %v", cents, got, want)
		}
	}
}

func TestLineTotal(t *testing.T) {
	if got := LineTotal(550, 3); got != 1650 {
		t.Fatalf("expected 1650, got %d", got)
	}
	if got := LineTotal(550, 0); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestString(t *testing.T) {
	if got := String(550); got != "5.50" {
		t.Fatalf("expected 5.50, got %s", got)
	}
	if got := String(2100); got != "21.00" {
		t.Fatalf("expected 21.00, got %s", got)
	}
}
