package enums

import "testing"

func TestOrderStatusLabelsAndProgress(t *testing.T) {
	cases := []struct {
		status OrderStatus
		label  string
		step   int
	}{
		{OrderStatusPending, "Pending Payment", 0},
		{OrderStatusPaid, "Preparing", 1},
		{OrderStatusCompleted, "Completed", 2},
		{OrderStatusAbandoned, "Abandoned", -1},
	}
	for _, tc := range cases {
		if got := tc.status.Label(); got != tc.label {
			t.Fatalf("%s label: expected %q got %q", tc.status, tc.label, got)
		}
		if got := tc.status.ProgressStep(); got != tc.step {
			t.Fatalf("%s step: expected %d got %d", tc.status, tc.step, got)
		}
	}
}

func TestParseOrderStatusFilter(t *testing.T) {
	for _, raw := range []string{"", "all", "ALL"} {
		f, err := ParseOrderStatusFilter(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if _, ok := f.Status(); ok {
			t.Fatalf("%q should not narrow by status", raw)
		}
	}

	f, err := ParseOrderStatusFilter("paid")
	if err != nil {
		t.Fatalf("parse paid: %v", err)
	}
	if status, ok := f.Status(); !ok || status != OrderStatusPaid {
		t.Fatalf("expected PAID filter, got %q", status)
	}

	for _, raw := range []string{"ABANDONED", "shipped"} {
		if _, err := ParseOrderStatusFilter(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	if OrderStatusPending.IsTerminal() || OrderStatusPaid.IsTerminal() {
		t.Fatalf("pending and paid are not terminal")
	}
	if !OrderStatusCompleted.IsTerminal() {
		t.Fatalf("completed is terminal")
	}
}
