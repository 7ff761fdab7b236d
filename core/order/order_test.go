package order

import "testing"

func TestParseType(t *testing.T) {
	cases := []struct {
		in   string
		want Type
	}{
		{"game", TypeGame},
		{"manual", TypeManual},
		{"account", TypeAccount},
		{"topup", TypeTopup},
		{"GAME", TypeGame},
		{"", TypeTopup},
		{"wallet", TypeTopup},
	}

	for _, c := range cases {
		if got := ParseType(c.in); got != c.want {
			t.Fatalf("ParseType(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTypeTableAndRedirect(t *testing.T) {
	cases := []struct {
		t        Type
		table    string
		redirect string
	}{
		{TypeGame, "orders", "/orders"},
		{TypeManual, "queues", "/queues"},
		{TypeAccount, "game_accounts", "/accounts"},
		{TypeTopup, "topups", "/wallet"},
	}

	for _, c := range cases {
		if got := c.t.Table(); got != c.table {
			t.Fatalf("%q.Table() = %q, want %q", c.t, got, c.table)
		}
		if got := c.t.Redirect(); got != c.redirect {
			t.Fatalf("%q.Redirect() = %q, want %q", c.t, got, c.redirect)
		}
	}
}

func TestNormalizeStatus(t *testing.T) {
	if got := NormalizeStatus(" Success "); got != Success {
		t.Fatalf("expected success, got %q", got)
	}
	if got := NormalizeStatus("FAILED"); got != Failed {
		t.Fatalf("expected failed, got %q", got)
	}
	if NormalizeStatus("pending").Terminal() {
		t.Fatal("pending must not be terminal")
	}
	if !NormalizeStatus("completed").Terminal() {
		t.Fatal("completed must be terminal")
	}
}

func TestPaid(t *testing.T) {
	o := Order{Status: "SUCCESS"}
	if !o.Paid(TypeGame) {
		t.Fatal("uppercase success status must count as paid")
	}

	o = Order{Status: Completed}
	if !o.Paid(TypeTopup) {
		t.Fatal("completed status must count as paid")
	}

	// payment_received only substitutes for status on the manual variant.
	o = Order{Status: Pending, PaymentReceived: true}
	if !o.Paid(TypeManual) {
		t.Fatal("manual orders with payment_received must count as paid")
	}
	if o.Paid(TypeGame) {
		t.Fatal("payment_received must not mark a game order paid")
	}
}

func TestDeclined(t *testing.T) {
	if !(Order{Status: "Failed"}).Declined() {
		t.Fatal("failed status must be declined")
	}
	if (Order{Status: Pending}).Declined() {
		t.Fatal("pending must not be declined")
	}
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	if a == b {
		t.Fatal("ids must be unique")
	}
	if len(a) != len("ORD-")+12 {
		t.Fatalf("unexpected id shape: %q", a)
	}
}
