package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{".5", 50, true},
		{"1.005", 101, true}, // half-up rounding
		{"1.004", 100, true},
		{" 2.50 ", 250, true},
		{"0", 0, true},
		{"5000", 500000, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"1e3", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyFromDecimal(t *testing.T) {
	m, err := MoneyFromDecimal(decimal.RequireFromString("4974.505"))
	if err != nil || m.Cents != 497451 {
		t.Fatalf("got %d err=%v", m.Cents, err)
	}
	if _, err := MoneyFromDecimal(decimal.RequireFromString("-0.01")); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{0: "0.00", 2550: "25.50", 497450: "4974.50", -310: "-3.10", 7: "0.07"}
	for cents, want := range cases {
		if got := Cents(cents).String(); got != want {
			t.Fatalf("%d: got %q want %q", cents, got, want)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	raw, err := json.Marshal(Bill{ID: 1, Type: Expense, Amount: Cents(2550), Category: "餐饮", Timestamp: 1})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"id":1,"type":"expense","amount":25.50,"category":"餐饮","timestamp":1}`
	if string(raw) != want {
		t.Fatalf("got %s want %s", raw, want)
	}

	// Blobs written by other clients carry plain JS numbers.
	var b Bill
	if err := json.Unmarshal([]byte(`{"id":3,"type":"income","amount":5000,"category":"工资","timestamp":9}`), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if b.Amount.Cents != 500000 {
		t.Fatalf("got %d cents", b.Amount.Cents)
	}
	if err := json.Unmarshal([]byte(`{"amount":"12.30"}`), &b); err != nil || b.Amount.Cents != 1230 {
		t.Fatalf("string amount: %d err=%v", b.Amount.Cents, err)
	}
	if err := json.Unmarshal([]byte(`{"amount":"lots"}`), &b); err == nil {
		t.Fatalf("expected error for non-numeric amount")
	}
}

func TestMoneyArithmetic(t *testing.T) {
	// 0.1 added ten times stays exact in cents.
	var total Money
	for i := 0; i < 10; i++ {
		total = total.Add(Cents(10))
	}
	if total.Cents != 100 {
		t.Fatalf("got %d", total.Cents)
	}
	if got := Cents(2550).Sub(Cents(500000)); got.Cents != -497450 {
		t.Fatalf("got %d", got.Cents)
	}
}

func TestMoneyJSONRejectsOutOfRange(t *testing.T) {
	for _, raw := range []string{"1e20", "184467440737095516.17", `"92233720368547758.08"`, "-1e20", "100000000000.01"} {
		var m Money
		err := json.Unmarshal([]byte(raw), &m)
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%s: got cents=%d err=%v, want ErrInvalidAmount", raw, m.Cents, err)
		}
	}

	var m Money
	if err := json.Unmarshal([]byte("100000000000.00"), &m); err != nil || m.Cents != MaxAmountCents {
		t.Fatalf("cap itself: cents=%d err=%v", m.Cents, err)
	}
}

func TestAmountCap(t *testing.T) {
	if _, err := ParseMoney("90000000000000000"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if err := Cents(MaxAmountCents).Validate(); err != nil {
		t.Fatalf("cap should validate: %v", err)
	}
	if err := Cents(MaxAmountCents + 1).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("above cap: got %v", err)
	}

	// Many bills at the cap still sum without wrapping.
	var total Money
	for i := 0; i < 10000; i++ {
		total = total.Add(Cents(MaxAmountCents))
	}
	if total.Cents != 10000*MaxAmountCents || total.Cents < 0 {
		t.Fatalf("sum overflowed: %d", total.Cents)
	}
}
