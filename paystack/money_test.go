package paystack

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestToMinorUnits(t *testing.T) {
	cases := []struct {
		major string
		want  int64
	}{
		{"5000", 500000},
		{"5000.50", 500050},
		{"0.01", 1},
		{"0", 0},
		{"19999.99", 1999999},
	}
	for _, tc := range cases {
		major, err := decimal.NewFromString(tc.major)
		if err != nil {
			t.Fatal(err)
		}
		if got := ToMinorUnits(major); got != tc.want {
			t.Fatalf("ToMinorUnits(%s) = %d, want %d", tc.major, got, tc.want)
		}
	}
}

func TestToMajorUnits(t *testing.T) {
	if got := ToMajorUnits(500050); !got.Equal(decimal.RequireFromString("5000.50")) {
		t.Fatalf("ToMajorUnits(500050) = %s", got)
	}
	if got := ToMajorUnits(1); !got.Equal(decimal.RequireFromString("0.01")) {
		t.Fatalf("ToMajorUnits(1) = %s", got)
	}
}

func TestAmountWithinTolerance(t *testing.T) {
	total := decimal.NewFromInt(5000)

	cases := []struct {
		claimedMinor int64
		want         bool
	}{
		{500000, true},
		{499999, true},
		{500001, true},
		{499998, false},
		{500002, false},
		{5000, false}, // major units passed where minor expected
		{0, false},
	}
	for _, tc := range cases {
		if got := AmountWithinTolerance(total, tc.claimedMinor); got != tc.want {
			t.Fatalf("AmountWithinTolerance(5000, %d) = %v, want %v", tc.claimedMinor, got, tc.want)
		}
	}
}
