package service

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateSplitPercents(t *testing.T) {
	cases := []struct {
		name    string
		p       SplitPercents
		wantErr error
	}{
		{"default split", SplitPercents{Platform: 10, OriginBroker: 40, ReservationBroker: 50}, nil},
		{"sum below 100", SplitPercents{Platform: 10, OriginBroker: 40, ReservationBroker: 40}, ErrInvalidSplitSum},
		{"sum above 100", SplitPercents{Platform: 20, OriginBroker: 40, ReservationBroker: 50}, ErrInvalidSplitSum},
		{"negative percent", SplitPercents{Platform: -10, OriginBroker: 60, ReservationBroker: 50}, ErrPercentOutOfRange},
		{"percent above 100", SplitPercents{Platform: 110, OriginBroker: -5, ReservationBroker: -5}, ErrPercentOutOfRange},
		{"single share takes all", SplitPercents{Platform: 100, OriginBroker: 0, ReservationBroker: 0}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSplitPercents(tc.p)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected error %v, got: %v", tc.wantErr, err)
			}
		})
	}
}

func TestCalculateSplitAmountsDefaultRule(t *testing.T) {
	total := decimal.RequireFromString("200000")
	amounts, err := CalculateSplitAmounts(total, SplitPercents{Platform: 10, OriginBroker: 40, ReservationBroker: 50})
	if err != nil {
		t.Fatalf("calculate split failed: %v", err)
	}
	if got := amounts.Platform.StringFixed(2); got != "20000.00" {
		t.Fatalf("expected platform 20000.00, got: %s", got)
	}
	if got := amounts.OriginBroker.StringFixed(2); got != "80000.00" {
		t.Fatalf("expected origin broker 80000.00, got: %s", got)
	}
	if got := amounts.ReservationBroker.StringFixed(2); got != "100000.00" {
		t.Fatalf("expected reservation broker 100000.00, got: %s", got)
	}
}

func TestCalculateSplitAmountsRemainderGoesToPlatform(t *testing.T) {
	// 100.01 按 10/40/50 拆分：经纪人两份四舍五入，余数归平台
	total := decimal.RequireFromString("100.01")
	amounts, err := CalculateSplitAmounts(total, SplitPercents{Platform: 10, OriginBroker: 40, ReservationBroker: 50})
	if err != nil {
		t.Fatalf("calculate split failed: %v", err)
	}
	sum := amounts.Platform.Add(amounts.OriginBroker).Add(amounts.ReservationBroker)
	if !sum.Equal(total) {
		t.Fatalf("expected shares to sum to %s, got: %s", total, sum)
	}
	if got := amounts.OriginBroker.StringFixed(2); got != "40.00" {
		t.Fatalf("expected origin broker 40.00, got: %s", got)
	}
	if got := amounts.ReservationBroker.StringFixed(2); got != "50.01" {
		t.Fatalf("expected reservation broker 50.01, got: %s", got)
	}
	if got := amounts.Platform.StringFixed(2); got != "10.00" {
		t.Fatalf("expected platform 10.00, got: %s", got)
	}
}

func TestCalculateSplitAmountsInvalidPercents(t *testing.T) {
	_, err := CalculateSplitAmounts(decimal.RequireFromString("1000"), SplitPercents{Platform: 50, OriginBroker: 30, ReservationBroker: 30})
	if !errors.Is(err, ErrInvalidSplitSum) {
		t.Fatalf("expected ErrInvalidSplitSum, got: %v", err)
	}
}

func TestCalculateCommissionAmount(t *testing.T) {
	amount, err := CalculateCommissionAmount(decimal.RequireFromString("4000000"), 5)
	if err != nil {
		t.Fatalf("calculate commission failed: %v", err)
	}
	if got := amount.StringFixed(2); got != "200000.00" {
		t.Fatalf("expected 200000.00, got: %s", got)
	}

	amount, err = CalculateCommissionAmount(decimal.RequireFromString("333333.33"), 3)
	if err != nil {
		t.Fatalf("calculate commission failed: %v", err)
	}
	if got := amount.StringFixed(2); got != "10000.00" {
		t.Fatalf("expected 10000.00, got: %s", got)
	}

	if _, err := CalculateCommissionAmount(decimal.RequireFromString("1000"), 101); !errors.Is(err, ErrPercentOutOfRange) {
		t.Fatalf("expected ErrPercentOutOfRange, got: %v", err)
	}
	if _, err := CalculateCommissionAmount(decimal.RequireFromString("1000"), -1); !errors.Is(err, ErrPercentOutOfRange) {
		t.Fatalf("expected ErrPercentOutOfRange, got: %v", err)
	}
}
