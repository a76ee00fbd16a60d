package service

import (
	"github.com/shopspring/decimal"
)

// SplitPercents 分成比例（整数百分比）
type SplitPercents struct {
	Platform          int
	OriginBroker      int
	ReservationBroker int
}

// SplitAmounts 分成金额（2 位小数）
type SplitAmounts struct {
	Platform          decimal.Decimal
	OriginBroker      decimal.Decimal
	ReservationBroker decimal.Decimal
}

// ValidateSplitPercents 校验分成比例：各项为 0-100 的整数且总和恰为 100
func ValidateSplitPercents(p SplitPercents) error {
	for _, pct := range []int{p.Platform, p.OriginBroker, p.ReservationBroker} {
		if pct < 0 || pct > 100 {
			return ErrPercentOutOfRange
		}
	}
	if p.Platform+p.OriginBroker+p.ReservationBroker != 100 {
		return ErrInvalidSplitSum
	}
	return nil
}

// CalculateSplitAmounts 按比例拆分佣金金额。
//
// 经纪人两份各自四舍五入到 2 位小数，平台份取差值，
// 保证三份之和恰等于佣金总额，且每份与精确值的偏差不超过一分。
func CalculateSplitAmounts(total decimal.Decimal, p SplitPercents) (SplitAmounts, error) {
	if err := ValidateSplitPercents(p); err != nil {
		return SplitAmounts{}, err
	}
	base := total.Round(2)
	hundred := decimal.NewFromInt(100)
	origin := base.Mul(decimal.NewFromInt(int64(p.OriginBroker))).Div(hundred).Round(2)
	reservation := base.Mul(decimal.NewFromInt(int64(p.ReservationBroker))).Div(hundred).Round(2)
	platform := base.Sub(origin).Sub(reservation)
	return SplitAmounts{
		Platform:          platform,
		OriginBroker:      origin,
		ReservationBroker: reservation,
	}, nil
}

// CalculateCommissionAmount 计算佣金金额：最低投资额 × 整数百分比 / 100，四舍五入到 2 位小数
func CalculateCommissionAmount(minInvestment decimal.Decimal, ratePercent int) (decimal.Decimal, error) {
	if ratePercent < 0 || ratePercent > 100 {
		return decimal.Zero, ErrPercentOutOfRange
	}
	return minInvestment.Round(2).
		Mul(decimal.NewFromInt(int64(ratePercent))).
		Div(decimal.NewFromInt(100)).
		Round(2), nil
}
