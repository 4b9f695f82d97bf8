package ranking

import (
	"AutoOptimiser/internal/domain/models"
)

// ascendingIsBetter lists criteria where a smaller value is preferred.
// Every other criterion prefers larger values.
var ascendingIsBetter = map[models.Criterion]bool{
	models.CritDD:               true,
	models.CritVaRStd:           true,
	models.CritMaxDD:            true,
	models.CritMaxDDTotalTrades: true,
	models.CritMaxDDConsecutive: true,

	models.CritDayDDMn: true,
	models.CritDayDDTu: true,
	models.CritDayDDWe: true,
	models.CritDayDDTh: true,
	models.CritDayDDFr: true,

	models.CritDayLoseTradesMn: true,
	models.CritDayLoseTradesTu: true,
	models.CritDayLoseTradesWe: true,
	models.CritDayLoseTradesTh: true,
	models.CritDayLoseTradesFr: true,
}

// PrefersAscending reports whether smaller values of c rank first.
func PrefersAscending(c models.Criterion) bool {
	return ascendingIsBetter[c]
}

// Value extracts the coefficient named by c from r.
func Value(r *models.ResultRecord, c models.Criterion) float64 {
	k := &r.Coefficients
	switch {
	case c >= models.CritDayProfitMn && c <= models.CritDayProfitFr:
		return k.Days[c-models.CritDayProfitMn].Profit
	case c >= models.CritDayDDMn && c <= models.CritDayDDFr:
		return k.Days[c-models.CritDayDDMn].DD
	case c >= models.CritDayProfitTradesMn && c <= models.CritDayProfitTradesFr:
		return float64(k.Days[c-models.CritDayProfitTradesMn].ProfitTrades)
	case c >= models.CritDayLoseTradesMn && c <= models.CritDayLoseTradesFr:
		return float64(k.Days[c-models.CritDayLoseTradesMn].LoseTrades)
	}

	switch c {
	case models.CritPayoff:
		return k.Payoff
	case models.CritProfitFactor:
		return k.ProfitFactor
	case models.CritAverageProfitFactor:
		return k.AverageProfitFactor
	case models.CritRecoveryFactor:
		return k.RecoveryFactor
	case models.CritAverageRecoveryFactor:
		return k.AverageRecoveryFactor
	case models.CritPL:
		return k.PL
	case models.CritDD:
		return k.DD
	case models.CritTotalTrades:
		return float64(k.TotalTrades)
	case models.CritAltmanZScore:
		return k.AltmanZScore
	case models.CritCustom:
		return k.Custom
	case models.CritVaR90:
		return k.VaR.Q90
	case models.CritVaR95:
		return k.VaR.Q95
	case models.CritVaR99:
		return k.VaR.Q99
	case models.CritVaRMx:
		return k.VaR.Mx
	case models.CritVaRStd:
		return k.VaR.Std
	case models.CritMaxProfit:
		return k.MaxPLDD.Profit.Value
	case models.CritMaxProfitTotalTrades:
		return float64(k.MaxPLDD.Profit.TotalTrades)
	case models.CritMaxProfitConsecutive:
		return float64(k.MaxPLDD.Profit.ConsecutiveTrades)
	case models.CritMaxDD:
		return k.MaxPLDD.DD.Value
	case models.CritMaxDDTotalTrades:
		return float64(k.MaxPLDD.DD.TotalTrades)
	case models.CritMaxDDConsecutive:
		return float64(k.MaxPLDD.DD.ConsecutiveTrades)
	}
	return 0
}
