// Package report reads and writes the XML result file shared with the
// strategy tester. The tester appends one Result per pass; the engine reads
// them back with a pull cursor.
package report

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"AutoOptimiser/internal/domain/models"
	"AutoOptimiser/pkg/util"
)

const (
	elemRoot     = "Optimisation_Report"
	elemSettings = "Optimiser_Settings"
	elemResults  = "Optimisation_Results"
	elemResult   = "Result"

	settingBot      = "Bot"
	settingDeposit  = "Deposit"
	settingLeverage = "Leverage"
)

// Main coefficient item names.
const (
	CoefPayoff                = "Payoff"
	CoefProfitFactor          = "Profit factor"
	CoefAverageProfitFactor   = "Average Profit factor"
	CoefRecoveryFactor        = "Recovery factor"
	CoefAverageRecoveryFactor = "Average Recovery factor"
	CoefTotalTrades           = "Total trades"
	CoefPL                    = "PL"
	CoefDD                    = "DD"
	CoefAltmanZScore          = "Altman Z Score"
	CoefCustom                = "Custom"
)

// MainCoefficients lists main items in file order.
var MainCoefficients = []string{
	CoefPayoff, CoefProfitFactor, CoefAverageProfitFactor, CoefRecoveryFactor, CoefAverageRecoveryFactor,
	CoefTotalTrades, CoefPL, CoefDD, CoefAltmanZScore, CoefCustom,
}

const (
	varQ90 = "90"
	varQ95 = "95"
	varQ99 = "99"
	varMx  = "Mx"
	varStd = "Std"

	plddProfit            = "Profit"
	plddDD                = "DD"
	plddProfitTotal       = "Total trades Profit"
	plddDDTotal           = "Total trades DD"
	plddProfitConsecutive = "Consecutive trades Profit"
	plddDDConsecutive     = "Consecutive trades DD"

	dayProfit       = "Profit"
	dayDD           = "DD"
	dayProfitTrades = "Number Of Profit Trades"
	dayLoseTrades   = "Number Of Lose Trades"
)

type document struct {
	XMLName  xml.Name    `xml:"Optimisation_Report"`
	Created  int64       `xml:"Created,attr"`
	Settings itemList    `xml:"Optimiser_Settings"`
	Results  []resultXML `xml:"Optimisation_Results>Result"`
}

type item struct {
	Name     string `xml:"Name,attr"`
	Currency string `xml:"Currency,attr,omitempty"`
	Value    string `xml:",chardata"`
}

type itemList struct {
	Items []item `xml:"Item"`
}

func (l itemList) lookup(name string) (item, bool) {
	for _, it := range l.Items {
		if it.Name == name {
			return it, true
		}
	}
	return item{}, false
}

type resultXML struct {
	Symbol       string          `xml:"Symbol,attr"`
	TF           string          `xml:"TF,attr"`
	Start        int64           `xml:"Start_DT,attr"`
	Finish       int64           `xml:"Finish_DT,attr"`
	Rank         string          `xml:"Rank,attr,omitempty"`
	Coefficients coefficientsXML `xml:"Coefficients"`
	Params       []item          `xml:"Item"`
}

type coefficientsXML struct {
	VaR     itemList       `xml:"VaR"`
	MaxPLDD itemList       `xml:"Max_PL_DD"`
	Days    tradingDaysXML `xml:"Trading_Days"`
	Items   []item         `xml:"Item"`
}

type tradingDaysXML struct {
	Mn itemList `xml:"Mn"`
	Tu itemList `xml:"Tu"`
	We itemList `xml:"We"`
	Th itemList `xml:"Th"`
	Fr itemList `xml:"Fr"`
}

func (d *tradingDaysXML) at(i int) *itemList {
	return [...]*itemList{&d.Mn, &d.Tu, &d.We, &d.Th, &d.Fr}[i]
}

// Header is the account metadata written once per file.
type Header struct {
	Created  int64
	Settings models.AccountSettings
}

func headerToXML(h models.AccountSettings) itemList {
	return itemList{Items: []item{
		{Name: settingBot, Value: h.Strategy},
		{Name: settingDeposit, Currency: h.Currency, Value: h.Balance.String()},
		{Name: settingLeverage, Value: util.FormatLeverage(h.Leverage)},
	}}
}

func headerFromXML(l itemList) (models.AccountSettings, error) {
	var s models.AccountSettings
	if it, ok := l.lookup(settingBot); ok {
		s.Strategy = it.Value
	}
	if it, ok := l.lookup(settingDeposit); ok {
		s.Currency = it.Currency
		if it.Value != "" {
			d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(it.Value), ",", "."))
			if err != nil {
				return s, fmt.Errorf("deposit %q: %w", it.Value, err)
			}
			s.Balance = d
		}
	}
	if it, ok := l.lookup(settingLeverage); ok && it.Value != "" {
		n, err := util.ParseLeverage(it.Value)
		if err != nil {
			return s, err
		}
		s.Leverage = n
	}
	return s, nil
}

func num(name string, v float64) item { return item{Name: name, Value: util.FormatFloat(v)} }

func count(name string, v int) item { return item{Name: name, Value: strconv.Itoa(v)} }

func recordToXML(r *models.ResultRecord) resultXML {
	k := &r.Coefficients
	out := resultXML{
		Symbol: r.Symbol,
		TF:     r.Timeframe,
		Start:  r.Interval.From().Unix(),
		Finish: r.Interval.Till().Unix(),
		Rank:   util.FormatFloat(r.Rank),
	}
	c := &out.Coefficients
	c.VaR.Items = []item{
		num(varQ90, k.VaR.Q90), num(varQ95, k.VaR.Q95), num(varQ99, k.VaR.Q99),
		num(varMx, k.VaR.Mx), num(varStd, k.VaR.Std),
	}
	c.MaxPLDD.Items = []item{
		num(plddProfit, k.MaxPLDD.Profit.Value),
		num(plddDD, k.MaxPLDD.DD.Value),
		count(plddProfitTotal, k.MaxPLDD.Profit.TotalTrades),
		count(plddDDTotal, k.MaxPLDD.DD.TotalTrades),
		count(plddProfitConsecutive, k.MaxPLDD.Profit.ConsecutiveTrades),
		count(plddDDConsecutive, k.MaxPLDD.DD.ConsecutiveTrades),
	}
	for i, d := range k.Days {
		c.Days.at(i).Items = []item{
			num(dayProfit, d.Profit), num(dayDD, d.DD),
			count(dayProfitTrades, d.ProfitTrades), count(dayLoseTrades, d.LoseTrades),
		}
	}
	c.Items = []item{
		num(CoefPayoff, k.Payoff),
		num(CoefProfitFactor, k.ProfitFactor),
		num(CoefAverageProfitFactor, k.AverageProfitFactor),
		num(CoefRecoveryFactor, k.RecoveryFactor),
		num(CoefAverageRecoveryFactor, k.AverageRecoveryFactor),
		count(CoefTotalTrades, k.TotalTrades),
		num(CoefPL, k.PL),
		num(CoefDD, k.DD),
		num(CoefAltmanZScore, k.AltmanZScore),
		num(CoefCustom, k.Custom),
	}

	names := make([]string, 0, len(r.Params))
	for n := range r.Params {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		out.Params = append(out.Params, item{Name: n, Value: r.Params[n]})
	}
	return out
}

// fieldParser collects the first parse error so conversion code stays flat.
type fieldParser struct {
	block string
	err   error
}

func (p *fieldParser) number(it item) float64 {
	v, err := util.ParseFloat(it.Value)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s/%s: %w", p.block, it.Name, err)
	}
	return v
}

func (p *fieldParser) integer(it item) int {
	v, err := util.ParseFloat(it.Value)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s/%s: %w", p.block, it.Name, err)
	}
	return int(v)
}

func recordFromXML(x *resultXML) (models.ResultRecord, error) {
	r := models.ResultRecord{Symbol: x.Symbol, Timeframe: x.TF}
	iv, err := models.IntervalFromUnix(x.Start, x.Finish)
	if err != nil {
		return r, fmt.Errorf("result %s %s: %w", x.Symbol, x.TF, err)
	}
	r.Interval = iv

	p := &fieldParser{block: "Result"}
	if x.Rank != "" {
		r.Rank = p.number(item{Name: "Rank", Value: x.Rank})
	}

	k := &r.Coefficients
	c := &x.Coefficients

	p.block = "VaR"
	for _, it := range c.VaR.Items {
		switch it.Name {
		case varQ90:
			k.VaR.Q90 = p.number(it)
		case varQ95:
			k.VaR.Q95 = p.number(it)
		case varQ99:
			k.VaR.Q99 = p.number(it)
		case varMx:
			k.VaR.Mx = p.number(it)
		case varStd:
			k.VaR.Std = p.number(it)
		}
	}

	p.block = "Max_PL_DD"
	for _, it := range c.MaxPLDD.Items {
		switch it.Name {
		case plddProfit:
			k.MaxPLDD.Profit.Value = p.number(it)
		case plddDD:
			k.MaxPLDD.DD.Value = p.number(it)
		case plddProfitTotal:
			k.MaxPLDD.Profit.TotalTrades = p.integer(it)
		case plddDDTotal:
			k.MaxPLDD.DD.TotalTrades = p.integer(it)
		case plddProfitConsecutive:
			k.MaxPLDD.Profit.ConsecutiveTrades = p.integer(it)
		case plddDDConsecutive:
			k.MaxPLDD.DD.ConsecutiveTrades = p.integer(it)
		}
	}

	p.block = "Trading_Days"
	for i := range k.Days {
		d := &k.Days[i]
		for _, it := range c.Days.at(i).Items {
			switch it.Name {
			case dayProfit:
				d.Profit = p.number(it)
			case dayDD:
				d.DD = p.number(it)
			case dayProfitTrades:
				d.ProfitTrades = p.integer(it)
			case dayLoseTrades:
				d.LoseTrades = p.integer(it)
			}
		}
	}

	p.block = "Coefficients"
	for _, it := range c.Items {
		switch it.Name {
		case CoefPayoff:
			k.Payoff = p.number(it)
		case CoefProfitFactor:
			k.ProfitFactor = p.number(it)
		case CoefAverageProfitFactor:
			k.AverageProfitFactor = p.number(it)
		case CoefRecoveryFactor:
			k.RecoveryFactor = p.number(it)
		case CoefAverageRecoveryFactor:
			k.AverageRecoveryFactor = p.number(it)
		case CoefTotalTrades:
			k.TotalTrades = p.integer(it)
		case CoefPL:
			k.PL = p.number(it)
		case CoefDD:
			k.DD = p.number(it)
		case CoefAltmanZScore:
			k.AltmanZScore = p.number(it)
		case CoefCustom:
			k.Custom = p.number(it)
		}
	}
	if p.err != nil {
		return r, p.err
	}

	if len(x.Params) > 0 {
		r.Params = make(map[string]string, len(x.Params))
		for _, it := range x.Params {
			r.Params[it.Name] = it.Value
		}
	}
	return r, nil
}
