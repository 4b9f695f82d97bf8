package models

import (
	"github.com/shopspring/decimal"
)

// ConfigField is the fixed vocabulary of [Tester] keys the engine writes.
type ConfigField string

const (
	FieldExpert                ConfigField = "Expert"
	FieldExpertParameters      ConfigField = "ExpertParameters"
	FieldSymbol                ConfigField = "Symbol"
	FieldPeriod                ConfigField = "Period"
	FieldFromDate              ConfigField = "FromDate"
	FieldToDate                ConfigField = "ToDate"
	FieldForwardMode           ConfigField = "ForwardMode"
	FieldForwardDate           ConfigField = "ForwardDate"
	FieldOptimization          ConfigField = "Optimization"
	FieldOptimizationCriterion ConfigField = "OptimizationCriterion"
	FieldModel                 ConfigField = "Model"
	FieldExecutionMode         ConfigField = "ExecutionMode"
	FieldDeposit               ConfigField = "Deposit"
	FieldCurrency              ConfigField = "Currency"
	FieldLeverage              ConfigField = "Leverage"
	FieldShutdownTerminal      ConfigField = "ShutdownTerminal"
	FieldReport                ConfigField = "Report"
	FieldReplaceReport         ConfigField = "ReplaceReport"
	FieldLogin                 ConfigField = "Login"
)

// KnownFields lists every field a ConfigStore must accept.
var KnownFields = []ConfigField{
	FieldExpert, FieldExpertParameters, FieldSymbol, FieldPeriod, FieldFromDate, FieldToDate,
	FieldForwardMode, FieldForwardDate, FieldOptimization, FieldOptimizationCriterion, FieldModel,
	FieldExecutionMode, FieldDeposit, FieldCurrency, FieldLeverage, FieldShutdownTerminal,
	FieldReport, FieldReplaceReport, FieldLogin,
}

// IsKnownField reports whether f belongs to the vocabulary.
func IsKnownField(f ConfigField) bool {
	for _, k := range KnownFields {
		if k == f {
			return true
		}
	}
	return false
}

// RunConfig is the typed binding for one tester launch.
type RunConfig struct {
	Strategy         string
	ParametersFile   string
	Symbol           string
	Timeframe        string
	Interval         DateInterval
	Optimization     OptimizationMode
	PriceModel       PriceModel
	ExecutionDelay   ExecutionDelay
	Currency         string
	Balance          decimal.Decimal
	Leverage         int
	ForwardEnabled   bool
	ReportPath       string
	ShutdownOnFinish bool
}
