package usecase

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"AutoOptimiser/internal/domain/models"
	drepo "AutoOptimiser/internal/domain/repository"
	"AutoOptimiser/pkg/util"
)

// applyRunConfig writes rc into the [Tester] section held by ed.
func applyRunConfig(ed drepo.ConfigEditor, rc models.RunConfig) error {
	set := []struct {
		field models.ConfigField
		value string
	}{
		{models.FieldExpert, rc.Strategy},
		{models.FieldExpertParameters, filepath.Base(rc.ParametersFile)},
		{models.FieldSymbol, rc.Symbol},
		{models.FieldPeriod, rc.Timeframe},
		{models.FieldFromDate, util.FormatTesterDate(rc.Interval.From())},
		{models.FieldToDate, util.FormatTesterDate(rc.Interval.Till())},
		{models.FieldOptimization, strconv.Itoa(int(rc.Optimization))},
		{models.FieldModel, strconv.Itoa(int(rc.PriceModel))},
		{models.FieldExecutionMode, strconv.Itoa(int(rc.ExecutionDelay))},
		{models.FieldShutdownTerminal, boolFlag(rc.ShutdownOnFinish)},
	}
	for _, kv := range set {
		if err := ed.SetField(kv.field, kv.value); err != nil {
			return fmt.Errorf("set %s: %w", kv.field, err)
		}
	}

	if rc.ForwardEnabled {
		if err := ed.SetField(models.FieldForwardMode, "4"); err != nil {
			return fmt.Errorf("set %s: %w", models.FieldForwardMode, err)
		}
		if err := ed.SetField(models.FieldForwardDate, util.FormatTesterDate(rc.Interval.Till())); err != nil {
			return fmt.Errorf("set %s: %w", models.FieldForwardDate, err)
		}
	} else {
		if err := ed.SetField(models.FieldForwardMode, "0"); err != nil {
			return fmt.Errorf("set %s: %w", models.FieldForwardMode, err)
		}
		if err := ed.DeleteField(models.FieldForwardDate); err != nil {
			return fmt.Errorf("delete %s: %w", models.FieldForwardDate, err)
		}
	}

	optional := []struct {
		field models.ConfigField
		value string
		ok    bool
	}{
		{models.FieldDeposit, rc.Balance.String(), !rc.Balance.IsZero()},
		{models.FieldCurrency, strings.ToUpper(rc.Currency), rc.Currency != ""},
		{models.FieldLeverage, util.FormatLeverage(rc.Leverage), rc.Leverage > 0},
		{models.FieldReport, rc.ReportPath, rc.ReportPath != ""},
		{models.FieldReplaceReport, "1", rc.ReportPath != ""},
	}
	for _, kv := range optional {
		if !kv.ok {
			continue
		}
		if err := ed.SetField(kv.field, kv.value); err != nil {
			return fmt.Errorf("set %s: %w", kv.field, err)
		}
	}
	return nil
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// strategyName strips directories and extension from a tester expert path.
func strategyName(path string) string {
	path = strings.ReplaceAll(path, `\`, "/")
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
