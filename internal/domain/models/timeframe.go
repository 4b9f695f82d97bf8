package models

import "strings"

// Timeframe is a tester chart period.
type Timeframe string

const (
	TFM1  Timeframe = "M1"
	TFM5  Timeframe = "M5"
	TFM15 Timeframe = "M15"
	TFM30 Timeframe = "M30"
	TFH1  Timeframe = "H1"
	TFH4  Timeframe = "H4"
	TFD1  Timeframe = "D1"
	TFW1  Timeframe = "W1"
	TFMN1 Timeframe = "MN1"
)

// IsValidTimeframe reports whether the tester knows tf.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TFM1, TFM5, TFM15, TFM30, TFH1, TFH4, TFD1, TFW1, TFMN1:
		return true
	default:
		return false
	}
}

// DefaultTimeframe is used when a request names none or an unknown one.
func DefaultTimeframe() Timeframe { return TFH1 }

// NormalizeTimeframe upper-cases s and falls back to the default period.
func NormalizeTimeframe(s string) Timeframe {
	tf := Timeframe(strings.ToUpper(strings.TrimSpace(s)))
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}
