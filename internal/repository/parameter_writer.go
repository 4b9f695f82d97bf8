package repository

import (
	"AutoOptimiser/internal/domain/models"
	"AutoOptimiser/pkg/setfile"
	"AutoOptimiser/pkg/textenc"
)

// SetFileWriter writes strategy inputs as tester .set files.
type SetFileWriter struct {
	enc textenc.Encoding
}

func NewSetFileWriter(enc textenc.Encoding) *SetFileWriter {
	return &SetFileWriter{enc: enc}
}

func (w *SetFileWriter) Write(path string, params []models.StrategyParam) error {
	out := make([]setfile.Param, 0, len(params))
	for _, p := range params {
		sp := setfile.Param{Name: p.Name, Value: p.Value}
		if p.Range != nil {
			sp.HasRange = true
			sp.Start = p.Range.Start
			sp.Step = p.Range.Step
			sp.Stop = p.Range.Stop
			sp.Optimize = p.Range.Enabled
		}
		out = append(out, sp)
	}
	return setfile.WriteFile(path, out, w.enc)
}
