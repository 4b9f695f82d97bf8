package report

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"AutoOptimiser/internal/domain/models"
	"AutoOptimiser/pkg/textenc"
)

// WriterOption configures Writer.
type WriterOption func(*Writer)

// WithClock sets the time source for the Created attribute of new files.
func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) {
		w.now = now
	}
}

// Writer builds one pending result through Append calls and appends it to a
// report file on Commit.
type Writer struct {
	mu      sync.Mutex
	now     func() time.Time
	pending models.ResultRecord
}

func NewWriter(opts ...WriterOption) *Writer {
	w := &Writer{now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// AppendMainCoef sets one of MainCoefficients by name.
func (w *Writer) AppendMainCoef(name string, value float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	k := &w.pending.Coefficients
	switch name {
	case CoefPayoff:
		k.Payoff = value
	case CoefProfitFactor:
		k.ProfitFactor = value
	case CoefAverageProfitFactor:
		k.AverageProfitFactor = value
	case CoefRecoveryFactor:
		k.RecoveryFactor = value
	case CoefAverageRecoveryFactor:
		k.AverageRecoveryFactor = value
	case CoefTotalTrades:
		k.TotalTrades = int(value)
	case CoefPL:
		k.PL = value
	case CoefDD:
		k.DD = value
	case CoefAltmanZScore:
		k.AltmanZScore = value
	case CoefCustom:
		k.Custom = value
	default:
		return fmt.Errorf("unknown coefficient %q", name)
	}
	return nil
}

func (w *Writer) AppendVaR(v models.VaR) {
	w.mu.Lock()
	w.pending.Coefficients.VaR = v
	w.mu.Unlock()
}

func (w *Writer) AppendMaxPLDD(m models.MaxPLDD) {
	w.mu.Lock()
	w.pending.Coefficients.MaxPLDD = m
	w.mu.Unlock()
}

// AppendDay sets the breakdown of a trading weekday.
func (w *Writer) AppendDay(day time.Weekday, s models.DailyStats) error {
	for i, d := range models.TradingDays {
		if d == day {
			w.mu.Lock()
			w.pending.Coefficients.Days[i] = s
			w.mu.Unlock()
			return nil
		}
	}
	return fmt.Errorf("%s is not a trading day", day)
}

func (w *Writer) AppendParam(name, value string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending.Params == nil {
		w.pending.Params = make(map[string]string)
	}
	w.pending.Params[name] = value
}

// AppendRecord replaces the pending coefficients, parameters and rank with r's.
func (w *Writer) AppendRecord(r models.ResultRecord) {
	c := r.Clone()
	w.mu.Lock()
	w.pending.Coefficients = c.Coefficients
	w.pending.Params = c.Params
	w.pending.Rank = c.Rank
	w.mu.Unlock()
}

func (w *Writer) SetRank(rank float64) {
	w.mu.Lock()
	w.pending.Rank = rank
	w.mu.Unlock()
}

// Clear drops the pending result.
func (w *Writer) Clear() {
	w.mu.Lock()
	w.pending = models.ResultRecord{}
	w.mu.Unlock()
}

// Commit appends the pending result to path and clears it. A new file gets a
// header from the account arguments; an existing header is kept as is.
func (w *Writer) Commit(path, strategy, currency string, balance decimal.Decimal, leverage int, symbol, timeframe string, start, end time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	doc, enc, err := load(path)
	if err != nil {
		return err
	}
	if doc == nil {
		doc = &document{
			Created: w.now().Unix(),
			Settings: headerToXML(models.AccountSettings{
				Strategy: strategy, Currency: currency, Balance: balance, Leverage: leverage,
			}),
		}
	}

	rec := w.pending
	rec.Symbol, rec.Timeframe = symbol, timeframe
	x := recordToXML(&rec)
	x.Start, x.Finish = start.Unix(), end.Unix()
	doc.Results = append(doc.Results, x)

	if err := save(path, doc, enc); err != nil {
		return err
	}
	w.pending = models.ResultRecord{}
	return nil
}

// load parses path and reports the encoding it was stored in, so a commit
// writes it back the same way. A missing or blank file yields a nil document.
func load(path string) (*document, textenc.Encoding, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, textenc.UTF8, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("read report: %w", err)
	}
	enc := textenc.Detect(raw)
	text, err := textenc.Decode(raw)
	if err != nil {
		return nil, "", err
	}
	if len(bytes.TrimSpace([]byte(text))) == 0 {
		return nil, enc, nil
	}
	dec := xml.NewDecoder(bytes.NewReader([]byte(text)))
	dec.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) { return in, nil }
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, "", fmt.Errorf("parse report %s: %w", path, err)
	}
	return &doc, enc, nil
}

// encode renders doc in the canonical layout.
func encode(doc *document) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "\t")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func save(path string, doc *document, enc textenc.Encoding) error {
	text, err := encode(doc)
	if err != nil {
		return err
	}
	data, err := textenc.Encode(enc, string(text))
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// WriteRecords writes a complete file holding records under one header.
func WriteRecords(path string, header Header, records []models.ResultRecord) error {
	doc := &document{Created: header.Created, Settings: headerToXML(header.Settings)}
	for i := range records {
		doc.Results = append(doc.Results, recordToXML(&records[i]))
	}
	return save(path, doc, textenc.UTF8)
}
