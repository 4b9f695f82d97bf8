// Package setfile reads and writes strategy input files (.set).
//
// Each input is one line: name=value, optionally followed by the sweep
// ||start||step||stop||Y|N used by optimisation.
package setfile

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"AutoOptimiser/pkg/textenc"
)

const sep = "||"

// Param is one strategy input.
type Param struct {
	Name     string
	Value    string
	HasRange bool
	Start    string
	Step     string
	Stop     string
	Optimize bool
}

// Encode renders params, one per line with CRLF endings.
func Encode(params []Param) string {
	var b strings.Builder
	for _, p := range params {
		b.WriteString(p.Name)
		b.WriteByte('=')
		b.WriteString(p.Value)
		if p.HasRange {
			flag := "N"
			if p.Optimize {
				flag = "Y"
			}
			b.WriteString(sep + p.Start + sep + p.Step + sep + p.Stop + sep + flag)
		}
		b.WriteString("\r\n")
	}
	return b.String()
}

// Parse reads params from text. Blank lines and ';' comments are skipped.
func Parse(text string) ([]Param, error) {
	var out []Param
	sc := bufio.NewScanner(strings.NewReader(text))
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		name, rest, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("line %d: expected name=value", n)
		}
		p := Param{Name: strings.TrimSpace(name)}
		parts := strings.Split(rest, sep)
		p.Value = parts[0]
		switch len(parts) {
		case 1:
		case 5:
			p.HasRange = true
			p.Start, p.Step, p.Stop = parts[1], parts[2], parts[3]
			p.Optimize = strings.EqualFold(parts[4], "Y")
		default:
			return nil, fmt.Errorf("line %d: malformed range for %s", n, p.Name)
		}
		out = append(out, p)
	}
	return out, sc.Err()
}

// WriteFile writes params to path in enc.
func WriteFile(path string, params []Param, enc textenc.Encoding) error {
	if err := textenc.WriteFile(path, Encode(params), enc); err != nil {
		return fmt.Errorf("write set file: %w", err)
	}
	return nil
}

// ReadFile parses path in whatever encoding its BOM declares.
func ReadFile(path string) ([]Param, error) {
	text, _, err := textenc.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read set file: %w", err)
	}
	return Parse(text)
}

// Remove deletes path, ignoring a missing file.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
