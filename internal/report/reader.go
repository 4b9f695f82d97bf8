package report

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"AutoOptimiser/internal/domain/models"
	"AutoOptimiser/pkg/textenc"
)

// Reader yields the results of one file in order. It is not restartable.
type Reader struct {
	closer io.Closer
	dec    *xml.Decoder
	header Header
	done   bool
}

// Open parses the header of path and positions the cursor at the first result.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.closer = f
	return r, nil
}

// NewReader reads a report from src, which may be UTF-8 or UTF-16 with a BOM.
func NewReader(src io.Reader) (*Reader, error) {
	dec := xml.NewDecoder(textenc.NewReader(src))
	// Input is already UTF-8 whatever the declaration says.
	dec.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) { return in, nil }

	r := &Reader{dec: dec}
	if err := r.readHeader(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) readHeader() error {
	for {
		tok, err := r.dec.Token()
		if errors.Is(err, io.EOF) {
			r.done = true
			return nil
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case elemRoot:
			for _, a := range se.Attr {
				if a.Name.Local == "Created" {
					v, err := strconv.ParseInt(a.Value, 10, 64)
					if err != nil {
						return fmt.Errorf("created %q: %w", a.Value, err)
					}
					r.header.Created = v
				}
			}
		case elemSettings:
			var l itemList
			if err := r.dec.DecodeElement(&l, &se); err != nil {
				return fmt.Errorf("read settings: %w", err)
			}
			s, err := headerFromXML(l)
			if err != nil {
				return fmt.Errorf("read settings: %w", err)
			}
			r.header.Settings = s
		case elemResults:
			return nil
		default:
			if err := r.dec.Skip(); err != nil {
				return fmt.Errorf("read header: %w", err)
			}
		}
	}
}

func (r *Reader) Header() Header { return r.header }

// Next returns the next result or io.EOF when none remain.
func (r *Reader) Next() (models.ResultRecord, error) {
	if r.done {
		return models.ResultRecord{}, io.EOF
	}
	for {
		tok, err := r.dec.Token()
		if errors.Is(err, io.EOF) {
			r.done = true
			return models.ResultRecord{}, io.EOF
		}
		if err != nil {
			return models.ResultRecord{}, fmt.Errorf("read result: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != elemResult {
				if err := r.dec.Skip(); err != nil {
					return models.ResultRecord{}, fmt.Errorf("read result: %w", err)
				}
				continue
			}
			var x resultXML
			if err := r.dec.DecodeElement(&x, &t); err != nil {
				return models.ResultRecord{}, fmt.Errorf("read result: %w", err)
			}
			return recordFromXML(&x)
		case xml.EndElement:
			if t.Name.Local == elemResults || t.Name.Local == elemRoot {
				r.done = true
				return models.ResultRecord{}, io.EOF
			}
		}
	}
}

func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// ReadAll reads every result of path after checking its header against
// expected. Fields left empty in expected are not checked. A missing file
// yields no records and no error.
func ReadAll(path string, expected models.AccountSettings) ([]models.ResultRecord, Header, error) {
	r, err := Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, Header{}, nil
	}
	if err != nil {
		return nil, Header{}, err
	}
	defer r.Close()

	h := r.Header()
	if err := expected.Check(h.Settings); err != nil {
		return nil, h, err
	}

	var out []models.ResultRecord
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, h, nil
		}
		if err != nil {
			return nil, h, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, rec)
	}
}
