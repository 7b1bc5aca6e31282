package series

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"PQAnalyzer/internal/domain/models"
)

// Stats reports what a decode kept and dropped.
type Stats struct {
	Rows    int `json:"rows"`
	Skipped int `json:"skipped"`
}

// Decode reads header-less "time,voltage" rows. Rows with the wrong column count
// or a non-numeric field are skipped and counted. Blank lines are ignored.
// The result is sorted by time.
func Decode(r io.Reader) (models.Series, Stats, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	out := make(models.Series, 0, 256)
	var st Stats
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				st.Rows++
				st.Skipped++
				continue
			}
			return nil, st, fmt.Errorf("read csv: %w", err)
		}
		st.Rows++
		s, ok := parseRecord(rec)
		if !ok {
			st.Skipped++
			continue
		}
		out = append(out, s)
	}
	out.SortByTime()
	return out, st, nil
}

// DecodeBytes is Decode over an in-memory blob.
func DecodeBytes(b []byte) (models.Series, Stats, error) {
	return Decode(bytes.NewReader(b))
}

// Encode writes the series as header-less rows.
func Encode(w io.Writer, s models.Series) error {
	cw := csv.NewWriter(w)
	for _, p := range s {
		if err := cw.Write([]string{formatFloat(p.T), formatFloat(p.V)}); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// EncodeBytes returns the CSV blob for s.
func EncodeBytes(s models.Series) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func parseRecord(rec []string) (models.Sample, bool) {
	if len(rec) != 2 {
		return models.Sample{}, false
	}
	t, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
	if err != nil || math.IsNaN(t) || math.IsInf(t, 0) {
		return models.Sample{}, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return models.Sample{}, false
	}
	return models.Sample{T: t, V: v}, true
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
