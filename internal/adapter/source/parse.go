package source

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/covid-data-service/internal/domain"
)

// table is a parsed CSV feed with a case-insensitive header index.
type table struct {
	columns map[string]int
	rows    [][]string
}

// readTable parses body as CSV and checks that every required column is present.
func readTable(body []byte, required ...string) (*table, error) {
	r := csv.NewReader(bytes.NewReader(body))
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse csv: %w", domain.ErrSourceUnavailable, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %w: empty feed", domain.ErrSourceUnavailable, domain.ErrSchemaMismatch)
	}

	t := &table{columns: make(map[string]int, len(records[0])), rows: records[1:]}
	for i, name := range records[0] {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		t.columns[normalizeColumn(name)] = i
	}

	var missing []string
	for _, col := range required {
		if _, ok := t.columns[normalizeColumn(col)]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %w: missing columns %s",
			domain.ErrSourceUnavailable, domain.ErrSchemaMismatch, strings.Join(missing, ", "))
	}
	return t, nil
}

// value returns the trimmed cell for col. readTable has already verified col exists.
func (t *table) value(row []string, col string) string {
	return strings.TrimSpace(row[t.columns[normalizeColumn(col)]])
}

func normalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// parseCount parses a non-negative integer count. Integral floats such as
// "1234.0" are accepted because some publishers emit counts as floats.
func parseCount(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative count %q", s)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative count %q", s)
	}
	return int64(f), nil
}

// rowError reports a bad cell; line is the 1-based CSV line including the header.
func rowError(dataset string, line int, err error) error {
	return fmt.Errorf("%w: %s line %d: %w", domain.ErrSourceUnavailable, dataset, line, err)
}
