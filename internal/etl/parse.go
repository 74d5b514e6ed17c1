package etl

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/salescube-io/salescube/internal/warehouse"
)

var (
	// ErrInvalidDate is returned when a sale date is not in DD.MM.YYYY format.
	ErrInvalidDate = errors.New("invalid sale date")

	// ErrInvalidDecimal is returned when a revenue value cannot be parsed.
	ErrInvalidDecimal = errors.New("invalid decimal value")
)

// ParseSaleDate converts a DD.MM.YYYY date string to its YYYYMMDD date key.
func ParseSaleDate(s string) (int, error) {
	t, err := time.Parse("02.01.2006", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}

	return warehouse.DateKeyFor(t), nil
}

// ParseGermanDecimal parses a decimal that uses a comma as the decimal
// separator, as the sales exports do ("12,50" means 12.50).
func ParseGermanDecimal(s string) (float64, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(s), ",", ".")

	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDecimal, s)
	}

	return value, nil
}

// parseInts extracts the named columns from a CSV record as integers,
// using the header index map built when the file was opened.
func parseInts(record []string, idx map[string]int, cols ...string) (map[string]int, error) {
	values := make(map[string]int, len(cols))

	for _, col := range cols {
		raw := strings.TrimSpace(record[idx[col]])

		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("column %s: invalid integer %q", col, raw)
		}

		values[col] = n
	}

	return values, nil
}
