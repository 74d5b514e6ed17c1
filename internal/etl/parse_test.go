package etl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSaleDate(t *testing.T) {
	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{"15.01.2019", 20190115, true},
		{"01.12.2020", 20201201, true},
		{" 29.02.2020 ", 20200229, true},
		{"29.02.2019", 0, false}, // not a leap year
		{"2019-01-15", 0, false},
		{"32.01.2019", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSaleDate(tt.input)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrInvalidDate)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseGermanDecimal(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"12,50", 12.50, true},
		{"0,99", 0.99, true},
		{"1234", 1234, true},
		{"3.14", 3.14, true}, // already dotted values pass through
		{" 7,5 ", 7.5, true},
		{"abc", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseGermanDecimal(tt.input)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrInvalidDecimal)

				return
			}

			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseInts(t *testing.T) {
	idx := map[string]int{"ShopID": 0, "ShopName": 1, "CityID": 2}
	record := []string{"12", "Shop Hamburg", " 3 "}

	ids, err := parseInts(record, idx, "ShopID", "CityID")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"ShopID": 12, "CityID": 3}, ids)

	_, err = parseInts([]string{"x", "Shop", "3"}, idx, "ShopID")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ShopID")
}
