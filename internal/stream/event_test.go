package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSaleEvent(t *testing.T) {
	event, err := DecodeSaleEvent([]byte(
		`{"date":"15.01.2019","shop":"Shop Hamburg","article":"Pale Ale","sold":3,"revenue":7.5}`,
	))
	require.NoError(t, err)

	assert.Equal(t, "15.01.2019", event.Date)
	assert.Equal(t, "Shop Hamburg", event.Shop)
	assert.Equal(t, "Pale Ale", event.Article)
	assert.Equal(t, 3, event.Sold)
	assert.InDelta(t, 7.5, event.Revenue, 1e-9)
}

func TestDecodeSaleEvent_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr error
	}{
		{"not JSON", `date=15.01.2019`, ErrMalformedEvent},
		{"missing date", `{"shop":"Shop Hamburg","article":"Pale Ale","sold":1,"revenue":2.5}`, ErrMissingDate},
		{"missing shop", `{"date":"15.01.2019","article":"Pale Ale","sold":1,"revenue":2.5}`, ErrMissingShop},
		{"missing article", `{"date":"15.01.2019","shop":"Shop Hamburg","sold":1,"revenue":2.5}`, ErrMissingArticle},
		{"zero quantity", `{"date":"15.01.2019","shop":"Shop Hamburg","article":"Pale Ale","sold":0,"revenue":2.5}`, ErrInvalidQuantity},
		{"negative quantity", `{"date":"15.01.2019","shop":"Shop Hamburg","article":"Pale Ale","sold":-2,"revenue":2.5}`, ErrInvalidQuantity},
		{"negative revenue", `{"date":"15.01.2019","shop":"Shop Hamburg","article":"Pale Ale","sold":1,"revenue":-0.5}`, ErrNegativeRevenue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSaleEvent([]byte(tt.payload))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
