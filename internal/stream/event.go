package stream

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors for event validation.
var (
	ErrMalformedEvent  = errors.New("malformed sale event")
	ErrMissingDate     = errors.New("date is required")
	ErrMissingShop     = errors.New("shop is required")
	ErrMissingArticle  = errors.New("article is required")
	ErrInvalidQuantity = errors.New("sold must be positive")
	ErrNegativeRevenue = errors.New("revenue cannot be negative")
)

// SaleEvent is one sales transaction as published on the Kafka topic.
// Dates use the same DD.MM.YYYY format as the batch CSV exports, and
// shops and articles are referenced by name rather than surrogate key.
type SaleEvent struct {
	Date    string  `json:"date"`
	Shop    string  `json:"shop"`
	Article string  `json:"article"`
	Sold    int     `json:"sold"`
	Revenue float64 `json:"revenue"`
}

// DecodeSaleEvent unmarshals and validates a raw message payload.
func DecodeSaleEvent(data []byte) (*SaleEvent, error) {
	var event SaleEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}

	return &event, nil
}

// Validate checks the business rules for a sale event.
func (e *SaleEvent) Validate() error {
	if e.Date == "" {
		return ErrMissingDate
	}

	if e.Shop == "" {
		return ErrMissingShop
	}

	if e.Article == "" {
		return ErrMissingArticle
	}

	if e.Sold <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, e.Sold)
	}

	if e.Revenue < 0 {
		return fmt.Errorf("%w: got %f", ErrNegativeRevenue, e.Revenue)
	}

	return nil
}
