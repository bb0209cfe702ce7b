package model

import (
	"fmt"
	"strings"
	"time"
)

type TxType string

const (
	Buy  TxType = "BUY"
	Sell TxType = "SELL"
)

// Transaction is a raw entry of the external transaction history.
type Transaction struct {
	Type          TxType    `json:"type"`
	Symbol        string    `json:"symbol"`
	Quantity      float64   `json:"quantity"`
	PricePerShare float64   `json:"price_per_share"`
	ExecutedAt    time.Time `json:"executed_at"`
}

// PurchaseLot is a single BUY of a fixed quantity at a fixed price.
// MarketHasOpenedSince is computed once when the ledger is built.
type PurchaseLot struct {
	Symbol               string    `json:"symbol"`
	Quantity             float64   `json:"quantity"`
	PricePerShare        float64   `json:"price_per_share"`
	PurchasedAt          time.Time `json:"purchased_at"`
	MarketHasOpenedSince bool      `json:"market_has_opened_since"`
}

// LotPolicy decides how SELL transactions consume purchase lots.
type LotPolicy int

const (
	// BuyOnly ignores SELL transactions entirely.
	BuyOnly LotPolicy = iota
	// FIFO consumes the oldest lots first.
	FIFO
	// LIFO consumes the newest lots first.
	LIFO
)

func (p LotPolicy) String() string {
	switch p {
	case BuyOnly:
		return "buy_only"
	case FIFO:
		return "fifo"
	case LIFO:
		return "lifo"
	default:
		return "unknown"
	}
}

func ParseLotPolicy(s string) (LotPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy_only", "":
		return BuyOnly, nil
	case "fifo":
		return FIFO, nil
	case "lifo":
		return LIFO, nil
	default:
		return 0, fmt.Errorf("%w: unknown lot policy %q", ErrInvalidConfig, s)
	}
}
