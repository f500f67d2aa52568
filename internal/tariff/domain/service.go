package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type CreateUnitPriceRequest struct {
	Price         decimal.Decimal `json:"price"`
	EffectiveDate time.Time       `json:"effective_date"`
}

type Service interface {
	Create(ctx context.Context, req CreateUnitPriceRequest) (UnitPrice, error)
	List(ctx context.Context) ([]UnitPrice, error)

	// CurrentAt resolves the tariff in force at t. ErrNoTariff when no
	// price is effective at or before t.
	CurrentAt(ctx context.Context, t time.Time) (UnitPrice, error)
}

var (
	ErrInvalidPrice = errors.New("invalid_price")
	ErrNoTariff     = errors.New("no_tariff")
)
