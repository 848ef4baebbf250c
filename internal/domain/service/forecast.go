package service

import (
	"context"
	"errors"

	"StockCast/internal/domain/models"
)

// ErrNoData means the symbol could not be resolved at all.
var ErrNoData = errors.New("no data")

// ForecastQuery is what the transport layer needs from the forecasting core.
type ForecastQuery interface {
	Forecast(ctx context.Context, symbol string) (models.ForecastRecord, error)
	Top(ctx context.Context, limit int) ([]models.ForecastRecord, error)
	Outlook(ctx context.Context, symbol string) (models.Outlook, error)
	History(ctx context.Context, symbol string, limit int) ([]models.ForecastRecord, error)
}
