package models

// Requests for the forecast HTTP endpoints.

type ForecastRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,ticker"`
}

type TopForecastsRequest struct {
	Limit int `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=100"`
}

type ForecastHistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,ticker"`
	Limit  int    `query:"limit" json:"limit" default:"30" validate:"gte=1,lte=1000"`
}
