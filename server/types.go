package server

import "github.com/instantcurrency/rates/storage/types"

// ConvertRequest is the grid conversion request body
type ConvertRequest struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Strategy string `json:"strategy"`

	Date                string `json:"date,omitempty"`
	LatestAvailableDate string `json:"latest_available_date,omitempty"`

	Cells [][]any `json:"cells"`
}

type ConvertResponse struct {
	Cells        [][]any        `json:"cells"`
	DateUsed     types.RateDate `json:"date_used"`
	Substituted  bool           `json:"substituted"`
	NumberFormat string         `json:"number_format"`
}

type CurrenciesResponse struct {
	Results map[types.Currency]string `json:"results"`
}

type SubscriptionStatusResponse struct {
	Status types.SubscriptionStatus `json:"status"`
	Active bool                     `json:"active"`
}

type WebhookResponse struct {
	Success bool `json:"success"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
