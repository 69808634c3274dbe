package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/instantcurrency/rates/cache"
	"github.com/instantcurrency/rates/convert"
	"github.com/instantcurrency/rates/resolve"
	"github.com/instantcurrency/rates/storage/types"
)

const currenciesCacheKey = "currencies"

var (
	errUnableToResolveRate     = errors.New("unable to resolve rate")
	errUnableToConvert         = errors.New("unable to convert")
	errUnableToFetchCurrencies = errors.New("unable to fetch currencies")

	errInvalidBody    = errors.New("invalid request body")
	errMissingEmail   = errors.New("missing email")
	errMissingProduct = errors.New("missing product")
)

func (s *Server) Rate(w http.ResponseWriter, r *http.Request) {
	var (
		fromParam = chi.URLParam(r, "from")
		toParam   = chi.URLParam(r, "to")

		dateParam   = r.URL.Query().Get("date")
		latestParam = r.URL.Query().Get("latest")
	)

	// Parse the currency pair
	from, err := types.ParseCurrency(fromParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	to, err := types.ParseCurrency(toParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	// Parse the requested and latest-available dates (both optional)
	date, err := parseOptionalDate(dateParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	latest, err := parseOptionalDate(latestParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	resolution, err := s.resolver.Resolve(r.Context(), types.Pair{From: from, To: to}, date, latest)
	if err != nil {
		if errors.Is(err, resolve.ErrRateUnavailable) {
			// The message names the date that could not be served
			writeError(w, http.StatusNotFound, err)

			return
		}

		s.logger.Debug(
			"unable to resolve rate",
			"err", err,
		)

		writeError(
			w,
			http.StatusInternalServerError,
			errUnableToResolveRate,
		)

		return
	}

	writeJSON(w, http.StatusOK, resolution)
}

func (s *Server) Convert(w http.ResponseWriter, r *http.Request) {
	var body ConvertRequest

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)

		return
	}

	from, err := types.ParseCurrency(body.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	to, err := types.ParseCurrency(body.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	date, err := parseOptionalDate(body.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	latest, err := parseOptionalDate(body.LatestAvailableDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	result, err := s.converter.Convert(r.Context(), convert.Request{
		From:            from,
		To:              to,
		Strategy:        convert.Strategy(body.Strategy),
		Date:            date,
		LatestAvailable: latest,
		Cells:           body.Cells,
	})
	if err != nil {
		switch {
		case errors.Is(err, convert.ErrUnknownStrategy):
			writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, resolve.ErrRateUnavailable):
			writeError(w, http.StatusNotFound, err)
		default:
			s.logger.Debug(
				"unable to convert",
				"err", err,
			)

			writeError(w, http.StatusInternalServerError, errUnableToConvert)
		}

		return
	}

	writeJSON(w, http.StatusOK, &ConvertResponse{
		Cells:        result.Cells,
		DateUsed:     result.DateUsed,
		Substituted:  result.Substituted,
		NumberFormat: result.NumberFormat,
	})
}

func (s *Server) Currencies(w http.ResponseWriter, r *http.Request) {
	if cached, ok := s.cachedCurrencies(r); ok {
		writeJSON(w, http.StatusOK, &CurrenciesResponse{Results: cached})

		return
	}

	items, err := s.provider.Currencies(r.Context())
	if err != nil {
		s.logger.Debug(
			"unable to fetch currencies",
			"err", err,
		)

		writeError(
			w,
			http.StatusInternalServerError,
			errUnableToFetchCurrencies,
		)

		return
	}

	s.cacheCurrencies(r, items)

	writeJSON(w, http.StatusOK, &CurrenciesResponse{Results: items})
}

func (s *Server) SubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	var (
		email   = strings.TrimSpace(r.URL.Query().Get("email"))
		product = strings.TrimSpace(r.URL.Query().Get("product"))
	)

	if email == "" {
		writeError(w, http.StatusBadRequest, errMissingEmail)

		return
	}

	if product == "" {
		writeError(w, http.StatusBadRequest, errMissingProduct)

		return
	}

	status, err := s.subscriptions.Status(r.Context(), email, product)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)

		return
	}

	writeJSON(w, http.StatusOK, &SubscriptionStatusResponse{
		Status: status,
		Active: status == types.SubscriptionActive,
	})
}

func (s *Server) cachedCurrencies(r *http.Request) (map[types.Currency]string, bool) {
	if s.cache == nil {
		return nil, false
	}

	value, ok, err := s.cache.Get(r.Context(), currenciesCacheKey)
	if err != nil || !ok {
		return nil, false
	}

	var items map[types.Currency]string
	if err := json.Unmarshal([]byte(value), &items); err != nil {
		return nil, false
	}

	return items, true
}

func (s *Server) cacheCurrencies(r *http.Request, items map[types.Currency]string) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(items)
	if err != nil {
		return
	}

	if err := s.cache.Put(r.Context(), currenciesCacheKey, string(payload), cache.DefaultTTL); err != nil {
		s.logger.Warn("unable to cache currency listing", "err", err)
	}
}

func parseOptionalDate(raw string) (types.RateDate, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return types.RateDate{}, nil
	}

	return types.ParseRateDate(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // Fine to ignore
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := &ErrorResponse{
		Error: err.Error(),
	}

	writeJSON(w, status, resp)
}
