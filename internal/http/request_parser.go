// Package http serves the ledger JSON API.
//
// This file implements utilities for parsing and validating request data:
// period and type query parameters, path ids and JSON bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ledger/internal/core"
	"ledger/internal/stats"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

var (
	ErrInvalidParam = errors.New("invalid parameter")
	ErrEmptyBody    = errors.New("request body is empty")
)

// ParsePeriodParams reads year and month from the query. With neither present
// it returns def. A year without a month selects the whole year; a month
// without a year uses def's year.
func ParsePeriodParams(query url.Values, def stats.Period) (stats.Period, error) {
	yearStr := strings.TrimSpace(query.Get("year"))
	monthStr := strings.TrimSpace(query.Get("month"))
	if yearStr == "" && monthStr == "" {
		return def, nil
	}

	p := stats.Period{Year: def.Year}
	if yearStr != "" {
		y, err := strconv.Atoi(yearStr)
		if err != nil || y < 1 || y > 9999 {
			return stats.Period{}, fmt.Errorf("%w: year %q", ErrInvalidParam, yearStr)
		}
		p.Year = y
	}
	if monthStr != "" {
		m, err := strconv.Atoi(monthStr)
		if err != nil || m < 1 || m > 12 {
			return stats.Period{}, fmt.Errorf("%w: month %q", ErrInvalidParam, monthStr)
		}
		p.Month = m
	}
	if p.Year == 0 {
		return stats.Period{}, fmt.Errorf("%w: month needs a year", ErrInvalidParam)
	}
	return p, nil
}

// ParseTypeParam reads the "type" query parameter, falling back to def.
func ParseTypeParam(query url.Values, def core.TransactionType) (core.TransactionType, error) {
	v := strings.TrimSpace(query.Get("type"))
	if v == "" {
		return def, nil
	}
	t, err := core.ParseTransactionType(v)
	if err != nil {
		return "", fmt.Errorf("%w: type %q", ErrInvalidParam, v)
	}
	return t, nil
}

// ParseIDParam parses a positive bill id from a path segment.
func ParseIDParam(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id %q", ErrInvalidParam, raw)
	}
	return id, nil
}

// BillRequest is the body of POST /api/bills and PUT /api/bills/{id}.
type BillRequest struct {
	Type      string      `json:"type"`
	Amount    *core.Money `json:"amount"`
	Category  string      `json:"category"`
	Remark    string      `json:"remark"`
	Timestamp int64       `json:"timestamp"`
}

// Bill converts the request into a bill without an id. Field validation is
// left to the store so HTTP and CLI report the same errors.
func (req BillRequest) Bill() (core.Bill, error) {
	typ, err := core.ParseTransactionType(req.Type)
	if err != nil {
		return core.Bill{}, err
	}
	if req.Amount == nil {
		return core.Bill{}, core.ErrInvalidAmount
	}
	return core.Bill{
		Type:      typ,
		Amount:    *req.Amount,
		Category:  sanitizeInput(req.Category),
		Remark:    sanitizeInput(req.Remark),
		Timestamp: req.Timestamp,
	}, nil
}

// ResetRequest is the body of POST /api/reset.
type ResetRequest struct {
	Confirm string `json:"confirm"`
}

// DecodeJSONBody decodes exactly one JSON value from r into dst. Unknown
// fields and trailing data are rejected.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
