// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Forms and JSON bodies go through the same parser so the page handlers and
// the API share one set of input rules.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"tally/internal/core"
)

// maxBodyBytes caps request bodies; an expense is a handful of short fields.
const maxBodyBytes = 64 << 10

// ErrBadRequest marks bodies that cannot be read or parsed at all.
var ErrBadRequest = errors.New("malformed request body")

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", ErrBadRequest, p.err)
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if strings.Contains(p.contentType, "application/json") || trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		// Numbers stay exact until they reach decimal.
		dec.UseNumber()
		p.jsonData = make(map[string]interface{})
		if err := dec.Decode(&p.jsonData); err != nil {
			p.jsonData = nil
			p.err = fmt.Errorf("%w: %v", ErrBadRequest, err)
			return p.err
		}
		return nil
	}

	var err error
	p.formData, err = url.ParseQuery(string(trimmed))
	if err != nil {
		p.err = fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseExpense builds a validated expense from the parsed body. The amount is
// read from "amount", falling back to the document's own "expense" field name.
// An empty category selects core.DefaultCategory and an empty date means today.
func ParseExpense(p *RequestBodyParser, now time.Time) (core.Expense, error) {
	amountText := p.Get("amount")
	if amountText == "" {
		amountText = p.Get("expense")
	}
	amount, err := core.ParseAmount(amountText)
	if err != nil {
		return core.Expense{}, err
	}

	category := core.DefaultCategory
	if v := p.Get("category"); v != "" {
		if category, err = core.ParseCategory(v); err != nil {
			return core.Expense{}, err
		}
	}

	date := core.NewDate(now.Year(), int(now.Month()), now.Day())
	if v := p.Get("date"); v != "" {
		if date, err = core.ParseDate(v); err != nil {
			return core.Expense{}, err
		}
	}

	e := core.Expense{
		Subject:     p.Get("subject"),
		Description: p.Get("description"),
		Category:    category,
		Date:        date,
		Amount:      amount,
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

// ParseAmountField reads the "amount" field as a decimal.
func ParseAmountField(p *RequestBodyParser) (decimal.Decimal, error) {
	return core.ParseAmount(p.Get("amount"))
}

// ParseIndex reads the {index} URL parameter. Anything that is not a
// non-negative integer is reported as out of range.
func ParseIndex(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	i, err := strconv.Atoi(raw)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%w: %q", core.ErrIndexOutOfRange, raw)
	}
	return i, nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
