package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/core"
)

// maxBodyBytes caps request bodies; nothing the API accepts comes close.
const maxBodyBytes = 1 << 20

// decodeJSON reads exactly one JSON object from the body into dst. Unknown
// fields and trailing data are rejected as validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return core.Invalidf("body", "request body is empty")
		case errors.As(err, &maxErr):
			return core.Invalidf("body", "request body exceeds %d bytes", maxErr.Limit)
		default:
			return core.Invalidf("body", "malformed JSON: %v", err)
		}
	}
	if dec.More() {
		return core.Invalidf("body", "request body must contain a single JSON object")
	}
	return nil
}

// monthParam returns the "month" query parameter, defaulting to the current
// month in the server's time zone.
func (s *Server) monthParam(r *http.Request) (core.Month, error) {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		return s.today().Month(), nil
	}
	m, err := core.ParseMonth(v)
	if err != nil {
		return "", core.Invalid("month", err)
	}
	return m, nil
}

// optionalMonthParam is monthParam without the default: an absent parameter
// yields the empty month.
func optionalMonthParam(r *http.Request) (core.Month, error) {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		return "", nil
	}
	m, err := core.ParseMonth(v)
	if err != nil {
		return "", core.Invalid("month", err)
	}
	return m, nil
}

// boolParam parses an optional boolean query parameter.
func boolParam(r *http.Request, key string) (*bool, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, core.Invalidf(key, "must be true or false, got %q", v)
	}
	return &b, nil
}

// typeParam parses the optional transaction type filter.
func typeParam(r *http.Request) (core.TransactionType, error) {
	v := core.TransactionType(strings.TrimSpace(r.URL.Query().Get("type")))
	if v == "" || v.IsValid() {
		return v, nil
	}
	return "", core.Invalidf("type", "unknown transaction type %q", v)
}

func contentDisposition(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}
