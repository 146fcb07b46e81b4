// Package transaction turns a scanned member card and a typed amount into one
// loyalty visit on the backend.
package transaction

import (
	"encoding/json"
	"strconv"
	"strings"

	"colony-staff/internal/core/domain"
)

// ParsePayload decodes a member card {name, phone, membership}. Anything that
// is not a JSON object yields the fallback payload; it never fails.
func ParsePayload(raw string) domain.ScanPayload {
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &fields); err != nil || fields == nil {
		return fallback(raw)
	}

	return domain.ScanPayload{
		Kind:       domain.ParsedPayload,
		Raw:        raw,
		Name:       field(fields, "name"),
		Phone:      field(fields, "phone"),
		Membership: field(fields, "membership"),
	}
}

func fallback(raw string) domain.ScanPayload {
	return domain.ScanPayload{
		Kind:       domain.FallbackPayload,
		Raw:        raw,
		Name:       domain.UnknownName,
		Phone:      domain.UnknownDetail,
		Membership: domain.UnknownDetail,
	}
}

// field stringifies a card value; some printers encode phone and membership as numbers
func field(fields map[string]interface{}, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
