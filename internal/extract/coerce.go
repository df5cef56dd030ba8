package extract

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/property-intake/internal/schema"
)

var nullish = map[string]bool{
	"":        true,
	"null":    true,
	"none":    true,
	"n/a":     true,
	"na":      true,
	"unknown": true,
	"-":       true,
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"01/02/06",
	"1/2/06",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"2 January 2006",
	"02-Jan-2006",
	"2006/01/02",
}

// Coerce converts a decoded JSON value to the Go type of t: nil, string
// or float64. ok is false when a non-null value could not be read as t.
func Coerce(v any, t schema.FieldType) (out any, ok bool) {
	if v == nil {
		return nil, true
	}
	if s, isStr := v.(string); isStr {
		s = strings.TrimSpace(s)
		if nullish[strings.ToLower(s)] {
			return nil, true
		}
		v = s
	}
	switch t {
	case schema.TypeNumber:
		return toNumber(v)
	case schema.TypeDate:
		return toDate(v), true
	default:
		return toString(v), true
	}
}

func toNumber(v any) (any, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case bool:
		return nil, false
	case string:
		f, err := ParseNumber(n)
		if err != nil {
			return nil, false
		}
		return f, true
	}
	return nil, false
}

// ParseNumber reads amounts like "$1,234.50", "(250.00)" and "6.237%".
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case '$', ',', '%', ' ', '\u00a0':
			return -1
		}
		return r
	}, s)
	s = strings.TrimSuffix(strings.ToUpper(s), "USD")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse number %q: %w", s, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("parse number %q: not finite", s)
	}
	if neg {
		f = -f
	}
	return f, nil
}

func toDate(v any) any {
	s := toString(v).(string)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

func toString(v any) any {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func clampConfidence(f float64) float64 {
	switch {
	case math.IsNaN(f) || f < 0:
		return 0
	case f > 1 && f <= 100:
		return f / 100
	case f > 1:
		return 1
	}
	return f
}

// confidenceOf reads a confidence that may arrive as a number or a string.
func confidenceOf(v any) (float64, bool) {
	switch c := v.(type) {
	case float64:
		return clampConfidence(c), true
	case string:
		f, err := ParseNumber(c)
		if err != nil {
			return 0, false
		}
		if strings.HasSuffix(strings.TrimSpace(c), "%") {
			f /= 100
		}
		return clampConfidence(f), true
	}
	return 0, false
}

// sanitizeEnvelope rewrites a decoded reply so it satisfies the envelope
// schema: confidences clamped, non-scalar values flattened to strings,
// bare values wrapped into field entries. It returns the names it touched.
func sanitizeEnvelope(m map[string]any) []string {
	var changed []string

	if oc, present := m["overall_confidence"]; present && oc != nil {
		if f, ok := confidenceOf(oc); ok {
			m["overall_confidence"] = f
		} else {
			delete(m, "overall_confidence")
		}
		changed = append(changed, "overall_confidence")
	}

	fields, ok := m["fields"].(map[string]any)
	if !ok {
		return changed
	}
	for name, raw := range fields {
		entry, isObj := raw.(map[string]any)
		if !isObj {
			fields[name] = map[string]any{"value": scalar(raw), "confidence": 0.0, "source_text": ""}
			changed = append(changed, name)
			continue
		}
		touched := false
		if v, present := entry["value"]; present && !isScalar(v) {
			entry["value"] = toString(v)
			touched = true
		}
		if c, present := entry["confidence"]; present {
			f, ok := confidenceOf(c)
			if !ok || f != c {
				entry["confidence"] = f
				touched = true
			}
		}
		if st, present := entry["source_text"]; present && st != nil {
			if _, isStr := st.(string); !isStr {
				entry["source_text"] = toString(st)
				touched = true
			}
		}
		if touched {
			changed = append(changed, name)
		}
	}
	return changed
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, float64, bool:
		return true
	}
	return false
}

// scalar flattens objects and arrays to their JSON text.
func scalar(v any) any {
	if isScalar(v) {
		return v
	}
	return toString(v)
}
