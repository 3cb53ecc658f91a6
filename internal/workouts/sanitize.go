package workouts

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DecodeDocument maps arbitrary JSON text onto a fully typed document.
// An error is returned only when the text is not JSON at all; any JSON value,
// whatever its shape, degrades field by field to defaults.
func DecodeDocument(data []byte) (Document, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return NewDocument(), fmt.Errorf("decode document: %w", err)
	}
	return SanitizeDocument(raw), nil
}

// SanitizeDocument converts an untyped JSON value into a document.
func SanitizeDocument(raw any) Document {
	obj, _ := raw.(map[string]any)
	doc := NewDocument()

	if list, ok := obj["sessions"].([]any); ok {
		for _, item := range list {
			sessionObj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			doc.Sessions = append(doc.Sessions, sanitizeSession(sessionObj))
		}
	}

	settingsObj, _ := obj["settings"].(map[string]any)
	doc.Settings = sanitizeSettings(settingsObj)

	return doc
}

func sanitizeSettings(obj map[string]any) Settings {
	settings := DefaultSettings()
	if w, ok := toNumber(obj["weightKg"]); ok && w > 0 {
		settings.WeightKg = &w
	}
	metObj, _ := obj["MET"].(map[string]any)
	settings.MET = sanitizeMET(metObj)
	return settings
}

func sanitizeSession(obj map[string]any) Session {
	s := Session{
		ID:    toString(obj["id"]),
		Type:  ActivityType(toString(obj["type"])),
		Date:  toString(obj["date"]),
		Notes: toString(obj["notes"]),
	}
	if s.Type == ActivityOther {
		s.CustomLabel = toString(obj["customLabel"])
	}
	if d, ok := toNumber(obj["durationMin"]); ok {
		s.DurationMin = d
	}
	if i, ok := toNumber(obj["intensity"]); ok {
		s.Intensity = int(math.Round(i))
	}
	if w, ok := toNumber(obj["weightAtLog"]); ok && w > 0 {
		s.WeightAtLog = &w
	}
	if m, ok := toNumber(obj["metAtLog"]); ok && m > 0 {
		s.MetAtLog = &m
	}

	if manual, ok := toNumber(obj["caloriesManual"]); ok {
		s.SetManualCalories(manual)
	} else if fixed, ok := toNumber(obj["caloriesFixed"]); ok {
		s.SetFixedCalories(int(math.Round(fixed)))
	}

	return s
}

func decodeObject(data []byte) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		obj = map[string]any{}
	}
	return obj, nil
}

// toNumber coerces a JSON value to a finite number. Numeric strings are accepted;
// null, empty strings, booleans and containers are not.
func toNumber(v any) (float64, bool) {
	var n float64
	switch val := v.(type) {
	case float64:
		n = val
	case int:
		n = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, false
		}
		n = parsed
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	if !validNumber(n) {
		return 0, false
	}
	return n, true
}

func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

func validNumber(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func validPositive(v float64) bool {
	return validNumber(v) && v > 0
}
