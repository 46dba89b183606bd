package generation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxTitleRunes bounds itinerary titles; longer titles are truncated.
const MaxTitleRunes = 40

// Itinerary is one suggested date course.
type Itinerary struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	SuggestedPlaces    []string `json:"suggested_places"`
	Tips               []string `json:"tips"`
	EstimatedTotalCost int      `json:"estimated_total_cost"`
}

// StripCodeFence removes a surrounding markdown code fence, with or without
// a json language tag, from model output.
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = s[len("```json"):]
	case strings.HasPrefix(s, "```"):
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseItineraries decodes model output into itineraries. The output must be
// a JSON array; elements that are not objects are skipped and fields of the
// wrong type are coerced, so one sloppy suggestion does not sink the rest.
func ParseItineraries(raw string) ([]Itinerary, error) {
	text := StripCodeFence(raw)

	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v: %s", ErrInvalidResponse, err, preview(text))
	}
	list, ok := parsed.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a JSON array, got %s", ErrInvalidResponse, jsonKind(parsed))
	}

	out := make([]Itinerary, 0, len(list))
	for _, el := range list {
		obj, ok := el.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Itinerary{
			Title:              truncateRunes(asString(obj["title"]), MaxTitleRunes),
			Description:        asString(obj["description"]),
			SuggestedPlaces:    asStrings(obj["suggested_places"]),
			Tips:               asStrings(obj["tips"]),
			EstimatedTotalCost: asCost(obj["estimated_total_cost"]),
		})
	}
	return out, nil
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func asStrings(v any) []string {
	switch x := v.(type) {
	case []any:
		out := make([]string, 0, len(x))
		for _, el := range x {
			out = append(out, asString(el))
		}
		return out
	case string:
		if x == "" {
			return []string{}
		}
		return []string{x}
	default:
		return []string{}
	}
}

// asCost accepts numbers and strings such as "45,000원".
func asCost(v any) int {
	switch x := v.(type) {
	case float64:
		if x < 0 || x > math.MaxInt32 {
			return 0
		}
		return int(x)
	case string:
		var digits strings.Builder
		for _, r := range x {
			if r >= '0' && r <= '9' {
				digits.WriteRune(r)
			}
		}
		n, err := strconv.Atoi(digits.String())
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func preview(s string) string {
	return truncateRunes(s, 200)
}
