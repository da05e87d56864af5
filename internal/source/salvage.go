package source

import (
	"encoding/json"
	"strconv"
	"strings"
)

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or surrounding prose.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find the outermost {...} span.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// salvageJSON tries to unmarshal a JSON object out of the agent's text
// blocks, starting from the last block (the final answer should be last)
// and walking backwards through earlier blocks on parse failure.
func salvageJSON(blocks []string, out any) bool {
	for i := len(blocks) - 1; i >= 0; i-- {
		text := cleanJSON(blocks[i])
		if text == "" || !strings.HasPrefix(text, "{") {
			continue
		}
		if err := json.Unmarshal([]byte(text), out); err == nil {
			return true
		}
	}
	return false
}

// flexFloat tolerates numeric fields the model emits as strings
// ("92", "24.50", "95 pts") or numbers. Null and unparseable values
// decode to nil.
type flexFloat struct {
	value *float64
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		return nil
	}
	s = strings.Trim(s, `"`)

	// Keep the leading numeric run; drop units and currency symbols.
	s = strings.TrimLeft(s, "$€£ ")
	endIdx := len(s)
	for i, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != ',' {
			endIdx = i
			break
		}
	}
	s = strings.ReplaceAll(s[:endIdx], ",", "")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil // unparseable maps to null, not a decode failure
	}
	f.value = &v
	return nil
}

// Float returns the decoded value, nil when absent or garbled.
func (f flexFloat) Float() *float64 {
	return f.value
}

// Int returns the decoded value truncated to int, nil when absent.
func (f flexFloat) Int() *int {
	if f.value == nil {
		return nil
	}
	v := int(*f.value)
	return &v
}

// positivePrice maps zero and negative prices to null. Providers emit 0
// for "price unknown", and a zero retail price is no price.
func positivePrice(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}
