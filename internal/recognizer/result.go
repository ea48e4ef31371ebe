package recognizer

import "encoding/json"

// payload mirrors the engine's JSON result documents.
type payload struct {
	Text    string `json:"text"`
	Partial string `json:"partial"`
}

// TextFromResult extracts the "text" field from a final result payload.
// A missing field, empty payload, or malformed document yields "", since
// silence and non-speech segments are expected, not errors.
func TextFromResult(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return ""
	}
	return p.Text
}

// TextFromPartial extracts the "partial" field from a partial result payload.
func TextFromPartial(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return ""
	}
	return p.Partial
}
