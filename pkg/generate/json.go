package generate

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ExtractJSON recovers structured data embedded in a free-text service
// response. It locates the outermost brace- or bracket-delimited region,
// repairs common syntax damage, and unmarshals into v.
//
// The parse is best effort by design: on any failure ExtractJSON returns
// false and leaves v untouched so the caller can fall back to a default
// value. It never returns an error.
func ExtractJSON(text string, v any) bool {
	region := jsonRegion(text)
	if region == "" {
		return false
	}
	if err := json.Unmarshal([]byte(region), v); err == nil {
		return true
	}
	fixed, err := jsonrepair.JSONRepair(region)
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(fixed), v) == nil
}

// jsonRegion returns the widest substring spanning from the first opening
// brace/bracket to the last matching closer, or "" if none exists.
func jsonRegion(text string) string {
	text = StripFences(text)
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return ""
	}
	var closer byte = '}'
	if text[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(text, closer)
	if end <= start {
		return ""
	}
	return text[start : end+1]
}
