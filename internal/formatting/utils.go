package formatting

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"switchboard/internal/capability"
)

// PrettyJSON formats any value as indented JSON for human-readable display.
// Values that cannot be marshaled fall back to fmt.Sprintf.
func PrettyJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// requestSummary lists a request's classes followed by its interfaces,
// each prefixed by its kind.
func requestSummary(r capability.Request) []string {
	var out []string
	for _, c := range r.Classes.Sorted() {
		out = append(out, "class:"+c)
	}
	for _, i := range r.Interfaces.Sorted() {
		out = append(out, "interface:"+i)
	}
	return out
}

// specSummary renders a capability map on one line per key.
func specSummary(m map[string][]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %s", k, strings.Join(m[k], ", ")))
	}
	return strings.Join(lines, "\n")
}
