package formatting

import (
	"fmt"
	"io"

	"switchboard/internal/catalog"
)

// JSONFormatter provides JSON output formatting
type JSONFormatter struct{}

// FormatManifests writes entries as a JSON array of manifests.
func (f *JSONFormatter) FormatManifests(w io.Writer, entries []*catalog.Entry) error {
	if entries == nil {
		entries = []*catalog.Entry{}
	}
	_, err := fmt.Fprintln(w, PrettyJSON(entries))
	return err
}

// FormatResolve writes the resolve result as a JSON object.
func (f *JSONFormatter) FormatResolve(w io.Writer, result *catalog.ResolveResult) error {
	_, err := fmt.Fprintln(w, PrettyJSON(newResolveView(result)))
	return err
}
