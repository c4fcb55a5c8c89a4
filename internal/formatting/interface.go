// Package formatting renders catalog and broker state for the CLI in
// table, JSON or YAML form.
package formatting

import (
	"fmt"
	"io"

	"switchboard/internal/catalog"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
	FormatTable OutputFormat = "table" // Rich table output
)

// ParseFormat validates an --output flag value.
func ParseFormat(raw string) (OutputFormat, error) {
	switch f := OutputFormat(raw); f {
	case FormatJSON, FormatYAML, FormatTable:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (table, json, yaml)", raw)
	}
}

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Color  bool // Enable colored output
}

// Formatter writes catalog data to w.
type Formatter interface {
	FormatManifests(w io.Writer, entries []*catalog.Entry) error
	FormatResolve(w io.Writer, result *catalog.ResolveResult) error
}

// New creates the formatter for options.Format.
func New(options Options) Formatter {
	switch options.Format {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TableFormatter{options: options}
	}
}

// resolveView is the serialized form of a resolve result.
type resolveView struct {
	Name         string              `json:"name"`
	ResolvedName string              `json:"resolvedName"`
	Packaged     bool                `json:"packaged"`
	Qualifier    string              `json:"qualifier,omitempty"`
	Singleton    bool                `json:"singleton"`
	DisplayName  string              `json:"displayName,omitempty"`
	Provided     map[string][]string `json:"provided,omitempty"`
	Required     map[string][]string `json:"required,omitempty"`
}

func newResolveView(r *catalog.ResolveResult) resolveView {
	v := resolveView{
		Name:         r.Name,
		ResolvedName: r.ResolvedName,
		Packaged:     r.Packaged(),
		Qualifier:    r.Qualifier,
		Singleton:    r.Singleton,
		DisplayName:  r.DisplayName,
	}
	if len(r.Spec.Provided) > 0 {
		v.Provided = make(map[string][]string, len(r.Spec.Provided))
		for class, ifaces := range r.Spec.Provided {
			v.Provided[class] = ifaces.Sorted()
		}
	}
	if len(r.Spec.Required) > 0 {
		v.Required = make(map[string][]string, len(r.Spec.Required))
		for target, req := range r.Spec.Required {
			v.Required[target] = requestSummary(req)
		}
	}
	return v
}
