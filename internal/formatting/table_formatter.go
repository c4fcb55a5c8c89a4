package formatting

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"switchboard/internal/catalog"
	sbstrings "switchboard/pkg/strings"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// FormatManifests renders one row per manifest.
func (f *TableFormatter) FormatManifests(w io.Writer, entries []*catalog.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, f.color(text.FgYellow, "No manifests found"))
		return err
	}

	t := f.createTable(w)
	t.AppendHeader(table.Row{
		f.color(text.FgHiCyan, "NAME"),
		f.color(text.FgHiCyan, "DISPLAY NAME"),
		f.color(text.FgHiCyan, "PACKAGE"),
		f.color(text.FgHiCyan, "SHARING"),
		f.color(text.FgHiCyan, "PROVIDES"),
		f.color(text.FgHiCyan, "SOURCE"),
	})
	for _, e := range entries {
		sharing := e.Options.InstanceSharing
		if sharing == "" {
			sharing = catalog.SharingNone
		}
		source := "built-in"
		if e.Source != "" {
			source = sbstrings.TruncatePath(e.Source, sbstrings.DefaultColumnMaxLen)
		}
		t.AppendRow(table.Row{
			e.Name,
			sbstrings.TruncateDescription(e.DisplayName, sbstrings.DefaultColumnMaxLen),
			e.Package,
			sharing,
			len(e.Capabilities.Provided),
			source,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "Total", len(entries)})
	t.Render()
	return nil
}

// FormatResolve renders the resolve result as key-value pairs.
func (f *TableFormatter) FormatResolve(w io.Writer, result *catalog.ResolveResult) error {
	v := newResolveView(result)

	t := f.createTable(w)
	t.AppendHeader(table.Row{f.color(text.FgHiCyan, "KEY"), f.color(text.FgHiCyan, "VALUE")})
	t.AppendRows([]table.Row{
		{"name", v.Name},
		{"resolved name", v.ResolvedName},
		{"packaged", v.Packaged},
		{"qualifier", v.Qualifier},
		{"singleton", v.Singleton},
		{"display name", v.DisplayName},
		{"provides", specSummary(v.Provided)},
		{"requires", specSummary(v.Required)},
	})
	t.Render()
	return nil
}

func (f *TableFormatter) createTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func (f *TableFormatter) color(c text.Color, s string) string {
	if !f.options.Color {
		return s
	}
	return c.Sprint(s)
}
