package formatting

import (
	"io"

	"sigs.k8s.io/yaml"

	"switchboard/internal/catalog"
)

// YAMLFormatter provides YAML output formatting. It goes through the JSON
// tags so the output reads back as manifests.
type YAMLFormatter struct{}

func (f *YAMLFormatter) FormatManifests(w io.Writer, entries []*catalog.Entry) error {
	if entries == nil {
		entries = []*catalog.Entry{}
	}
	return writeYAML(w, entries)
}

func (f *YAMLFormatter) FormatResolve(w io.Writer, result *catalog.ResolveResult) error {
	return writeYAML(w, newResolveView(result))
}

func writeYAML(w io.Writer, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
