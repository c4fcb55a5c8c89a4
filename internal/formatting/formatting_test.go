package formatting

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"switchboard/internal/capability"
	"switchboard/internal/catalog"
)

func sampleEntries() []*catalog.Entry {
	return []*catalog.Entry{
		{
			Name:    "echo",
			Package: "builtins",
			Capabilities: capability.Spec{
				Provided: map[string]capability.Set{"echo": capability.NewSet("echo.Echo")},
			},
		},
		{
			Name:    "tracing",
			Options: catalog.Options{InstanceSharing: catalog.SharingSingleton},
			Source:  "/etc/switchboard/catalog/tracing.yaml",
		},
	}
}

func sampleResult() *catalog.ResolveResult {
	return &catalog.ResolveResult{
		Name:         "echo",
		ResolvedName: "builtins",
		Spec: capability.Spec{
			Provided: map[string]capability.Set{"echo": capability.NewSet("echo.Echo")},
			Required: map[string]capability.Request{
				"tracing": capability.NewRequest([]string{"trace"}, []string{"tracing.Sink"}),
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		raw     string
		want    OutputFormat
		wantErr bool
	}{
		{raw: "", want: FormatTable},
		{raw: "table", want: FormatTable},
		{raw: "json", want: FormatJSON},
		{raw: "yaml", want: FormatYAML},
		{raw: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseFormat(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTableFormatter_Manifests(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(Options{Format: FormatTable}).FormatManifests(&buf, sampleEntries()))

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "echo")
	assert.Contains(t, out, "built-in")
	assert.Contains(t, out, "singleton")
	assert.Contains(t, out, "/etc/switchboard/catalog/tracing.yaml")
}

func TestTableFormatter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(Options{}).FormatManifests(&buf, nil))
	assert.Equal(t, "No manifests found\n", buf.String())
}

func TestTableFormatter_Resolve(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(Options{Format: FormatTable}).FormatResolve(&buf, sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "builtins")
	assert.Contains(t, out, "echo: echo.Echo")
	assert.Contains(t, out, "tracing: class:trace, interface:tracing.Sink")
}

func TestJSONFormatter_Manifests(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(Options{Format: FormatJSON}).FormatManifests(&buf, sampleEntries()))

	var decoded []catalog.Entry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "builtins", decoded[0].Package)
	assert.True(t, decoded[1].Singleton())
	assert.Empty(t, decoded[1].Source, "source is not serialized")
}

func TestJSONFormatter_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(Options{Format: FormatJSON}).FormatManifests(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestYAMLFormatter_Resolve(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(Options{Format: FormatYAML}).FormatResolve(&buf, sampleResult()))

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "echo", decoded["name"])
	assert.Equal(t, "builtins", decoded["resolvedName"])
	assert.Equal(t, true, decoded["packaged"])
}

func TestYAMLFormatter_ManifestsReadBack(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(Options{Format: FormatYAML}).FormatManifests(&buf, sampleEntries()[:1]))

	var decoded []catalog.Entry
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.True(t, decoded[0].Capabilities.Provided["echo"].Has("echo.Echo"))
}
