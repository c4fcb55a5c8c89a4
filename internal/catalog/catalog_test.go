package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"switchboard/internal/api"
	"switchboard/internal/capability"
	"switchboard/pkg/logging"
)

const echoManifest = `
name: echo
displayName: Echo
capabilities:
  provided:
    app: [echo.Echo]
  required:
    "*":
      classes: [app]
`

const tracingManifest = `{
  "name": "tracing",
  "options": {"instanceSharing": "singleton"}
}`

const clockManifest = `
name: clock
package: builtins
instance: shared
`

const builtinsManifest = `
name: builtins
`

func writeManifest(t *testing.T, dir, file, content string) string {
	t.Helper()
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCatalog_Load(t *testing.T) {
	logging.Discard()
	dir := t.TempDir()
	writeManifest(t, dir, "echo.yaml", echoManifest)
	writeManifest(t, dir, "tracing.json", tracingManifest)
	writeManifest(t, dir, "broken.yaml", "name: [unterminated")
	writeManifest(t, dir, "notes.txt", "ignored")

	c := New(dir)
	require.NoError(t, c.Load())

	entries := c.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "echo", entries[0].Name)
	assert.Equal(t, "tracing", entries[1].Name)
	assert.Equal(t, []string{"tracing"}, c.Singletons())

	echo := entries[0]
	assert.True(t, echo.Capabilities.Provided["app"].Has("echo.Echo"))
	assert.True(t, echo.Capabilities.RequestFor("anything").Classes.Has("app"))
}

func TestCatalog_LoadMissingDir(t *testing.T) {
	logging.Discard()
	c := New(filepath.Join(t.TempDir(), "absent"))
	assert.NoError(t, c.Load())
	assert.Empty(t, c.Entries())
}

func TestCatalog_LookupReadsLazily(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	require.NoError(t, c.Load())

	writeManifest(t, dir, "echo.yml", echoManifest)

	entry, err := c.Lookup(context.Background(), "echo")
	require.NoError(t, err)
	assert.Equal(t, "Echo", entry.DisplayName)
	assert.Len(t, c.Entries(), 1, "lazily read entries are cached")
}

func TestCatalog_NameFromFile(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "unnamed.yaml", "displayName: Unnamed\n")

	c := New(dir)
	entry, err := c.Lookup(context.Background(), "unnamed")
	require.NoError(t, err)
	assert.Equal(t, "unnamed", entry.Name)
}

func TestCatalog_Resolve(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "echo.yaml", echoManifest)
	writeManifest(t, dir, "tracing.json", tracingManifest)
	writeManifest(t, dir, "clock.yaml", clockManifest)
	writeManifest(t, dir, "builtins.yaml", builtinsManifest)
	c := New(dir)
	require.NoError(t, c.Load())

	tests := []struct {
		name          string
		wantResolved  string
		wantQualifier string
		wantSingleton bool
	}{
		{"echo", "echo", "", false},
		{"tracing", "tracing", "", true},
		{"clock", "builtins", "shared", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Resolve(context.Background(), tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.name, res.Name)
			assert.Equal(t, tt.wantResolved, res.ResolvedName)
			assert.Equal(t, tt.wantQualifier, res.Qualifier)
			assert.Equal(t, tt.wantSingleton, res.Singleton)
			assert.Equal(t, tt.wantResolved != tt.name, res.Packaged())
		})
	}
}

func TestCatalog_ResolveErrors(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "orphan.yaml", "name: orphan\npackage: missing\n")
	c := New(dir)

	for _, name := range []string{"bad:name", "absent", "orphan"} {
		t.Run(name, func(t *testing.T) {
			_, err := c.Resolve(context.Background(), name)
			assert.True(t, api.IsNotFound(err), "got %v", err)
		})
	}
}

func TestCatalog_AddAndRemoveEntry(t *testing.T) {
	c := New("")
	assert.Error(t, c.AddEntry(nil))
	assert.Error(t, c.AddEntry(&Entry{Name: "Bad Name"}))
	assert.Error(t, c.AddEntry(&Entry{Name: "x", Options: Options{InstanceSharing: "sometimes"}}))
	assert.Error(t, c.AddEntry(&Entry{Name: "x", Package: "x"}))

	require.NoError(t, c.AddEntry(&Entry{
		Name: "echo",
		Capabilities: capability.Spec{
			Provided: map[string]capability.Set{"app": capability.NewSet("echo.Echo")},
		},
	}))
	res, err := c.Resolve(context.Background(), "echo")
	require.NoError(t, err)
	assert.True(t, res.Spec.Provided["app"].Has("echo.Echo"))

	require.NoError(t, c.RemoveEntry("echo"))
	assert.True(t, api.IsNotFound(c.RemoveEntry("echo")))
}

func TestCatalog_ResolveSpecIsCopied(t *testing.T) {
	c := New("")
	require.NoError(t, c.AddEntry(&Entry{
		Name: "echo",
		Capabilities: capability.Spec{
			Provided: map[string]capability.Set{"app": capability.NewSet("echo.Echo")},
		},
	}))

	res, err := c.Resolve(context.Background(), "echo")
	require.NoError(t, err)
	res.Spec.Provided["app"].Add("echo.Admin")

	again, err := c.Resolve(context.Background(), "echo")
	require.NoError(t, err)
	assert.False(t, again.Spec.Provided["app"].Has("echo.Admin"))
}

func TestResolver_RepliesAsynchronously(t *testing.T) {
	c := New("")
	require.NoError(t, c.AddEntry(&Entry{Name: "echo"}))

	type reply struct {
		res *ResolveResult
		err error
	}
	replies := make(chan reply, 2)
	r := c.ResolverForUser("user")
	r.Resolve("echo", func(res *ResolveResult, err error) { replies <- reply{res, err} })
	r.Resolve("bad:name", func(res *ResolveResult, err error) { replies <- reply{res, err} })

	got := map[bool]reply{}
	for i := 0; i < 2; i++ {
		select {
		case rep := <-replies:
			got[rep.err == nil] = rep
		case <-time.After(2 * time.Second):
			t.Fatal("resolver did not reply")
		}
	}
	assert.Equal(t, "echo", got[true].res.Name)
	assert.True(t, api.IsNotFound(got[false].err))
}

func TestResolverFunc(t *testing.T) {
	var f ResolverFunc = func(name string) (*ResolveResult, error) {
		return &ResolveResult{Name: name, ResolvedName: name}, nil
	}
	var got *ResolveResult
	f.Resolve("x", func(res *ResolveResult, _ error) { got = res })
	require.NotNil(t, got)
	assert.Equal(t, "x", got.Name)
}

func TestWatcher_ReloadsChanges(t *testing.T) {
	logging.Discard()
	dir := t.TempDir()
	c := New(dir)
	require.NoError(t, c.Load())

	w := NewWatcher(c, 20*time.Millisecond)
	changes := w.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	path := writeManifest(t, dir, "echo.yaml", echoManifest)

	assert.Eventually(t, func() bool {
		_, err := c.Lookup(context.Background(), "echo")
		return err == nil && len(c.Entries()) == 1
	}, 2*time.Second, 20*time.Millisecond)

	select {
	case change := <-changes:
		assert.Equal(t, "echo", change.Name)
		assert.Equal(t, OperationUpsert, change.Operation)
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification")
	}

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool {
		return len(c.Entries()) == 0
	}, 2*time.Second, 20*time.Millisecond)
}
