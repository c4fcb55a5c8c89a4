package capability

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanBind(t *testing.T) {
	spec := Spec{
		Provided: map[string]Set{
			"A": NewSet("X", "Y"),
			"B": NewSet("Z"),
		},
	}

	tests := []struct {
		name    string
		request Request
		iface   string
		want    bool
	}{
		{"class provides interface", NewRequest([]string{"A"}, nil), "X", true},
		{"class provides second interface", NewRequest([]string{"A"}, nil), "Y", true},
		{"class does not provide interface", NewRequest([]string{"A"}, nil), "Z", false},
		{"other class provides interface", NewRequest([]string{"A", "B"}, nil), "Z", true},
		{"interface named directly", NewRequest(nil, []string{"Z"}), "Z", true},
		{"unknown class", NewRequest([]string{"C"}, nil), "X", false},
		{"empty request", Request{}, "X", false},
		{"interface outside spec", NewRequest(nil, []string{"W"}), "W", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanBind(spec, tt.request, tt.iface))
		})
	}
}

func TestCanBind_EmptySpec(t *testing.T) {
	assert.False(t, CanBind(Spec{}, NewRequest([]string{"A"}, nil), "X"))
	assert.True(t, CanBind(Spec{}, NewRequest(nil, []string{"X"}), "X"))
}

func TestRequestFor_MergesWildcard(t *testing.T) {
	spec := Spec{
		Required: map[string]Request{
			"*":       NewRequest([]string{"common"}, nil),
			"storage": NewRequest([]string{"read"}, []string{"storage.Admin"}),
		},
	}

	req := spec.RequestFor("storage")
	assert.ElementsMatch(t, []string{"common", "read"}, req.Classes.Sorted())
	assert.ElementsMatch(t, []string{"storage.Admin"}, req.Interfaces.Sorted())

	other := spec.RequestFor("network")
	assert.Equal(t, []string{"common"}, other.Classes.Sorted())
	assert.Empty(t, other.Interfaces)
}

func TestRequestFor_NothingDeclared(t *testing.T) {
	req := Spec{}.RequestFor("anything")
	assert.True(t, req.IsEmpty())
	assert.False(t, req.AllowsAllInterfaces())
}

func TestPermissive(t *testing.T) {
	spec := Permissive()
	req := spec.RequestFor("whatever")
	assert.True(t, req.AllowsAllInterfaces())
	assert.True(t, spec.HasClass("whatever", ClassUserID))
	assert.True(t, spec.HasClass("service_manager", ClassClientProcess))
}

func TestHasClass(t *testing.T) {
	spec := Spec{
		Required: map[string]Request{
			"service_manager": NewRequest([]string{ClassInstanceName}, nil),
		},
	}
	assert.True(t, spec.HasClass("service_manager", ClassInstanceName))
	assert.False(t, spec.HasClass("service_manager", ClassUserID))
	assert.False(t, spec.HasClass("echo", ClassInstanceName))
}

func TestSpec_CloneIsIndependent(t *testing.T) {
	spec := Spec{
		Provided: map[string]Set{"A": NewSet("X")},
		Required: map[string]Request{"t": NewRequest([]string{"c"}, nil)},
	}
	clone := spec.Clone()
	clone.Provided["A"].Add("Y")
	clone.Required["t"].Classes.Add("d")

	assert.False(t, spec.Provided["A"].Has("Y"))
	assert.False(t, spec.Required["t"].Classes.Has("d"))
}

func TestSpec_JSON(t *testing.T) {
	raw := `{
		"provided": {"app": ["echo.Echo", "echo.Admin"]},
		"required": {"*": {"classes": ["app"]}, "storage": {"interfaces": "storage.Read"}}
	}`

	var spec Spec
	require.NoError(t, json.Unmarshal([]byte(raw), &spec))

	assert.True(t, spec.Provided["app"].Has("echo.Admin"))
	assert.True(t, spec.RequestFor("storage").Interfaces.Has("storage.Read"))
	assert.True(t, spec.RequestFor("storage").Classes.Has("app"))

	out, err := json.Marshal(spec.Provided["app"])
	require.NoError(t, err)
	assert.JSONEq(t, `["echo.Admin","echo.Echo"]`, string(out))
}
