package capability

import (
	"sort"
)

// Wildcard matches every target name in Spec.Required and every interface
// name in Request.Interfaces.
const Wildcard = "*"

// Well-known capability classes understood by the broker itself. They are
// looked up in the source's Required entry for the broker's own name.
const (
	// ClassUserID allows connecting to instances owned by another user.
	ClassUserID = "service_manager:user_id"
	// ClassInstanceName allows selecting a non-default instance qualifier.
	ClassInstanceName = "service_manager:instance_name"
	// ClassClientProcess allows registering a caller-provided instance.
	ClassClientProcess = "service_manager:client_process"
	// ClassServiceManager allows binding the broker's introspection interface.
	ClassServiceManager = "service_manager:service_manager"
)

// Set is an unordered collection of names. The zero value is an empty set
// that must be initialized with NewSet or a literal before Add.
type Set map[string]struct{}

// NewSet builds a set from names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is a member.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Add inserts name.
func (s Set) Add(name string) {
	s[name] = struct{}{}
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for n := range s {
		out[n] = struct{}{}
	}
	return out
}

// MarshalJSON encodes the set as a sorted list.
func (s Set) MarshalJSON() ([]byte, error) {
	return marshalNames(s.Sorted())
}

// UnmarshalJSON decodes a list of names.
func (s *Set) UnmarshalJSON(data []byte) error {
	names, err := unmarshalNames(data)
	if err != nil {
		return err
	}
	*s = NewSet(names...)
	return nil
}

// Request is what a connecting party is declared able to ask for.
type Request struct {
	Classes    Set `json:"classes,omitempty"`
	Interfaces Set `json:"interfaces,omitempty"`
}

// NewRequest builds a request from class and interface name lists.
func NewRequest(classes, interfaces []string) Request {
	return Request{Classes: NewSet(classes...), Interfaces: NewSet(interfaces...)}
}

// AllowsAllInterfaces reports whether the request names the wildcard
// interface, which disables filtering.
func (r Request) AllowsAllInterfaces() bool {
	return r.Interfaces.Has(Wildcard)
}

// IsEmpty reports whether the request grants nothing.
func (r Request) IsEmpty() bool {
	return len(r.Classes) == 0 && len(r.Interfaces) == 0
}

// Merge returns the union of r and other.
func (r Request) Merge(other Request) Request {
	out := Request{Classes: r.Classes.Clone(), Interfaces: r.Interfaces.Clone()}
	for c := range other.Classes {
		out.Classes.Add(c)
	}
	for i := range other.Interfaces {
		out.Interfaces.Add(i)
	}
	return out
}

// Spec is what a service exposes per class and what it may request of
// others, keyed by target service name.
type Spec struct {
	Provided map[string]Set     `json:"provided,omitempty"`
	Required map[string]Request `json:"required,omitempty"`
}

// Permissive returns a spec that may request every class and interface of
// every target. It is used for the broker and for embedder instances.
func Permissive() Spec {
	return Spec{
		Required: map[string]Request{
			Wildcard: NewRequest([]string{Wildcard}, []string{Wildcard}),
		},
	}
}

// RequestFor returns what a service with this spec may ask of target: the
// union of Required[target] and Required["*"].
func (s Spec) RequestFor(target string) Request {
	out := Request{Classes: NewSet(), Interfaces: NewSet()}
	if req, ok := s.Required[Wildcard]; ok {
		out = out.Merge(req)
	}
	if req, ok := s.Required[target]; ok {
		out = out.Merge(req)
	}
	return out
}

// HasClass reports whether the spec requires class from target, honouring
// the wildcard entries.
func (s Spec) HasClass(target, class string) bool {
	req := s.RequestFor(target)
	return req.Classes.Has(class) || req.Classes.Has(Wildcard)
}

// Clone returns a deep copy so the caller may hold it immutably.
func (s Spec) Clone() Spec {
	out := Spec{}
	if s.Provided != nil {
		out.Provided = make(map[string]Set, len(s.Provided))
		for class, ifaces := range s.Provided {
			out.Provided[class] = ifaces.Clone()
		}
	}
	if s.Required != nil {
		out.Required = make(map[string]Request, len(s.Required))
		for target, req := range s.Required {
			out.Required[target] = Request{Classes: req.Classes.Clone(), Interfaces: req.Interfaces.Clone()}
		}
	}
	return out
}

// CanBind reports whether a peer holding request may bind interface name on a
// service described by spec: the interface is named directly, or some class
// in the request provides it.
func CanBind(spec Spec, request Request, name string) bool {
	if request.Interfaces.Has(name) {
		return true
	}
	for class := range request.Classes {
		if spec.Provided[class].Has(name) {
			return true
		}
	}
	return false
}
