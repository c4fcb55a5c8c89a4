package identity

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// RootUserID is the user id of the broker itself and of every singleton
	// instance. Singletons are keyed with it regardless of the caller's user.
	RootUserID = uuid.MustParse("505c0ee9-3013-43c0-82b0-a84f50cf8d84").String()

	// InheritUserID asks the broker to use the source's user id.
	InheritUserID = uuid.Nil.String()
)

// Identity names one running service instance. It is a comparable value and
// is used directly as a map key.
type Identity struct {
	Name     string `json:"name" yaml:"name"`
	UserID   string `json:"userID" yaml:"userID"`
	Instance string `json:"instance,omitempty" yaml:"instance,omitempty"`
}

// New returns an Identity for name owned by userID with no instance qualifier.
func New(name, userID string) Identity {
	return Identity{Name: name, UserID: userID}
}

// NewWithInstance returns a fully qualified Identity.
func NewWithInstance(name, userID, instance string) Identity {
	return Identity{Name: name, UserID: userID, Instance: instance}
}

// NewUserID generates a fresh random user id.
func NewUserID() string {
	return uuid.New().String()
}

// IsZero reports whether the identity is the zero value.
func (i Identity) IsZero() bool {
	return i == Identity{}
}

// WithUserID returns a copy of i owned by userID.
func (i Identity) WithUserID(userID string) Identity {
	i.UserID = userID
	return i
}

// WithInstance returns a copy of i with the instance qualifier replaced.
func (i Identity) WithInstance(instance string) Identity {
	i.Instance = instance
	return i
}

// InheritsUser reports whether the user id should be taken from the source.
func (i Identity) InheritsUser() bool {
	return i.UserID == "" || i.UserID == InheritUserID
}

// Validate checks that the identity can address an instance.
func (i Identity) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("identity has empty name")
	}
	if strings.ContainsAny(i.Name, "@/ ") {
		return fmt.Errorf("identity name %q contains a reserved character", i.Name)
	}
	if _, err := uuid.Parse(i.UserID); err != nil {
		return fmt.Errorf("identity %s has invalid user id %q: %w", i.Name, i.UserID, err)
	}
	return nil
}

// String renders the identity as name@user/instance. The user and instance
// parts are omitted when empty.
func (i Identity) String() string {
	var b strings.Builder
	b.WriteString(i.Name)
	if i.UserID != "" {
		b.WriteString("@")
		b.WriteString(i.UserID)
	}
	if i.Instance != "" {
		b.WriteString("/")
		b.WriteString(i.Instance)
	}
	return b.String()
}

// Parse reads the String form back. Accepted inputs are "name",
// "name@user" and "name@user/instance".
func Parse(s string) (Identity, error) {
	if s == "" {
		return Identity{}, fmt.Errorf("empty identity")
	}

	var id Identity
	rest := s
	if at := strings.IndexByte(rest, '@'); at >= 0 {
		id.Name = rest[:at]
		rest = rest[at+1:]
		if slash := strings.IndexByte(rest, '/'); slash >= 0 {
			id.UserID = rest[:slash]
			id.Instance = rest[slash+1:]
		} else {
			id.UserID = rest
		}
	} else {
		id.Name = rest
	}

	if id.Name == "" {
		return Identity{}, fmt.Errorf("identity %q has empty name", s)
	}
	if id.UserID != "" {
		if _, err := uuid.Parse(id.UserID); err != nil {
			return Identity{}, fmt.Errorf("identity %q has invalid user id: %w", s, err)
		}
	}
	return id, nil
}
