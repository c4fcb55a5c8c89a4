// Package identity defines the (name, user, instance) triple that names a
// running service instance. Identities are immutable values; two identities
// are equal iff all three fields match.
package identity
