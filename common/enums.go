// The only reason this package exists is because both configuration and
// optimizer need the same enums and optimizer should not depend on
// configuration. So enums live in a separate package.
package common

//go:generate go tool go-enum --marshal --names

// ErrorPolicy controls how optimizer failures affect the whole pass.
// ENUM(fail-fast, atomic)
type ErrorPolicy int

// Atomic reports whether no declaration should be modified when any of them fails.
func (p ErrorPolicy) Atomic() bool {
	return p == ErrorPolicyAtomic
}
