package token

import "fmt"

// Kind is the functional category of a signed token. It constrains both the
// expiry policy applied at signing time and which verify operations accept
// the token.
type Kind uint8

const (
	// Access tokens are short-lived and never persisted.
	Access Kind = iota
	// Refresh tokens are long-lived, persisted, and rotated on every use.
	Refresh
	// ResetPassword tokens are short-lived, persisted, and single-use.
	ResetPassword
	// VerifyEmail tokens are medium-lived, persisted, and single-use.
	VerifyEmail
)

const kindCount = 4

var kindNames = [kindCount]string{
	Access:        "access",
	Refresh:       "refresh",
	ResetPassword: "reset_password",
	VerifyEmail:   "verify_email",
}

func (k Kind) String() string {
	if int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// Persisted reports whether records of this kind live in the token store.
// Access tokens are stateless by design.
func (k Kind) Persisted() bool {
	return k == Refresh || k == ResetPassword || k == VerifyEmail
}

// ParseKind maps a kind claim string back to its Kind. Unknown values fail
// with ErrWrongKind so forged or foreign claims never alias a known kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if s == name {
			return Kind(k), nil
		}
	}
	return 0, ErrWrongKind
}
