package synapse

import (
	"net/mail"
	"net/url"

	"github.com/google/uuid"
)

// IsEmail reports whether s is a bare email address, without a display
// name or angle brackets.
func IsEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s
}

// IsURL reports whether s is an absolute URL with a host.
func IsURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// IsUUID reports whether s parses as a UUID.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
