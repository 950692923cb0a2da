package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/akave-ai/consultlog/internal/config"
)

// ErrUnauthorized is returned when the Authorization header does not carry the
// configured credential pair.
var ErrUnauthorized = errors.New("authentication required")

// Verifier checks HTTP Basic credentials against a single username/password.
type Verifier struct {
	username string
	password string
	realm    string
}

func NewVerifier(cfg config.AdminConfig) *Verifier {
	realm := cfg.Realm
	if realm == "" {
		realm = "Restricted"
	}
	return &Verifier{username: cfg.Username, password: cfg.Password, realm: realm}
}

// Challenge is the WWW-Authenticate value sent with a 401.
func (v *Verifier) Challenge() string {
	return `Basic realm="` + v.realm + `"`
}

// Check returns nil when header is "Basic <base64(user:pass)>" for the
// configured pair, and an error wrapping ErrUnauthorized otherwise.
func (v *Verifier) Check(header string) error {
	if header == "" {
		return fmt.Errorf("missing authorization header: %w", ErrUnauthorized)
	}
	user, pass, err := ParseBasic(header)
	if err != nil {
		return fmt.Errorf("malformed basic credentials: %w", err)
	}
	if user != v.username || pass != v.password {
		return fmt.Errorf("credentials mismatch: %w", ErrUnauthorized)
	}
	return nil
}

// Verify reports whether header carries the configured pair. Malformed input
// is a plain failure.
func (v *Verifier) Verify(header string) bool {
	return v.Check(header) == nil
}

// ParseBasic extracts the username and password from a Basic Authorization
// header value. The password is everything after the first colon.
func ParseBasic(header string) (username, password string, err error) {
	parts := strings.Split(header, " ")
	if len(parts) < 2 || parts[0] != "Basic" || parts[1] == "" {
		return "", "", ErrUnauthorized
	}
	raw, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", "", ErrUnauthorized
	}
	username, password, ok := strings.Cut(string(raw), ":")
	if !ok {
		return "", "", ErrUnauthorized
	}
	return username, password, nil
}
