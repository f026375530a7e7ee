package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Engine is the aPAKE collaborator. Implementations are expected to be
// stateless across calls: whatever intermediate state a login needs is
// returned from StartLogin and handed back to FinishLogin.
type Engine interface {
	// CreateRegistrationResponse answers the first registration message.
	CreateRegistrationResponse(request []byte, identifier string) ([]byte, error)
	// StartLogin answers the first login message and returns the opaque
	// server-side state needed to finish the exchange.
	StartLogin(identifier string, loginRequest, record []byte) (challenge, state []byte, err error)
	// FinishLogin verifies the client proof and returns the derived session
	// key, or an error when the proof does not check out.
	FinishLogin(proof, state []byte) ([]byte, error)
	// CreateDecoyRecord produces a structurally valid registration record
	// bound to a throwaway identity, usable as a stand-in credential.
	CreateDecoyRecord() ([]byte, error)
}

// Cipher is the symmetric encryption collaborator used by the Envelope.
type Cipher interface {
	Encrypt(key, plaintext []byte) (ciphertext, nonce []byte, err error)
	Decrypt(key, ciphertext, nonce []byte) ([]byte, error)
	NonceSize() int
}

// Identity holds the attributes of an identity
type Identity interface {
	ID() string
	Username() string
	Email() string
	Role() string
}

// TokenService issues and validates session tokens
type TokenService interface {
	Generate(identity Identity, extended bool) (string, error)
	Validate(token string) (*JWTClaims, error)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetTokenExpiration() int
	GetExtendedTokenDuration() int
	GetIssuer() string
	GetAudience() []string
	GetEnvelopeSecret() string
}

// IdentitySnapshot is the user identity captured at login-challenge time and
// carried inside the sealed envelope to login-complete. A nil snapshot marks
// the decoy path.
type IdentitySnapshot struct {
	UserID     uuid.UUID  `json:"user_id"`
	Email      string     `json:"email"`
	FirstName  string     `json:"first_name,omitempty"`
	LastName   string     `json:"last_name,omitempty"`
	Role       string     `json:"role,omitempty"`
	LoggedInAt *time.Time `json:"loggedin_at,omitempty"`
}

var _ Identity = snapshotIdentity{}

// snapshotIdentity adapts an IdentitySnapshot to the Identity interface.
type snapshotIdentity struct {
	snap *IdentitySnapshot
}

func (s snapshotIdentity) ID() string       { return s.snap.UserID.String() }
func (s snapshotIdentity) Username() string { return s.snap.Email }
func (s snapshotIdentity) Email() string    { return s.snap.Email }
func (s snapshotIdentity) Role() string     { return s.snap.Role }

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

type contextSleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
