package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"io"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/hkdf"
)

const (
	// DefaultEnvelopeTTL bounds the lifetime of a sealed login state.
	DefaultEnvelopeTTL = 15 * time.Minute

	// DefaultEnvelopePadTarget is the fixed serialized size every payload is
	// padded to before encryption. Padding is not optional: without it the
	// ciphertext length would reveal whether a real identity snapshot is
	// inside, which is exactly the signal the decoy path exists to hide.
	DefaultEnvelopePadTarget = 1024
)

const envelopeKeyInfo = "go-opaque-auth/login-state-envelope/v1"

type envelopePayload struct {
	State    []byte            `json:"state"`
	User     *IdentitySnapshot `json:"user"`
	IssuedAt time.Time         `json:"issued_at"`
}

// Envelope seals the ephemeral server login state, plus an identity snapshot
// or nil, into an encrypted fixed-size blob the client carries between the
// two login round trips. Both directions are pure transforms; the only shared
// state is the derived symmetric key.
type Envelope struct {
	cipher    Cipher
	key       []byte
	ttl       time.Duration
	padTarget int
	now       func() time.Time
}

type EnvelopeOption func(*Envelope)

// WithEnvelopeTTL overrides the sealed state lifetime.
func WithEnvelopeTTL(ttl time.Duration) EnvelopeOption {
	return func(e *Envelope) {
		if ttl > 0 {
			e.ttl = ttl
		}
	}
}

// WithEnvelopePadTarget overrides the fixed pad size.
func WithEnvelopePadTarget(target int) EnvelopeOption {
	return func(e *Envelope) {
		if target > 0 {
			e.padTarget = target
		}
	}
}

// WithEnvelopeCipher swaps the symmetric cipher collaborator.
func WithEnvelopeCipher(cipher Cipher) EnvelopeOption {
	return func(e *Envelope) {
		if cipher != nil {
			e.cipher = cipher
		}
	}
}

// WithEnvelopeClock injects the time source, used by expiry tests.
func WithEnvelopeClock(now func() time.Time) EnvelopeOption {
	return func(e *Envelope) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEnvelope derives the sealing key from the host-supplied secret and
// returns a ready Envelope. The secret is required at construction; there is
// no lazy initialization path.
func NewEnvelope(secret []byte, opts ...EnvelopeOption) (*Envelope, error) {
	if len(secret) == 0 {
		return nil, goerrors.New("envelope secret is required", goerrors.CategoryBadInput)
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, secret, nil, []byte(envelopeKeyInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to derive envelope key")
	}

	e := &Envelope{
		cipher:    NewAESGCMCipher(),
		key:       key,
		ttl:       DefaultEnvelopeTTL,
		padTarget: DefaultEnvelopePadTarget,
		now:       time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	return e, nil
}

// NewEnvelopeFromConfig builds the envelope off the shared Config.
func NewEnvelopeFromConfig(cfg Config, opts ...EnvelopeOption) (*Envelope, error) {
	return NewEnvelope([]byte(cfg.GetEnvelopeSecret()), opts...)
}

// Seal serializes {state, user, issuedAt}, pads to the fixed target, and
// encrypts. A payload that already exceeds the target fails with
// ErrPayloadTooLarge: that is a sizing misconfiguration the operator must
// see, never something to truncate.
func (e *Envelope) Seal(state []byte, user *IdentitySnapshot) (string, error) {
	payload := envelopePayload{
		State:    state,
		User:     user,
		IssuedAt: e.now().UTC(),
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to serialize login state")
	}

	if len(raw) > e.padTarget {
		return "", goerrors.New("login state payload exceeds pad target", goerrors.CategoryInternal).
			WithTextCode(TextCodePayloadTooLarge).
			WithMetadata(map[string]any{
				"size":   len(raw),
				"target": e.padTarget,
			})
	}

	padded := make([]byte, 4+e.padTarget)
	binary.BigEndian.PutUint32(padded[:4], uint32(len(raw)))
	copy(padded[4:], raw)

	enc, nonce, err := e.cipher.Encrypt(e.key, padded)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encrypt login state")
	}

	return base64.StdEncoding.EncodeToString(append(nonce, enc...)), nil
}

// Open decrypts and validates a sealed login state. Every decrypt, unpad, or
// parse failure maps to the single ErrInvalidLoginState; only a payload that
// decrypted cleanly but sat past its lifetime gets ErrExpiredLoginState.
func (e *Envelope) Open(sealed string) ([]byte, *IdentitySnapshot, error) {
	blob, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, nil, ErrInvalidLoginState
	}

	nonceSize := e.cipher.NonceSize()
	if len(blob) <= nonceSize {
		return nil, nil, ErrInvalidLoginState
	}

	padded, err := e.cipher.Decrypt(e.key, blob[nonceSize:], blob[:nonceSize])
	if err != nil {
		return nil, nil, ErrInvalidLoginState
	}

	if len(padded) != 4+e.padTarget {
		return nil, nil, ErrInvalidLoginState
	}

	size := binary.BigEndian.Uint32(padded[:4])
	if int(size) > e.padTarget {
		return nil, nil, ErrInvalidLoginState
	}

	payload := envelopePayload{}
	if err := json.Unmarshal(padded[4:4+size], &payload); err != nil {
		return nil, nil, ErrInvalidLoginState
	}

	if payload.IssuedAt.Add(e.ttl).Before(e.now()) {
		return nil, nil, ErrExpiredLoginState
	}

	return payload.State, payload.User, nil
}
