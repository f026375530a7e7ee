package auth

import (
	"context"
	"encoding/base64"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// loginProofMaxLength bounds the engine-defined completion proof before it is
// handed to the engine. The default suite's proof is a 64 byte MAC.
const loginProofMaxLength = 512

// LoginFlow drives the two-step login protocol. The server keeps no state
// between the two round trips: everything the second step needs travels to
// the client inside the sealed envelope.
type LoginFlow struct {
	engine   Engine
	repo     RepositoryManager
	decoys   *DecoyProvider
	envelope *Envelope
	tokens   TokenService
	logger   Logger
}

type LoginOption func(*LoginFlow)

// WithLoginLogger sets the flow logger.
func WithLoginLogger(logger Logger) LoginOption {
	return func(f *LoginFlow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func NewLoginFlow(engine Engine, repo RepositoryManager, decoys *DecoyProvider, envelope *Envelope, tokens TokenService, opts ...LoginOption) *LoginFlow {
	if engine == nil {
		panic("Missing Engine in login flow...")
	}

	if repo == nil {
		panic("Missing RepositoryManager in login flow...")
	}

	if decoys == nil {
		panic("Missing DecoyProvider in login flow...")
	}

	if envelope == nil {
		panic("Missing Envelope in login flow...")
	}

	if tokens == nil {
		panic("Missing TokenService in login flow...")
	}

	f := &LoginFlow{
		engine:   engine,
		repo:     repo,
		decoys:   decoys,
		envelope: envelope,
		tokens:   tokens,
		logger:   defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	return f
}

// LoginChallengeInput is the first login message
type LoginChallengeInput struct {
	Email        string `form:"email" json:"email"`
	LoginRequest string `form:"login_request" json:"login_request"`
}

// Validate will run validation rules
func (r LoginChallengeInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.LoginRequest, validation.Required, is.Base64),
	)
}

// LoginChallengeResult carries the engine's login challenge and the sealed
// login state the client must return on completion.
type LoginChallengeResult struct {
	LoginChallenge string `json:"login_challenge"`
	LoginState     string `json:"login_state"`
}

// LoginCompleteInput is the final login message
type LoginCompleteInput struct {
	LoginProof string `form:"login_proof" json:"login_proof"`
	LoginState string `form:"login_state" json:"login_state"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// Validate will run validation rules
func (r LoginCompleteInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.LoginProof, validation.Required, is.Base64),
		validation.Field(&r.LoginState, validation.Required),
	)
}

// LoginCompleteResult reports the outcome of a login. Token is the signed
// session token on success.
type LoginCompleteResult struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
}

// LoginChallenge answers the first login message. Unknown or credential-less
// emails get a decoy record and a nil identity snapshot; both branches do the
// same store lookups and the same engine work, and the envelope padding keeps
// the responses byte-for-byte equal in size.
func (f *LoginFlow) LoginChallenge(ctx context.Context, input LoginChallengeInput) (LoginChallengeResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return LoginChallengeResult{}, malformedMessage("email")
	}

	ke1, err := DecodeBlob("login_request", input.LoginRequest, LoginRequestLength)
	if err != nil {
		return LoginChallengeResult{}, err
	}

	user, err := f.repo.Users().GetByEmail(ctx, email)
	if err != nil && !repository.IsRecordNotFound(err) {
		return LoginChallengeResult{}, goerrors.Wrap(err, goerrors.CategoryInternal, "account lookup failed")
	}

	record, snapshot, err := f.selectCredential(ctx, user)
	if err != nil {
		return LoginChallengeResult{}, err
	}

	challenge, state, err := f.engine.StartLogin(email, ke1, record)
	if err != nil {
		return LoginChallengeResult{}, err
	}

	sealed, err := f.envelope.Seal(state, snapshot)
	if err != nil {
		return LoginChallengeResult{}, err
	}

	return LoginChallengeResult{
		LoginChallenge: EncodeBlob(challenge),
		LoginState:     sealed,
	}, nil
}

// selectCredential picks the stored registration record for a real account
// or a decoy for everything else. The decoy branch runs a credential lookup
// against a random user ID so its storage cost mirrors the real branch.
func (f *LoginFlow) selectCredential(ctx context.Context, user *User) ([]byte, *IdentitySnapshot, error) {
	if user != nil {
		credentials, err := f.repo.AccountCredentials().FindByUser(ctx, user.ID)
		if err != nil {
			return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "credential lookup failed")
		}

		if len(credentials) > 0 {
			record, err := base64.StdEncoding.DecodeString(credentials[0].Record)
			if err != nil {
				return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "stored credential is corrupt")
			}
			return record, user.Snapshot(), nil
		}
	} else {
		if _, err := f.repo.AccountCredentials().FindByUser(ctx, uuid.New()); err != nil {
			f.logger.Warn("decoy credential lookup error", "error", err)
		}
	}

	record, err := f.decoys.DecoyRecord()
	if err != nil {
		return nil, nil, err
	}

	return record, nil, nil
}

// LoginComplete opens the sealed state and verifies the client proof. A
// stale or tampered envelope, a wrong password on a real account, and any
// password on a decoy challenge all terminate in the same
// ErrAuthenticationFailed.
func (f *LoginFlow) LoginComplete(ctx context.Context, input LoginCompleteInput) (LoginCompleteResult, error) {
	proof, err := DecodeBlobRange("login_proof", input.LoginProof, 1, loginProofMaxLength)
	if err != nil {
		return LoginCompleteResult{}, err
	}

	state, snapshot, err := f.envelope.Open(input.LoginState)
	if err != nil {
		f.logger.Debug("login state rejected", "error", err)
		return LoginCompleteResult{}, ErrAuthenticationFailed
	}

	sessionKey, err := f.engine.FinishLogin(proof, state)
	if err != nil || len(sessionKey) == 0 || snapshot == nil {
		// One branch for wrong password, decoy challenge, and a keyless
		// engine result: the symmetry is the enumeration gate.
		return LoginCompleteResult{}, ErrAuthenticationFailed
	}

	token, err := f.tokens.Generate(snapshotIdentity{snapshot}, input.RememberMe)
	if err != nil {
		f.logger.Error("session token error", "error", err)
		return LoginCompleteResult{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue session")
	}

	if err := f.repo.Users().TrackSuccessfulLogin(ctx, &User{ID: snapshot.UserID}); err != nil {
		f.logger.Warn("failed to track successful login", "error", err)
	}

	return LoginCompleteResult{Success: true, Token: token}, nil
}
