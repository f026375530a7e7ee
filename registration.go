package auth

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// RegistrationPolicy decides what a completed registration reveals when the
// email is already taken. The two policies are never mixed at runtime.
type RegistrationPolicy int

const (
	// PolicyEnumerationResistant always reports generic success and never
	// issues a session on registration; a duplicate email is outwardly
	// identical to a fresh one. Logging in requires an explicit login.
	PolicyEnumerationResistant RegistrationPolicy = iota
	// PolicySessionOnSignup issues a session token for genuinely new
	// accounts. The presence of the token leaks account existence; choose
	// it only when signup UX outweighs enumeration resistance.
	PolicySessionOnSignup
)

// RegistrationFlow drives the two-step registration protocol against the
// aPAKE engine and the account store.
type RegistrationFlow struct {
	engine          Engine
	repo            RepositoryManager
	tokens          TokenService
	logger          Logger
	policy          RegistrationPolicy
	challengeLookup bool
	duplicateDelay  time.Duration
	duplicateJitter time.Duration
	useHashid       bool
	sleep           contextSleeper
}

type RegistrationOption func(*RegistrationFlow)

// WithRegistrationPolicy selects the duplicate-email policy.
func WithRegistrationPolicy(policy RegistrationPolicy) RegistrationOption {
	return func(f *RegistrationFlow) {
		f.policy = policy
	}
}

// WithRegistrationTokenService wires the token service PolicySessionOnSignup
// needs to mint its signup session.
func WithRegistrationTokenService(tokens TokenService) RegistrationOption {
	return func(f *RegistrationFlow) {
		f.tokens = tokens
	}
}

// WithChallengeLookup performs a discarded account lookup during the
// challenge step so its latency matches for registered and unregistered
// emails. Off by default.
func WithChallengeLookup(enabled bool) RegistrationOption {
	return func(f *RegistrationFlow) {
		f.challengeLookup = enabled
	}
}

// WithDuplicateDelay consumes artificial latency on the duplicate-email path
// so it approximates the create-path cost. Calibrate base to the typical
// storage write latency; jitter is added uniformly on top.
func WithDuplicateDelay(base, jitter time.Duration) RegistrationOption {
	return func(f *RegistrationFlow) {
		f.duplicateDelay = base
		f.duplicateJitter = jitter
	}
}

// WithHashidUserIDs derives user IDs deterministically from the email.
func WithHashidUserIDs(enabled bool) RegistrationOption {
	return func(f *RegistrationFlow) {
		f.useHashid = enabled
	}
}

// WithRegistrationLogger sets the flow logger.
func WithRegistrationLogger(logger Logger) RegistrationOption {
	return func(f *RegistrationFlow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func NewRegistrationFlow(engine Engine, repo RepositoryManager, opts ...RegistrationOption) *RegistrationFlow {
	if engine == nil {
		panic("Missing Engine in registration flow...")
	}

	if repo == nil {
		panic("Missing RepositoryManager in registration flow...")
	}

	f := &RegistrationFlow{
		engine: engine,
		repo:   repo,
		logger: defLogger{},
		policy: PolicyEnumerationResistant,
		sleep:  sleepContext,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	return f
}

// RegistrationChallengeInput is the first registration message
type RegistrationChallengeInput struct {
	Email               string `form:"email" json:"email"`
	RegistrationRequest string `form:"registration_request" json:"registration_request"`
}

// Validate will run validation rules
func (r RegistrationChallengeInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.RegistrationRequest, validation.Required, is.Base64),
	)
}

// RegistrationChallengeResult carries the engine's registration response
type RegistrationChallengeResult struct {
	RegistrationChallenge string `json:"registration_challenge"`
}

// RegistrationCompleteInput is the final registration message
type RegistrationCompleteInput struct {
	Email              string `form:"email" json:"email"`
	FirstName          string `form:"first_name" json:"first_name"`
	LastName           string `form:"last_name" json:"last_name"`
	RegistrationRecord string `form:"registration_record" json:"registration_record"`
}

// Validate will run validation rules
func (r RegistrationCompleteInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Length(1, 200)),
		validation.Field(&r.RegistrationRecord, validation.Required, is.Base64),
	)
}

// RegistrationCompleteResult reports generic success. Token is only ever set
// under PolicySessionOnSignup, and only for genuinely new accounts; the JSON
// shape is identical either way.
type RegistrationCompleteResult struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
}

// RegistrationChallenge validates the registration request blob and answers
// it with the engine's registration challenge. Storage is not touched unless
// the anti-timing lookup is enabled.
func (f *RegistrationFlow) RegistrationChallenge(ctx context.Context, input RegistrationChallengeInput) (RegistrationChallengeResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return RegistrationChallengeResult{}, malformedMessage("email")
	}

	request, err := DecodeBlob("registration_request", input.RegistrationRequest, RegistrationRequestLength)
	if err != nil {
		return RegistrationChallengeResult{}, err
	}

	if f.challengeLookup {
		// Result discarded: this lookup only equalizes challenge latency
		// between registered and unregistered emails.
		if _, err := f.repo.Users().GetByEmail(ctx, email); err != nil && !repository.IsRecordNotFound(err) {
			f.logger.Warn("registration challenge lookup error", "error", err)
		}
	}

	challenge, err := f.engine.CreateRegistrationResponse(request, email)
	if err != nil {
		return RegistrationChallengeResult{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create registration challenge")
	}

	return RegistrationChallengeResult{
		RegistrationChallenge: EncodeBlob(challenge),
	}, nil
}

// RegistrationComplete validates the registration record and, for a new
// email, persists the user and its credential as one transactional unit. A
// taken email never surfaces as a distinguishable error.
func (f *RegistrationFlow) RegistrationComplete(ctx context.Context, input RegistrationCompleteInput) (RegistrationCompleteResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return RegistrationCompleteResult{}, malformedMessage("email")
	}

	record, err := DecodeBlobRange("registration_record", input.RegistrationRecord,
		RegistrationRecordMinLength, RegistrationRecordMaxLength)
	if err != nil {
		return RegistrationCompleteResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	existing, err := f.repo.Users().GetByEmail(ctx, email)
	if err != nil && !repository.IsRecordNotFound(err) {
		return RegistrationCompleteResult{}, goerrors.Wrap(err, goerrors.CategoryInternal, "account lookup failed").
			WithTextCode(TextCodeAccountCreationFailed)
	}

	if existing != nil {
		return f.completeDuplicate(ctx)
	}

	user := &User{
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     email,
	}

	if f.useHashid {
		if id, err := hashid.NewUUID(email); err == nil {
			user.ID = id
		}
	}

	err = f.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err := f.repo.Users().RegisterTx(ctx, tx, user)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		credential := &AccountCredential{
			UserID: &created.ID,
			Record: EncodeBlob(record),
		}

		if _, err := f.repo.AccountCredentials().CreateTx(ctx, tx, credential); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account credential")
		}

		user = created
		return nil
	})

	if err != nil {
		f.logger.Error("registration complete transaction error", "error", err)
		return RegistrationCompleteResult{}, goerrors.Wrap(err, goerrors.CategoryInternal, "account creation failed").
			WithTextCode(TextCodeAccountCreationFailed)
	}

	if f.policy == PolicySessionOnSignup {
		return f.completeWithSession(user)
	}

	return RegistrationCompleteResult{Success: true}, nil
}

// completeDuplicate is the taken-email path: generic success, no mutation,
// optionally after burning latency comparable to the create path.
func (f *RegistrationFlow) completeDuplicate(ctx context.Context) (RegistrationCompleteResult, error) {
	if f.duplicateDelay > 0 || f.duplicateJitter > 0 {
		delay := f.duplicateDelay
		if f.duplicateJitter > 0 {
			delay += rand.N(f.duplicateJitter)
		}
		if err := f.sleep(ctx, delay); err != nil {
			return RegistrationCompleteResult{}, goerrors.Wrap(err, goerrors.CategoryOperation, "registration cancelled")
		}
	}

	return RegistrationCompleteResult{Success: true}, nil
}

func (f *RegistrationFlow) completeWithSession(user *User) (RegistrationCompleteResult, error) {
	if f.tokens == nil {
		return RegistrationCompleteResult{}, goerrors.New("token service is required for session-on-signup", goerrors.CategoryBadInput)
	}

	token, err := f.tokens.Generate(snapshotIdentity{user.Snapshot()}, false)
	if err != nil {
		f.logger.Error("signup session token error", "error", err)
		return RegistrationCompleteResult{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue signup session")
	}

	return RegistrationCompleteResult{Success: true, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
