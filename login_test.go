package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	auth "github.com/goliatone/go-opaque-auth"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type loginFixture struct {
	engine   *MockEngine
	repo     *MockRepositoryManager
	decoys   *auth.DecoyProvider
	envelope *auth.Envelope
	tokens   *MockTokenService
	flow     *auth.LoginFlow
}

func newLoginFixture(t *testing.T, opts ...auth.EnvelopeOption) *loginFixture {
	t.Helper()

	engine := &MockEngine{}
	engine.On("CreateDecoyRecord").Return([]byte("cached-decoy-record"), nil).Once()

	decoys, err := auth.NewDecoyProvider(engine)
	require.NoError(t, err)

	envelope, err := auth.NewEnvelope(envelopeSecret, opts...)
	require.NoError(t, err)

	repo := newMockRepositoryManager()
	tokens := &MockTokenService{}

	return &loginFixture{
		engine:   engine,
		repo:     repo,
		decoys:   decoys,
		envelope: envelope,
		tokens:   tokens,
		flow:     auth.NewLoginFlow(engine, repo, decoys, envelope, tokens),
	}
}

func TestLoginChallengeRealAccount(t *testing.T) {
	ctx := context.Background()
	fx := newLoginFixture(t)

	userID := uuid.New()
	user := &auth.User{
		ID:    userID,
		Email: "pepe@example.com",
		Role:  auth.RoleMember,
	}
	storedRecord := []byte("stored-registration-record")

	fx.repo.users.On("GetByEmail", mock.Anything, "pepe@example.com").
		Return(user, nil).Once()
	fx.repo.credentials.On("FindByUser", mock.Anything, userID).
		Return([]*auth.AccountCredential{{UserID: &userID, Record: auth.EncodeBlob(storedRecord)}}, nil).Once()
	fx.engine.On("StartLogin", "pepe@example.com", mock.Anything, storedRecord).
		Return([]byte("login-challenge"), []byte("ake-state"), nil).Once()

	result, err := fx.flow.LoginChallenge(ctx, auth.LoginChallengeInput{
		Email:        "pepe@example.com",
		LoginRequest: encodedBytes(auth.LoginRequestLength),
	})

	require.NoError(t, err)
	assert.Equal(t, auth.EncodeBlob([]byte("login-challenge")), result.LoginChallenge)

	state, snapshot, err := fx.envelope.Open(result.LoginState)
	require.NoError(t, err)
	assert.Equal(t, []byte("ake-state"), state)
	require.NotNil(t, snapshot)
	assert.Equal(t, userID, snapshot.UserID)

	fx.engine.AssertExpectations(t)
}

func TestLoginChallengeUnknownAccountGetsDecoy(t *testing.T) {
	ctx := context.Background()
	fx := newLoginFixture(t)

	fx.repo.users.On("GetByEmail", mock.Anything, "ghost@example.com").
		Return(nil, repository.NewRecordNotFound()).Once()
	fx.repo.credentials.On("FindByUser", mock.Anything, mock.Anything).
		Return([]*auth.AccountCredential{}, nil).Once()
	fx.engine.On("StartLogin", "ghost@example.com", mock.Anything, []byte("cached-decoy-record")).
		Return([]byte("login-challenge"), []byte("ake-state"), nil).Once()

	result, err := fx.flow.LoginChallenge(ctx, auth.LoginChallengeInput{
		Email:        "ghost@example.com",
		LoginRequest: encodedBytes(auth.LoginRequestLength),
	})

	require.NoError(t, err)

	state, snapshot, err := fx.envelope.Open(result.LoginState)
	require.NoError(t, err)
	assert.Equal(t, []byte("ake-state"), state)
	assert.Nil(t, snapshot)

	fx.repo.credentials.AssertExpectations(t)
	fx.engine.AssertExpectations(t)
}

func TestLoginChallengeResponseShapeParity(t *testing.T) {
	ctx := context.Background()
	fx := newLoginFixture(t)

	userID := uuid.New()
	storedRecord := []byte("stored-registration-record")

	fx.repo.users.On("GetByEmail", mock.Anything, "pepe@example.com").
		Return(&auth.User{ID: userID, Email: "pepe@example.com", Role: auth.RoleMember}, nil).Once()
	fx.repo.users.On("GetByEmail", mock.Anything, "ghost@example.com").
		Return(nil, repository.NewRecordNotFound()).Once()
	fx.repo.credentials.On("FindByUser", mock.Anything, mock.Anything).
		Return([]*auth.AccountCredential{{UserID: &userID, Record: auth.EncodeBlob(storedRecord)}}, nil).Once()
	fx.repo.credentials.On("FindByUser", mock.Anything, mock.Anything).
		Return([]*auth.AccountCredential{}, nil).Once()
	fx.engine.On("StartLogin", mock.Anything, mock.Anything, mock.Anything).
		Return(make([]byte, 320), []byte("ake-state"), nil).Twice()

	real, err := fx.flow.LoginChallenge(ctx, auth.LoginChallengeInput{
		Email:        "pepe@example.com",
		LoginRequest: encodedBytes(auth.LoginRequestLength),
	})
	require.NoError(t, err)

	decoy, err := fx.flow.LoginChallenge(ctx, auth.LoginChallengeInput{
		Email:        "ghost@example.com",
		LoginRequest: encodedBytes(auth.LoginRequestLength),
	})
	require.NoError(t, err)

	assert.Equal(t, len(real.LoginChallenge), len(decoy.LoginChallenge))
	assert.Equal(t, len(real.LoginState), len(decoy.LoginState))
}

func TestLoginChallengeRejectsBadRequest(t *testing.T) {
	ctx := context.Background()
	fx := newLoginFixture(t)

	_, err := fx.flow.LoginChallenge(ctx, auth.LoginChallengeInput{
		Email:        "pepe@example.com",
		LoginRequest: encodedBytes(auth.LoginRequestLength - 1),
	})

	require.Error(t, err)
	assert.True(t, auth.IsMalformedMessage(err))
	fx.engine.AssertNotCalled(t, "StartLogin", mock.Anything, mock.Anything, mock.Anything)
}

func TestLoginCompleteSuccess(t *testing.T) {
	ctx := context.Background()
	fx := newLoginFixture(t)

	userID := uuid.New()
	sealed, err := fx.envelope.Seal([]byte("ake-state"), &auth.IdentitySnapshot{
		UserID: userID,
		Email:  "pepe@example.com",
		Role:   auth.RoleMember,
	})
	require.NoError(t, err)

	fx.engine.On("FinishLogin", mock.Anything, []byte("ake-state")).
		Return([]byte("session-key"), nil).Once()
	fx.tokens.On("Generate", mock.Anything, true).Return("signed.jwt.token", nil).Once()
	fx.repo.users.On("TrackSuccessfulLogin", mock.Anything, mock.MatchedBy(func(u *auth.User) bool {
		return u.ID == userID
	})).Return(nil).Once()

	result, err := fx.flow.LoginComplete(ctx, auth.LoginCompleteInput{
		LoginProof: encodedBytes(64),
		LoginState: sealed,
		RememberMe: true,
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "signed.jwt.token", result.Token)

	fx.tokens.AssertExpectations(t)
	fx.repo.users.AssertExpectations(t)
}

func TestLoginCompleteFailuresAreUniform(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong password", func(t *testing.T) {
		fx := newLoginFixture(t)
		sealed, err := fx.envelope.Seal([]byte("ake-state"), &auth.IdentitySnapshot{
			UserID: uuid.New(),
			Email:  "pepe@example.com",
		})
		require.NoError(t, err)

		fx.engine.On("FinishLogin", mock.Anything, mock.Anything).
			Return(nil, errors.New("client proof mismatch")).Once()

		_, err = fx.flow.LoginComplete(ctx, auth.LoginCompleteInput{
			LoginProof: encodedBytes(64),
			LoginState: sealed,
		})
		require.Error(t, err)
		assert.True(t, auth.IsAuthenticationFailed(err))
	})

	t.Run("decoy challenge with valid-shaped proof", func(t *testing.T) {
		fx := newLoginFixture(t)
		sealed, err := fx.envelope.Seal([]byte("ake-state"), nil)
		require.NoError(t, err)

		fx.engine.On("FinishLogin", mock.Anything, mock.Anything).
			Return([]byte("session-key"), nil).Once()

		_, err = fx.flow.LoginComplete(ctx, auth.LoginCompleteInput{
			LoginProof: encodedBytes(64),
			LoginState: sealed,
		})
		require.Error(t, err)
		assert.True(t, auth.IsAuthenticationFailed(err))
	})

	t.Run("tampered login state", func(t *testing.T) {
		fx := newLoginFixture(t)

		_, err := fx.flow.LoginComplete(ctx, auth.LoginCompleteInput{
			LoginProof: encodedBytes(64),
			LoginState: encodedBytes(512),
		})
		require.Error(t, err)
		assert.True(t, auth.IsAuthenticationFailed(err))
		fx.engine.AssertNotCalled(t, "FinishLogin", mock.Anything, mock.Anything)
	})

	t.Run("expired login state", func(t *testing.T) {
		issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		now := issued

		fx := newLoginFixture(t, auth.WithEnvelopeClock(func() time.Time {
			return now
		}))

		sealed, err := fx.envelope.Seal([]byte("ake-state"), &auth.IdentitySnapshot{
			UserID: uuid.New(),
		})
		require.NoError(t, err)

		now = issued.Add(16 * time.Minute)

		_, err = fx.flow.LoginComplete(ctx, auth.LoginCompleteInput{
			LoginProof: encodedBytes(64),
			LoginState: sealed,
		})
		require.Error(t, err)
		assert.True(t, auth.IsAuthenticationFailed(err))
	})
}

func TestLoginCompleteRejectsBadProof(t *testing.T) {
	ctx := context.Background()
	fx := newLoginFixture(t)

	sealed, err := fx.envelope.Seal([]byte("ake-state"), nil)
	require.NoError(t, err)

	tests := []struct {
		name  string
		proof string
	}{
		{name: "empty", proof: ""},
		{name: "not base64", proof: "not base64"},
		{name: "oversized", proof: encodedBytes(513)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.flow.LoginComplete(ctx, auth.LoginCompleteInput{
				LoginProof: tt.proof,
				LoginState: sealed,
			})
			require.Error(t, err)
			assert.True(t, auth.IsMalformedMessage(err))
		})
	}
}

func TestLoginCompleteTokenFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	fx := newLoginFixture(t)

	sealed, err := fx.envelope.Seal([]byte("ake-state"), &auth.IdentitySnapshot{
		UserID: uuid.New(),
	})
	require.NoError(t, err)

	fx.engine.On("FinishLogin", mock.Anything, mock.Anything).
		Return([]byte("session-key"), nil).Once()
	fx.tokens.On("Generate", mock.Anything, false).
		Return("", errors.New("signing key rotated")).Once()

	_, err = fx.flow.LoginComplete(ctx, auth.LoginCompleteInput{
		LoginProof: encodedBytes(64),
		LoginState: sealed,
	})

	require.Error(t, err)
	assert.False(t, auth.IsAuthenticationFailed(err))
}
