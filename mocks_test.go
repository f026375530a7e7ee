package auth_test

import (
	"context"
	"database/sql"

	auth "github.com/goliatone/go-opaque-auth"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockEngine implements auth.Engine
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) CreateRegistrationResponse(request []byte, identifier string) ([]byte, error) {
	args := m.Called(request, identifier)
	blob, _ := args.Get(0).([]byte)
	return blob, args.Error(1)
}

func (m *MockEngine) StartLogin(identifier string, loginRequest, record []byte) ([]byte, []byte, error) {
	args := m.Called(identifier, loginRequest, record)
	challenge, _ := args.Get(0).([]byte)
	state, _ := args.Get(1).([]byte)
	return challenge, state, args.Error(2)
}

func (m *MockEngine) FinishLogin(proof, state []byte) ([]byte, error) {
	args := m.Called(proof, state)
	key, _ := args.Get(0).([]byte)
	return key, args.Error(1)
}

func (m *MockEngine) CreateDecoyRecord() ([]byte, error) {
	args := m.Called()
	record, _ := args.Get(0).([]byte)
	return record, args.Error(1)
}

// MockUsers implements auth.Users for the methods the flows touch; the
// embedded interface covers the rest.
type MockUsers struct {
	mock.Mock
	auth.Users
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) RegisterTx(ctx context.Context, tx bun.IDB, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, tx, user)
	created, _ := args.Get(0).(*auth.User)
	return created, args.Error(1)
}

func (m *MockUsers) TrackSuccessfulLogin(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockAccountCredentials implements auth.AccountCredentials
type MockAccountCredentials struct {
	mock.Mock
	auth.AccountCredentials
}

func (m *MockAccountCredentials) FindByUser(ctx context.Context, userID uuid.UUID) ([]*auth.AccountCredential, error) {
	args := m.Called(ctx, userID)
	records, _ := args.Get(0).([]*auth.AccountCredential)
	return records, args.Error(1)
}

func (m *MockAccountCredentials) CreateTx(ctx context.Context, tx bun.IDB, record *auth.AccountCredential, criteria ...repository.InsertCriteria) (*auth.AccountCredential, error) {
	args := m.Called(ctx, tx, record)
	created, _ := args.Get(0).(*auth.AccountCredential)
	return created, args.Error(1)
}

// MockRepositoryManager wires the mock repositories and runs transactional
// closures against a zero bun.Tx.
type MockRepositoryManager struct {
	users       *MockUsers
	credentials *MockAccountCredentials
}

func newMockRepositoryManager() *MockRepositoryManager {
	return &MockRepositoryManager{
		users:       &MockUsers{},
		credentials: &MockAccountCredentials{},
	}
}

func (m *MockRepositoryManager) Validate() error { return nil }

func (m *MockRepositoryManager) MustValidate() {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) Users() auth.Users { return m.users }

func (m *MockRepositoryManager) AccountCredentials() auth.AccountCredentials {
	return m.credentials
}

// MockTokenService implements auth.TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) Generate(identity auth.Identity, extended bool) (string, error) {
	args := m.Called(identity, extended)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) Validate(token string) (*auth.JWTClaims, error) {
	args := m.Called(token)
	claims, _ := args.Get(0).(*auth.JWTClaims)
	return claims, args.Error(1)
}

// routerContext lets MockContext embed router.Context without the embedded
// field name colliding with the Context() method.
type routerContext = router.Context

// MockContext mocks router.Context for the handler methods the controller
// and the route guard use; the embedded interface covers the rest.
type MockContext struct {
	mock.Mock
	routerContext
	LocalsMock map[any]any
	ctx        context.Context
}

func (m *MockContext) Context() context.Context {
	if m.ctx != nil {
		return m.ctx
	}
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.ctx = ctx
}

func (m *MockContext) Locals(key any, value ...any) any {
	if m.LocalsMock == nil {
		m.LocalsMock = map[any]any{}
	}
	if len(value) > 0 {
		m.LocalsMock[key] = value[0]
		return value[0]
	}
	return m.LocalsMock[key]
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}
