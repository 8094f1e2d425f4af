package service

import (
	"testing"
	"time"

	"kobo/config"
	"kobo/internal/auth"
	"kobo/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Create(u *models.User) error {
	u.ID = 1
	return m.Called(u).Error(0)
}
func (m *mockUserStore) GetByID(id uint) (*models.User, error) {
	args := m.Called(id)
	if u, _ := args.Get(0).(*models.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	if u, _ := args.Get(0).(*models.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByPhone(phone string) (*models.User, error) {
	args := m.Called(phone)
	if u, _ := args.Get(0).(*models.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			AccessSecret:  "test-secret",
			RefreshSecret: "test-refresh",
			AccessExpiry:  time.Minute,
			RefreshExpiry: time.Hour,
			Issuer:        "kobo-test",
		},
	}
}

func TestRegisterIssuesTokens(t *testing.T) {
	users := new(mockUserStore)
	users.On("GetByEmail", "a@b.cm").Return(nil, gorm.ErrRecordNotFound)
	users.On("GetByPhone", "+237650000001").Return(nil, gorm.ErrRecordNotFound)
	users.On("Create", mock.AnythingOfType("*models.User")).Return(nil)

	svc := NewAuthService(testConfig(), users)
	u, access, refresh, err := svc.Register("a@b.cm", "+237650000001", "Awa", "Ndiaye", "s3cret-pass")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)
	assert.NotEqual(t, "s3cret-pass", u.PasswordHash)

	claims, err := auth.ParseAccessToken(&testConfig().JWT, access)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	users := new(mockUserStore)
	users.On("GetByEmail", "a@b.cm").Return(&models.User{ID: 2, Email: "a@b.cm"}, nil)

	svc := NewAuthService(testConfig(), users)
	_, _, _, err := svc.Register("a@b.cm", "+237650000001", "Awa", "Ndiaye", "s3cret-pass")
	assert.ErrorIs(t, err, ErrEmailExists)
	users.AssertNotCalled(t, "Create", mock.Anything)
}

func TestLoginWrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("right-pass"), bcrypt.DefaultCost)
	users := new(mockUserStore)
	users.On("GetByEmail", "a@b.cm").Return(&models.User{ID: 2, Email: "a@b.cm", PasswordHash: string(hash)}, nil)

	svc := NewAuthService(testConfig(), users)
	_, _, _, err := svc.Login("a@b.cm", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCreds)
}

func TestLoginUnknownEmail(t *testing.T) {
	users := new(mockUserStore)
	users.On("GetByEmail", "who@b.cm").Return(nil, gorm.ErrRecordNotFound)

	svc := NewAuthService(testConfig(), users)
	_, _, _, err := svc.Login("who@b.cm", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCreds)
}

func TestRefreshRoundTrip(t *testing.T) {
	cfg := testConfig()
	users := new(mockUserStore)
	users.On("GetByID", uint(5)).Return(&models.User{ID: 5, Email: "a@b.cm", Role: "USER"}, nil)

	refresh, err := auth.GenerateRefreshToken(&cfg.JWT, 5)
	require.NoError(t, err)

	svc := NewAuthService(cfg, users)
	u, access, newRefresh, err := svc.Refresh(refresh)
	require.NoError(t, err)
	assert.Equal(t, uint(5), u.ID)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, newRefresh)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	cfg := testConfig()
	access, err := auth.GenerateAccessToken(&cfg.JWT, 5, "a@b.cm", "USER")
	require.NoError(t, err)

	svc := NewAuthService(cfg, new(mockUserStore))
	_, _, _, err = svc.Refresh(access)
	assert.Error(t, err, "access token must not pass as refresh token")
}
