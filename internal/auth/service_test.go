package auth

import (
	"context"
	"testing"
	"time"

	"github.com/Butonix/localhub/internal/testutil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// AuthServiceTestSuite contains auth service tests
type AuthServiceTestSuite struct {
	suite.Suite
	service *Service
}

func (suite *AuthServiceTestSuite) SetupTest() {
	db := testutil.NewDB(suite.T())
	suite.service = NewService(db, []byte("test-secret"), time.Hour)
}

func (suite *AuthServiceTestSuite) register(email, username string) *AuthResponse {
	resp, err := suite.service.Register(context.Background(), RegisterRequest{
		Email:    email,
		Username: username,
		Password: "password123",
	})
	require.NoError(suite.T(), err)
	return resp
}

func (suite *AuthServiceTestSuite) TestRegisterAndLogin() {
	t := suite.T()
	registered := suite.register("Alice@Example.com", "alice")
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, "alice@example.com", registered.User.Email)

	resp, err := suite.service.Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, resp.User.ID)
}

func (suite *AuthServiceTestSuite) TestRegisterDuplicate() {
	suite.register("bob@example.com", "bob")

	_, err := suite.service.Register(context.Background(), RegisterRequest{
		Email:    "BOB@example.com",
		Username: "bobby",
		Password: "password123",
	})
	assert.ErrorIs(suite.T(), err, ErrUserExists)

	_, err = suite.service.Register(context.Background(), RegisterRequest{
		Email:    "other@example.com",
		Username: "BOB",
		Password: "password123",
	})
	assert.ErrorIs(suite.T(), err, ErrUserExists)
}

func (suite *AuthServiceTestSuite) TestLoginWrongPassword() {
	suite.register("carol@example.com", "carol")

	_, err := suite.service.Login(context.Background(), LoginRequest{
		Email:    "carol@example.com",
		Password: "wrong-password",
	})
	assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)

	_, err = suite.service.Login(context.Background(), LoginRequest{
		Email:    "nobody@example.com",
		Password: "password123",
	})
	assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestValidateToken() {
	t := suite.T()
	resp := suite.register("dave@example.com", "dave")

	user, err := suite.service.ValidateToken(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, user.ID)

	_, err = suite.service.ValidateToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewService(nil, []byte("other-secret"), time.Hour)
	forged, err := other.IssueToken(&resp.User)
	require.NoError(t, err)
	_, err = suite.service.ValidateToken(context.Background(), forged.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func (suite *AuthServiceTestSuite) TestValidateTokenExpired() {
	resp := suite.register("erin@example.com", "erin")

	claims := jwt.RegisteredClaims{
		Subject:   resp.User.ID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(suite.T(), err)

	_, err = suite.service.ValidateToken(context.Background(), expired)
	assert.ErrorIs(suite.T(), err, ErrInvalidToken)
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)
	assert.True(t, CheckPassword(hash, "s3cret-pass"))
	assert.False(t, CheckPassword(hash, "other"))
}
