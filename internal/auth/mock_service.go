package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Butonix/localhub/internal/models"
	"github.com/google/uuid"
)

const mockTokenPrefix = "mock_token_"

// MockCall records a method call for assertion
type MockCall struct {
	Method string
	Args   []interface{}
}

// MockService is a mock implementation of ServiceInterface for testing.
// Tokens it issues look like "mock_token_<user id>".
type MockService struct {
	mu sync.Mutex

	// Call tracking
	Calls []MockCall

	// Configurable function overrides
	LoginFunc         func(req LoginRequest) (*AuthResponse, error)
	ValidateTokenFunc func(tokenString string) (*models.User, error)

	// Default error to return
	DefaultError error

	// Pre-configured users for testing
	Users map[string]*models.User // keyed by email
}

// NewMockService creates a new mock auth service
func NewMockService() *MockService {
	return &MockService{
		Calls: make([]MockCall, 0),
		Users: make(map[string]*models.User),
	}
}

func (m *MockService) recordCall(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
}

// GetCallsForMethod returns calls for a specific method
func (m *MockService) GetCallsForMethod(method string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []MockCall
	for _, call := range m.Calls {
		if call.Method == method {
			result = append(result, call)
		}
	}
	return result
}

// AddUser adds a test user to the mock service
func (m *MockService) AddUser(user *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Users[user.Email] = user
}

// TokenFor returns the token the mock accepts for user
func TokenFor(user *models.User) string {
	return mockTokenPrefix + user.ID
}

func (m *MockService) respond(user *models.User) *AuthResponse {
	return &AuthResponse{
		Token:     TokenFor(user),
		User:      *user,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
}

func (m *MockService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	m.recordCall("Register", req)
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}

	m.mu.Lock()
	_, exists := m.Users[req.Email]
	m.mu.Unlock()
	if exists {
		return nil, ErrUserExists
	}

	user := &models.User{
		ID:       uuid.New().String(),
		Email:    req.Email,
		Username: req.Username,
		Name:     req.Name,
	}
	m.AddUser(user)
	return m.respond(user), nil
}

func (m *MockService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	m.recordCall("Login", req)
	if m.LoginFunc != nil {
		return m.LoginFunc(req)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}

	m.mu.Lock()
	user, exists := m.Users[req.Email]
	m.mu.Unlock()
	if !exists {
		return nil, ErrInvalidCredentials
	}
	return m.respond(user), nil
}

func (m *MockService) ValidateToken(ctx context.Context, tokenString string) (*models.User, error) {
	m.recordCall("ValidateToken", tokenString)
	if m.ValidateTokenFunc != nil {
		return m.ValidateTokenFunc(tokenString)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}

	id := strings.TrimPrefix(tokenString, mockTokenPrefix)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.Users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, ErrInvalidToken
}

// Ensure MockService implements ServiceInterface
var _ ServiceInterface = (*MockService)(nil)
