package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventplatform/internal/delivery/http/helpers"
	"eventplatform/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAuthService implements domain.AuthService for handler tests.
type fakeAuthService struct {
	signUpErr    error
	signUpUser   *domain.User
	loginErr     error
	loginToken   string
	loginUser    *domain.User
	lastName     string
	lastEmail    string
	lastPassword string
}

func (f *fakeAuthService) SignUp(_ context.Context, name, email, password string) (*domain.User, error) {
	f.lastName = name
	f.lastEmail = email
	f.lastPassword = password
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return f.signUpUser, nil
}

func (f *fakeAuthService) Login(_ context.Context, email, password string) (string, *domain.User, error) {
	f.lastEmail = email
	f.lastPassword = password
	if f.loginErr != nil {
		return "", nil, f.loginErr
	}
	return f.loginToken, f.loginUser, nil
}

func TestAuthControllerSignUp(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		svc         *fakeAuthService
		wantStatus  int
		wantErrCode string
	}{
		{
			name:       "valid sign-up",
			body:       `{"name":"Ada","email":"ada@example.com","password":"longenough"}`,
			svc:        &fakeAuthService{signUpUser: &domain.User{ID: "u1", Name: "Ada", Email: "ada@example.com"}},
			wantStatus: http.StatusCreated,
		},
		{
			name:        "missing name",
			body:        `{"email":"ada@example.com","password":"longenough"}`,
			svc:         &fakeAuthService{},
			wantStatus:  http.StatusBadRequest,
			wantErrCode: helpers.ErrCodeBadRequest,
		},
		{
			name:        "invalid email",
			body:        `{"name":"Ada","email":"not-an-email","password":"longenough"}`,
			svc:         &fakeAuthService{},
			wantStatus:  http.StatusBadRequest,
			wantErrCode: helpers.ErrCodeBadRequest,
		},
		{
			name:        "short password",
			body:        `{"name":"Ada","email":"ada@example.com","password":"short"}`,
			svc:         &fakeAuthService{},
			wantStatus:  http.StatusBadRequest,
			wantErrCode: helpers.ErrCodeBadRequest,
		},
		{
			name:        "duplicate email",
			body:        `{"name":"Ada","email":"ada@example.com","password":"longenough"}`,
			svc:         &fakeAuthService{signUpErr: domain.ErrDuplicateEmail},
			wantStatus:  http.StatusBadRequest,
			wantErrCode: helpers.ErrCodeBadRequest,
		},
		{
			name:        "service failure",
			body:        `{"name":"Ada","email":"ada@example.com","password":"longenough"}`,
			svc:         &fakeAuthService{signUpErr: errors.New("db down")},
			wantStatus:  http.StatusInternalServerError,
			wantErrCode: helpers.ErrCodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewAuthController(testLogger, tt.svc)
			req := authedRequest(http.MethodPost, "http://test/auth/signup", []byte(tt.body), "")
			rr := httptest.NewRecorder()

			c.SignUp(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			resp := decodeEnvelope(t, rr)
			if tt.wantErrCode != "" {
				require.NotNil(t, resp.Error)
				assert.Equal(t, tt.wantErrCode, resp.Error.Code)
			} else {
				require.Nil(t, resp.Error)
				assert.Equal(t, "Ada", tt.svc.lastName)
				assert.Equal(t, "ada@example.com", tt.svc.lastEmail)
			}
		})
	}
}

func TestAuthControllerLogin(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		svc         *fakeAuthService
		wantStatus  int
		wantErrCode string
		wantToken   string
	}{
		{
			name:       "valid login",
			body:       `{"email":"ada@example.com","password":"longenough"}`,
			svc:        &fakeAuthService{loginToken: "jwt-token", loginUser: &domain.User{ID: "u1"}},
			wantStatus: http.StatusOK,
			wantToken:  "jwt-token",
		},
		{
			name:        "missing password",
			body:        `{"email":"ada@example.com"}`,
			svc:         &fakeAuthService{},
			wantStatus:  http.StatusBadRequest,
			wantErrCode: helpers.ErrCodeBadRequest,
		},
		{
			name:        "invalid credentials",
			body:        `{"email":"ada@example.com","password":"wrongwrong"}`,
			svc:         &fakeAuthService{loginErr: domain.ErrInvalidCredentials},
			wantStatus:  http.StatusUnauthorized,
			wantErrCode: helpers.ErrCodeUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewAuthController(testLogger, tt.svc)
			req := authedRequest(http.MethodPost, "http://test/auth/login", []byte(tt.body), "")
			rr := httptest.NewRecorder()

			c.Login(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			resp := decodeEnvelope(t, rr)
			if tt.wantErrCode != "" {
				require.NotNil(t, resp.Error)
				assert.Equal(t, tt.wantErrCode, resp.Error.Code)
			} else {
				require.Nil(t, resp.Error)
				data, ok := resp.Data.(map[string]any)
				require.True(t, ok)
				assert.Equal(t, tt.wantToken, data["token"])
				assert.Equal(t, "Bearer", data["token_type"])
			}
		})
	}
}
