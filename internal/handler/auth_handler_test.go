package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/enrollment-sync-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-sync-api/pkg/errors"
)

type authServiceMock struct {
	loginResp *models.LoginResponse
	loginErr  error
	lastReq   models.LoginRequest
	me        *models.UserInfo
}

func (m *authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	m.lastReq = req
	return m.loginResp, m.loginErr
}

func (m *authServiceMock) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	if m.me == nil || m.me.ID != userID {
		return nil, appErrors.ErrNotFound
	}
	return m.me, nil
}

func TestAuthHandlerLogin(t *testing.T) {
	svc := &authServiceMock{loginResp: &models.LoginResponse{AccessToken: "token", ExpiresIn: 3600}}
	h := NewAuthHandler(svc)

	payload, _ := json.Marshal(models.LoginRequest{Email: "admin@example.com", Password: "secret"})
	c, w := newGinContext(http.MethodPost, "/auth/login", payload)
	h.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin@example.com", svc.lastReq.Email)
	var resp models.LoginResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &resp))
	assert.Equal(t, "token", resp.AccessToken)
}

func TestAuthHandlerLoginErrors(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{loginErr: appErrors.ErrInvalidCredentials})

	c, w := newGinContext(http.MethodPost, "/auth/login", []byte("{"))
	h.Login(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	payload, _ := json.Marshal(models.LoginRequest{Email: "admin@example.com", Password: "wrong"})
	c, w = newGinContext(http.MethodPost, "/auth/login", payload)
	h.Login(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, decodeEnvelope(t, w).Error.Code)
}

func TestAuthHandlerMe(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{me: &models.UserInfo{ID: "u1", FullName: "Admin"}})

	c, w := newGinContext(http.MethodGet, "/auth/me", nil)
	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodGet, "/auth/me", nil)
	withClaims(c, adminClaims)
	h.Me(c)
	require.Equal(t, http.StatusOK, w.Code)
	var info models.UserInfo
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &info))
	assert.Equal(t, "Admin", info.FullName)
}
