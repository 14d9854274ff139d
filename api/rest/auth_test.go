package rest_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/ariselabs/arise-server/model"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	f := newFixture(t)
	w := postJSON(f.r, "/api/auth/register", gin.H{
		"username": "jinwoo",
		"password": "hunter1234",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Token   string        `json:"token"`
		Account model.Account `json:"account"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, 1, resp.Account.Level)
	assert.Equal(t, model.RankE, resp.Account.Rank)
	assert.Equal(t, int64(100), resp.Account.ExperienceToNext)
	assert.Equal(t, resp.Account.MaxHP, resp.Account.HP)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	f := newFixture(t)
	f.register(t, "jinwoo")
	w := postJSON(f.r, "/api/auth/register", gin.H{
		"username": "jinwoo",
		"password": "different",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegister_ShortPassword(t *testing.T) {
	f := newFixture(t)
	w := postJSON(f.r, "/api/auth/register", gin.H{
		"username": "jinwoo",
		"password": "abc",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	f.register(t, "jinwoo")

	w := postJSON(f.r, "/api/auth/login", gin.H{
		"username": "jinwoo",
		"password": "hunter1234",
	})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newFixture(t)
	f.register(t, "jinwoo")

	w := postJSON(f.r, "/api/auth/login", gin.H{
		"username": "jinwoo",
		"password": "wrongwrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_UnknownUser(t *testing.T) {
	f := newFixture(t)
	w := postJSON(f.r, "/api/auth/login", gin.H{
		"username": "nobody",
		"password": "hunter1234",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_Banned(t *testing.T) {
	f := newFixture(t)
	f.register(t, "jinwoo")
	require.NoError(t, f.db.Model(&model.Account{}).
		Where("username = ?", "jinwoo").
		Update("status", 0).Error)

	w := postJSON(f.r, "/api/auth/login", gin.H{
		"username": "jinwoo",
		"password": "hunter1234",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLogout_InvalidatesSession(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "jinwoo")

	w := postJSON(f.r, "/api/auth/logout", nil, bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)

	// Same token now rejected by the auth middleware.
	w = postJSON(f.r, "/api/auth/logout", nil, bearer(token)...)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefresh_RotatesToken(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "jinwoo")

	w := postJSON(f.r, "/api/auth/refresh", nil, bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	assert.NotEqual(t, token, resp.Token)

	// Old token dead, new one works.
	assert.Equal(t, http.StatusUnauthorized, getReq(f.r, "/api/hunter", bearer(token)...).Code)
	assert.Equal(t, http.StatusOK, getReq(f.r, "/api/hunter", bearer(resp.Token)...).Code)
}

func TestAuth_MissingToken(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusUnauthorized, getReq(f.r, "/api/hunter").Code)
}
