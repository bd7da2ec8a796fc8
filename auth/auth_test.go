package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lifeassistant/middleware"
	"lifeassistant/rdx"
	"lifeassistant/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(h func(http.ResponseWriter, *http.Request), body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestRegisterLoginLogout(t *testing.T) {
	mw := &middleware.Auth{Secret: []byte("s"), Revoked: rdx.NewMemory()}
	h := &Handlers{Users: store.NewMemory(nil), Auth: mw, TokenTTL: time.Hour}
	register := func(w http.ResponseWriter, r *http.Request) { h.Register(w, r, nil) }
	login := func(w http.ResponseWriter, r *http.Request) { h.Login(w, r, nil) }
	logout := func(w http.ResponseWriter, r *http.Request) { mw.Authenticate(h.Logout)(w, r, nil) }

	assert.Equal(t, http.StatusBadRequest, post(register, `{"username":"al","password":"secret1"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(register, `{"username":"alice","password":"123"}`).Code)
	rec := post(register, `{"username":"alice","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret1")
	assert.Equal(t, http.StatusConflict, post(register, `{"username":"alice","password":"secret2"}`).Code)

	assert.Equal(t, http.StatusUnauthorized, post(login, `{"username":"alice","password":"wrong"}`).Code)
	rec = post(login, `{"username":"alice","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Token  string `json:"token"`
		UserID string `json:"userId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.NotEmpty(t, out.UserID)

	rec = post(logout, ``, "Authorization", "Bearer "+out.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusUnauthorized, post(logout, ``, "Authorization", "Bearer "+out.Token).Code)
}
