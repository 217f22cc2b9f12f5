package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-account/pkg/account"
)

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	repo := account.NewInMemoryRepository()
	require.NoError(t, repo.SeedRole(account.Role{ID: 1, Name: "admin"}))
	require.NoError(t, repo.SeedRole(account.Role{ID: 2, Name: "editor"}))
	require.NoError(t, repo.SeedRole(account.Role{ID: 3, Name: "viewer"}))

	handle := NewHandle(account.NewAccountService(repo))
	server := httptest.NewServer(handle.Routes())
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHandle_AccountLifecycle(t *testing.T) {
	server := setupTestServer(t)
	base := server.URL + "/accounts/sys_user"

	resp := doJSON(t, http.MethodPost, base, AccountRequest{Username: "alice", Password: "s3cret", RoleIDs: []int64{1, 2}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[account.AccountView](t, resp)
	assert.Equal(t, "alice", created.Username)
	assert.Equal(t, []int64{1, 2}, created.RoleIDs)

	accountURL := base + "/" + itoa(created.ID)

	resp = doJSON(t, http.MethodPut, accountURL, AccountRequest{RoleIDs: []int64{2, 3}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[account.AccountView](t, resp)
	assert.Equal(t, []int64{2, 3}, updated.RoleIDs)

	resp = doJSON(t, http.MethodGet, accountURL, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fetched := decode[map[string]interface{}](t, resp)
	assert.NotContains(t, fetched, "password")
	assert.NotContains(t, fetched, "salt")

	resp = doJSON(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]account.AccountView](t, resp), 1)

	resp = doJSON(t, http.MethodGet, server.URL+"/accounts/customer/"+itoa(created.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, accountURL, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, accountURL, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandle_Errors(t *testing.T) {
	server := setupTestServer(t)
	base := server.URL + "/accounts/sys_user"

	t.Run("MissingPassword", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, base, AccountRequest{Username: "alice"})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decode[ErrorResponse](t, resp)
		assert.Equal(t, "INVALID_PARAM", body.Code)
		assert.Equal(t, "password", body.Details["field"])
	})

	t.Run("Duplicate", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, base, AccountRequest{Username: "bob", Password: "pw"})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp = doJSON(t, http.MethodPost, base, AccountRequest{Username: "bob", Password: "pw"})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("UnknownUserType", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, server.URL+"/accounts/robot", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("BadID", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, base+"/abc", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("UpdateMissingAccount", func(t *testing.T) {
		resp := doJSON(t, http.MethodPut, base+"/999", AccountRequest{RoleIDs: []int64{1}})
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		body := decode[ErrorResponse](t, resp)
		assert.Equal(t, "PERSISTENCE_FAILURE", body.Code)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, base, bytes.NewBufferString("{"))
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestHandle_Roles(t *testing.T) {
	server := setupTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/roles", RoleRequest{Name: "auditor"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	role := decode[account.Role](t, resp)
	assert.Equal(t, int64(4), role.ID)

	resp = doJSON(t, http.MethodGet, server.URL+"/roles", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	roles := decode[[]account.Role](t, resp)
	assert.Len(t, roles, 4)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
