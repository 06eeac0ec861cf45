package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canteenhq/canteen-go/core"
)

func respond(t *testing.T, w http.ResponseWriter, status int, body interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func TestClientSendsBearerAndRequestID(t *testing.T) {
	var gotAuth, gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		respond(t, w, http.StatusOK, map[string]interface{}{"success": true, "data": []interface{}{}})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithTokenSource(func() string { return "tok-1" }))
	_, err := client.Menu(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.NotEmpty(t, gotRequestID)
}

func TestClientStripsDuplicateBearerPrefix(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		respond(t, w, http.StatusOK, map[string]interface{}{"success": true, "data": []interface{}{}})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithTokenSource(func() string { return "Bearer tok-1" }))
	_, err := client.Menu(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestClientRegisterSkipsAuthorization(t *testing.T) {
	var sawAuth bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth = r.Header.Get("Authorization") != ""
		respond(t, w, http.StatusOK, map[string]interface{}{"success": true, "message": "OTP sent"})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithTokenSource(func() string { return "tok-1" }))
	message, err := client.StudentRegister(context.Background(), RegisterRequest{
		Name: "Asha", RegistrationNo: "R-42", Email: "asha@example.edu", Password: "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, "OTP sent", message)
	assert.False(t, sawAuth, "registration must go out without a bearer header")
}

func TestClientEnvelopeFailureCarriesMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, http.StatusOK, map[string]interface{}{"success": false, "message": "Item out of stock"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.PlaceOrder(context.Background(), []core.OrderItem{{ItemID: "m1", Qty: 1}}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrRequestRejected)
	assert.Equal(t, "Item out of stock", core.UserMessage(err))
}

func TestClientStatusMapping(t *testing.T) {
	tests := []struct {
		status   int
		sentinel error
	}{
		{http.StatusUnauthorized, core.ErrUnauthorized},
		{http.StatusForbidden, core.ErrForbidden},
		{http.StatusNotFound, core.ErrNotFound},
		{http.StatusInternalServerError, core.ErrServer},
		{http.StatusBadGateway, core.ErrServer},
	}
	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			respond(t, w, tt.status, map[string]interface{}{"success": false})
		}))

		client := NewClient(server.URL, WithTokenSource(func() string { return "tok" }))
		_, err := client.MyOrders(context.Background())
		require.Error(t, err, "status %d", tt.status)
		assert.ErrorIs(t, err, tt.sentinel, "status %d", tt.status)

		server.Close()
	}
}

func TestClientUnauthorizedHookFiresOnlyWhenAuthed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, http.StatusUnauthorized, map[string]interface{}{"success": false})
	}))
	defer server.Close()

	fired := 0
	client := NewClient(server.URL, WithTokenSource(func() string { return "stale" }))
	client.SetOnUnauthorized(func() { fired++ })

	// authed call: the hook fires
	_, err := client.MyOrders(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, fired)

	// login is unauthenticated: a 401 here is a wrong password, not an
	// expired session, so the hook stays quiet
	_, _, err = client.AdminLogin(context.Background(), Credentials{Username: "chef", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, 1, fired)
}

func TestClientTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := NewClient(server.URL)
	_, err := client.Menu(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConnectionFailed)
	assert.Equal(t,
		"No response from server. Please check your connection and try again.",
		core.UserMessage(err))
}

func TestClientMenuNormalizes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/menu", r.URL.Path)
		respond(t, w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": []map[string]interface{}{
				{"_id": "m1", "name": "Dosa", "price": 45, "isAvailable": true, "category": "cat-1"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithTokenSource(func() string { return "tok" }))
	entries, err := client.Menu(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "m1", entries[0].ID)
	assert.Equal(t, "cat-1", entries[0].Category.ID)
}

func TestClientLoginReturnsTokenFromEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, http.StatusOK, map[string]interface{}{
			"success": true,
			"token":   "fresh-token",
			"data":    map[string]interface{}{"_id": "u1", "name": "Chef", "role": "admin"},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	identity, token, err := client.AdminLogin(context.Background(), Credentials{Username: "chef", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
	assert.Equal(t, core.RoleAdmin, identity.Role)
}

func TestClientPlaceOrderRejectsEmptyItems(t *testing.T) {
	client := NewClient("http://unused.invalid")
	_, err := client.PlaceOrder(context.Background(), nil, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
}
