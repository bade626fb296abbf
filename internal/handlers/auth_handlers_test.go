package handlers

import (
	"net/http"
	"testing"
)

func TestRegisterAndLogin(t *testing.T) {
	env := setupTestEnv(t)

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/register", map[string]string{
		"email":     "Ada@Test.com",
		"password":  "password123",
		"firstName": "Ada",
		"lastName":  "Lovelace",
	}, nil)
	assertStatus(t, resp, http.StatusCreated)

	data := dataMap(t, resp)
	if data["token"] == "" {
		t.Fatal("expected token in register response")
	}
	user, _ := data["user"].(map[string]any)
	if user["email"] != "ada@test.com" {
		t.Fatalf("expected lowercased email, got %v", user["email"])
	}

	resp = performJSONRequest(t, env.app, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "ada@test.com",
		"password": "password123",
	}, nil)
	assertStatus(t, resp, http.StatusOK)
}

func TestRegisterValidation(t *testing.T) {
	env := setupTestEnv(t)

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/register", map[string]string{
		"email":     "short@test.com",
		"password":  "tiny",
		"firstName": "Short",
	}, nil)
	assertStatus(t, resp, http.StatusBadRequest)

	resp = performJSONRequest(t, env.app, http.MethodPost, "/api/auth/register", map[string]string{
		"password":  "password123",
		"firstName": "NoEmail",
	}, nil)
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := setupTestEnv(t)
	createTestUser(t, env.db, "taken@test.com", "password123")

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/register", map[string]string{
		"email":     "taken@test.com",
		"password":  "password123",
		"firstName": "Dup",
	}, nil)
	assertStatus(t, resp, http.StatusConflict)
}

func TestLoginWrongPassword(t *testing.T) {
	env := setupTestEnv(t)
	createTestUser(t, env.db, "user@test.com", "password123")

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "user@test.com",
		"password": "wrong-password",
	}, nil)
	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestMeAndUpdateMe(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "me@test.com", "password123")

	resp := performRequest(t, env.app, http.MethodGet, "/api/auth/me", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	if dataMap(t, resp)["email"] != "me@test.com" {
		t.Fatal("expected own profile")
	}

	resp = performJSONRequest(t, env.app, http.MethodPut, "/api/auth/me", map[string]string{
		"firstName": "Renamed",
	}, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	if dataMap(t, resp)["firstName"] != "Renamed" {
		t.Fatal("expected updated first name")
	}
}

func TestMeRejectsBadToken(t *testing.T) {
	env := setupTestEnv(t)

	resp := performRequest(t, env.app, http.MethodGet, "/api/auth/me", nil, authHeaders("not-a-token"))
	assertStatus(t, resp, http.StatusUnauthorized)
}
