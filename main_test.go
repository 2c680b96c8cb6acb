package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliEnv struct {
	home  string
	creds string
}

func newCLIEnv(t *testing.T, handler http.Handler) cliEnv {
	t.Helper()
	home := t.TempDir()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	env := cliEnv{home: home, creds: filepath.Join(home, "credentials.yaml")}
	t.Setenv("HOME", home)
	t.Setenv("INTERVIEWCOACH_CONFIG", "")
	t.Setenv("INTERVIEWCOACH_LOG_FILE", filepath.Join(home, "coach.log"))
	t.Setenv("INTERVIEWCOACH_API__BASE_URL", srv.URL+"/api")
	t.Setenv("INTERVIEWCOACH_AUTH__CREDENTIALS_PATH", env.creds)
	t.Setenv("INTERVIEWCOACH_JOURNAL__PATH", filepath.Join(home, "journal.db"))
	t.Setenv("INTERVIEWCOACH_CAPTURE__RULES_PATH", "")
	t.Setenv("INTERVIEWCOACH_METRICS__ADDR", "")

	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(home))
	t.Cleanup(func() { _ = os.Chdir(prev) })
	return env
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func signedToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "asha@example.com",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestLoginPromptsAndStoresCredential(t *testing.T) {
	token := signedToken(t)
	r := chi.NewRouter()
	r.Post("/api/auth/login", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(req.Body).Decode(&body)
		if body["email"] != "asha@example.com" || body["password"] != "hunter2" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token": token,
			"user":  map[string]any{"email": "asha@example.com", "name": "Asha", "free_interviews_remaining": 2, "paid_interviews": 1},
		})
	})
	env := newCLIEnv(t, r)

	out, err := execute(t, "hunter2\n", "login", "--email", "asha@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Asha. Interviews left: 3")

	raw, err := os.ReadFile(env.creds)
	require.NoError(t, err)
	assert.Contains(t, string(raw), token)
	assert.Contains(t, string(raw), "free_interviews: 2")
}

func TestCommandsRequireSignIn(t *testing.T) {
	newCLIEnv(t, chi.NewRouter())

	for _, args := range [][]string{{"whoami"}, {"history"}, {"detail", "s-1"}, {"credits", "order"}} {
		_, err := execute(t, "", args...)
		if !errors.Is(err, errNotSignedIn) {
			t.Fatalf("%v: expected errNotSignedIn, got %v", args, err)
		}
	}
}

func TestUnauthorizedClearsCredential(t *testing.T) {
	token := signedToken(t)
	r := chi.NewRouter()
	r.Post("/api/auth/login", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": map[string]any{"email": "asha@example.com"}})
	})
	r.Get("/api/user/me", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Token expired"})
	})
	env := newCLIEnv(t, r)

	_, err := execute(t, "", "login", "--email", "asha@example.com", "--password", "pw")
	require.NoError(t, err)

	_, err = execute(t, "", "whoami")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log in again")

	_, statErr := os.Stat(env.creds)
	assert.True(t, os.IsNotExist(statErr), "credentials file should be removed")
}

func TestHistoryRendersTable(t *testing.T) {
	token := signedToken(t)
	r := chi.NewRouter()
	r.Post("/api/auth/login", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": map[string]any{"email": "asha@example.com"}})
	})
	r.Get("/api/interviews/history", func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "Bearer "+token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing token"})
			return
		}
		writeJSON(w, http.StatusOK, []map[string]any{{
			"id":            "sess-42",
			"created_at":    "2026-03-04T09:30:00",
			"user_data":     map[string]string{"name": "Asha", "role": "SRE"},
			"mode":          "normal",
			"overall_score": 8.5,
			"turns":         []map[string]any{{"turn_no": 1, "q": "Hi", "a": "Hello"}},
		}})
	})
	newCLIEnv(t, r)

	_, err := execute(t, "", "login", "--email", "asha@example.com", "--password", "pw")
	require.NoError(t, err)

	out, err := execute(t, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "sess-42")
	assert.Contains(t, out, "SRE")
	assert.Contains(t, out, "8.5")
}

func TestReportUnknownLocalSession(t *testing.T) {
	newCLIEnv(t, chi.NewRouter())

	_, err := execute(t, "", "report", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history --local")

	out, err := execute(t, "", "history", "--local")
	require.NoError(t, err)
	assert.Contains(t, out, "No interviews recorded locally.")
}

func TestRenderSuggestions(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", renderSuggestions(nil))
	assert.Equal(t, "", renderSuggestions(json.RawMessage("null")))
	assert.Equal(t, "- Slow down\n- Use STAR\n", renderSuggestions(json.RawMessage(`["Slow down","Use STAR"]`)))
	assert.Equal(t, "{\n  \"clarity\": 3\n}\n", renderSuggestions(json.RawMessage(`{"clarity":3}`)))
}

func TestFirstNonEmpty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Fresher", firstNonEmpty("", "  ", defaultExperience))
	assert.Equal(t, "SRE", firstNonEmpty(" SRE ", "Software Engineer"))
	assert.Equal(t, "", firstNonEmpty())
}
