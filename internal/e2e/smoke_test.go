package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var params map[string]any
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&params)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var body any
		switch r.URL.Path {
		case "/auth/login":
			body = map[string]any{"result": map[string]any{
				"access_token": "token-1",
				"user_id":      "user:id1",
				"profile":      map[string]any{"_recordType": "user", "_recordID": "user:id1", "username": "rick"},
			}}
		case "/hello/world":
			assert.Equal(t, "token-1", params["access_token"])
			body = map[string]any{"result": params["args"]}
		default:
			w.WriteHeader(http.StatusNotFound)
			body = map[string]any{"error": map[string]any{"name": "NotFound", "code": 404, "message": r.URL.Path}}
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer server.Close()

	home := t.TempDir()
	binaryPath := buildBinary(t)

	_, stderr, err := runSky(t, binaryPath, home, server.URL, "auth", "login", "--username", "rick", "--password", "secret")
	require.NoError(t, err, "stderr: %s", stderr)

	stdout, stderr, err := runSky(t, binaryPath, home, server.URL, "status")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "User: rick (user:id1)")

	stdout, stderr, err = runSky(t, binaryPath, home, server.URL, "lambda", "hello:world", `["ping"]`)
	require.NoError(t, err, "stderr: %s", stderr)
	assert.JSONEq(t, `["ping"]`, stdout)
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "sky-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/sky")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build sky binary: %s", string(output))
	return binaryPath
}

func runSky(t *testing.T, binaryPath, home, endpoint string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(),
		"HOME="+home,
		"PATH="+filepath.Join(home, "no-bin"),
		"SKYGEAR_ENDPOINT="+endpoint,
		"SKYGEAR_API_KEY=smoke-key",
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}
