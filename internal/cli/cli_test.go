package cli

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PratikDhanave/creation-sync/internal/config"
	"github.com/PratikDhanave/creation-sync/internal/events"
	"github.com/PratikDhanave/creation-sync/internal/httpserver"
	"github.com/PratikDhanave/creation-sync/internal/pending"
	"github.com/PratikDhanave/creation-sync/internal/store"
)

const cliKey = "key-1"

type env struct {
	server    *httptest.Server
	store     *store.MemoryStore
	stateFile string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := store.NewMemoryStore(5)
	server := httptest.NewServer(httpserver.NewRouter(config.Config{
		APIKeys:      map[string]string{cliKey: "user1"},
		CreationCost: 1,
	}, st))
	t.Cleanup(server.Close)
	return &env{server: server, store: st, stateFile: filepath.Join(t.TempDir(), "session.json")}
}

func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--server", e.server.URL, "--api-key", cliKey, "--state-file", e.stateFile}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func (e *env) pendingStore(t *testing.T) *pending.Store {
	t.Helper()
	fs, err := pending.NewFileStorage(e.stateFile)
	require.NoError(t, err)
	return pending.NewStore(fs, events.NewBus(), nil)
}

func TestSubmitForeground(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "submit", "--target", "img_1", "--method", "upscale", "--arg", "scale=2", "--arg", "note=hi")

	require.NoError(t, err)
	assert.Contains(t, out, "balance: 4")
	assert.Contains(t, out, "mode: foreground")
	assert.Contains(t, out, "outcome: succeeded")
	assert.Equal(t, 0, e.pendingStore(t).Len(), "foreground success clears the pending entry")
}

func TestSubmitForegroundJSON(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "--format", "json", "submit", "--target", "img_1", "--method", "upscale")
	require.NoError(t, err)

	var res submitResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "succeeded", res.Outcome)
	require.NotNil(t, res.CreditsRemaining)
	assert.Equal(t, int64(4), *res.CreditsRemaining)
	assert.NotEmpty(t, res.CreationID)
}

func TestSubmitInsufficientCredits(t *testing.T) {
	e := newEnv(t)
	e.store.SetBalance("user1", 0)

	out, err := e.run(t, "submit", "--target", "img_1", "--method", "upscale")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enough credits (balance 0)")
	assert.Contains(t, out, "balance: 0")
	assert.Contains(t, out, "outcome: failed")
	assert.Equal(t, 0, e.pendingStore(t).Len())
}

func TestSubmitUnloadThenListReconciles(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "--format", "json", "submit", "--unload", "--target", "img_1", "--method", "upscale")
	require.NoError(t, err)

	var res submitResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "unobserved", res.Outcome)
	assert.Equal(t, "unload", res.Mode)
	assert.Empty(t, res.CreationID)
	tok := res.Token

	out, err = e.run(t, "--format", "json", "list")
	require.NoError(t, err)

	var rows []viewRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "confirmed", rows[0].State)
	assert.Equal(t, tok, rows[0].Token)
	assert.Equal(t, 0, e.pendingStore(t).Len(), "landed entry is garbage-collected")
}

func TestPendingCommand(t *testing.T) {
	e := newEnv(t)
	s := e.pendingStore(t)
	s.Add(pending.Entry{ID: "pe_1", Token: "crt_abc123", TargetID: "img_1", Method: "upscale", CreatedAt: time.Now()})

	out, err := e.run(t, "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "STATE")
	assert.Contains(t, out, "crt_abc123")
	assert.Contains(t, out, "pending")

	s.Remove("crt_abc123")
	out, err = e.run(t, "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "(none)")
}

func TestPendingClearRemovesSessionFile(t *testing.T) {
	e := newEnv(t)
	e.pendingStore(t).Add(pending.Entry{ID: "pe_1", Token: "crt_abc123", CreatedAt: time.Now()})
	require.FileExists(t, e.stateFile)

	out, err := e.run(t, "pending", "--clear")
	require.NoError(t, err)
	assert.Contains(t, out, "cleared "+e.stateFile)
	assert.NoFileExists(t, e.stateFile)

	out, err = e.run(t, "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "(none)")
}

func TestListDropsExpiredEntries(t *testing.T) {
	e := newEnv(t)
	e.pendingStore(t).Add(pending.Entry{ID: "pe_1", Token: "crt_old", CreatedAt: time.Now().Add(-time.Hour)})

	out, err := e.run(t, "--ttl", "1m", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "(none)")
	assert.Equal(t, 0, e.pendingStore(t).Len())
}

func TestRootRejectsInvalidFlags(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "--format", "yaml", "pending")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")

	_, err = e.run(t, "--ttl", "0s", "pending")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid ttl")

	_, err = e.run(t, "submit", "--method", "upscale")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target")
}

func TestParseArgs(t *testing.T) {
	testCases := []struct {
		name          string
		input         []string
		expected      map[string]any
		expectedError string
	}{
		{name: "none", input: nil, expected: nil},
		{name: "string_value", input: []string{"style=noir"}, expected: map[string]any{"style": "noir"}},
		{name: "json_values", input: []string{"scale=2", "hd=true", "tags=[\"a\"]"}, expected: map[string]any{"scale": float64(2), "hd": true, "tags": []any{"a"}}},
		{name: "empty_value", input: []string{"k="}, expected: map[string]any{"k": ""}},
		{name: "missing_equals", input: []string{"scale"}, expectedError: "want key=value"},
		{name: "missing_key", input: []string{"=2"}, expectedError: "want key=value"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseArgs(tc.input)
			if tc.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}
