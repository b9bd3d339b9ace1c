package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const testKeyEnv = "INKWELL_TEST_GEMINI_KEY"

// isolate points HOME and INKWELL_HOME at a temp dir and moves into it so no
// real config or settings are read.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("INKWELL_HOME", filepath.Join(dir, ".inkwell"))
	t.Setenv("NO_COLOR", "1")
	t.Setenv(testKeyEnv, "")
	t.Chdir(dir)
	return dir
}

type testConfig struct {
	GeminiURL string
	BatchURL  string
	Extra     string
}

// writeConfig writes a config file with one gemini service and a file
// settings store inside dir.
func writeConfig(t *testing.T, dir string, tc testConfig) string {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, `provider:
  ready_interval: 1ms
  ready_max_attempts: 2
  ready_timeout: 50ms
services:
  - slug: gemini
    display_name: Test Gemini
    kind: gemini
    model: gemini-text
    image_model: gemini-image
    base_url: %q
    api_key_env_var: %s
    capabilities: [text_generation, multimodal_input, image_generation]
settings:
  source: file
  path: %q
`, tc.GeminiURL, testKeyEnv, filepath.Join(dir, "settings.yaml"))
	if tc.BatchURL != "" {
		fmt.Fprintf(&b, `batch:
  base_url: %q
  poll_interval: 5ms
`, tc.BatchURL)
	}
	b.WriteString(tc.Extra)

	path := filepath.Join(dir, "inkwell.yaml")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

// execute runs the CLI with args and returns stdout, stderr and the error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	flags := &GlobalFlags{}
	cmd := newRootCmd(flags, BuildInfo{Version: "1.2.3", Commit: "abc123", Date: "2026-01-01"})

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)

	err := run(context.Background(), cmd, flags, &errOut)
	t.Cleanup(CloseLogFile)
	return out.String(), errOut.String(), err
}

// geminiStub records generateContent requests and answers with canned parts.
type geminiStub struct {
	mu       sync.Mutex
	requests []map[string]any
	keys     []string
	paths    []string
	status   int
	parts    []map[string]any
}

func newGeminiStub(t *testing.T, parts ...map[string]any) (*geminiStub, *httptest.Server) {
	t.Helper()
	stub := &geminiStub{status: http.StatusOK, parts: parts}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		_ = json.Unmarshal(body, &req)

		stub.mu.Lock()
		stub.requests = append(stub.requests, req)
		stub.keys = append(stub.keys, r.Header.Get("x-goog-api-key"))
		stub.paths = append(stub.paths, r.URL.Path)
		status, parts := stub.status, stub.parts
		stub.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{"content": map[string]any{"role": "model", "parts": parts}}},
		})
	}))
	t.Cleanup(srv.Close)
	return stub, srv
}

func (s *geminiStub) last(t *testing.T) (map[string]any, string, string) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.requests, "expected a gemini request")
	n := len(s.requests) - 1
	return s.requests[n], s.keys[n], s.paths[n]
}

// promptOf extracts the first text part of a recorded request.
func promptOf(t *testing.T, req map[string]any) string {
	t.Helper()
	contents := req["contents"].([]any)
	parts := contents[0].(map[string]any)["parts"].([]any)
	return parts[0].(map[string]any)["text"].(string)
}

func textPart(s string) map[string]any {
	return map[string]any{"text": s}
}

func imagePart(mime string, data []byte) map[string]any {
	return map[string]any{"inlineData": map[string]any{
		"mimeType": mime,
		"data":     base64.StdEncoding.EncodeToString(data),
	}}
}

// queueStub is a batch queue whose count response is scripted per call.
type queueStub struct {
	mu      sync.Mutex
	counts  []string
	calls   map[string]int
	nonces  []string
	current string
}

func newQueueStub(t *testing.T, counts ...string) (*queueStub, *httptest.Server) {
	t.Helper()
	q := &queueStub{counts: counts, calls: make(map[string]int)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		action := parts[len(parts)-1]

		q.mu.Lock()
		q.calls[action]++
		q.nonces = append(q.nonces, r.Header.Get("X-WP-Nonce"))
		body := ""
		if action == "count" {
			if len(q.counts) > 0 {
				q.current, q.counts = q.counts[0], q.counts[1:]
			}
			body = q.current
		}
		q.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if body == "" {
			body = `{"ok":true}`
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return q, srv
}

func (q *queueStub) callCount(action string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.calls[action]
}

func countJSON(total, missing, actions, complete, pending, running, failed int, failedItems string) string {
	if failedItems == "" {
		failedItems = "[]"
	}
	return fmt.Sprintf(`{"total":%d,"missing":%d,"actions":{"total":%d,"complete":%d,"pending":%d,"running":%d,"failed":%d},"failed_items":%s,"last_service":"gemini"}`,
		total, missing, actions, complete, pending, running, failed, failedItems)
}

// jsonLines decodes newline-delimited JSON output.
func jsonLines(t *testing.T, out string) []map[string]any {
	t.Helper()
	var lines []map[string]any
	dec := json.NewDecoder(strings.NewReader(out))
	for dec.More() {
		var m map[string]any
		require.NoError(t, dec.Decode(&m))
		lines = append(lines, m)
	}
	return lines
}
