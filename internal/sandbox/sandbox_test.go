package sandbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/npezzotti/go-codeduel/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanguageFor(t *testing.T) {
	lang, err := LanguageFor("python")
	require.NoError(t, err)
	assert.Equal(t, "3.10.0", lang.Version)

	_, err = LanguageFor("cobol")
	assert.Error(t, err)
}

func TestPistonClient_Execute(t *testing.T) {
	tcases := []struct {
		name       string
		status     int
		body       string
		expected   Result
		expectsErr bool
	}{
		{
			name:     "successful run",
			status:   http.StatusOK,
			body:     `{"run":{"stdout":"hello\n","stderr":"","output":"hello\n","code":0}}`,
			expected: Result{Stdout: "hello\n", Output: "hello\n", ExitCode: 0},
		},
		{
			name:     "runtime error",
			status:   http.StatusOK,
			body:     `{"run":{"stdout":"","stderr":"boom","output":"boom","code":1}}`,
			expected: Result{Stderr: "boom", Output: "boom", ExitCode: 1},
		},
		{
			name:     "compile error",
			status:   http.StatusOK,
			body:     `{"compile":{"stderr":"syntax error","output":"syntax error","code":1},"run":{}}`,
			expected: Result{Stderr: "syntax error", Output: "syntax error", ExitCode: 1},
		},
		{
			name:     "killed by signal",
			status:   http.StatusOK,
			body:     `{"run":{"stdout":"","stderr":"","output":"","code":null,"signal":"SIGKILL"}}`,
			expected: Result{ExitCode: -1},
		},
		{
			name:       "upstream failure",
			status:     http.StatusBadRequest,
			body:       `{"message":"runtime is unknown"}`,
			expectsErr: true,
		},
		{
			name:       "malformed response",
			status:     http.StatusOK,
			body:       `not json`,
			expectsErr: true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/execute", r.URL.Path)
				assert.Equal(t, http.MethodPost, r.Method)

				var req pistonRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "python", req.Language)
				assert.Equal(t, "3.10.0", req.Version)
				assert.Len(t, req.Files, 1)

				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client := NewPistonClient(testutil.TestLogger(t), srv.URL, 0)
			res, err := client.Execute(context.Background(), "print('hello')", languages["python"])
			if tc.expectsErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, res)
		})
	}
}

func TestPistonClient_SourceTooLarge(t *testing.T) {
	client := NewPistonClient(testutil.TestLogger(t), "http://127.0.0.1:0", 0)
	_, err := client.Execute(context.Background(), strings.Repeat("x", maxSourceLength+1), languages["cpp"])
	assert.Error(t, err)
}

func TestPistonClient_ContextCanceled(t *testing.T) {
	client := NewPistonClient(testutil.TestLogger(t), "http://127.0.0.1:0", 1)
	// drain the single burst token so the next call has to wait
	require.True(t, client.limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Execute(ctx, "print(1)", languages["python"])
	assert.Error(t, err, "expected canceled context to abort while rate limited")
}
