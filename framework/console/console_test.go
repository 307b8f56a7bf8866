package console_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/km-arc/go-binding/framework/console"
)

// syncBuffer is written by the command goroutine and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type workspace struct {
	dir string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	t.Setenv("APP_ENV", "testing")
	t.Setenv("LOG_LEVEL", "error")
	return &workspace{dir: t.TempDir()}
}

func (w *workspace) file(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(w.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (w *workspace) run(ctx context.Context, out *syncBuffer, stdin string, args ...string) error {
	cmd := console.NewRootCommand()
	cmd.SetArgs(append([]string{
		"--config", filepath.Join(w.dir, "go-binding.yaml"),
		"--env", filepath.Join(w.dir, ".env"),
	}, args...))
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetIn(strings.NewReader(stdin))
	return cmd.ExecuteContext(ctx)
}

const sum = `
$kind: Binary
operation: "+"
left: {$kind: AccessScope, name: a}
right: {$kind: AccessScope, name: b}
`

const greeter = `
markup: <p id="greeting"></p>
bindings:
  - target: greeting
    property: textContent
    expression:
      $kind: Binary
      operation: "+"
      left: {$kind: PrimitiveLiteral, value: "Hi "}
      right: {$kind: AccessScope, name: name}
`

// ── version ──────────────────────────────────────────────────────────────────

func TestVersion(t *testing.T) {
	w := newWorkspace(t)
	out := &syncBuffer{}
	require.NoError(t, w.run(context.Background(), out, "", "version"))
	assert.True(t, strings.HasPrefix(out.String(), "go-binding 0.1.0 ("), out.String())
}

// ── eval ─────────────────────────────────────────────────────────────────────

func TestEval_FileAndScope(t *testing.T) {
	w := newWorkspace(t)
	expr := w.file(t, "sum.yaml", sum)
	scope := w.file(t, "scope.yaml", "a: 1\nb: 2\n")

	out := &syncBuffer{}
	require.NoError(t, w.run(context.Background(), out, "", "eval", expr, "--scope", scope, "--json"))

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out.String()), &res))
	assert.Equal(t, "(a + b)", res["source"])
	assert.Equal(t, 3.0, res["value"])
	assert.NotContains(t, res, "scope")
}

func TestEval_StdinYAMLWithScope(t *testing.T) {
	w := newWorkspace(t)
	assign := `{"$kind":"Assign","target":{"$kind":"AccessScope","name":"total"},"value":{"$kind":"PrimitiveLiteral","value":"done"}}`

	out := &syncBuffer{}
	require.NoError(t, w.run(context.Background(), out, assign, "eval", "-", "--show-scope"))

	var res map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out.String()), &res))
	assert.Equal(t, "done", res["value"])
	assert.Equal(t, map[string]any{"total": "done"}, res["scope"])
}

func TestEval_Errors(t *testing.T) {
	w := newWorkspace(t)
	call := w.file(t, "call.yaml", "$kind: CallScope\nname: missing\n")
	bad := w.file(t, "bad.yaml", "$kind: Lambda\n")

	out := &syncBuffer{}
	err := w.run(context.Background(), out, "", "eval", call)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")

	assert.Error(t, w.run(context.Background(), out, "", "eval", bad))
	assert.Error(t, w.run(context.Background(), out, "", "eval", filepath.Join(w.dir, "nope.yaml")))
	assert.Error(t, w.run(context.Background(), out, "", "eval"), "an expression argument is required")
}

// ── watch ────────────────────────────────────────────────────────────────────

func TestWatch_RendersOnceWithoutScope(t *testing.T) {
	w := newWorkspace(t)
	view := w.file(t, "view.yaml", greeter+"scope:\n  name: Ada\n")

	out := &syncBuffer{}
	require.NoError(t, w.run(context.Background(), out, "", "watch", view))
	assert.Equal(t, "<p id=\"greeting\">Hi Ada</p>\n", out.String())
}

func TestWatch_ReappliesScope(t *testing.T) {
	w := newWorkspace(t)
	view := w.file(t, "view.yaml", greeter)
	scope := w.file(t, "scope.yaml", "name: Ada\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- w.run(ctx, out, "", "watch", view, "--scope", scope) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Hi Ada")
	}, 5*time.Second, 20*time.Millisecond)

	// keep rewriting until the watcher is up and has picked a write up
	require.Eventually(t, func() bool {
		_ = os.WriteFile(scope, []byte("name: Bob\n"), 0o600)
		return strings.Contains(out.String(), "Hi Bob")
	}, 5*time.Second, 150*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

// ── serve ────────────────────────────────────────────────────────────────────

func TestServe_StopsOnCancel(t *testing.T) {
	w := newWorkspace(t)
	view := w.file(t, "view.yaml", greeter)
	scope := w.file(t, "scope.yaml", "name: Ada\n")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	out := &syncBuffer{}
	assert.NoError(t, w.run(ctx, out, "", "serve", view, "--scope", scope, "--addr", "127.0.0.1:0"))
}

func TestServe_BadView(t *testing.T) {
	w := newWorkspace(t)
	view := w.file(t, "view.yaml", "bindings: []\n")

	out := &syncBuffer{}
	assert.Error(t, w.run(context.Background(), out, "", "serve", view, "--addr", "127.0.0.1:0"))
}
