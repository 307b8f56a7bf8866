package inspect_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-binding/framework/ast"
	"github.com/km-arc/go-binding/framework/binding"
	"github.com/km-arc/go-binding/framework/container"
	"github.com/km-arc/go-binding/framework/dom"
	"github.com/km-arc/go-binding/framework/inspect"
	"github.com/km-arc/go-binding/framework/logging"
	"github.com/km-arc/go-binding/framework/observation"
	"github.com/km-arc/go-binding/framework/reporter"
	"github.com/km-arc/go-binding/framework/resources"
	"github.com/km-arc/go-binding/framework/runtimehtml"
)

type fixture struct {
	c       *container.Container
	doc     *dom.Document
	tracker *binding.Tracker
	server  *inspect.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	doc := dom.NewDocument()
	c := container.New()
	require.NoError(t, c.Register(
		resources.Builtins,
		runtimehtml.Configure(doc),
		resources.ConverterInstance("upper", &resources.ConverterFuncs{
			To: func(v any, _ ...any) (any, error) { return strings.ToUpper(ast.ToString(v)), nil },
		}),
	))
	s, err := inspect.New(c, inspect.WithLogger(logging.Discard()))
	require.NoError(t, err)
	return &fixture{
		c:       c,
		doc:     doc,
		tracker: container.MustResolve[*binding.Tracker](c, binding.ITracker),
		server:  s,
	}
}

func (f *fixture) do(t *testing.T, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func data(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	d, ok := decode(t, rec)["data"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	return d
}

// ── Health & resources ───────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ok", data(t, rec)["status"])
}

func TestResources(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/resources", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	d := data(t, rec)
	assert.ElementsMatch(t,
		[]any{"attr", "fromView", "oneTime", "self", "signal", "toView", "twoWay"},
		d["behaviors"])
	assert.Equal(t, []any{"upper"}, d["converters"])
}

// ── Bindings ─────────────────────────────────────────────────────────────────

func TestBindings(t *testing.T) {
	f := newFixture(t)
	ol := container.MustResolve[*observation.ObserverLocator](f.c, observation.IObserverLocator)
	span := f.doc.CreateElement("span")
	b := binding.NewPropertyBinding(ast.NewAccessScope("name", 0), span, "textContent", observation.ToView, ol, f.c)
	b.SetLogger(logging.Discard())
	id := f.tracker.Track(b)
	require.NoError(t, b.Bind(observation.FlagsNone, observation.NewScope(observation.NewObject(map[string]any{"name": "Ada"}))))

	rec := f.do(t, http.MethodGet, "/bindings", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	d := data(t, rec)
	list, ok := d["bindings"].([]any)
	require.True(t, ok)
	require.Len(t, list, 1)
	entry := list[0].(map[string]any)
	assert.Equal(t, id, entry["id"])
	assert.Equal(t, "name", entry["expression"])
	assert.Equal(t, "SPAN.textContent", entry["target"])
	assert.Equal(t, "toView", entry["mode"])
	assert.Equal(t, true, entry["bound"])
	assert.Equal(t, map[string]any{"property": 1.0, "listener": 0.0}, d["counts"])

	rec = f.do(t, http.MethodGet, "/bindings/"+id, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, data(t, rec)["id"])

	rec = f.do(t, http.MethodGet, "/bindings/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode(t, rec)["message"], "nope")
}

// ── Evaluate ─────────────────────────────────────────────────────────────────

func TestEvaluate_JSON(t *testing.T) {
	f := newFixture(t)
	body := `{
		"expression": {
			"$kind": "ValueConverter",
			"name": "upper",
			"expression": {
				"$kind": "Binary",
				"operation": "+",
				"left": {"$kind": "AccessScope", "name": "first"},
				"right": {"$kind": "AccessMember", "name": "last", "object": {"$kind": "AccessScope", "name": "user"}}
			}
		},
		"scope": {"first": "ada ", "user": {"last": "lovelace"}}
	}`
	rec := f.do(t, http.MethodPost, "/evaluate", "application/json", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	d := data(t, rec)
	assert.Equal(t, "ADA LOVELACE", d["value"])
	assert.Equal(t, "((first + user.last)|upper)", d["source"])
	assert.Equal(t, "ada ", d["scope"].(map[string]any)["first"])
}

func TestEvaluate_AssignShowsInScope(t *testing.T) {
	f := newFixture(t)
	body := `
expression:
  $kind: Assign
  target: {$kind: AccessScope, name: total}
  value:
    $kind: Binary
    operation: "*"
    left: {$kind: AccessScope, name: price}
    right: {$kind: PrimitiveLiteral, value: 3}
scope:
  price: 2.5
`
	rec := f.do(t, http.MethodPost, "/evaluate", "application/yaml", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	d := data(t, rec)
	assert.Equal(t, 7.5, d["value"])
	assert.Equal(t, 7.5, d["scope"].(map[string]any)["total"])
}

func TestEvaluate_NonFiniteNumber(t *testing.T) {
	f := newFixture(t)
	body := `{"expression": {"$kind": "Binary", "operation": "/", "left": {"$kind": "PrimitiveLiteral", "value": 1}, "right": {"$kind": "PrimitiveLiteral", "value": 0}}}`
	rec := f.do(t, http.MethodPost, "/evaluate", "application/json", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Infinity", data(t, rec)["value"])
}

func TestEvaluate_Errors(t *testing.T) {
	f := newFixture(t)

	tests := map[string]struct {
		body   string
		status int
		check  func(t *testing.T, out map[string]any)
	}{
		"empty body": {
			body:   "",
			status: http.StatusBadRequest,
		},
		"malformed json": {
			body:   `{"expression":`,
			status: http.StatusBadRequest,
		},
		"missing expression": {
			body:   `{"scope": {}}`,
			status: http.StatusUnprocessableEntity,
			check: func(t *testing.T, out map[string]any) {
				bag := out["errors"].(map[string]any)
				assert.Equal(t, []any{"The expression field is required."}, bag["expression"])
			},
		},
		"unknown kind": {
			body:   `{"expression": {"$kind": "Lambda"}}`,
			status: http.StatusUnprocessableEntity,
			check: func(t *testing.T, out map[string]any) {
				bag := out["errors"].(map[string]any)
				assert.Contains(t, bag["expression"].([]any)[0], "Lambda")
			},
		},
		"not a function": {
			body:   `{"expression": {"$kind": "CallScope", "name": "missing"}}`,
			status: http.StatusBadRequest,
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, float64(reporter.CodeNotAFunction), out["code"])
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/evaluate", "application/json", tc.body)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			if tc.check != nil {
				tc.check(t, decode(t, rec))
			}
		})
	}
}

// ── Metrics ──────────────────────────────────────────────────────────────────

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/evaluate", "application/json", `{"expression": {"$kind": "PrimitiveLiteral", "value": 1}}`)
	f.do(t, http.MethodPost, "/evaluate", "application/json", `{"expression": {"$kind": "CallScope", "name": "nope"}}`)

	rec := f.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `binding_expression_evaluations_total{result="ok"} 1`)
	assert.Contains(t, body, `binding_expression_evaluations_total{result="error"} 1`)
}
