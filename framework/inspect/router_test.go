package inspect_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/km-arc/go-binding/framework/inspect"
	"github.com/km-arc/go-binding/framework/logging"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func newRouter() *inspect.Router { return inspect.NewRouter(logging.Discard()) }

func serve(t *testing.T, router http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// ── Router ───────────────────────────────────────────────────────────────────

func TestRouter_Verbs(t *testing.T) {
	r := newRouter()
	r.Get("/hello", okHandler)
	r.Post("/users", okHandler)

	if rr := serve(t, r, http.MethodGet, "/hello"); rr.Code != http.StatusOK {
		t.Errorf("GET /hello: got %d want 200", rr.Code)
	}
	if rr := serve(t, r, http.MethodPost, "/users"); rr.Code != http.StatusOK {
		t.Errorf("POST /users: got %d want 200", rr.Code)
	}
	if rr := serve(t, r, http.MethodPost, "/hello"); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /hello: got %d want 405", rr.Code)
	}
}

func TestRouter_NotFound(t *testing.T) {
	rr := serve(t, newRouter(), http.MethodGet, "/not-registered")
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestRouter_Param(t *testing.T) {
	r := newRouter()
	r.Get("/bindings/{id}", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(inspect.Param(req, "id")))
	})

	rr := serve(t, r, http.MethodGet, "/bindings/42")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d want 200", rr.Code)
	}
	if rr.Body.String() != "42" {
		t.Errorf("got body %q want %q", rr.Body.String(), "42")
	}
}

func TestRouter_Prefix(t *testing.T) {
	r := newRouter()
	r.Prefix("/api/v1", func(api *inspect.Router) {
		api.Get("/resources", okHandler)
	})

	if rr := serve(t, r, http.MethodGet, "/api/v1/resources"); rr.Code != http.StatusOK {
		t.Errorf("GET /api/v1/resources: got %d want 200", rr.Code)
	}
	if rr := serve(t, r, http.MethodGet, "/resources"); rr.Code != http.StatusNotFound {
		t.Errorf("GET /resources: expected 404, got %d", rr.Code)
	}
}

func TestRouter_Group_Middleware(t *testing.T) {
	called := false
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			next.ServeHTTP(w, r)
		})
	}

	r := newRouter()
	r.Group(func(g *inspect.Router) {
		g.Middleware(mw)
		g.Get("/protected", okHandler)
	})
	r.Get("/open", okHandler)

	serve(t, r, http.MethodGet, "/open")
	if called {
		t.Error("middleware ran outside its group")
	}
	serve(t, r, http.MethodGet, "/protected")
	if !called {
		t.Error("expected middleware to be called")
	}
}

func TestRouter_RecoversPanics(t *testing.T) {
	r := newRouter()
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	if rr := serve(t, r, http.MethodGet, "/boom"); rr.Code != http.StatusInternalServerError {
		t.Errorf("got %d want 500", rr.Code)
	}
}

// ── Request ──────────────────────────────────────────────────────────────────

func TestRequest_Bind(t *testing.T) {
	type body struct {
		Name string `json:"name" yaml:"name"`
	}

	tests := []struct {
		name        string
		contentType string
		payload     string
		want        string
		wantErr     bool
	}{
		{"json", "application/json", `{"name":"Ada"}`, "Ada", false},
		{"yaml", "application/yaml", "name: Ada\n", "Ada", false},
		{"text/yaml", "text/yaml; charset=utf-8", "name: Bob\n", "Bob", false},
		{"empty", "application/json", "", "", true},
		{"invalid json", "application/json", `{bad json}`, "", true},
		{"invalid yaml", "application/yaml", "name: [", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))
			raw.Header.Set("Content-Type", tt.contentType)

			var got body
			err := inspect.NewRequest(raw).Bind(&got)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Bind error: %v", err)
			}
			if got.Name != tt.want {
				t.Errorf("Name: got %q want %q", got.Name, tt.want)
			}
		})
	}
}

func TestRequest_Query(t *testing.T) {
	req := inspect.NewRequest(httptest.NewRequest(http.MethodGet, "/?kind=listener", nil))

	if got := req.Query("kind"); got != "listener" {
		t.Errorf("Query: got %q want listener", got)
	}
	if got := req.Query("missing", "property"); got != "property" {
		t.Errorf("Query fallback: got %q want property", got)
	}
}

// ── Response ─────────────────────────────────────────────────────────────────

func decodeRecorder(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return m
}

func TestResponse_Envelopes(t *testing.T) {
	rr := httptest.NewRecorder()
	inspect.NewResponse(rr).Success(map[string]any{"id": float64(1)})
	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q want application/json", ct)
	}
	data, ok := decodeRecorder(t, rr)["data"].(map[string]any)
	if !ok || data["id"] != float64(1) {
		t.Errorf("data envelope: got %v", data)
	}

	rr = httptest.NewRecorder()
	inspect.NewResponse(rr).ErrorWithCode(http.StatusBadRequest, "nope", 207)
	m := decodeRecorder(t, rr)
	if rr.Code != http.StatusBadRequest || m["message"] != "nope" || m["code"] != float64(207) {
		t.Errorf("error envelope: got %d %v", rr.Code, m)
	}

	rr = httptest.NewRecorder()
	inspect.NewResponse(rr).NotFound()
	if m := decodeRecorder(t, rr); rr.Code != http.StatusNotFound || m["message"] != "Not found." {
		t.Errorf("not found: got %d %v", rr.Code, m)
	}
}

func TestValidate(t *testing.T) {
	type input struct {
		Mode string `json:"mode" validate:"required,oneof=oneTime toView fromView twoWay"`
	}

	if bag := inspect.Validate(&input{Mode: "twoWay"}); bag != nil {
		t.Fatalf("expected no errors, got %v", bag.Bag)
	}

	bag := inspect.Validate(&input{})
	if bag == nil || !bag.Has() {
		t.Fatal("expected errors")
	}
	if got := bag.First("mode"); got != "The mode field is required." {
		t.Errorf("First: got %q", got)
	}

	bag = inspect.Validate(&input{Mode: "sometimes"})
	if got := bag.First("mode"); got != "The mode field must be one of: oneTime toView fromView twoWay." {
		t.Errorf("First: got %q", got)
	}

	rr := httptest.NewRecorder()
	inspect.NewResponse(rr).ValidationError(bag)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d want 422", rr.Code)
	}
	errs, _ := decodeRecorder(t, rr)["errors"].(map[string]any)
	if _, ok := errs["mode"]; !ok {
		t.Errorf("errors bag missing mode: %v", errs)
	}
}
