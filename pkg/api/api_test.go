package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lemonberrylabs/calc/pkg/store"
)

func setupTestServer(t *testing.T, opts Options) (*Server, *store.Store) {
	t.Helper()
	s := store.New(0)
	return New(s, opts), s
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode response %q: %v", raw, err)
		}
	}
	return resp.StatusCode, out
}

func errorStatus(t *testing.T, body map[string]any) string {
	t.Helper()
	e, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error envelope, got %v", body)
	}
	return e["status"].(string)
}

func TestHealthz(t *testing.T) {
	srv, _ := setupTestServer(t, Options{})

	code, body := doJSON(t, srv, "GET", "/healthz", nil)
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
}

func TestCreateEvaluation(t *testing.T) {
	srv, s := setupTestServer(t, Options{})

	code, body := doJSON(t, srv, "POST", "/v1/evaluations", map[string]string{"expression": "2 + 3 * 4"})
	if code != 200 {
		t.Fatalf("expected 200, got %d: %v", code, body)
	}
	if body["name"] != "evaluations/eval-1" {
		t.Errorf("unexpected name: %v", body["name"])
	}
	if body["state"] != "SUCCEEDED" {
		t.Errorf("expected SUCCEEDED, got %v", body["state"])
	}
	if body["result"] != 14.0 {
		t.Errorf("expected result 14, got %v", body["result"])
	}
	if _, ok := body["error"]; ok {
		t.Errorf("unexpected error field: %v", body["error"])
	}
	if len(s.List()) != 1 {
		t.Errorf("expected 1 stored evaluation, got %d", len(s.List()))
	}
}

func TestCreateEvaluationFailureIsRecorded(t *testing.T) {
	srv, s := setupTestServer(t, Options{})

	code, body := doJSON(t, srv, "POST", "/v1/evaluations", map[string]string{"expression": "1 / 0"})
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["state"] != "FAILED" {
		t.Fatalf("expected FAILED, got %v", body["state"])
	}
	e := body["error"].(map[string]any)
	if e["kind"] != "DivideByZero" {
		t.Errorf("unexpected kind: %v", e["kind"])
	}
	if e["message"] != "calc: attempted to divide by zero" {
		t.Errorf("unexpected message: %v", e["message"])
	}
	if _, ok := body["result"]; ok {
		t.Error("failed evaluation should not carry a result")
	}
	if s.Stats().Failed != 1 {
		t.Errorf("expected 1 failed evaluation, got %d", s.Stats().Failed)
	}
}

func TestCreateEvaluationStrict(t *testing.T) {
	srv, _ := setupTestServer(t, Options{Strict: true})

	_, body := doJSON(t, srv, "POST", "/v1/evaluations", map[string]string{"expression": "1 + 2)"})
	if body["state"] != "FAILED" {
		t.Fatalf("expected FAILED in strict mode, got %v", body["state"])
	}
	e := body["error"].(map[string]any)
	if e["message"] != "calc: unexpected end of input token: CloseParen" {
		t.Errorf("unexpected message: %v", e["message"])
	}
}

func TestCreateEvaluationInfiniteResult(t *testing.T) {
	srv, _ := setupTestServer(t, Options{})

	_, body := doJSON(t, srv, "POST", "/v1/evaluations", map[string]string{"expression": "10 ** 400"})
	if body["result"] != "+Inf" {
		t.Errorf("expected +Inf as text, got %v", body["result"])
	}
}

func TestCreateEvaluationInvalidRequests(t *testing.T) {
	srv, s := setupTestServer(t, Options{MaxExpressionLength: 10})

	tests := []struct {
		name    string
		body    any
		message string
	}{
		{"missing expression", map[string]string{}, "expression is required"},
		{"too long", map[string]string{"expression": strings.Repeat("1+", 10) + "1"}, "the limit is 10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := doJSON(t, srv, "POST", "/v1/evaluations", tt.body)
			if code != 400 {
				t.Fatalf("expected 400, got %d", code)
			}
			if got := errorStatus(t, body); got != "INVALID_ARGUMENT" {
				t.Errorf("expected INVALID_ARGUMENT, got %s", got)
			}
			msg := body["error"].(map[string]any)["message"].(string)
			if !strings.Contains(msg, tt.message) {
				t.Errorf("expected message containing %q, got %q", tt.message, msg)
			}
		})
	}

	if len(s.List()) != 0 {
		t.Errorf("rejected requests must not be recorded, got %d", len(s.List()))
	}
}

func TestCreateEvaluationMalformedBody(t *testing.T) {
	srv, _ := setupTestServer(t, Options{})

	req := httptest.NewRequest("POST", "/v1/evaluations", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetListDeleteEvaluations(t *testing.T) {
	srv, _ := setupTestServer(t, Options{})

	doJSON(t, srv, "POST", "/v1/evaluations", map[string]string{"expression": "1 + 1"})
	doJSON(t, srv, "POST", "/v1/evaluations", map[string]string{"expression": "2 ** 10"})

	code, body := doJSON(t, srv, "GET", "/v1/evaluations/eval-2", nil)
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["result"] != 1024.0 {
		t.Errorf("expected 1024, got %v", body["result"])
	}

	_, body = doJSON(t, srv, "GET", "/v1/evaluations", nil)
	items := body["evaluations"].([]any)
	if len(items) != 2 {
		t.Fatalf("expected 2 evaluations, got %d", len(items))
	}
	if items[0].(map[string]any)["name"] != "evaluations/eval-2" {
		t.Errorf("expected newest first, got %v", items[0])
	}

	code, _ = doJSON(t, srv, "DELETE", "/v1/evaluations/eval-1", nil)
	if code != 200 {
		t.Fatalf("expected 200 on delete, got %d", code)
	}

	code, body = doJSON(t, srv, "GET", "/v1/evaluations/eval-1", nil)
	if code != 404 {
		t.Fatalf("expected 404, got %d", code)
	}
	if got := errorStatus(t, body); got != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND, got %s", got)
	}

	code, _ = doJSON(t, srv, "DELETE", "/v1/evaluations/eval-1", nil)
	if code != 404 {
		t.Errorf("expected 404 deleting twice, got %d", code)
	}

	code, _ = doJSON(t, srv, "DELETE", "/v1/evaluations", nil)
	if code != 200 {
		t.Fatalf("expected 200 on clear, got %d", code)
	}
	_, body = doJSON(t, srv, "GET", "/v1/evaluations", nil)
	if items := body["evaluations"].([]any); len(items) != 0 {
		t.Errorf("expected empty history after clear, got %d", len(items))
	}
}

func TestTokenize(t *testing.T) {
	srv, _ := setupTestServer(t, Options{})

	code, body := doJSON(t, srv, "POST", "/v1/tokens", map[string]string{"expression": "(1.5 << 2)"})
	if code != 200 {
		t.Fatalf("expected 200, got %d: %v", code, body)
	}
	tokens := body["tokens"].([]any)
	wantTypes := []string{"OpenParen", "Number", "LShift", "Number", "CloseParen"}
	if len(tokens) != len(wantTypes) {
		t.Fatalf("expected %d tokens, got %d", len(wantTypes), len(tokens))
	}
	for i, want := range wantTypes {
		tok := tokens[i].(map[string]any)
		if tok["type"] != want {
			t.Errorf("token %d: expected %s, got %v", i, want, tok["type"])
		}
	}
	num := tokens[1].(map[string]any)
	if num["value"] != 1.5 || num["pos"] != 1.0 {
		t.Errorf("unexpected number token: %v", num)
	}
	if _, ok := tokens[2].(map[string]any)["value"]; ok {
		t.Error("operator tokens should not carry a value")
	}
}

func TestTokenizeError(t *testing.T) {
	srv, _ := setupTestServer(t, Options{})

	code, body := doJSON(t, srv, "POST", "/v1/tokens", map[string]string{"expression": "1 < 2"})
	if code != 400 {
		t.Fatalf("expected 400, got %d", code)
	}
	e := body["error"].(map[string]any)
	if e["kind"] != "InvalidOperator" {
		t.Errorf("unexpected kind: %v", e["kind"])
	}
	if e["message"] != "calc: invalid operator: <" {
		t.Errorf("unexpected message: %v", e["message"])
	}
}
