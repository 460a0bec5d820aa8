package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/murmur/internal/config"
	"github.com/hpungsan/murmur/internal/db"
	"github.com/hpungsan/murmur/internal/logging"
	"github.com/hpungsan/murmur/internal/ops"
	"github.com/hpungsan/murmur/internal/rag"
)

const planningTranscript = `{
  "title": "Planning",
  "date": "2026-03-02",
  "speakers": [{"id": "s1", "name": "Alice"}, {"id": "s2", "name": "Bob"}],
  "segments": [
    {"speaker_id": "s1", "text": "Budget approved.", "start_time": 0, "end_time": 3},
    {"speaker_id": "s2", "text": "Launch slips a week.", "start_time": 75, "end_time": 80}
  ]
}`

type lengthEmbedder struct{}

func (lengthEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1}, nil
}

func (lengthEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

// markdownChat answers in markdown and summarizes with a fixed JSON object.
type markdownChat struct{}

func (markdownChat) Complete(_ context.Context, _ []rag.Message, opts rag.CompleteOptions) (string, error) {
	if opts.JSONMode {
		return `{"keyPoints": ["Budget"], "actionItems": [], "decisions": ["Ship later"], "fullSummary": "**Budget** approved."}`, nil
	}
	return "The **budget** was approved.", nil
}

func setupTest(t *testing.T) (http.Handler, *ops.Pipeline) {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.EmbedBatchDelayMs = 0
	cfg.UpsertBatchDelayMs = 0
	p := ops.NewPipeline(database, cfg, lengthEmbedder{}, markdownChat{}, logging.Discard())

	return NewServer(p, "test", "127.0.0.1", 0).Handler, p
}

// seedMeeting imports the planning transcript and returns its ID.
func seedMeeting(t *testing.T, p *ops.Pipeline) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "planning.json")
	if err := os.WriteFile(path, []byte(planningTranscript), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	out, err := ops.Import(p.DB, ops.ImportInput{Path: path})
	if err != nil {
		t.Fatalf("seed meeting: %v", err)
	}
	return out.ID
}

func do(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rec.Body.String(), err)
	}
	return out
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	errObj, ok := decodeJSON(t, rec)["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error object in %s", rec.Body.String())
	}
	if errObj["code"] != code {
		t.Errorf("code = %v, want %s", errObj["code"], code)
	}
}

// --- meetings ---

func TestHandleList(t *testing.T) {
	handler, p := setupTest(t)
	seedMeeting(t, p)

	rec := do(t, handler, "GET", "/meetings?limit=notanumber", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	out := decodeJSON(t, rec)
	items := out["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	if items[0].(map[string]any)["title"] != "Planning" {
		t.Errorf("title = %v", items[0].(map[string]any)["title"])
	}
}

func TestHandleDetail(t *testing.T) {
	handler, p := setupTest(t)
	id := seedMeeting(t, p)

	rec := do(t, handler, "GET", "/meetings/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if _, ok := decodeJSON(t, rec)["transcript"]; !ok {
		t.Error("expected transcript in detail response")
	}

	rec = do(t, handler, "GET", "/meetings/"+id+"?include_transcript=false", "")
	if _, ok := decodeJSON(t, rec)["transcript"]; ok {
		t.Error("transcript should be omitted")
	}

	assertError(t, do(t, handler, "GET", "/meetings/01NOPE", ""), http.StatusNotFound, "NOT_FOUND")
}

func TestHandleDelete(t *testing.T) {
	handler, p := setupTest(t)
	id := seedMeeting(t, p)

	rec := do(t, handler, "DELETE", "/meetings/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if decodeJSON(t, rec)["deleted"] != true {
		t.Error("deleted = false, want true")
	}
	assertError(t, do(t, handler, "DELETE", "/meetings/"+id, ""), http.StatusNotFound, "NOT_FOUND")
}

// --- RAG ---

func TestHandleIndex(t *testing.T) {
	handler, p := setupTest(t)
	id := seedMeeting(t, p)

	rec := do(t, handler, "POST", "/meetings/"+id+"/embeddings", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if decodeJSON(t, rec)["chunks"] != float64(2) {
		t.Errorf("chunks = %v, want 2", decodeJSON(t, rec)["chunks"])
	}

	rec = do(t, handler, "POST", "/meetings/"+id+"/embeddings", "")
	if decodeJSON(t, rec)["skipped"] != true {
		t.Error("second index should be skipped")
	}

	rec = do(t, handler, "POST", "/meetings/"+id+"/embeddings", `{"force": true}`)
	out := decodeJSON(t, rec)
	if out["skipped"] != false || out["forced"] != true {
		t.Errorf("forced index = %v", out)
	}
}

func TestHandleAsk(t *testing.T) {
	handler, p := setupTest(t)
	id := seedMeeting(t, p)

	rec := do(t, handler, "POST", "/meetings/"+id+"/chat", `{"query": "What about the budget?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	out := decodeJSON(t, rec)
	if out["answer"] != "The **budget** was approved." {
		t.Errorf("answer = %v", out["answer"])
	}
	if html, _ := out["answer_html"].(string); !strings.Contains(html, "<strong>budget</strong>") {
		t.Errorf("answer_html = %q", html)
	}

	rec = do(t, handler, "GET", "/meetings/"+id+"/chat", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if msgs := decodeJSON(t, rec)["messages"].([]any); len(msgs) != 2 {
		t.Errorf("messages = %d, want 2", len(msgs))
	}
}

func TestHandleAsk_BadRequests(t *testing.T) {
	handler, p := setupTest(t)
	id := seedMeeting(t, p)

	assertError(t, do(t, handler, "POST", "/meetings/"+id+"/chat", `{"query": `), http.StatusBadRequest, "INVALID_REQUEST")
	assertError(t, do(t, handler, "POST", "/meetings/"+id+"/chat", `{"question": "hi"}`), http.StatusBadRequest, "INVALID_REQUEST")
	assertError(t, do(t, handler, "POST", "/meetings/"+id+"/chat", `{"query": ""}`), http.StatusBadRequest, "INVALID_REQUEST")
	assertError(t, do(t, handler, "POST", "/meetings/01NOPE/chat", `{"query": "hi"}`), http.StatusNotFound, "NOT_FOUND")
}

func TestHandleSummary(t *testing.T) {
	handler, p := setupTest(t)
	id := seedMeeting(t, p)

	rec := do(t, handler, "GET", "/meetings/"+id+"/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	out := decodeJSON(t, rec)
	if out["generated"] != true {
		t.Errorf("generated = %v, want true", out["generated"])
	}
	if html, _ := out["full_summary_html"].(string); !strings.Contains(html, "<strong>Budget</strong>") {
		t.Errorf("full_summary_html = %q", html)
	}

	rec = do(t, handler, "GET", "/meetings/"+id+"/summary", "")
	if decodeJSON(t, rec)["generated"] != false {
		t.Error("GET should reuse the stored summary")
	}

	rec = do(t, handler, "POST", "/meetings/"+id+"/summary", "")
	if decodeJSON(t, rec)["generated"] != true {
		t.Error("POST should regenerate")
	}
}

// --- transcript edits ---

func TestHandleUpdateSpeaker(t *testing.T) {
	handler, p := setupTest(t)
	id := seedMeeting(t, p)

	rec := do(t, handler, "PUT", "/meetings/"+id+"/speakers", `{"speaker_id": "s1", "name": "Alicia", "color": "#16a34a"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if decodeJSON(t, rec)["reindexed"] != true {
		t.Error("reindexed = false, want true")
	}

	assertError(t, do(t, handler, "PUT", "/meetings/"+id+"/speakers", `{"speaker_id": "s1"}`), http.StatusBadRequest, "INVALID_REQUEST")
	assertError(t, do(t, handler, "PUT", "/meetings/"+id+"/speakers", `{"speaker_id": "s7", "name": "X"}`), http.StatusNotFound, "NOT_FOUND")
}

func TestHandleReassignSegment(t *testing.T) {
	handler, p := setupTest(t)
	id := seedMeeting(t, p)

	fetched, err := ops.Fetch(p.DB, ops.FetchInput{ID: id})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	segID := fetched.Transcript.Segments[1].ID

	rec := do(t, handler, "PUT", "/meetings/"+id+"/segments/"+segID, `{"speaker_id": "s1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	assertError(t, do(t, handler, "PUT", "/meetings/"+id+"/segments/"+segID, `{}`), http.StatusBadRequest, "INVALID_REQUEST")
}

// --- server ---

func TestSecurityHeaders(t *testing.T) {
	handler, _ := setupTest(t)

	rec := do(t, handler, "GET", "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing Content-Security-Policy")
	}
	if decodeJSON(t, rec)["version"] != "test" {
		t.Error("healthz should report the version")
	}
}

func TestRenderError_PlainErrorHidesMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	renderError(rec, os.ErrPermission)

	assertError(t, rec, http.StatusInternalServerError, "INTERNAL")
	if strings.Contains(rec.Body.String(), "permission") {
		t.Errorf("internal error leaked: %s", rec.Body.String())
	}
}

func TestRenderMarkdown(t *testing.T) {
	got := string(renderMarkdown("# Title\n\n- one\n- two"))
	for _, want := range []string{"<h1>Title</h1>", "<li>one</li>", "<li>two</li>"} {
		if !strings.Contains(got, want) {
			t.Errorf("renderMarkdown missing %q in %q", want, got)
		}
	}
}
