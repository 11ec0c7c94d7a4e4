package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/docsplit/internal/chunker"
	"github.com/dgallion1/docsplit/internal/doctree"
	"github.com/dgallion1/docsplit/internal/export"
	"github.com/dgallion1/docsplit/internal/index"
	"github.com/dgallion1/docsplit/internal/llm"
	"github.com/dgallion1/docsplit/internal/pipeline"
)

const guide = "# Guide\n\nDet er en god dag. Vi skriver kode.\n\n## Install\n\nKør programmet med go run.\n"

// run executes the root command with args and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--no-color"}, args...))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "docsplit dev\n" {
		t.Errorf("expected version line, got %q", out)
	}
}

func TestSections(t *testing.T) {
	path := writeFile(t, t.TempDir(), "guide.md", guide)
	out, _, err := run(t, "sections", path)
	if err != nil {
		t.Fatal(err)
	}
	want := "# Guide (8 words)\n  ## Install (5 words)\n"
	if out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
}

func TestSections_Markdown(t *testing.T) {
	path := writeFile(t, t.TempDir(), "guide.md", guide)
	out, _, err := run(t, "sections", "--markdown", path)
	if err != nil {
		t.Fatal(err)
	}
	if out != guide {
		t.Errorf("expected round trip %q, got %q", guide, out)
	}
}

func TestSections_Malformed(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.md", "Intro\n# A\n")
	_, _, err := run(t, "sections", path)
	if err == nil || !strings.Contains(err.Error(), "must be a heading") {
		t.Errorf("expected structure error, got %v", err)
	}
}

func TestChunk_Stdout(t *testing.T) {
	path := writeFile(t, t.TempDir(), "guide.md", guide)
	out, _, err := run(t, "chunk", path)
	if err != nil {
		t.Fatal(err)
	}
	var set doctree.ChunkSet
	if err := json.Unmarshal([]byte(out), &set); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if set.Method != doctree.MethodParagraph || set.Len() != 2 {
		t.Errorf("expected 2 paragraph chunks, got %s/%d", set.Method, set.Len())
	}
}

func TestChunk_NaiveFlags(t *testing.T) {
	path := writeFile(t, t.TempDir(), "guide.md", guide)
	out, _, err := run(t, "chunk", "--method", "naive", "--max-size", "4", "--overlap", "2", path)
	if err != nil {
		t.Fatal(err)
	}
	var set doctree.ChunkSet
	if err := json.Unmarshal([]byte(out), &set); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	want := []string{"Det er en god", "en god dag. Vi", "dag. Vi skriver kode.", "Kør programmet med go", "med go run."}
	if set.Len() != len(want) {
		t.Fatalf("expected %d windows, got %d", len(want), set.Len())
	}
	for i, c := range set.Chunks {
		if c.Text != want[i] {
			t.Errorf("window %d: expected %q, got %q", i, want[i], c.Text)
		}
	}
}

func TestChunk_InvalidOverlap(t *testing.T) {
	path := writeFile(t, t.TempDir(), "guide.md", guide)
	_, _, err := run(t, "chunk", "--method", "naive", "--max-size", "4", "--overlap", "4", path)
	if !errors.Is(err, chunker.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestChunk_OutDirSkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "guide.md", guide)
	bad := writeFile(t, dir, "bad.md", "Intro\n# A\n")
	outDir := filepath.Join(dir, "out")

	_, stderr, err := run(t, "chunk", "--out", outDir, "--format", "csv", "--jobs", "2", good, bad)
	if err != nil {
		t.Fatal(err)
	}
	set, err := export.LoadChunkSet(filepath.Join(outDir, "guide.chunks.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if set.Len() != 2 {
		t.Errorf("expected 2 chunks, got %d", set.Len())
	}
	if _, err := os.Stat(filepath.Join(outDir, "bad.chunks.csv")); !os.IsNotExist(err) {
		t.Errorf("expected no output for the malformed file, got %v", err)
	}
	if !strings.Contains(stderr, "skipping malformed document") {
		t.Errorf("expected a warning for the malformed file, got %q", stderr)
	}
}

func TestChunk_MissingFileFails(t *testing.T) {
	_, _, err := run(t, "chunk", filepath.Join(t.TempDir(), "missing.md"))
	if err == nil || !strings.Contains(err.Error(), "1 of 1 files failed") {
		t.Errorf("expected a failure count, got %v", err)
	}
}

func TestSearch_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "guide.md", guide)
	out, _, err := run(t, "--json", "search", path, "programmet", "-k", "1")
	if err != nil {
		t.Fatal(err)
	}
	var res index.SearchResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(res.Matches) != 1 || res.Matches[0].Text != "Kør programmet med go run." {
		t.Errorf("expected the install chunk, got %+v", res.Matches)
	}
}

func TestSearch_Text(t *testing.T) {
	path := writeFile(t, t.TempDir(), "guide.md", guide)
	out, _, err := run(t, "search", path, "kode")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "1. [") || !strings.Contains(out, "Vi skriver kode.") {
		t.Errorf("unexpected output %q", out)
	}
}

// claudeServer fakes the Anthropic messages endpoint and replies with the
// context block it was sent.
func claudeServer(t *testing.T) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			System   string        `json:"system"`
			Messages []llm.Message `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) != 1 {
			t.Errorf("unexpected request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.System != llm.SystemPrompt {
			t.Errorf("expected the system prompt, got %q", req.System)
		}
		ctxBlock := strings.SplitN(req.Messages[0].Content, "\n\n## Question:", 2)[0]
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": strings.TrimPrefix(ctxBlock, "## Context:\n")}},
		})
	}))
	t.Cleanup(srv.Close)
	t.Setenv("DOCSPLIT_LLM_PROVIDER", "anthropic")
	t.Setenv("DOCSPLIT_LLM_API_KEY", "test-key")
	t.Setenv("DOCSPLIT_LLM_BASE_URL", srv.URL)
}

func TestAsk(t *testing.T) {
	claudeServer(t)
	path := writeFile(t, t.TempDir(), "guide.md", guide)
	out, _, err := run(t, "ask", path, "programmet")
	if err != nil {
		t.Fatal(err)
	}
	if out != "Kør programmet med go run.\n" {
		t.Errorf("expected the install chunk echoed back, got %q", out)
	}
}

func TestAsk_JSON(t *testing.T) {
	claudeServer(t)
	path := writeFile(t, t.TempDir(), "guide.md", guide)
	out, _, err := run(t, "--json", "ask", path, "programmet kode")
	if err != nil {
		t.Fatal(err)
	}
	var ans pipeline.Answer
	if err := json.Unmarshal([]byte(out), &ans); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(ans.Chunks) != 2 {
		t.Fatalf("expected 2 context chunks, got %d", len(ans.Chunks))
	}
	want := ans.Chunks[0].Text + llm.ContextSeparator + ans.Chunks[1].Text
	if ans.Answer != want {
		t.Errorf("expected answer %q, got %q", want, ans.Answer)
	}
}

func TestAsk_Errors(t *testing.T) {
	path := writeFile(t, t.TempDir(), "guide.md", guide)
	if _, _, err := run(t, "ask", path, "programmet"); err == nil || !strings.Contains(err.Error(), "llm.provider") {
		t.Errorf("expected a missing provider error, got %v", err)
	}

	claudeServer(t)
	if _, _, err := run(t, "ask", path, "vejret"); !errors.Is(err, llm.ErrNoContext) {
		t.Errorf("expected ErrNoContext, got %v", err)
	}
}

func TestEval(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "guide.md", guide)
	questions := writeFile(t, dir, "questions.yaml", `- question: programmet
  phrases: ["go run"]
- question: vejret
  phrases: ["regn"]
`)
	out, _, err := run(t, "--json", "eval", path, questions, "-k", "1,3")
	if err != nil {
		t.Fatal(err)
	}
	var res evalOutput
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(res.KValues) != 2 || res.KValues[0] != 1 || res.KValues[1] != 3 {
		t.Errorf("expected cutoffs [1 3], got %v", res.KValues)
	}
	if len(res.Queries) != 2 {
		t.Fatalf("expected 2 queries, got %d", len(res.Queries))
	}
	first := res.Queries[0]
	if len(first.RelevantChunkIDs) != 1 || len(first.Retrieved) != 1 || first.Retrieved[0].ChunkID != first.RelevantChunkIDs[0] {
		t.Errorf("expected the install chunk judged and retrieved, got %+v", first)
	}

	want := map[string]float64{
		"Reciprocal Rank@1": 0.5,
		"Reciprocal Rank@3": 0.5,
		"Recall@3":          0.5,
		"MAP@3":             0.5,
		"NDCG@3":            0.5,
		"Precision@1":       0.5,
		"Precision@3":       1.0 / 6,
	}
	for name, w := range want {
		if got := res.Mean[name]; math.Abs(got-w) > 1e-9 {
			t.Errorf("%s: expected %.4f, got %.4f", name, w, got)
		}
	}
}

func TestEval_ChunkIDJudgments(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "guide.md", guide)
	out, _, err := run(t, "chunk", path)
	if err != nil {
		t.Fatal(err)
	}
	var set doctree.ChunkSet
	if err := json.Unmarshal([]byte(out), &set); err != nil {
		t.Fatal(err)
	}
	questions := writeFile(t, dir, "questions.yaml", "- question: kode programmet\n  relevant_chunk_ids: [\""+set.Chunks[0].ID+"\"]\n")

	out, _, err = run(t, "eval", path, questions, "--k-values", "1,2")
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"MAP", "NDCG", "Recall", "Precision", "Reciprocal Rank", "@1", "@2", "(1 questions)"} {
		if !strings.Contains(out, s) {
			t.Errorf("expected %q in report %q", s, out)
		}
	}
}

func TestEval_InvalidCutoff(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "guide.md", guide)
	questions := writeFile(t, dir, "questions.yaml", "- question: q\n")
	if _, _, err := run(t, "eval", path, questions, "-k", "0,3"); err == nil || !strings.Contains(err.Error(), "positive") {
		t.Errorf("expected a cutoff error, got %v", err)
	}
}

func TestLoadQuestions_Empty(t *testing.T) {
	path := writeFile(t, t.TempDir(), "q.yaml", "[]\n")
	if _, err := loadQuestions(path); err == nil {
		t.Error("expected an error for an empty question list")
	}
}

func TestUnsupportedLanguage(t *testing.T) {
	t.Setenv("DOCSPLIT_LANGUAGE", "klingon")
	path := writeFile(t, t.TempDir(), "guide.md", guide)
	_, _, err := run(t, "chunk", path)
	if err == nil || !strings.Contains(err.Error(), "unsupported language") {
		t.Errorf("expected unsupported language error, got %v", err)
	}
}
