// Package pipeline tests.
package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/victoria3-tools/v3loc/bom"
	"github.com/victoria3-tools/v3loc/config"
	"github.com/victoria3-tools/v3loc/paradoxfile"
	"github.com/victoria3-tools/v3loc/translate"
)

// byteCost charges one token per byte for predictable chunk bounds.
type byteCost struct{}

func (byteCost) Count(text string) int { return len(text) }

// fakeTranslator mimics the service: passthrough segments, stripped of
// surrounding whitespace the way a chat model returns them. failAt
// (when >= 0) makes that segment fail terminally.
type fakeTranslator struct {
	calls      int
	failAt     int
	nativeName string
	nativeErr  error
}

func newFakeTranslator() *fakeTranslator {
	return &fakeTranslator{failAt: -1, nativeName: "Čeština"}
}

func (f *fakeTranslator) TranslateSegment(ctx context.Context, systemPrompt, segment string) (string, error) {
	i := f.calls
	f.calls++
	if f.failAt >= 0 && i == f.failAt {
		return "", errors.New("boom")
	}
	return strings.TrimSpace(segment), nil
}

func (f *fakeTranslator) NativeLanguageName(ctx context.Context, lang string) (string, error) {
	if f.nativeErr != nil {
		return "", f.nativeErr
	}
	return f.nativeName, nil
}

func testConfig() config.Config {
	return config.Config{
		APIKey:         "sk-test",
		Model:          "gpt-4o-mini",
		TokensPerChunk: 1000,
	}
}

func newTestPipeline(t *testing.T, inputRoot, outputRoot string, tr Translator, budget int) *Pipeline {
	t.Helper()
	cfg := testConfig()
	cfg.TokensPerChunk = budget
	return New(cfg, "czech", inputRoot, outputRoot, tr, byteCost{}, zerolog.Nop())
}

// ---------------------------------------------------------------------------
// TranslateText
// ---------------------------------------------------------------------------

func TestTranslateText_PassthroughScenario(t *testing.T) {
	p := newTestPipeline(t, "", "", newFakeTranslator(), 1000)

	got, err := p.TranslateText(context.Background(), "l_english:\n l_english:1 \"Hello\"\n")
	if err != nil {
		t.Fatalf("TranslateText: %v", err)
	}
	want := "l_czech:\n  l_czech:1 \"Hello\"\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTranslateText_MultipleSegments(t *testing.T) {
	tr := newFakeTranslator()
	// Budget of 20 bytes forces one line per segment.
	p := newTestPipeline(t, "", "", tr, 20)

	in := "l_english:\n a_key:0 \"Alpha\"\n b_key:0 \"Beta\"\n"
	got, err := p.TranslateText(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if tr.calls < 2 {
		t.Errorf("expected multiple segments, got %d call(s)", tr.calls)
	}
	want := "l_czech:\n  a_key:0 \"Alpha\"\n  b_key:0 \"Beta\"\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTranslateText_SegmentFailureCarriesIndex(t *testing.T) {
	tr := newFakeTranslator()
	tr.failAt = 1
	p := newTestPipeline(t, "", "", tr, 20)

	_, err := p.TranslateText(context.Background(), "l_english:\n a:0 \"A\"\n b:0 \"B\"\n")
	var serr *translate.ServiceError
	if !errors.As(err, &serr) {
		t.Fatalf("expected ServiceError, got %v", err)
	}
	if serr.Segment != 1 {
		t.Errorf("Segment = %d, want 1", serr.Segment)
	}
}

func TestTranslateText_OversizedLineStillSent(t *testing.T) {
	tr := newFakeTranslator()
	p := newTestPipeline(t, "", "", tr, 10)

	long := " big:0 \"" + strings.Repeat("x", 100) + "\"\n"
	got, err := p.TranslateText(context.Background(), "l_english:\n"+long)
	if err != nil {
		t.Fatalf("oversized line must not fail: %v", err)
	}
	if !strings.Contains(got, strings.Repeat("x", 100)) {
		t.Error("oversized line content lost")
	}
}

func TestTranslateText_StripsBOM(t *testing.T) {
	p := newTestPipeline(t, "", "", newFakeTranslator(), 1000)
	got, err := p.TranslateText(context.Background(), "\xef\xbb\xbfl_english:\n a:0 \"A\"\n")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "\xef\xbb\xbf") {
		t.Error("BOM leaked into output text")
	}
}

// ---------------------------------------------------------------------------
// Discovery and output layout
// ---------------------------------------------------------------------------

func writeInputTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"localization/english/ui_l_english.yml":    "l_english:\n ui_ok:0 \"OK\"\n",
		"localization/english/map_l_english.yaml":  "l_english:\n map_x:0 \"X\"\n",
		"localization/english/readme.txt":          "not a localization file",
		"localization/replace/goods_l_english.yml": "l_english:\n goods_iron:0 \"Iron\"\n",
		"localization/languages.yml":               "l_english:\n l_english:1 \"English\"\n l_french:1 \"Français\"\nl_french:\n l_english:1 \"Anglais\"\n l_french:1 \"Français\"\n",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestDiscover(t *testing.T) {
	root := writeInputTree(t)
	files, err := Discover(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Errorf("found %d files, want 3: %v", len(files), files)
	}
	for _, f := range files {
		if strings.HasSuffix(f, "languages.yml") || strings.HasSuffix(f, ".txt") {
			t.Errorf("unexpected file discovered: %s", f)
		}
	}
}

func TestDiscover_MissingRoot(t *testing.T) {
	if _, err := Discover(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing localization dir")
	}
}

func TestOutputPath(t *testing.T) {
	in := filepath.FromSlash("/game/localization/english/ui_l_english.yml")
	got, err := OutputPath(in, filepath.FromSlash("/game"), filepath.FromSlash("/out"), "czech")
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.FromSlash("/out/localization/czech/ui_l_czech.yml")
	if got != want {
		t.Errorf("OutputPath = %q, want %q", got, want)
	}
}

func TestOutputPath_NoEnglishDir(t *testing.T) {
	in := filepath.FromSlash("/game/localization/replace/goods_l_english.yml")
	got, err := OutputPath(in, filepath.FromSlash("/game"), filepath.FromSlash("/out"), "czech")
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.FromSlash("/out/localization/replace/goods_l_czech.yml")
	if got != want {
		t.Errorf("OutputPath = %q, want %q", got, want)
	}
}

// ---------------------------------------------------------------------------
// TranslateFile / Run
// ---------------------------------------------------------------------------

func TestTranslateFile_WritesBOMOutput(t *testing.T) {
	root := writeInputTree(t)
	out := t.TempDir()
	p := newTestPipeline(t, root, out, newFakeTranslator(), 1000)

	in := filepath.Join(root, "localization", "english", "ui_l_english.yml")
	outPath, err := p.TranslateFile(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(outPath, filepath.FromSlash("localization/czech/ui_l_czech.yml")) {
		t.Errorf("outPath = %q", outPath)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bom.Has(data) {
		t.Error("output missing BOM")
	}
	if !strings.Contains(string(bom.Strip(data)), "l_czech:") {
		t.Errorf("output content: %q", data)
	}
}

func TestTranslateFile_InvalidEncoding(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "bad_l_english.yml")
	if err := os.WriteFile(in, []byte{'a', 0xff, 0xfe}, 0644); err != nil {
		t.Fatal(err)
	}
	p := newTestPipeline(t, root, t.TempDir(), newFakeTranslator(), 1000)

	_, err := p.TranslateFile(context.Background(), in)
	var eerr *paradoxfile.EncodingError
	if !errors.As(err, &eerr) {
		t.Fatalf("expected EncodingError, got %v", err)
	}
}

func TestRun_FailedFileDoesNotAbortOthers(t *testing.T) {
	root := writeInputTree(t)
	out := t.TempDir()
	tr := newFakeTranslator()
	tr.failAt = 0 // first segment of the first file fails
	p := newTestPipeline(t, root, out, tr, 1000)

	sum, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Failed != 1 {
		t.Errorf("Failed = %d, want 1", sum.Failed)
	}
	if sum.Translated != 2 {
		t.Errorf("Translated = %d, want 2", sum.Translated)
	}
}

func TestRun_WritesMetadataAndRegistry(t *testing.T) {
	root := writeInputTree(t)
	out := t.TempDir()
	p := newTestPipeline(t, root, out, newFakeTranslator(), 1000)

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(out, ".metadata", "metadata.json.example")); err != nil {
		t.Errorf("metadata example missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "localization", "languages.yml")); err != nil {
		t.Errorf("languages.yml missing: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Languages registry
// ---------------------------------------------------------------------------

func TestUpdateLanguages_AddsTarget(t *testing.T) {
	root := writeInputTree(t)
	out := t.TempDir()
	p := newTestPipeline(t, root, out, newFakeTranslator(), 1000)

	if err := p.UpdateLanguages(context.Background()); err != nil {
		t.Fatal(err)
	}

	doc, err := paradoxfile.ParseFile(filepath.Join(out, "localization", "languages.yml"))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Len() != 3 {
		t.Fatalf("blocks = %d, want 3", doc.Len())
	}
	czech, ok := doc.Block("l_czech")
	if !ok {
		t.Fatal("l_czech block missing")
	}
	if v, _ := czech.Get("l_czech:1"); v != "Čeština" {
		t.Errorf("native name = %q", v)
	}
	english, _ := doc.Block("l_english")
	if v, _ := english.Get("l_czech:1"); v != "Čeština" {
		t.Errorf("english block native name = %q", v)
	}
}

func TestUpdateLanguages_CopyThroughWhenPresent(t *testing.T) {
	root := writeInputTree(t)
	out := t.TempDir()
	tr := newFakeTranslator()
	cfg := testConfig()
	p := New(cfg, "french", root, out, tr, byteCost{}, zerolog.Nop())

	if err := p.UpdateLanguages(context.Background()); err != nil {
		t.Fatal(err)
	}
	doc, err := paradoxfile.ParseFile(filepath.Join(out, "localization", "languages.yml"))
	if err != nil {
		t.Fatal(err)
	}
	// Unchanged: still two blocks, no duplicate french insertions.
	if doc.Len() != 2 {
		t.Errorf("blocks = %d, want 2", doc.Len())
	}
}

func TestUpdateLanguages_NativeNameFallback(t *testing.T) {
	root := writeInputTree(t)
	out := t.TempDir()
	tr := newFakeTranslator()
	tr.nativeErr = errors.New("service down")
	p := newTestPipeline(t, root, out, tr, 1000)

	if err := p.UpdateLanguages(context.Background()); err != nil {
		t.Fatalf("expected fallback to built-in registry, got %v", err)
	}
	doc, err := paradoxfile.ParseFile(filepath.Join(out, "localization", "languages.yml"))
	if err != nil {
		t.Fatal(err)
	}
	czech, _ := doc.Block("l_czech")
	if v, _ := czech.Get("l_czech:1"); v != "Čeština" {
		t.Errorf("native name = %q, want registry fallback", v)
	}
}
