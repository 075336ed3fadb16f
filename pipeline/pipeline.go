// Package pipeline drives a translation run: it discovers English
// localization files under the game's localization root, pushes each
// one through header rewrite, chunking, per-segment translation,
// reassembly, and reindentation, then writes BOM-prefixed output into
// a mirrored directory tree.
//
// Files are independent: a terminal failure aborts its own file and
// the run moves on to the next one.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/victoria3-tools/v3loc/bom"
	"github.com/victoria3-tools/v3loc/chunk"
	"github.com/victoria3-tools/v3loc/config"
	"github.com/victoria3-tools/v3loc/langfile"
	"github.com/victoria3-tools/v3loc/langmeta"
	"github.com/victoria3-tools/v3loc/modmeta"
	"github.com/victoria3-tools/v3loc/paradoxfile"
	"github.com/victoria3-tools/v3loc/translate"
)

// Translator is the external transformation service as the pipeline
// sees it. *translate.Client satisfies it; tests inject fakes.
type Translator interface {
	TranslateSegment(ctx context.Context, systemPrompt, segment string) (string, error)
	NativeLanguageName(ctx context.Context, lang string) (string, error)
}

// Pipeline owns one translation run. Instances share nothing, so
// separate runs may proceed in parallel.
type Pipeline struct {
	target     string
	inputRoot  string
	outputRoot string
	budget     int
	model      string

	translator Translator
	counter    chunk.Counter
	prompt     string
	log        zerolog.Logger
}

// New assembles a pipeline for one target language.
func New(cfg config.Config, target, inputRoot, outputRoot string, tr Translator, counter chunk.Counter, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		target:     target,
		inputRoot:  inputRoot,
		outputRoot: outputRoot,
		budget:     cfg.TokensPerChunk,
		model:      cfg.Model,
		translator: tr,
		counter:    counter,
		prompt:     translate.SystemPrompt(langmeta.Resolve(target).Name),
		log:        log,
	}
}

// Summary reports the outcome of a run.
type Summary struct {
	Translated int
	Failed     int
}

// ---------------------------------------------------------------------------
// File discovery and output layout
// ---------------------------------------------------------------------------

// Discover lists English localization files under root's localization
// directory, in walk order.
func Discover(root string) ([]string, error) {
	locDir := filepath.Join(root, "localization")
	info, err := os.Stat(locDir)
	if err != nil {
		return nil, fmt.Errorf("localization directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", locDir)
	}

	var files []string
	err = filepath.Walk(locDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, "_english.yml") || strings.HasSuffix(path, "_english.yaml") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", locDir, err)
	}
	return files, nil
}

// OutputPath maps an input file to its mirrored location under
// outputRoot, replacing "english" with the target language in both
// directory names and the file name.
func OutputPath(inputPath, inputRoot, outputRoot, target string) (string, error) {
	relDir, err := filepath.Rel(inputRoot, filepath.Dir(inputPath))
	if err != nil {
		return "", fmt.Errorf("relativizing %s: %w", inputPath, err)
	}

	parts := strings.Split(relDir, string(filepath.Separator))
	for i, part := range parts {
		if part == "english" {
			parts[i] = target
		}
	}

	name := filepath.Base(inputPath)
	name = strings.ReplaceAll(name, "l_english", "l_"+target)
	name = strings.ReplaceAll(name, "_english.", "_"+target+".")

	return filepath.Join(append(append([]string{outputRoot}, parts...), name)...), nil
}

// ---------------------------------------------------------------------------
// Per-file translation
// ---------------------------------------------------------------------------

// TranslateText runs the full text transformation for one document:
// header rewrite, token-budgeted chunking, one service call per
// segment, reassembly, reindentation.
func (p *Pipeline) TranslateText(ctx context.Context, text string) (string, error) {
	text = strings.TrimPrefix(text, "\xef\xbb\xbf")
	text = paradoxfile.RewriteLanguage(text, config.SourceLanguage, p.target)

	segments := chunk.Split(text, p.budget, p.counter)
	translated := make([]string, 0, len(segments))

	for i, segment := range segments {
		cost := p.counter.Count(segment)
		if cost > p.budget {
			// A single line can exceed the budget; it is sent anyway
			// and the service may truncate it.
			p.log.Warn().Int("segment", i).Int("tokens", cost).
				Msg("segment exceeds token budget")
		}
		p.log.Info().
			Int("segment", i+1).
			Int("segments", len(segments)).
			Int("tokens", cost).
			Msg("translating segment")

		out, err := p.translator.TranslateSegment(ctx, p.prompt, segment)
		if err != nil {
			return "", &translate.ServiceError{Segment: i, Err: err}
		}
		translated = append(translated, out)
	}

	out := paradoxfile.Reindent(chunk.Join(translated), p.target)
	// Segments come back stripped, which can eat the final newline.
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out, nil
}

// TranslateFile translates one input file and writes the mirrored,
// BOM-prefixed output. Returns the output path.
func (p *Pipeline) TranslateFile(ctx context.Context, inputPath string) (string, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", inputPath, err)
	}
	text, err := decode(data, inputPath)
	if err != nil {
		return "", err
	}

	translated, err := p.TranslateText(ctx, text)
	if err != nil {
		return "", fmt.Errorf("translating %s: %w", inputPath, err)
	}

	outPath, err := OutputPath(inputPath, p.inputRoot, p.outputRoot, p.target)
	if err != nil {
		return "", err
	}
	if err := writeBOMFile(outPath, translated); err != nil {
		return "", err
	}

	if err := checkGenericYAML(translated); err != nil {
		// False positives are expected: the dialect is not YAML.
		p.log.Warn().Str("file", outPath).Err(err).
			Msg("output fails generic YAML re-check")
	}
	return outPath, nil
}

// decode validates the input bytes as UTF-8 and strips the BOM.
func decode(data []byte, path string) (string, error) {
	data = bom.Strip(data)
	if !utf8.Valid(data) {
		return "", &paradoxfile.EncodingError{Path: path}
	}
	return string(data), nil
}

func writeBOMFile(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, bom.Prefix([]byte(text)), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// checkGenericYAML parses text with a standard YAML parser. The
// dialect legitimately diverges from YAML, so a failure is only a
// warning signal.
func checkGenericYAML(text string) error {
	var v any
	return yaml.Unmarshal([]byte(text), &v)
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

// Run translates every English localization file, generates the mod
// metadata example, and updates the languages registry. Per-file
// failures are logged and skipped; Run fails only when the input tree
// itself is unusable.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	files, err := Discover(p.inputRoot)
	if err != nil {
		return Summary{}, err
	}

	var sum Summary
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		p.log.Info().Str("file", path).Msg("translating file")
		outPath, err := p.TranslateFile(ctx, path)
		if err != nil {
			sum.Failed++
			p.log.Error().Str("file", path).Err(err).Msg("file failed, skipping")
			continue
		}
		sum.Translated++
		p.log.Info().Str("file", outPath).Msg("saved")
	}

	if written, err := modmeta.WriteExample(p.outputRoot, p.target, p.model); err != nil {
		p.log.Error().Err(err).Msg("writing mod metadata")
	} else if written {
		p.log.Info().Str("file", modmeta.ExamplePath(p.outputRoot)).Msg("generated mod metadata example")
	}

	if err := p.UpdateLanguages(ctx); err != nil {
		p.log.Error().Err(err).Msg("updating languages registry")
	}
	return sum, nil
}

// ---------------------------------------------------------------------------
// Languages registry
// ---------------------------------------------------------------------------

// UpdateLanguages extends localization/languages.yml with the target
// language and writes the result to the output tree. When the target
// is already registered the input file is copied through unchanged.
func (p *Pipeline) UpdateLanguages(ctx context.Context) error {
	inPath := filepath.Join(p.inputRoot, "localization", "languages.yml")
	outPath := filepath.Join(p.outputRoot, "localization", "languages.yml")

	doc, err := paradoxfile.ParseFile(inPath)
	if err != nil {
		return err
	}

	if langfile.Contains(doc, p.target) {
		p.log.Warn().Str("language", p.target).Msg("already in languages registry, copying through")
		return writeBOMFile(outPath, doc.Marshal())
	}

	native, err := p.nativeName(ctx)
	if err != nil {
		return err
	}
	if err := langfile.AddLanguage(doc, p.target, native); err != nil {
		return err
	}
	return writeBOMFile(outPath, doc.Marshal())
}

// nativeName resolves the target language's native name through the
// service, falling back to the built-in registry when the service
// fails for a known language.
func (p *Pipeline) nativeName(ctx context.Context) (string, error) {
	native, err := p.translator.NativeLanguageName(ctx, p.target)
	if err == nil {
		return native, nil
	}
	if langmeta.Known(p.target) {
		p.log.Warn().Err(err).Str("language", p.target).
			Msg("native name lookup failed, using built-in registry")
		return langmeta.Resolve(p.target).Native, nil
	}
	return "", err
}
