// v3loc — AI translation generator for Victoria 3 localization files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/victoria3-tools/v3loc/bom"
	"github.com/victoria3-tools/v3loc/chunk"
	"github.com/victoria3-tools/v3loc/config"
	"github.com/victoria3-tools/v3loc/i18n"
	"github.com/victoria3-tools/v3loc/langmeta"
	"github.com/victoria3-tools/v3loc/pipeline"
	"github.com/victoria3-tools/v3loc/tokens"
	"github.com/victoria3-tools/v3loc/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
)

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "v3loc",
		Short: "Translate Victoria 3 localization files with the OpenAI API",
		Long: `v3loc — AI translation generator for Victoria 3 localization files.

Reads the game's English localization tree, translates every file with
the OpenAI chat API, and writes a mod-shaped output tree: mirrored
directories with "english" renamed to the target language, UTF-8 BOM on
every file, an updated languages.yml registry, and a metadata example.

Commands:
  translate   Translate the localization tree to a target language
  languages   Update only the languages.yml registry
  bom         Add a UTF-8 BOM to files or directory trees
  version     Show version information

The OpenAI API key is read from the OPENAI_API_KEY environment variable
(a .env file in the working directory is also honored).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newTranslateCmd(),
		newLanguagesCmd(),
		newBomCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("v3loc version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

type translateArgs struct {
	inputGameDir string
	outputDir    string
	language     string
	model        string
	temperature  float32
	maxTokens    int
}

func newTranslateCmd() *cobra.Command {
	var a translateArgs

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate the localization tree to a target language",
		Long: `Translate every *_english.yml file under <input-game-dir>/localization
to the target language and write the result under <output-dir>.

The target language is an engine code such as "czech" or "polish"
(the part after l_ in the localization header).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd.Context(), a, false)
		},
	}

	cmd.Flags().StringVar(&a.inputGameDir, "input-game-dir", "", "Game directory containing the original localization files (the game/ directory of the installation)")
	cmd.Flags().StringVar(&a.outputDir, "output-dir", "", "Output directory for the translated mod")
	cmd.Flags().StringVar(&a.language, "language", "", "Target language code (e.g. czech, polish)")
	cmd.Flags().StringVar(&a.model, "model", "", "OpenAI model to use (default "+config.DefaultModel+")")
	cmd.Flags().Float32Var(&a.temperature, "temperature", -1, "Translation temperature (default 0)")
	cmd.Flags().IntVar(&a.maxTokens, "max-tokens", 0, "Token budget per chunk (default 1000)")
	_ = cmd.MarkFlagRequired("input-game-dir")
	_ = cmd.MarkFlagRequired("output-dir")
	_ = cmd.MarkFlagRequired("language")

	return cmd
}

func newLanguagesCmd() *cobra.Command {
	var a translateArgs

	cmd := &cobra.Command{
		Use:   "languages",
		Short: "Update only the languages.yml registry",
		Long: `Add the target language to localization/languages.yml: every existing
language block gains the new language's native name, and a new block is
cloned from the English one. The native name is resolved by asking the
model to render the language's name in its own tongue.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd.Context(), a, true)
		},
	}

	cmd.Flags().StringVar(&a.inputGameDir, "input-game-dir", "", "Game directory containing the original localization files")
	cmd.Flags().StringVar(&a.outputDir, "output-dir", "", "Output directory for the translated mod")
	cmd.Flags().StringVar(&a.language, "language", "", "Target language code (e.g. czech, polish)")
	cmd.Flags().StringVar(&a.model, "model", "", "OpenAI model to use (default "+config.DefaultModel+")")
	_ = cmd.MarkFlagRequired("input-game-dir")
	_ = cmd.MarkFlagRequired("output-dir")
	_ = cmd.MarkFlagRequired("language")

	return cmd
}

func runTranslate(ctx context.Context, a translateArgs, registryOnly bool) error {
	cfg := config.Load()
	if a.model != "" {
		cfg.Model = a.model
	}
	if a.temperature >= 0 {
		cfg.Temperature = a.temperature
	}
	if a.maxTokens > 0 {
		cfg.TokensPerChunk = a.maxTokens
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	target := strings.ToLower(strings.TrimSpace(a.language))
	if target == "" || target == config.SourceLanguage {
		return fmt.Errorf("invalid target language %q", a.language)
	}
	if !langmeta.Known(target) {
		logWarning("unknown language code %q, proceeding anyway", target)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	var counter chunk.Counter
	tk, err := tokens.NewTiktoken(cfg.Model)
	if err != nil {
		logWarning("tokenizer unavailable (%v), using heuristic estimate", err)
		counter = tokens.Estimate{}
	} else {
		counter = tk
	}

	client := translate.New(cfg.APIKey, cfg.Model, cfg.Temperature,
		translate.WithLogger(logger))

	p := pipeline.New(cfg, target, a.inputGameDir, a.outputDir, client, counter, logger)

	if registryOnly {
		if err := p.UpdateLanguages(ctx); err != nil {
			return err
		}
		logSuccess("%s", i18n.T("Updating languages registry"))
		return nil
	}

	sum, err := p.Run(ctx)
	if err != nil {
		return err
	}
	if sum.Failed > 0 {
		logWarning("%d file(s) failed; see the log above", sum.Failed)
	}
	logSuccess("%s: %s", i18n.T("translation run finished"),
		fmt.Sprintf(i18n.N("Found %d localization file", "Found %d localization files", sum.Translated), sum.Translated))
	return nil
}

// ---------------------------------------------------------------------------
// bom
// ---------------------------------------------------------------------------

func newBomCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bom <path>...",
		Short: "Add a UTF-8 BOM to files or directory trees",
		Long: `Add the UTF-8 byte order mark to the given files, or to every
.yml/.yaml file under the given directories. Files that already carry
a BOM are left untouched. The Clausewitz engine rejects localization
files without it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				info, err := os.Stat(path)
				if err != nil {
					return err
				}
				if info.IsDir() {
					err = bom.AddToTree(path)
				} else {
					err = bom.AddToFile(path)
				}
				if err != nil {
					return err
				}
				logSuccess("BOM ensured: %s", path)
			}
			return nil
		},
	}
}
