// Package translate calls the OpenAI chat API to translate Paradox
// localization text.
//
// One call per document segment, strictly in sequence. Rate-limit
// responses are retried with randomized exponential backoff under a
// total wait cap; every other failure is terminal for the segment.
package translate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// SystemPromptTemplate is the translation instruction sent with every
// segment. {{targetLang}} is replaced with the target language name.
const SystemPromptTemplate = `You are a professional game translator specializing in Victoria 3 localization.  ` +
	`Translate a 19th-century strategy game with historical context using formal language while avoiding modern expressions.  ` +
	`Ensure consistency with existing localization and keep proper names and historical terms unchanged if no proper {{targetLang}} equivalent exists.  ` +
	`Do not translate common gaming terms such as 'multiplayer'; leave them as-is if they are widely recognized in {{targetLang}}.  ` +
	`Preserve the original meaning, tone, and natural game context, and avoid literal translations that sound unnatural.  ` +
	`If unsure, leave a valid YAML comment for the reviewer and match the character's gender in pronunciation if needed.  ` +
	`Keep in mind this is a part of a YAML file; keep it valid and don't forget to escape special characters such as double quotes.  ` +
	`Translate the YAML content from English to {{targetLang}}, preserving all keys, numbers, punctuation, and formatting exactly as they are.  ` +
	`Only translate the human-readable text inside the quotes without adding any extra explanation.  ` +
	"Do not wrap the text in ```yaml or add any extra characters."

// SystemPrompt returns the system prompt for a target language.
func SystemPrompt(targetLang string) string {
	return strings.ReplaceAll(SystemPromptTemplate, "{{targetLang}}", targetLang)
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// ErrRateLimited marks a rate-limit response from the API, surfaced
// only after the retry budget is spent.
var ErrRateLimited = errors.New("rate limited")

// ServiceError is a terminal failure translating one segment. It
// aborts the file it belongs to.
type ServiceError struct {
	// Segment is the zero-based index of the failing segment.
	Segment int
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("segment %d: %v", e.Segment, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// Completer is the slice of the OpenAI client the translator needs.
// *openai.Client implements it; tests inject mocks.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Retry policy: retry on 429 only, randomized exponential backoff
// between minBackoff and maxBackoff, total wait capped by maxTotalWait.
const (
	defaultMinBackoff   = 5 * time.Second
	defaultMaxBackoff   = 60 * time.Second
	defaultMaxTotalWait = 60 * time.Second
)

// Client translates text segments through a chat completion API.
type Client struct {
	completer   Completer
	model       string
	temperature float32
	log         zerolog.Logger

	minBackoff   time.Duration
	maxBackoff   time.Duration
	maxTotalWait time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithCompleter injects a custom chat completer (for testing).
func WithCompleter(c Completer) Option {
	return func(cl *Client) { cl.completer = c }
}

// WithLogger sets the structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(cl *Client) { cl.log = log }
}

// WithBackoff overrides the retry timing (for testing).
func WithBackoff(min, max, totalCap time.Duration) Option {
	return func(cl *Client) {
		cl.minBackoff = min
		cl.maxBackoff = max
		cl.maxTotalWait = totalCap
	}
}

// New creates a Client talking to the OpenAI API with the given key.
// Model and temperature come from the run configuration and are fixed
// for the client's lifetime.
func New(apiKey, model string, temperature float32, opts ...Option) *Client {
	cl := &Client{
		completer:    openai.NewClient(apiKey),
		model:        model,
		temperature:  temperature,
		log:          zerolog.Nop(),
		minBackoff:   defaultMinBackoff,
		maxBackoff:   defaultMaxBackoff,
		maxTotalWait: defaultMaxTotalWait,
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

// TranslateSegment translates one document segment. The response is
// stripped of any surrounding code fence the model added despite the
// prompt.
func (c *Client) TranslateSegment(ctx context.Context, systemPrompt, segment string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Translate the following YAML content from English to the target language:\n\n" + segment},
		},
		Temperature: c.temperature,
	}

	content, err := c.completeWithRetry(ctx, req)
	if err != nil {
		return "", err
	}
	return StripCodeFence(strings.TrimSpace(content)), nil
}

// completeWithRetry performs the API call, retrying rate limits until
// the total wait budget is spent.
func (c *Client) completeWithRetry(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	var waited time.Duration
	for attempt := 0; ; attempt++ {
		resp, err := c.completer.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", errors.New("empty response from API")
			}
			return resp.Choices[0].Message.Content, nil
		}

		if !isRateLimit(err) {
			return "", err
		}

		delay := c.backoff(attempt)
		if waited+delay > c.maxTotalWait {
			return "", fmt.Errorf("%w after %v of retrying: %v", ErrRateLimited, waited, err)
		}
		c.log.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Msg("rate limited, retrying")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		waited += delay
	}
}

// backoff returns a randomized exponential delay for attempt n,
// uniform between minBackoff and min(maxBackoff, minBackoff<<n).
func (c *Client) backoff(attempt int) time.Duration {
	ceiling := c.minBackoff << uint(attempt)
	if ceiling > c.maxBackoff || ceiling <= 0 {
		ceiling = c.maxBackoff
	}
	if ceiling <= c.minBackoff {
		return c.minBackoff
	}
	return c.minBackoff + time.Duration(rand.Int63n(int64(ceiling-c.minBackoff)))
}

// isRateLimit reports whether err is an HTTP 429 from the API.
func isRateLimit(err error) bool {
	var apiErr *openai.APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests
}

// ---------------------------------------------------------------------------
// Response cleanup
// ---------------------------------------------------------------------------

var codeFence = regexp.MustCompile("(?s)\\A```[a-zA-Z]*[ \\t]*\\n(.*?)\\n?```\\s*\\z")

// StripCodeFence removes a surrounding fenced-code wrapper if the
// model added one despite being told not to.
func StripCodeFence(s string) string {
	if m := codeFence.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// ---------------------------------------------------------------------------
// Native language names
// ---------------------------------------------------------------------------

var nativeNamePattern = regexp.MustCompile(`native_language_name_[a-z_]+:1 "(.*)"`)

// NativeLanguageName asks the model to render a language's name in its
// own tongue (e.g. "czech" -> "čeština"). Falls back to the input name
// when the reply cannot be parsed.
func (c *Client) NativeLanguageName(ctx context.Context, lang string) (string, error) {
	prompt := SystemPrompt(lang)
	line := fmt.Sprintf("native_language_name_%s:1 \"%s\"", lang, lang)

	translated, err := c.TranslateSegment(ctx, prompt, line)
	if err != nil {
		return "", err
	}
	if m := nativeNamePattern.FindStringSubmatch(translated); m != nil {
		return m[1], nil
	}
	return lang, nil
}
