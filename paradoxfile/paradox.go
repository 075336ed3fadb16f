// Package paradoxfile implements reading and writing of Paradox
// (Clausewitz engine) localization files.
//
// The format looks like YAML but is not: each block starts with an
// unindented header naming a language, and every entry is an unquoted
// key with a revision suffix followed by a double-quoted value, with
// no colon between them:
//
//	l_english:
//	  ui_settings:0 "Settings"
//	  ui_quit:1 "Quit to Desktop"
//
// Keys are never quoted, values always are, and the engine requires
// exactly two spaces of entry indentation plus a UTF-8 BOM on the
// file. Because of these departures a generic YAML library cannot
// produce conformant output, so the grammar is matched line by line.
//
// Single-language files carry one block; the languages registry file
// carries one block per language. The package preserves entry order
// on round-trip.
package paradoxfile

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Line classification
// ---------------------------------------------------------------------------

// LineKind identifies the grammatical role of one physical line.
type LineKind int

const (
	// LineBlank is an empty or all-whitespace line.
	LineBlank LineKind = iota
	// LineComment starts with '#' after optional whitespace.
	LineComment
	// LineHeader opens a language block, e.g. "l_english:".
	LineHeader
	// LineEntry is a key/version/value triple, e.g. `l_foo:1 "Bar"`.
	LineEntry
	// LineUnrecognized is anything else. The raw text is kept so the
	// pipeline can pass engine quirks through instead of failing.
	LineUnrecognized
)

// Line is the result of classifying one physical line.
type Line struct {
	Kind LineKind
	// Raw is the original line without its trailing newline.
	Raw string
	// Header is the block header key for LineHeader (e.g. "l_english").
	Header string
	// Key is the full entry key for LineEntry, including the revision
	// suffix (e.g. "l_english:1").
	Key string
	// Version is the entry revision (0 = unreviewed, 1 = final).
	Version int
	// Value is the unquoted, unescaped entry value for LineEntry.
	Value string
}

var (
	headerPattern = regexp.MustCompile(`^\s*(l_[A-Za-z0-9_]+):\s*$`)
	entryPattern  = regexp.MustCompile(`^\s*([A-Za-z0-9_.\-]+):(\d+)\s+"((?:[^"\\]|\\.)*)"\s*(?:#.*)?$`)
)

// Classify tags a single line. Classification is stable: serialized
// output classifies back to the tags that produced it.
func Classify(raw string) Line {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Line{Kind: LineBlank, Raw: raw}
	}
	if strings.HasPrefix(trimmed, "#") {
		return Line{Kind: LineComment, Raw: raw}
	}
	if m := headerPattern.FindStringSubmatch(raw); m != nil {
		return Line{Kind: LineHeader, Raw: raw, Header: m[1]}
	}
	if m := entryPattern.FindStringSubmatch(raw); m != nil {
		version, _ := strconv.Atoi(m[2])
		return Line{
			Kind:    LineEntry,
			Raw:     raw,
			Key:     m[1] + ":" + m[2],
			Version: version,
			Value:   unescapeValue(m[3]),
		}
	}
	return Line{Kind: LineUnrecognized, Raw: raw}
}

// unescapeValue resolves \" and \\ sequences inside a quoted value.
func unescapeValue(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '"' || s[i+1] == '\\') {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// escapeValue is the inverse of unescapeValue for serialization.
func escapeValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// ---------------------------------------------------------------------------
// Document model
// ---------------------------------------------------------------------------

// Entry is a single localized string inside a block.
type Entry struct {
	// Key is the full entry key including the revision suffix.
	Key string
	// Value is the localized string (unescaped).
	Value string
}

// Block is one language-scoped section of a document.
type Block struct {
	// Header is the block's language key (e.g. "l_english").
	Header string

	entries []Entry
	index   map[string]int
}

// NewBlock creates an empty block with the given header key.
func NewBlock(header string) *Block {
	return &Block{Header: header, index: make(map[string]int)}
}

// Set inserts or updates an entry, preserving first-seen order.
func (b *Block) Set(key, value string) {
	if idx, ok := b.index[key]; ok {
		b.entries[idx].Value = value
		return
	}
	b.index[key] = len(b.entries)
	b.entries = append(b.entries, Entry{Key: key, Value: value})
}

// Get returns the value for key.
func (b *Block) Get(key string) (string, bool) {
	idx, ok := b.index[key]
	if !ok {
		return "", false
	}
	return b.entries[idx].Value, true
}

// Has reports whether key exists in the block.
func (b *Block) Has(key string) bool {
	_, ok := b.index[key]
	return ok
}

// Keys returns all entry keys in document order.
func (b *Block) Keys() []string {
	keys := make([]string, len(b.entries))
	for i, e := range b.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns a copy of the block's entries in document order.
func (b *Block) Entries() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Len returns the number of entries.
func (b *Block) Len() int {
	return len(b.entries)
}

// Clone returns a deep copy of the block under a new header key.
func (b *Block) Clone(header string) *Block {
	c := NewBlock(header)
	for _, e := range b.entries {
		c.Set(e.Key, e.Value)
	}
	return c
}

// Document is an ordered sequence of language blocks.
type Document struct {
	blocks []*Block
	index  map[string]int
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{index: make(map[string]int)}
}

// AddBlock appends a block. Adding a second block with the same header
// is an error: headers are unique within a document.
func (d *Document) AddBlock(b *Block) error {
	if _, ok := d.index[b.Header]; ok {
		return fmt.Errorf("duplicate block header %q", b.Header)
	}
	d.index[b.Header] = len(d.blocks)
	d.blocks = append(d.blocks, b)
	return nil
}

// Block returns the block with the given header key.
func (d *Document) Block(header string) (*Block, bool) {
	idx, ok := d.index[header]
	if !ok {
		return nil, false
	}
	return d.blocks[idx], true
}

// Blocks returns the document's blocks in file order.
func (d *Document) Blocks() []*Block {
	out := make([]*Block, len(d.blocks))
	copy(out, d.blocks)
	return out
}

// Headers returns all block header keys in file order.
func (d *Document) Headers() []string {
	headers := make([]string, len(d.blocks))
	for i, b := range d.blocks {
		headers[i] = b.Header
	}
	return headers
}

// Len returns the number of blocks.
func (d *Document) Len() int {
	return len(d.blocks)
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// StructureError reports an entry line with no open block to attach it
// to. It is fatal for the file it occurs in.
type StructureError struct {
	Path string
	Line int
}

func (e *StructureError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("line %d: entry before any block header", e.Line)
	}
	return fmt.Sprintf("%s:%d: entry before any block header", e.Path, e.Line)
}

// EncodingError reports a file that is not valid UTF-8.
type EncodingError struct {
	Path string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s: not valid UTF-8", e.Path)
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// utf8BOM is the byte order mark the Clausewitz engine requires on
// localization files.
const utf8BOM = "\xef\xbb\xbf"

// Parse builds a Document from dialect text. Blank, comment, and
// unrecognized lines do not affect parser state; an entry line before
// the first header is a StructureError.
func Parse(text string) (*Document, error) {
	return parse(text, "")
}

// ParseFile reads and parses a localization file.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return nil, &EncodingError{Path: path}
	}
	return parse(string(data), path)
}

func parse(text, path string) (*Document, error) {
	text = strings.TrimPrefix(text, utf8BOM)

	doc := NewDocument()
	var current *Block

	for i, raw := range strings.Split(text, "\n") {
		line := Classify(raw)
		switch line.Kind {
		case LineHeader:
			current = NewBlock(line.Header)
			if err := doc.AddBlock(current); err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, i+1, err)
			}
		case LineEntry:
			if current == nil {
				return nil, &StructureError{Path: path, Line: i + 1}
			}
			current.Set(line.Key, line.Value)
		}
	}
	return doc, nil
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// entryIndent is the exact indentation the engine accepts.
const entryIndent = "  "

// Marshal renders the document back to dialect text in insertion
// order. Headers are unindented, entries get two spaces, keys stay
// unquoted, and values are double-quoted with internal quotes escaped.
func (d *Document) Marshal() string {
	return d.marshal(false)
}

// MarshalSorted is Marshal with entry keys in lexicographic order.
func (d *Document) MarshalSorted() string {
	return d.marshal(true)
}

func (d *Document) marshal(sorted bool) string {
	var b strings.Builder
	for _, blk := range d.blocks {
		b.WriteString(blk.Header)
		b.WriteString(":\n")
		entries := blk.Entries()
		if sorted {
			sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
		}
		for _, e := range entries {
			b.WriteString(entryIndent)
			b.WriteString(e.Key)
			b.WriteString(" \"")
			b.WriteString(escapeValue(e.Value))
			b.WriteString("\"\n")
		}
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// Header rewrite and reindentation
// ---------------------------------------------------------------------------

// RewriteLanguage replaces every "l_<source>:" marker with
// "l_<target>:". This rewrites the block header and the language-keyed
// entry keys in one pass, as both carry the same marker.
func RewriteLanguage(text, source, target string) string {
	return strings.ReplaceAll(text, "l_"+source+":", "l_"+target+":")
}

// Reindent normalizes a (possibly machine-mangled) document: blank and
// comment lines pass through, the first header line is emitted at
// column zero relabeled for target, and every other line gets exactly
// two leading spaces. The pass is idempotent.
func Reindent(text, target string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	headerSeen := false

	for _, raw := range lines {
		stripped := strings.TrimSpace(raw)
		switch {
		case stripped == "" || strings.HasPrefix(stripped, "#"):
			out = append(out, raw)
		case !headerSeen && headerPattern.MatchString(stripped):
			out = append(out, "l_"+target+":")
			headerSeen = true
		default:
			out = append(out, entryIndent+strings.TrimLeft(raw, " \t"))
		}
	}
	return strings.Join(out, "\n")
}
