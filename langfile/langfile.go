// Package langfile mutates the languages registry file
// (localization/languages.yml), where every block lists all known
// languages' native names from one language's point of view.
package langfile

import (
	"fmt"

	"github.com/victoria3-tools/v3loc/paradoxfile"
)

// DefaultHeader is the block used as the template for new languages.
const DefaultHeader = "l_english"

// Contains reports whether the registry already has a block for code.
func Contains(doc *paradoxfile.Document, code string) bool {
	_, ok := doc.Block("l_" + code)
	return ok
}

// AddLanguage registers a new language: every existing block gains an
// `l_<code>:1 "<native>"` entry, and a new block for the language is
// cloned from the default block's entries (including the one just
// added). New entries and the new block append after existing order.
func AddLanguage(doc *paradoxfile.Document, code, native string) error {
	header := "l_" + code
	if Contains(doc, code) {
		return fmt.Errorf("language %s already registered", code)
	}

	key := header + ":1"
	for _, block := range doc.Blocks() {
		if !block.Has(key) {
			block.Set(key, native)
		}
	}

	template, ok := doc.Block(DefaultHeader)
	if !ok {
		return fmt.Errorf("registry has no %s block to use as template", DefaultHeader)
	}
	return doc.AddBlock(template.Clone(header))
}
