// Package modmeta generates the .metadata/metadata.json descriptor
// the game launcher expects in a mod directory.
package modmeta

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Metadata mirrors the launcher's metadata.json schema.
type Metadata struct {
	Name                 string         `json:"name"`
	ID                   string         `json:"id"`
	Version              string         `json:"version"`
	GameID               string         `json:"game_id"`
	SupportedGameVersion string         `json:"supported_game_version"`
	ShortDescription     string         `json:"short_description"`
	Tags                 []string       `json:"tags"`
	Relationships        []string       `json:"relationships"`
	GameCustomData       GameCustomData `json:"game_custom_data"`
}

// GameCustomData holds engine-specific flags.
type GameCustomData struct {
	MultiplayerSynchronized bool `json:"multiplayer_synchronized"`
}

// titleCase capitalizes the first letter of a language code for
// display ("czech" -> "Czech").
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// For builds the descriptor for a translation mod of the given target
// language, generated by the given model.
func For(lang, model string) Metadata {
	title := titleCase(lang)
	return Metadata{
		Name:                 fmt.Sprintf("%s Translation of Victoria 3", title),
		ID:                   fmt.Sprintf("com.github.victoria3-tools.v3loc-%s", lang),
		Version:              "1.0.0",
		GameID:               "victoria3",
		SupportedGameVersion: "1.8.6",
		ShortDescription:     fmt.Sprintf("%s translation of Victoria 3 generated by %s", title, model),
		Tags:                 []string{"victoria-3", "localization", "translation", lang},
		Relationships:        []string{},
		GameCustomData:       GameCustomData{MultiplayerSynchronized: true},
	}
}

// ExamplePath returns where the example descriptor lives under the
// output root. It is written with an .example suffix so the user
// reviews it before the launcher picks it up.
func ExamplePath(outputRoot string) string {
	return filepath.Join(outputRoot, ".metadata", "metadata.json.example")
}

// WriteExample writes the example descriptor unless one already
// exists. Returns true when a file was written.
func WriteExample(outputRoot, lang, model string) (bool, error) {
	path := ExamplePath(outputRoot)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	data, err := json.MarshalIndent(For(lang, model), "", "    ")
	if err != nil {
		return false, fmt.Errorf("marshaling metadata: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("creating metadata directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}
