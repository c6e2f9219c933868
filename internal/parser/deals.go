// Package parser reads deal case folders into per-section documents.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/raphaelgruber/dealsight/internal/models"
)

// MetadataFile is the required file in every deal folder.
const MetadataFile = "metadata.json"

// sectionFiles maps narrative file names to their kinds, in canonical order.
var sectionFiles = []struct {
	name string
	kind models.SectionKind
}{
	{"summary.txt", models.SectionSummary},
	{"risks.txt", models.SectionRisks},
	{"outcome.txt", models.SectionOutcome},
}

// BuildSections walks the immediate subdirectories of root and returns one
// section per non-empty narrative file. Folders without metadata.json are
// skipped. A metadata file that is not a JSON object aborts the whole build
// with models.ErrMalformedMetadata.
func BuildSections(root string) ([]models.DealSection, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: deals root %q does not exist", models.ErrConfiguration, root)
		}
		return nil, fmt.Errorf("%w: stat deals root: %w", models.ErrConfiguration, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: deals root %q is not a directory", models.ErrConfiguration, root)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read deals root: %w", err)
	}

	var sections []models.DealSection
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dealSections, err := BuildDealSections(filepath.Join(root, entry.Name()))
		if err != nil {
			return nil, err
		}
		sections = append(sections, dealSections...)
	}
	return sections, nil
}

// BuildDealSections reads a single deal folder.
// Returns nil, nil when the folder has no metadata file.
func BuildDealSections(dir string) ([]models.DealSection, error) {
	metaPath := filepath.Join(dir, MetadataFile)
	data, err := os.ReadFile(metaPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read metadata %s: %w", metaPath, err)
	}

	raw, err := ParseMetadata(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrMalformedMetadata, metaPath, err)
	}

	var sections []models.DealSection
	for _, sf := range sectionFiles {
		text, ok, err := readSection(filepath.Join(dir, sf.name))
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		tagged := make(map[string]any, len(raw)+1)
		for k, v := range raw {
			tagged[k] = v
		}
		tagged[models.SectionKindKey] = string(sf.kind)

		sections = append(sections, models.DealSection{
			Text:     text,
			Kind:     sf.kind,
			Metadata: models.MetadataFromMap(tagged),
		})
	}
	return sections, nil
}

// ParseMetadata decodes a metadata file. Anything other than a JSON object
// (arrays, scalars, trailing garbage) is rejected. Numbers are kept as
// json.Number so numeric deal ids are not rounded.
func ParseMetadata(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("metadata is null")
	}
	if dec.More() {
		return nil, errors.New("unexpected data after metadata object")
	}
	return raw, nil
}

// readSection returns the trimmed file text and whether it should produce a section.
func readSection(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read section %s: %w", path, err)
	}
	text := strings.TrimSpace(string(data))
	return text, text != "", nil
}
