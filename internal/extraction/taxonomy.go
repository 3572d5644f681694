package extraction

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
)

//go:embed taxonomy.json
var defaultTaxonomy []byte

// Taxonomy maps a tag category to the tags the service may use.
type Taxonomy map[string][]string

// LoadTaxonomy reads a taxonomy file. An empty path returns the built-in one.
func LoadTaxonomy(path string) (Taxonomy, error) {
	data := defaultTaxonomy
	if path = strings.TrimSpace(path); path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("reading taxonomy %q: %w", path, err)
		}
	}

	var t Taxonomy
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decoding taxonomy: %w", err)
	}
	if len(t) == 0 {
		return nil, fmt.Errorf("taxonomy %q has no categories", path)
	}
	return t, nil
}

// Tags lists every tag once, sorted.
func (t Taxonomy) Tags() []string {
	var tags []string
	for _, list := range t {
		tags = append(tags, list...)
	}
	slices.Sort(tags)
	return slices.Compact(tags)
}

// Unknown returns the tags that are not part of the taxonomy.
func (t Taxonomy) Unknown(tags []string) []string {
	known := t.Tags()
	var out []string
	for _, tag := range tags {
		if _, found := slices.BinarySearch(known, tag); !found {
			out = append(out, tag)
		}
	}
	return out
}

// JSON renders the taxonomy for prompts.
func (t Taxonomy) JSON() string {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
