package classify

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/abhijyotiba/Flusso-Automation-sub000/tables"
)

// TableFile is the top-level YAML structure for a classification table file.
type TableFile struct {
	FastPaths  map[string][]string `yaml:"fast_paths"`
	Categories []CategoryTable     `yaml:"categories"`
}

// CategoryTable holds the tunable keyword weights for one category.
type CategoryTable struct {
	Name      string    `yaml:"name"`
	TagWeight float64   `yaml:"tag_weight"`
	SkipBoost float64   `yaml:"skip_boost,omitempty"`
	Keywords  []Keyword `yaml:"keywords"`
}

// Keyword is one weighted term.
type Keyword struct {
	Term   string  `yaml:"term"`
	Weight float64 `yaml:"weight"`
}

// Tables is the compiled, ready-to-use classification table set.
type Tables struct {
	POSubject []*regexp.Regexp
	POBody    []*regexp.Regexp
	AutoReply []*regexp.Regexp

	Categories []CategoryTable
}

// ParseTableFile parses classification table YAML bytes.
func ParseTableFile(data []byte) (*TableFile, error) {
	var tf TableFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing classification tables YAML: %w", err)
	}
	return &tf, nil
}

// LoadTableFile reads and parses a table YAML file from disk. Returns nil
// (not an error) if the file does not exist, so callers can treat a missing
// override file as a no-op.
func LoadTableFile(path string) (*TableFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading classification tables %s: %w", path, err)
	}
	return ParseTableFile(data)
}

// MergeTables layers override files over the defaults. Later layers override
// earlier ones by matching on the category Name field; new categories are
// appended. Fast path lists are replaced wholesale when a layer provides the
// same key.
func MergeTables(layers ...*TableFile) *TableFile {
	merged := &TableFile{FastPaths: map[string][]string{}}
	index := make(map[string]int)

	for _, layer := range layers {
		if layer == nil {
			continue
		}
		for key, patterns := range layer.FastPaths {
			merged.FastPaths[key] = patterns
		}
		for _, ct := range layer.Categories {
			if idx, exists := index[ct.Name]; exists {
				merged.Categories[idx] = ct
			} else {
				index[ct.Name] = len(merged.Categories)
				merged.Categories = append(merged.Categories, ct)
			}
		}
	}
	return merged
}

// Compile turns a merged table file into regex-compiled Tables.
func Compile(tf *TableFile) (*Tables, error) {
	t := &Tables{Categories: tf.Categories}
	var err error
	if t.POSubject, err = compileAll(tf.FastPaths["purchase_order_subject"]); err != nil {
		return nil, err
	}
	if t.POBody, err = compileAll(tf.FastPaths["purchase_order_body"]); err != nil {
		return nil, err
	}
	if t.AutoReply, err = compileAll(tf.FastPaths["auto_reply"]); err != nil {
		return nil, err
	}
	return t, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling fast path pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// DefaultTables returns the embedded tables, optionally layered with the
// operator override file at overridePath (empty string skips the layer).
func DefaultTables(overridePath string) (*Tables, error) {
	base, err := ParseTableFile(tables.CategoriesYAML())
	if err != nil {
		return nil, fmt.Errorf("parsing embedded classification tables: %w", err)
	}
	var override *TableFile
	if overridePath != "" {
		if override, err = LoadTableFile(overridePath); err != nil {
			return nil, err
		}
	}
	return Compile(MergeTables(base, override))
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
