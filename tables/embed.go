// Package tables provides the embedded default classification tables: fast
// path regexes and per-category keyword weights in YAML. Operators can layer
// overrides on top via category_tables_path; the merge is by category name.
package tables

import _ "embed"

//go:embed categories.yaml
var categoriesYAML []byte

// CategoriesYAML returns the embedded default classification tables.
func CategoriesYAML() []byte { return categoriesYAML }
