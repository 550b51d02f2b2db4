package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalog = `
authors:
  - first_name: Frank
    last_name: Herbert
books:
  - title: Dune
    isbn: "9780441172719"
    year: 1965
    category: FICTION
    copies: 3
    author: Frank Herbert
  - title: Orphan
    isbn: "9780451526342"
    category: FICTION
    author: Nobody Known
`

func TestImportCatalog(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LMS_DB_PATH", filepath.Join(dir, "import.db"))
	t.Setenv("LMS_LOG_LEVEL", "error")
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0o644))

	var out bytes.Buffer
	err := run(context.Background(), path, false, &out)
	require.Error(t, err, "one book has an unknown author")

	assert.Contains(t, out.String(), "ERROR - book Orphan")
	assert.Contains(t, out.String(), "SUCCESS: 1 author(s), 1 book(s), 0 member(s), 0 borrowing(s)")
	assert.Contains(t, out.String(), "9780441172719 Dune")

	out.Reset()
	require.Error(t, run(context.Background(), path, true, &out))
	assert.Contains(t, out.String(), "Clearing existing data...")
	assert.Contains(t, out.String(), "SUCCESS: 1 author(s), 1 book(s)")
}

func TestImportMissingFile(t *testing.T) {
	t.Setenv("LMS_DB_PATH", filepath.Join(t.TempDir(), "import.db"))
	var out bytes.Buffer
	err := run(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), false, &out)
	require.Error(t, err)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "Dune", truncateString("Dune", 10))
	assert.Equal(t, "Harry P...", truncateString("Harry Potter", 10))
	assert.Equal(t, "Ha", truncateString("Harry", 2))

	cut := truncateString("Les Misérables éditées", 10)
	assert.Equal(t, "Les Mis...", cut)
	assert.True(t, utf8.ValidString(truncateString("Les Misérables", 9)))
	assert.Equal(t, "百年孤...", truncateString("百年孤独的故事", 6))
}
