package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridpulse/internal/config"
	"gridpulse/internal/shared/testutil"
)

func setupTestWriter(t *testing.T) (*CSVWriter, *config.Paths) {
	t.Helper()
	base := t.TempDir()
	paths := &config.Paths{
		ExecutableDir: base,
		DataDir:       filepath.Join(base, "data"),
		ExportsDir:    filepath.Join(base, "exports"),
		LogsDir:       filepath.Join(base, "logs"),
	}
	logger, _ := testutil.NewTestLogger(t)
	return NewCSVWriter(paths, logger), paths
}

func readCSVFile(t *testing.T, path string) (bool, [][]string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	hasBOM := bytes.HasPrefix(data, utf8BOM)
	rows, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM))).ReadAll()
	require.NoError(t, err)
	return hasBOM, rows
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	tests := []struct {
		name     string
		options  WriteOptions
		wantBOM  bool
		wantRows [][]string
	}{
		{
			name: "headers and records with BOM",
			options: WriteOptions{
				Headers:   []string{"年", "现货价格"},
				Records:   [][]string{{"2024", "1.5"}, {"2024", "2"}},
				BOMPrefix: true,
			},
			wantBOM:  true,
			wantRows: [][]string{{"年", "现货价格"}, {"2024", "1.5"}, {"2024", "2"}},
		},
		{
			name: "no BOM",
			options: WriteOptions{
				Headers: []string{"a"},
				Records: [][]string{{"1"}},
			},
			wantRows: [][]string{{"a"}, {"1"}},
		},
		{
			name: "special characters are quoted",
			options: WriteOptions{
				Headers: []string{"note"},
				Records: [][]string{{"a,b"}, {`say "hi"`}, {"line\nbreak"}},
			},
			wantRows: [][]string{{"note"}, {"a,b"}, {`say "hi"`}, {"line\nbreak"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, paths := setupTestWriter(t)

			path, err := w.WriteCSV("out.csv", tt.options)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(paths.ExportsDir, "out.csv"), path)

			hasBOM, rows := readCSVFile(t, path)
			assert.Equal(t, tt.wantBOM, hasBOM)
			assert.Equal(t, tt.wantRows, rows)
		})
	}
}

func TestCSVWriter_AppendToCSV(t *testing.T) {
	w, _ := setupTestWriter(t)

	path, err := w.WriteSimpleCSV("append.csv", []string{"h"}, [][]string{{"1"}})
	require.NoError(t, err)
	_, err = w.AppendToCSV("append.csv", [][]string{{"2"}, {"3"}})
	require.NoError(t, err)

	hasBOM, rows := readCSVFile(t, path)
	assert.True(t, hasBOM)
	assert.Equal(t, [][]string{{"h"}, {"1"}, {"2"}, {"3"}}, rows)
}

func TestCSVWriter_ResolvePath(t *testing.T) {
	w, paths := setupTestWriter(t)
	abs := filepath.Join(t.TempDir(), "abs.csv")

	assert.Equal(t, abs, w.resolvePath(abs))
	assert.Equal(t, filepath.Join(paths.ExportsDir, "sub", "x.csv"), w.resolvePath(filepath.Join("sub", "x.csv")))

	bare := NewCSVWriter(nil, nil)
	assert.Equal(t, "rel.csv", bare.resolvePath("rel.csv"))
}

func TestCSVWriter_ErrorScenarios(t *testing.T) {
	w, paths := setupTestWriter(t)

	// A regular file where a directory is expected
	require.NoError(t, os.MkdirAll(paths.ExportsDir, 0755))
	blocker := filepath.Join(paths.ExportsDir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := w.WriteSimpleCSV(filepath.Join("blocker", "out.csv"), []string{"h"}, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "failed to"))
}
