package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gridpulse/internal/errors"
	"gridpulse/internal/shared/testutil"
)

func TestFileValidator_ValidateSourceFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("年,月,日,时\n"), 0644))
		return p
	}

	tests := []struct {
		name     string
		path     string
		wantType apperrors.ErrorType
	}{
		{"csv", write("22-25_All.csv"), ""},
		{"upper-case xlsx", write("report.XLSX"), ""},
		{"lock file", write("~$report.xlsx"), apperrors.ErrTypeValidation},
		{"text file", write("notes.txt"), apperrors.ErrTypeValidation},
		{"missing", filepath.Join(dir, "absent.csv"), apperrors.ErrTypeNotFound},
		{"directory", dir, apperrors.ErrTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			err := NewFileValidator(logger).ValidateSourceFile(tt.path)

			if tt.wantType == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantType, apperrors.TypeOf(err))
		})
	}
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	dir := filepath.Join(t.TempDir(), "exports", "2024")

	require.NoError(t, NewFileValidator(logger).ValidateOutputDirectory(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "write probe is removed")
}
