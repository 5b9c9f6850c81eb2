package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "gridpulse/internal/errors"
)

// SourceExtensions lists the file types accepted as report sources.
var SourceExtensions = []string{".csv", ".xlsx"}

// FileValidator checks local paths used by the CLI and the source fetcher
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger.With(slog.String("component", "file_validator")),
	}
}

// ValidateFile checks that path exists, is a regular file and can be opened.
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist", slog.String("file", path))
		return apperrors.NewNotFoundError("file " + path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file", slog.String("path", path))
		return apperrors.NewAppValidationError(path + " is a directory, not a file")
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateSourceFile checks that path is a readable CSV or workbook report
// and not an editor lock file.
func (v *FileValidator) ValidateSourceFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	if strings.HasPrefix(filepath.Base(path), "~$") {
		v.logger.Warn("Skipping temporary spreadsheet file", slog.String("file", path))
		return apperrors.NewAppValidationError(path + " is a temporary spreadsheet file")
	}

	ext := strings.ToLower(filepath.Ext(path))
	for _, ok := range SourceExtensions {
		if ext == ok {
			return nil
		}
	}
	v.logger.Error("Unsupported source file type",
		slog.String("file", path),
		slog.String("extension", ext))
	return apperrors.NewAppValidationError(
		fmt.Sprintf("file %s has unsupported extension %q (want one of %s)", path, ext, strings.Join(SourceExtensions, ", ")))
}

// ValidateOutputDirectory ensures dir exists and is writable.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	probe.Close()
	os.Remove(probe.Name())

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}
