package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Paths contains the resolved, absolute application paths
type Paths struct {
	ExecutableDir string
	DataDir       string
	ExportsDir    string
	WebDir        string
	LogsDir       string
}

// GetPaths resolves the default layout relative to the executable location.
func GetPaths() (*Paths, error) {
	return ResolvePaths(Default().Paths)
}

// ResolvePaths turns a PathsConfig into absolute paths. Relative entries are
// joined onto ExecutableDir, which itself defaults to the executable's directory.
func ResolvePaths(pc PathsConfig) (*Paths, error) {
	base := pc.ExecutableDir
	if base == "" {
		exeDir, err := executableDir()
		if err != nil {
			return nil, err
		}
		base = exeDir
	}

	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(base, p)
	}

	return &Paths{
		ExecutableDir: base,
		DataDir:       resolve(pc.DataDir),
		ExportsDir:    resolve(pc.ExportsDir),
		WebDir:        resolve(pc.WebDir),
		LogsDir:       resolve(pc.LogsDir),
	}, nil
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %v", err)
	}

	// Resolve symlinks to get the actual executable location
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	return filepath.Dir(exe), nil
}

// ResolvedPaths resolves the configured paths
func (c *Config) ResolvedPaths() (*Paths, error) {
	return ResolvePaths(c.Paths)
}

// EnsureDirectories creates the writable directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.ExportsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// GetDataPath returns the path for a file in the data directory
func (p *Paths) GetDataPath(filename string) string {
	return filepath.Join(p.DataDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// GetExportPath returns the path for an export file
func (p *Paths) GetExportPath(filename string) string {
	return filepath.Join(p.ExportsDir, filename)
}

// GetTimestampedExportPath returns "<stem>_20060102_150405.<ext>" under the exports directory.
func (p *Paths) GetTimestampedExportPath(stem, ext string, at time.Time) string {
	return p.GetExportPath(fmt.Sprintf("%s_%s.%s", stem, at.Format("20060102_150405"), ext))
}

// LogPathResolution logs the resolved layout at startup
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		return
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("executable", p.ExecutableDir),
			slog.String("data", p.DataDir),
			slog.String("exports", p.ExportsDir),
			slog.String("logs", p.LogsDir),
			slog.String("web", p.WebDir),
		))
}
