package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gridpulse/internal/validation"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery finds report files relative to a base directory
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindReports lists the report files (.csv, .xlsx) directly inside dir,
// oldest first. Spreadsheet lock files ("~$...") are skipped.
func (d *Discovery) FindReports(dir string) ([]FileInfo, error) {
	fullPath := dir
	if !filepath.IsAbs(dir) {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "~$") || !isReport(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name < files[j].Name
		}
		return files[i].ModTime.Before(files[j].ModTime)
	})
	return files, nil
}

// LatestReport returns the most recently modified report in dir
func (d *Discovery) LatestReport(dir string) (FileInfo, error) {
	files, err := d.FindReports(dir)
	if err != nil {
		return FileInfo{}, err
	}
	latest, ok := GetLatestFile(files)
	if !ok {
		return FileInfo{}, fmt.Errorf("no report files (%s) in %s", strings.Join(validation.SourceExtensions, ", "), dir)
	}
	return latest, nil
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if !file.ModTime.Before(latest.ModTime) {
			latest = file
		}
	}
	return latest, true
}

func isReport(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, ok := range validation.SourceExtensions {
		if ext == ok {
			return true
		}
	}
	return false
}
