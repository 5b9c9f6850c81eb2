package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	apperrors "gridpulse/internal/errors"
	"gridpulse/internal/validation"
)

// SourceInfo describes a source location without reading it
type SourceInfo struct {
	Location string    `json:"location"`
	Remote   bool      `json:"remote"`
	Exists   bool      `json:"exists"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified,omitempty"`
}

// SourceFetcher reads report files from local paths or http(s) URLs
type SourceFetcher struct {
	client   *http.Client
	maxBytes int64
	files    *validation.FileValidator
	logger   *slog.Logger
}

// NewSourceFetcher creates a fetcher. Reads larger than maxBytes fail.
func NewSourceFetcher(client *http.Client, maxBytes int64, logger *slog.Logger) *SourceFetcher {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SourceFetcher{
		client:   client,
		maxBytes: maxBytes,
		files:    validation.NewFileValidator(logger),
		logger:   logger.With(slog.String("component", "source_fetcher")),
	}
}

// IsRemote reports whether location is an http(s) URL
func IsRemote(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// Fetch reads the raw bytes at location
func (f *SourceFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if strings.TrimSpace(location) == "" {
		return nil, apperrors.NewAppValidationError("source location is empty")
	}
	if IsRemote(location) {
		return f.fetchRemote(ctx, location)
	}
	return f.fetchLocal(ctx, location)
}

func (f *SourceFetcher) fetchLocal(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.files.ValidateSourceFile(path); err != nil {
		if apperrors.TypeOf(err) == "" {
			return nil, apperrors.NewAppError(apperrors.ErrTypeNetwork, "source file is not readable", err)
		}
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrTypeNetwork, "failed to open source file", err)
	}
	defer file.Close()

	raw, err := f.readLimited(file)
	if err != nil {
		return nil, err
	}

	f.logger.InfoContext(ctx, "source read",
		slog.String("location", path),
		slog.Int("bytes", len(raw)))
	return raw, nil
}

func (f *SourceFetcher) fetchRemote(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("invalid source URL %q", location))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to fetch source", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.NewNotFoundError("source " + location)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.NewNetworkError(fmt.Sprintf("source responded %d", resp.StatusCode), nil).
			WithContext("status_code", resp.StatusCode)
	}

	raw, err := f.readLimited(resp.Body)
	if err != nil {
		return nil, err
	}

	f.logger.InfoContext(ctx, "source fetched",
		slog.String("location", location),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(raw)))
	return raw, nil
}

func (f *SourceFetcher) readLimited(r io.Reader) ([]byte, error) {
	if f.maxBytes > 0 {
		r = io.LimitReader(r, f.maxBytes+1)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to read source", err)
	}
	if f.maxBytes > 0 && int64(len(raw)) > f.maxBytes {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("source exceeds %d bytes", f.maxBytes))
	}
	return raw, nil
}

// Stat reports whether location exists and how large it is, issuing HEAD for URLs.
func (f *SourceFetcher) Stat(ctx context.Context, location string) (SourceInfo, error) {
	info := SourceInfo{Location: location, Remote: IsRemote(location)}

	if !info.Remote {
		st, err := os.Stat(location)
		if errors.Is(err, fs.ErrNotExist) {
			return info, nil
		}
		if err != nil {
			return info, apperrors.NewAppError(apperrors.ErrTypeNetwork, "failed to stat source", err)
		}
		info.Exists = !st.IsDir()
		info.Size = st.Size()
		info.Modified = st.ModTime().UTC()
		return info, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, location, nil)
	if err != nil {
		return info, apperrors.NewAppValidationError(fmt.Sprintf("invalid source URL %q", location))
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return info, apperrors.NewNetworkError("failed to stat source", err)
	}
	resp.Body.Close()

	info.Exists = resp.StatusCode >= 200 && resp.StatusCode <= 299
	if info.Exists {
		info.Size = resp.ContentLength
		if lm, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
			info.Modified = lm.UTC()
		}
	}
	return info, nil
}
