package decoding

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"

	apperrors "gridpulse/internal/errors"
)

// Mojibake markers. The first two are what GBK and Big5 text look like after a
// round trip through a lossy UTF-8 replacement; the last is the replacement
// rune itself.
var mojibakeMarkers = []string{"锟斤拷", "嚙踝蕭", "\uFFFD"}

// headerTokens must all be present for a decode to count as a report.
var headerTokens = []string{"月", "日", "时"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DefaultCandidateNames is the order tried when nothing else is configured.
var DefaultCandidateNames = []string{"utf-8", "gbk", "gb2312", "big5", "gb18030"}

// Candidate is one encoding to attempt.
type Candidate struct {
	Name     string
	Encoding encoding.Encoding
}

// Result describes a successful resolution.
type Result struct {
	Text     string
	Encoding string
	BOM      bool
}

// Resolver decodes raw bytes using the first acceptable candidate
type Resolver struct {
	candidates []Candidate
	logger     *slog.Logger
}

// NewResolver creates a resolver over an explicit candidate list
func NewResolver(candidates []Candidate, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		candidates: candidates,
		logger:     logger.With(slog.String("component", "encoding_resolver")),
	}
}

// NewResolverFromNames builds candidates from WHATWG encoding labels such as
// "utf-8", "gbk" or "big5". An empty list selects DefaultCandidateNames.
func NewResolverFromNames(names []string, logger *slog.Logger) (*Resolver, error) {
	if len(names) == 0 {
		names = DefaultCandidateNames
	}
	candidates := make([]Candidate, 0, len(names))
	for _, name := range names {
		c, err := LookupCandidate(name)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return NewResolver(candidates, logger), nil
}

// DefaultResolver returns a resolver over the default candidate order.
func DefaultResolver() *Resolver {
	r, err := NewResolverFromNames(nil, nil)
	if err != nil {
		panic(err)
	}
	return r
}

// LookupCandidate resolves an encoding label. gb2312 resolves to GBK, its superset.
func LookupCandidate(name string) (Candidate, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return Candidate{}, apperrors.NewConfigError(fmt.Sprintf("unknown encoding %q", name), err)
	}
	return Candidate{Name: strings.ToUpper(strings.TrimSpace(name)), Encoding: enc}, nil
}

// Candidates returns the configured candidate names in order.
func (r *Resolver) Candidates() []string {
	names := make([]string, len(r.candidates))
	for i, c := range r.candidates {
		names[i] = c.Name
	}
	return names
}

// Resolve decodes raw and returns the text of the first acceptable candidate.
func (r *Resolver) Resolve(raw []byte) (string, error) {
	res, err := r.ResolveDetailed(raw)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// ResolveDetailed is Resolve but also reports which encoding was accepted.
func (r *Resolver) ResolveDetailed(raw []byte) (*Result, error) {
	if len(raw) == 0 {
		return nil, apperrors.NewEncodingError("file is empty", nil).
			WithContext("candidates", r.Candidates())
	}

	if bytes.HasPrefix(raw, utf8BOM) {
		text, err := decode(unicode.UTF8, raw[len(utf8BOM):])
		if err == nil && !HasMojibake(text) {
			r.logger.Debug("decoded with byte order mark", slog.String("encoding", "UTF-8"))
			return &Result{Text: text, Encoding: "UTF-8", BOM: true}, nil
		}
		raw = raw[len(utf8BOM):]
	}

	var rejected []string
	for _, c := range r.candidates {
		text, err := decode(c.Encoding, raw)
		if err != nil {
			r.logger.Debug("candidate failed to decode",
				slog.String("encoding", c.Name),
				slog.String("error", err.Error()))
			rejected = append(rejected, c.Name)
			continue
		}
		if reason := rejectReason(text); reason != "" {
			r.logger.Debug("candidate rejected",
				slog.String("encoding", c.Name),
				slog.String("reason", reason))
			rejected = append(rejected, c.Name)
			continue
		}
		r.logger.Debug("decoded", slog.String("encoding", c.Name), slog.Int("bytes", len(raw)))
		return &Result{Text: text, Encoding: c.Name}, nil
	}

	return nil, apperrors.NewEncodingError("no candidate encoding produced a clean report", nil).
		WithContext("candidates", rejected)
}

func decode(enc encoding.Encoding, raw []byte) (string, error) {
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func rejectReason(text string) string {
	switch {
	case HasMojibake(text):
		return "mojibake"
	case !hasCJK(text):
		return "no CJK ideographs"
	case !hasHeaderTokens(text):
		return "missing 月/日/时 tokens"
	}
	return ""
}

// HasMojibake reports whether text contains a known mis-decoding marker.
func HasMojibake(text string) bool {
	for _, m := range mojibakeMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

func hasCJK(text string) bool {
	for _, r := range text {
		if r >= 0x4E00 && r <= 0x9FFF {
			return true
		}
	}
	return false
}

func hasHeaderTokens(text string) bool {
	for _, tok := range headerTokens {
		if !strings.Contains(text, tok) {
			return false
		}
	}
	return true
}

// Resolve decodes raw with the default candidate order.
func Resolve(raw []byte) (string, error) {
	return DefaultResolver().Resolve(raw)
}
