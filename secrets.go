package siftz

import (
	"bufio"
	"bytes"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// SecretsName is the processor name of Secrets.
const SecretsName Name = "secrets"

// DefaultMatchTimeout bounds a single catalog pattern against one response.
const DefaultMatchTimeout = 2 * time.Second

const (
	defaultCatalogPath = "data/secrets.txt"
	labelPrefixLength  = 20
)

//go:embed data/secrets.txt
var embeddedCatalog embed.FS

// ResponseSource gives Secrets read access to the text of the last HTTP
// response, which some earlier stage of a larger pipeline fetched. The bool
// is false when nothing has been fetched yet.
type ResponseSource interface {
	LastResponse() (string, bool)
}

// ResponseFunc adapts a function to ResponseSource.
type ResponseFunc func() (string, bool)

// LastResponse implements ResponseSource.
func (f ResponseFunc) LastResponse() (string, bool) {
	return f()
}

// StaticResponse is a ResponseSource that always returns the same text.
type StaticResponse string

// LastResponse implements ResponseSource.
func (s StaticResponse) LastResponse() (string, bool) {
	return string(s), true
}

// Pattern is one line of a secrets catalog.
type Pattern struct {
	Label string
	Expr  string
	Line  int
}

// Catalog is a plain text file of secret patterns, one expression per line.
// Blank lines and lines starting with # are skipped. The file is read again
// on every scan; nothing is cached.
type Catalog struct {
	fsys    fs.FS
	path    string
	timeout time.Duration
}

// DefaultCatalog returns the catalog shipped with the package.
func DefaultCatalog() *Catalog {
	return NewCatalog(embeddedCatalog, defaultCatalogPath)
}

// NewCatalog returns a catalog read from path inside fsys.
func NewCatalog(fsys fs.FS, path string) *Catalog {
	return &Catalog{fsys: fsys, path: path, timeout: DefaultMatchTimeout}
}

// WithMatchTimeout sets how long one pattern may run against one response.
func (c *Catalog) WithMatchTimeout(d time.Duration) *Catalog {
	c.timeout = d
	return c
}

// Patterns reads the catalog.
func (c *Catalog) Patterns() ([]Pattern, error) {
	data, err := fs.ReadFile(c.fsys, c.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", c.path, err)
	}
	var patterns []Pattern
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Text()
		expr := strings.TrimSpace(raw)
		if expr == "" || strings.HasPrefix(expr, "#") {
			continue
		}
		patterns = append(patterns, Pattern{Label: Label(raw), Expr: expr, Line: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", c.path, err)
	}
	return patterns, nil
}

// Label derives the result key of a catalog line: its first twenty
// characters with everything outside [A-Za-z0-9_] removed.
func Label(line string) string {
	runes := []rune(line)
	if len(runes) > labelPrefixLength {
		runes = runes[:labelPrefixLength]
	}
	return labelStrip.ReplaceAllString(string(runes), "")
}

// Secrets scans the last response for every catalog pattern and replaces
// the current value with a map from label to the list of matches. Patterns
// without matches are left out; labels keep catalog order. The current
// value itself is not read.
//
// Catalog lines use the backtracking regexp2 dialect (lookaround is
// allowed), each bounded by the catalog's match timeout.
func Secrets(catalog *Catalog, source ResponseSource) Processor[Value] {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return Apply(SecretsName, func(ctx context.Context, v Value) (Value, error) {
		if source == nil {
			return v, fmt.Errorf("%w: no response source", ErrMissingResponse)
		}
		text, ok := source.LastResponse()
		if !ok {
			return v, ErrMissingResponse
		}
		patterns, err := catalog.Patterns()
		if err != nil {
			return v, err
		}
		found := NewMap()
		for _, p := range patterns {
			if err := ctx.Err(); err != nil {
				return v, err
			}
			matches, err := scanPattern(p, text, catalog.timeout)
			if err != nil {
				return v, err
			}
			if len(matches) == 0 {
				continue
			}
			if prev, ok := found.Get(p.Label); ok {
				matches = append(prev.items, matches...)
			}
			found.Set(p.Label, List(matches...))
		}
		return MapValue(found), nil
	})
}

func scanPattern(p Pattern, text string, timeout time.Duration) ([]Value, error) {
	re, err := regexp2.Compile(p.Expr, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("%w: catalog line %d: %v", ErrQuerySyntax, p.Line, err)
	}
	if timeout > 0 {
		re.MatchTimeout = timeout
	}
	var out []Value
	m, err := re.FindStringMatch(text)
	for m != nil && err == nil {
		out = append(out, Text(m.String()))
		m, err = re.FindNextMatch(m)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog line %d: %w", p.Line, err)
	}
	return out, nil
}
