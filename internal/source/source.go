// Package source resolves command-line input references and loads each one
// fully into memory for scanning.
//
// A reference is "-" for standard input, an http(s) URL, a literal file path,
// or a doublestar glob pattern ("**" crosses directories). Every input is
// capped at [Options.MaxBytes]; oversized inputs fail with [ErrTooLarge]
// rather than being scanned partially.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/gzip"
)

// StdinRef is the reference that selects standard input.
const StdinRef = "-"

// stdinName labels documents read from standard input.
const stdinName = "<stdin>"

// defaultTimeout bounds a single remote fetch attempt.
const defaultTimeout = 10 * time.Second

var (
	// ErrTooLarge is returned when an input exceeds the configured size cap.
	ErrTooLarge = errors.New("input exceeds size limit")
	// ErrNoMatch is returned when a glob pattern matches no files.
	ErrNoMatch = errors.New("pattern matched no files")
	// ErrRemoteDisabled is returned for URL inputs when remote loading is off.
	ErrRemoteDisabled = errors.New("remote inputs are disabled")
)

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Document is one fully loaded input.
type Document struct {
	// Name identifies the input in diagnostics and locations.
	Name string
	// Text is the complete content.
	Text string
}

// Options configures a [Loader].
type Options struct {
	// MaxBytes caps the size of each input after decompression. Zero or
	// negative disables the cap.
	MaxBytes int64
	// Exclude lists doublestar patterns removed from glob expansions.
	// Explicitly named files are never excluded.
	Exclude []string
	// AllowRemote enables http and https references.
	AllowRemote bool
	// Decompress transparently gunzips inputs whose name ends in ".gz".
	Decompress bool
	// Timeout bounds each remote request attempt. Zero means 10 seconds.
	Timeout time.Duration
	// Stdin replaces os.Stdin for the "-" reference.
	Stdin io.Reader
}

// Loader resolves and loads inputs. It is safe for concurrent use once
// constructed.
type Loader struct {
	opts   Options
	client *retryablehttp.Client
}

// NewLoader returns a Loader configured by opts.
func NewLoader(opts Options) *Loader {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = opts.Timeout
	client.Logger = nil // suppress retryablehttp's default logging
	return &Loader{opts: opts, client: client}
}

// IsRemote reports whether ref is an http or https URL.
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// ///////////////////////////////////////////////
// Resolve
// ///////////////////////////////////////////////

// Resolve expands args into a deduplicated list of references, preserving
// argument order. Glob patterns expand to the files they match minus any
// excluded paths; a pattern with no matches is an error. Literal paths, URLs
// and "-" pass through unchanged and are checked when loaded.
func (l *Loader) Resolve(args []string) ([]string, error) {
	seen := make(map[string]bool, len(args))
	var out []string
	add := func(ref string) {
		if !seen[ref] {
			seen[ref] = true
			out = append(out, ref)
		}
	}

	for _, arg := range args {
		if arg == StdinRef || IsRemote(arg) || !hasGlobMeta(arg) {
			add(arg)
			continue
		}
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", arg, err)
		}
		sort.Strings(matches)
		kept := 0
		for _, m := range matches {
			if l.excluded(m) {
				slog.Debug("excluding input", "path", m)
				continue
			}
			add(m)
			kept++
		}
		if kept == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoMatch, arg)
		}
	}
	return out, nil
}

// hasGlobMeta reports whether s contains doublestar pattern syntax.
func hasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

// excluded reports whether path matches any exclude pattern.
func (l *Loader) excluded(path string) bool {
	slashed := filepath.ToSlash(filepath.Clean(path))
	for _, pattern := range l.opts.Exclude {
		matched, err := doublestar.Match(pattern, slashed)
		if err != nil {
			slog.Warn("invalid glob pattern", "pattern", pattern, "error", err)
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// ///////////////////////////////////////////////
// Load
// ///////////////////////////////////////////////

// Load reads the input named by ref into memory.
func (l *Loader) Load(ctx context.Context, ref string) (Document, error) {
	switch {
	case ref == StdinRef:
		data, err := l.readLimited(l.opts.Stdin, stdinName)
		if err != nil {
			return Document{}, err
		}
		return Document{Name: stdinName, Text: string(data)}, nil
	case IsRemote(ref):
		return l.loadRemote(ctx, ref)
	default:
		return l.loadFile(ref)
	}
}

// loadFile reads a local file, gunzipping it when configured.
func (l *Loader) loadFile(path string) (Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Document{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Document{}, fmt.Errorf("%s is a directory", path)
	}
	gz := l.gzipped(path)
	if !gz && l.opts.MaxBytes > 0 && info.Size() > l.opts.MaxBytes {
		return Document{}, fmt.Errorf("%s (%d bytes): %w", path, info.Size(), ErrTooLarge)
	}

	f, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if gz {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return Document{}, fmt.Errorf("gunzip %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}

	data, err := l.readLimited(r, path)
	if err != nil {
		return Document{}, err
	}
	return Document{Name: path, Text: string(data)}, nil
}

// loadRemote fetches a URL with retries.
func (l *Loader) loadRemote(ctx context.Context, rawURL string) (Document, error) {
	if !l.opts.AllowRemote {
		return Document{}, fmt.Errorf("%s: %w", rawURL, ErrRemoteDisabled)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Document{}, fmt.Errorf("build request for %s: %w", rawURL, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode)
	}
	u, perr := url.Parse(rawURL)
	gz := perr == nil && l.gzipped(u.Path)
	// The cap applies to decompressed bytes, so only plain bodies can be
	// rejected by their declared length.
	if !gz && l.opts.MaxBytes > 0 && resp.ContentLength > l.opts.MaxBytes {
		return Document{}, fmt.Errorf("%s (%d bytes): %w", rawURL, resp.ContentLength, ErrTooLarge)
	}

	var r io.Reader = resp.Body
	if gz {
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return Document{}, fmt.Errorf("gunzip %s: %w", rawURL, err)
		}
		defer zr.Close()
		r = zr
	}

	data, err := l.readLimited(r, rawURL)
	if err != nil {
		return Document{}, err
	}
	return Document{Name: rawURL, Text: string(data)}, nil
}

// gzipped reports whether name should be decompressed.
func (l *Loader) gzipped(name string) bool {
	return l.opts.Decompress && strings.EqualFold(filepath.Ext(name), ".gz")
}

// readLimited reads all of r, failing with [ErrTooLarge] once the cap is
// exceeded.
func (l *Loader) readLimited(r io.Reader, name string) ([]byte, error) {
	if l.opts.MaxBytes <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}
	data, err := io.ReadAll(io.LimitReader(r, l.opts.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if int64(len(data)) > l.opts.MaxBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes: %w", name, l.opts.MaxBytes, ErrTooLarge)
	}
	return data, nil
}
