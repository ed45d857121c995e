package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/patrickmn/go-cache"
)

// MainNamespace is the namespace used for names without an "@alias/" prefix.
const MainNamespace = "__main__"

var (
	// ErrTemplateNotFound reports a name that no search path contains.
	ErrTemplateNotFound = errors.New("loader: template not found")
	// ErrUnknownAlias reports an "@alias/" name with no registered paths.
	ErrUnknownAlias = errors.New("loader: unknown alias")
)

// unresolvedPrefix marks names Abs could not map to a file. Get refuses them
// with the original lookup error.
const unresolvedPrefix = "unresolved:"

// Ensure AliasLoader can back a pongo2 template set.
var _ pongo2.TemplateLoader = (*AliasLoader)(nil)

type stamp struct {
	modTime time.Time
	size    int64
}

// AliasLoader resolves template names against the main search paths or, for
// names shaped like "@alias/file.twig", against the paths registered for that
// alias. Successful lookups are cached until the next registration or
// Invalidate. Every file handed out by Get is stamped so Changed can report
// edits.
type AliasLoader struct {
	mu     sync.RWMutex
	paths  map[string][]string
	cache  *cache.Cache
	stamps map[string]stamp
}

// NewAliasLoader registers paths under the main namespace and every alias in
// aliases.
func NewAliasLoader(paths []string, aliases map[string]string) *AliasLoader {
	l := &AliasLoader{
		paths:  make(map[string][]string),
		cache:  cache.New(cache.NoExpiration, 0),
		stamps: make(map[string]stamp),
	}
	for _, path := range paths {
		l.AddPath(path, MainNamespace)
	}

	names := make([]string, 0, len(aliases))
	for alias := range aliases {
		names = append(names, alias)
	}
	sort.Strings(names)
	for _, alias := range names {
		l.AddPath(aliases[alias], alias)
	}
	return l
}

// AddPath appends path to the search list of alias. An empty alias means the
// main namespace. Every call drops cached lookups.
func (l *AliasLoader) AddPath(path, alias string) {
	alias = strings.TrimPrefix(strings.TrimSpace(alias), "@")
	if alias == "" {
		alias = MainNamespace
	}

	dir := strings.TrimRight(path, `/\`)
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.cache.Flush()
	l.paths[alias] = append(l.paths[alias], dir)
}

// Paths returns the search paths registered for alias.
func (l *AliasLoader) Paths(alias string) []string {
	if alias == "" {
		alias = MainNamespace
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	return append([]string(nil), l.paths[alias]...)
}

// Namespaces lists every namespace with at least one path, sorted.
func (l *AliasLoader) Namespaces() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, 0, len(l.paths))
	for alias := range l.paths {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

// Invalidate drops every cached lookup and file stamp.
func (l *AliasLoader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cache.Flush()
	l.stamps = make(map[string]stamp)
}

// Changed reports whether any file read through Get has since been modified
// or removed.
func (l *AliasLoader) Changed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for path, seen := range l.stamps {
		info, err := os.Stat(path)
		if err != nil || !info.ModTime().Equal(seen.modTime) || info.Size() != seen.size {
			return true
		}
	}
	return false
}

// Resolve maps a template name to an existing file.
func (l *AliasLoader) Resolve(name string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if cached, ok := l.cache.Get(name); ok {
		return cached.(string), nil
	}

	path, err := l.find(name)
	if err != nil {
		return "", err
	}
	l.cache.Set(name, path, cache.NoExpiration)
	return path, nil
}

// Abs satisfies pongo2.TemplateLoader. Names are resolved against the loader
// roots, never against the including template. A name that does not resolve
// is marked so that Get fails with the lookup error instead of reading a
// path built from it.
func (l *AliasLoader) Abs(_, name string) string {
	if path, err := l.Resolve(name); err == nil {
		return path
	}
	return unresolvedPrefix + name
}

// Get satisfies pongo2.TemplateLoader.
func (l *AliasLoader) Get(path string) (io.Reader, error) {
	// String templates hand include names to Get without going through Abs.
	name, marked := strings.CutPrefix(path, unresolvedPrefix)
	if marked || !filepath.IsAbs(path) {
		resolved, err := l.Resolve(name)
		if err != nil {
			return nil, err
		}
		path = resolved
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, path)
		}
		return nil, fmt.Errorf("loader: open %q: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("loader: stat %q: %w", path, err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("loader: read %q: %w", path, err)
	}

	l.mu.Lock()
	l.stamps[path] = stamp{modTime: info.ModTime(), size: info.Size()}
	l.mu.Unlock()

	return bytes.NewReader(data), nil
}

func (l *AliasLoader) find(name string) (string, error) {
	if filepath.IsAbs(name) {
		if isFile(name) {
			return name, nil
		}
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}

	alias, rest, err := splitName(name)
	if err != nil {
		return "", err
	}

	paths, ok := l.paths[alias]
	if !ok {
		if alias == MainNamespace {
			return "", fmt.Errorf("%w: %s (no search paths)", ErrTemplateNotFound, name)
		}
		return "", fmt.Errorf("%w: %q in %s", ErrUnknownAlias, alias, name)
	}

	clean := filepath.Clean(filepath.FromSlash(rest))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("loader: %s resolves outside the configured directories", name)
	}

	for _, dir := range paths {
		candidate := filepath.Join(dir, clean)
		if isFile(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s (looked into: %s)", ErrTemplateNotFound, name, strings.Join(paths, ", "))
}

func splitName(name string) (alias, rest string, err error) {
	if !strings.HasPrefix(name, "@") {
		return MainNamespace, name, nil
	}
	idx := strings.Index(name, "/")
	if idx < 2 {
		return "", "", fmt.Errorf("loader: malformed namespaced template name %q", name)
	}
	return name[1:idx], name[idx+1:], nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
