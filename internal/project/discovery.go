// Package project locates a ttt descriptor on disk and resolves the files it
// declares. Script entries may be literal paths or doublestar globs relative
// to the project root.
package project

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"ttt/internal/errors"
)

// ManifestNames are the descriptor file names searched for, in priority order.
var ManifestNames = []string{"ttt.yaml", "ttt.yml", "ttt.json"}

// FindManifest walks from startDir up to the filesystem root and returns the
// first descriptor found.
func FindManifest(startDir string) (string, error) {
	start, err := filepath.Abs(startDir)
	if err != nil {
		return "", errors.NewFileError(startDir, "invalid directory", err)
	}

	dir := start
	for {
		for _, name := range ManifestNames {
			candidate := filepath.Join(dir, name)
			info, err := os.Stat(candidate)
			if err == nil && info.Mode().IsRegular() {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.NewFileNotFoundError(filepath.Join(start, ManifestNames[0]), fs.ErrNotExist)
}

// ScriptFile is one resolved script entry.
type ScriptFile struct {
	Pattern    string `json:"pattern" yaml:"pattern"`
	Path       string `json:"path,omitempty" yaml:"path,omitempty"`
	Size       int64  `json:"size" yaml:"size"`
	Missing    bool   `json:"missing,omitempty" yaml:"missing,omitempty"`
	Regular    bool   `json:"regular" yaml:"regular"`
	Executable bool   `json:"executable" yaml:"executable"`
}

// FileFilter decides whether a glob match is kept. rel is the match relative
// to the static directory the pattern starts from, so a pattern rooted in a
// hidden directory (".tools/*") still sees its own files.
type FileFilter func(rel string) bool

// DefaultFilters drops hidden files, anything below hidden directories and
// editor backups from glob matches. Literal script paths are never filtered.
func DefaultFilters() []FileFilter {
	return []FileFilter{hiddenFilter(), backupFilter()}
}

// Resolver expands script patterns against a project root.
type Resolver struct {
	root    string
	fsys    fs.FS
	filters []FileFilter
}

// NewResolver creates a Resolver rooted at root using the default filters.
func NewResolver(root string) *Resolver {
	return &Resolver{
		root:    root,
		fsys:    os.DirFS(root),
		filters: DefaultFilters(),
	}
}

// ResolveScripts expands every pattern relative to root.
func ResolveScripts(root string, patterns []string) ([]ScriptFile, error) {
	return NewResolver(root).Resolve(patterns)
}

// Resolve expands patterns in order. A pattern matching nothing yields a
// single Missing entry; a pattern leaving the root is a config error.
func (r *Resolver) Resolve(patterns []string) ([]ScriptFile, error) {
	var files []ScriptFile
	for _, pattern := range patterns {
		clean, err := cleanPattern(pattern)
		if err != nil {
			return nil, err
		}

		matches, err := r.match(clean)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			files = append(files, ScriptFile{Pattern: pattern, Missing: true})
			continue
		}

		for _, rel := range matches {
			file, err := r.stat(pattern, rel)
			if err != nil {
				return nil, err
			}
			files = append(files, file)
		}
	}
	return files, nil
}

func (r *Resolver) match(pattern string) ([]string, error) {
	if !hasMeta(pattern) {
		if _, err := fs.Stat(r.fsys, pattern); err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				return nil, nil
			}
			return nil, errors.WrapFileError(filepath.Join(r.root, pattern), err)
		}
		return []string{pattern}, nil
	}

	matches, err := doublestar.Glob(r.fsys, pattern)
	if err != nil {
		return nil, errors.NewConfigError("invalid script pattern: "+pattern, err)
	}

	base, _ := doublestar.SplitPattern(pattern)
	kept := matches[:0]
	for _, m := range matches {
		rel := m
		if base != "." {
			rel = strings.TrimPrefix(m, base+"/")
		}
		if r.keep(rel) {
			kept = append(kept, m)
		}
	}
	sort.Strings(kept)
	return kept, nil
}

func (r *Resolver) keep(rel string) bool {
	for _, filter := range r.filters {
		if !filter(rel) {
			return false
		}
	}
	return true
}

func (r *Resolver) stat(pattern, rel string) (ScriptFile, error) {
	info, err := fs.Stat(r.fsys, rel)
	if err != nil {
		return ScriptFile{}, errors.WrapFileError(filepath.Join(r.root, filepath.FromSlash(rel)), err)
	}

	return ScriptFile{
		Pattern:    pattern,
		Path:       rel,
		Size:       info.Size(),
		Regular:    info.Mode().IsRegular(),
		Executable: isExecutable(info),
	}, nil
}

func cleanPattern(pattern string) (string, error) {
	p := filepath.ToSlash(strings.TrimSpace(pattern))
	if p == "" {
		return "", errors.NewConfigError("empty script entry", nil)
	}
	if path.IsAbs(p) || filepath.IsAbs(pattern) {
		return "", errors.NewConfigError("script must be relative to the project root: "+pattern, nil)
	}

	p = path.Clean(p)
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", errors.NewConfigError("script escapes the project root: "+pattern, nil)
	}
	return p, nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

func isExecutable(info fs.FileInfo) bool {
	if !info.Mode().IsRegular() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

func hiddenFilter() FileFilter {
	return func(rel string) bool {
		for _, segment := range strings.Split(rel, "/") {
			if strings.HasPrefix(segment, ".") {
				return false
			}
		}
		return true
	}
}

func backupFilter() FileFilter {
	return func(rel string) bool {
		return !strings.HasSuffix(rel, ".bak") && !strings.HasSuffix(rel, "~")
	}
}
