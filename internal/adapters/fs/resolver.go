package fs

import (
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.SourceResolver = (*Resolver)(nil)

const globMeta = "*?[{"

// Resolver implements ports.SourceResolver using gobwas/glob.
// Patterns are slash-separated and relative to the root they are resolved
// against. "*" stays within a path segment, "**" crosses segments and may
// match none, and a leading "!" turns a pattern into an exclusion.
type Resolver struct {
	walker *Walker
}

// NewResolver creates a new Resolver.
func NewResolver(walker *Walker) *Resolver {
	return &Resolver{walker: walker}
}

// pattern is one compiled include.
type pattern struct {
	raw     string
	literal bool
	prefix  string
	globs   []glob.Glob
}

func (p *pattern) match(rel string) bool {
	if p.literal {
		return rel == p.raw
	}
	for _, g := range p.globs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// Resolve expands patterns into items ordered by pattern, then lexically.
// Files matched by more than one pattern are returned once. Literal paths that
// do not exist are skipped, like globs that match nothing.
func (r *Resolver) Resolve(root string, patterns []string, base string) ([]domain.Item, error) {
	includes, excludes, err := compile(patterns)
	if err != nil {
		return nil, err
	}
	if len(includes) == 0 {
		return nil, nil
	}

	if base == "" {
		base = includes[0].prefix
	}
	base = path.Clean(filepath.ToSlash(base))

	seen := make(map[string]bool)
	var items []domain.Item

	for _, inc := range includes {
		var matches []string

		if inc.literal {
			info, statErr := os.Stat(filepath.Join(root, filepath.FromSlash(inc.raw)))
			if statErr == nil && info.Mode().IsRegular() {
				matches = append(matches, inc.raw)
			}
		} else {
			for file := range r.walker.WalkFiles(filepath.Join(root, filepath.FromSlash(inc.prefix))) {
				rel, relErr := filepath.Rel(root, file)
				if relErr != nil {
					continue
				}
				rel = filepath.ToSlash(rel)
				if inc.match(rel) {
					matches = append(matches, rel)
				}
			}
			slices.Sort(matches)
		}

		for _, rel := range matches {
			if seen[rel] || excluded(excludes, rel) {
				continue
			}
			seen[rel] = true
			items = append(items, domain.Item{Source: rel, Rel: relativeTo(base, rel)})
		}
	}

	return items, nil
}

// Matcher compiles patterns into a predicate over absolute or root-relative paths.
func (r *Resolver) Matcher(root string, patterns []string) (ports.Matcher, error) {
	includes, excludes, err := compile(patterns)
	if err != nil {
		return nil, err
	}

	return func(p string) bool {
		rel := p
		if filepath.IsAbs(p) {
			var relErr error
			rel, relErr = filepath.Rel(root, p)
			if relErr != nil || strings.HasPrefix(rel, "..") {
				return false
			}
		}
		rel = filepath.ToSlash(rel)

		if excluded(excludes, rel) {
			return false
		}
		for _, inc := range includes {
			if inc.match(rel) {
				return true
			}
		}
		return false
	}, nil
}

func compile(patterns []string) (includes, excludes []*pattern, err error) {
	for _, raw := range patterns {
		negate := strings.HasPrefix(raw, "!")
		p, compileErr := compilePattern(strings.TrimPrefix(raw, "!"))
		if compileErr != nil {
			return nil, nil, compileErr
		}
		if negate {
			excludes = append(excludes, p)
		} else {
			includes = append(includes, p)
		}
	}
	return includes, excludes, nil
}

func compilePattern(raw string) (*pattern, error) {
	clean := path.Clean(filepath.ToSlash(raw))
	p := &pattern{raw: clean, prefix: staticPrefix(clean)}

	if !strings.ContainsAny(clean, globMeta) {
		p.literal = true
		return p, nil
	}

	// "a/**/b" also has to match "a/b".
	variants := []string{clean}
	if strings.Contains(clean, "/**/") {
		variants = append(variants, strings.ReplaceAll(clean, "/**/", "/"))
	}
	if strings.HasPrefix(clean, "**/") {
		variants = append(variants, strings.TrimPrefix(clean, "**/"))
	}

	for _, v := range variants {
		g, err := glob.Compile(v, '/')
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrInvalidPattern.Error()), "pattern", raw)
		}
		p.globs = append(p.globs, g)
	}
	return p, nil
}

// staticPrefix returns the directory part of a pattern before its first glob segment.
// For a literal path it is the containing directory.
func staticPrefix(p string) string {
	segments := strings.Split(p, "/")
	var static []string
	for i, s := range segments {
		if strings.ContainsAny(s, globMeta) || i == len(segments)-1 {
			break
		}
		static = append(static, s)
	}
	if len(static) == 0 {
		return "."
	}
	return strings.Join(static, "/")
}

func excluded(excludes []*pattern, rel string) bool {
	for _, ex := range excludes {
		if ex.match(rel) {
			return true
		}
	}
	return false
}

// relativeTo returns rel relative to base, or its file name when it lies outside base.
func relativeTo(base, rel string) string {
	if base == "." {
		return rel
	}
	if trimmed, ok := strings.CutPrefix(rel, base+"/"); ok {
		return trimmed
	}
	return path.Base(rel)
}
