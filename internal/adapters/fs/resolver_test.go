package fs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/core/domain"
)

func touch(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(f), 0o600))
	}
}

func sources(items []domain.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Source
	}
	return out
}

func rels(items []domain.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Rel
	}
	return out
}

func TestResolver_Resolve(t *testing.T) {
	root := t.TempDir()
	touch(t, root,
		"app/static/js/app.js",
		"app/static/js/layout.js",
		"app/static/js/app.min.js",
		"app/static/js/pages/dashboard.js",
		"app/static/scss/app.scss",
		"app/static/scss/_variables.scss",
	)

	tests := []struct {
		name     string
		patterns []string
		base     string
		sources  []string
		rels     []string
	}{
		{
			name:     "star stays in segment",
			patterns: []string{"app/static/js/*.js"},
			sources:  []string{"app/static/js/app.js", "app/static/js/app.min.js", "app/static/js/layout.js"},
			rels:     []string{"app.js", "app.min.js", "layout.js"},
		},
		{
			name:     "exclusion",
			patterns: []string{"app/static/js/*.js", "!app/static/js/*.min.js"},
			sources:  []string{"app/static/js/app.js", "app/static/js/layout.js"},
			rels:     []string{"app.js", "layout.js"},
		},
		{
			name:     "double star crosses directories",
			patterns: []string{"app/static/js/**/*.js", "!app/static/js/*.min.js"},
			sources:  []string{"app/static/js/app.js", "app/static/js/layout.js", "app/static/js/pages/dashboard.js"},
			rels:     []string{"app.js", "layout.js", "pages/dashboard.js"},
		},
		{
			name:     "literal paths keep pattern order",
			patterns: []string{"app/static/js/layout.js", "app/static/js/app.js", "app/static/js/missing.js"},
			sources:  []string{"app/static/js/layout.js", "app/static/js/app.js"},
			rels:     []string{"layout.js", "app.js"},
		},
		{
			name:     "duplicates dropped",
			patterns: []string{"app/static/js/app.js", "app/static/js/*.js"},
			sources:  []string{"app/static/js/app.js", "app/static/js/app.min.js", "app/static/js/layout.js"},
			rels:     []string{"app.js", "app.min.js", "layout.js"},
		},
		{
			name:     "explicit base",
			patterns: []string{"app/static/js/pages/*.js"},
			base:     "app/static",
			sources:  []string{"app/static/js/pages/dashboard.js"},
			rels:     []string{"js/pages/dashboard.js"},
		},
		{
			name:     "no matches",
			patterns: []string{"app/static/css/*.css"},
			sources:  []string{},
			rels:     []string{},
		},
	}

	r := fs.NewResolver(fs.NewWalker())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := r.Resolve(root, tt.patterns, tt.base)
			require.NoError(t, err)
			assert.Equal(t, tt.sources, sources(items))
			assert.Equal(t, tt.rels, rels(items))
		})
	}
}

func TestResolver_InvalidPattern(t *testing.T) {
	r := fs.NewResolver(fs.NewWalker())

	_, err := r.Resolve(t.TempDir(), []string{"js/[*.js"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrInvalidPattern.Error())
}

func TestResolver_Matcher(t *testing.T) {
	root := t.TempDir()
	r := fs.NewResolver(fs.NewWalker())

	match, err := r.Matcher(root, []string{"app/static/js/*.js", "!app/static/js/*.min.js"})
	require.NoError(t, err)

	assert.True(t, match(filepath.Join(root, "app", "static", "js", "app.js")))
	assert.True(t, match("app/static/js/layout.js"))
	assert.False(t, match(filepath.Join(root, "app", "static", "js", "app.min.js")))
	assert.False(t, match(filepath.Join(root, "app", "static", "js", "pages", "a.js")))
	assert.False(t, match(filepath.Join(filepath.Dir(root), "elsewhere", "app.js")))
}

func TestResolver_MatcherGlobstarMatchesZeroDirs(t *testing.T) {
	root := t.TempDir()
	r := fs.NewResolver(fs.NewWalker())

	match, err := r.Matcher(root, []string{"app/templates/**/*.html"})
	require.NoError(t, err)

	assert.True(t, match("app/templates/base.html"))
	assert.True(t, match("app/templates/pages/home.html"))
	assert.False(t, match("app/templates/base.txt"))
}

func TestWalker_SkipsVCSAndKilnDirs(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.txt", ".git/HEAD", ".kiln/digests.json", "sub/b.txt")

	var files []string
	for f := range fs.NewWalker().WalkFiles(root) {
		rel, err := filepath.Rel(root, f)
		require.NoError(t, err)
		files = append(files, filepath.ToSlash(rel))
	}

	assert.ElementsMatch(t, []string{"a.txt", "sub/b.txt"}, files)
}

func TestWalker_MissingRoot(t *testing.T) {
	var files []string
	for f := range fs.NewWalker().WalkFiles(filepath.Join(t.TempDir(), "missing")) {
		files = append(files, f)
	}
	assert.Empty(t, files)
}

func TestHasher(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.txt")
	h := fs.NewHasher()

	sum, err := h.ComputeFileHash(filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, h.HashBytes([]byte("a.txt")), sum)

	_, err = h.ComputeFileHash(filepath.Join(root, "missing"))
	assert.Error(t, err)
}
