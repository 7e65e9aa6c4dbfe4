package paths_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/paths"
	"go.trai.ch/kiln/internal/core/domain"
)

func setupApp(t *testing.T, manifest string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "shop", "static"), 0o750))
	if manifest != "" {
		require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"), []byte(manifest), 0o600))
	}
	return root
}

func TestResolve_Layout(t *testing.T) {
	root := setupApp(t, "")

	ps, err := paths.NewResolver().Resolve(&domain.Config{Root: root, App: "shop"})
	require.NoError(t, err)

	want := &domain.PathSet{
		Root:           root,
		App:            "shop",
		Templates:      "shop/templates",
		CSS:            "shop/static/css",
		SCSS:           "shop/static/scss",
		Fonts:          "shop/static/fonts",
		Images:         "shop/static/images",
		ImagesOut:      "shop/static/dist/images",
		JS:             "shop/static/js",
		Vendor:         "shop/static/vendor",
		VendorRoot:     "node_modules",
		VendorJS:       paths.DefaultVendorJS("node_modules"),
		VendorCSS:      paths.DefaultVendorCSS("node_modules"),
		VendorPackages: nil,
	}
	if diff := cmp.Diff(want, ps); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_ManifestFallbacks(t *testing.T) {
	root := setupApp(t, `{
  "name": "shop",
  "dependencies": {"swiper": "^11.0.0", "bootstrap": "^5.3.0"},
  "devDependencies": {"sass": "^1.70.0"}
}`)

	ps, err := paths.NewResolver().Resolve(&domain.Config{Root: root})
	require.NoError(t, err)

	assert.Equal(t, "shop", ps.App)
	assert.Equal(t, []string{"bootstrap", "swiper"}, ps.VendorPackages)
}

func TestResolve_ConfigOverrides(t *testing.T) {
	root := setupApp(t, `{"name": "other", "dependencies": {"swiper": "1"}}`)

	ps, err := paths.NewResolver().Resolve(&domain.Config{
		Root:           root,
		App:            "shop",
		VendorRoot:     "vendor_modules",
		VendorJS:       []string{"vendor_modules/a.js"},
		VendorPackages: []string{"jquery"},
	})
	require.NoError(t, err)

	assert.Equal(t, "shop", ps.App)
	assert.Equal(t, []string{"vendor_modules/a.js"}, ps.VendorJS)
	assert.Equal(t, "vendor_modules/flatpickr/dist/flatpickr.css", ps.VendorCSS[0])
	assert.Equal(t, []string{"jquery"}, ps.VendorPackages)
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		app      string
		want     error
	}{
		{name: "no app name", want: domain.ErrMissingAppName},
		{name: "manifest without name", manifest: `{"version": "1.0.0"}`, want: domain.ErrMissingAppName},
		{name: "missing static dir", app: "blog", want: domain.ErrAppLayoutMissing},
		{name: "path traversal", app: "../shop", want: domain.ErrInvalidConfig},
		{name: "malformed manifest", manifest: `{"name": `, app: "shop", want: domain.ErrConfigParseFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := setupApp(t, tt.manifest)

			_, err := paths.NewResolver().Resolve(&domain.Config{Root: root, App: tt.app})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want.Error())
		})
	}
}
