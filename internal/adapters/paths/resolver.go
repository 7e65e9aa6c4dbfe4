// Package paths derives the source and output locations of an application.
package paths

import (
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tidwall/gjson"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.PathResolver = (*Resolver)(nil)

// Resolver implements ports.PathResolver.
type Resolver struct{}

// NewResolver creates a new path resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve derives the PathSet for cfg. The application name falls back to the
// name field of package.json, and the vendor package list to its dependencies.
func (r *Resolver) Resolve(cfg *domain.Config) (*domain.PathSet, error) {
	manifest, err := readManifest(cfg.Root)
	if err != nil {
		return nil, err
	}

	app := cfg.App
	if app == "" {
		app = manifest.Get("name").String()
	}
	if app == "" {
		return nil, zerr.With(domain.ErrMissingAppName, "root", cfg.Root)
	}
	if app == "." || app == ".." || strings.ContainsAny(app, `/\`) {
		return nil, zerr.With(zerr.With(domain.ErrInvalidConfig, "field", "app"), "value", app)
	}

	static := path.Join(app, "static")
	info, err := os.Stat(filepath.Join(cfg.Root, filepath.FromSlash(static)))
	if err != nil || !info.IsDir() {
		return nil, zerr.With(domain.ErrAppLayoutMissing, "path", filepath.Join(cfg.Root, app, "static"))
	}

	vendorRoot := cfg.VendorRoot
	if vendorRoot == "" {
		vendorRoot = domain.DefaultVendorRoot
	}
	vendorRoot = filepath.ToSlash(vendorRoot)

	ps := &domain.PathSet{
		Root:       cfg.Root,
		App:        app,
		Templates:  path.Join(app, "templates"),
		CSS:        path.Join(static, "css"),
		SCSS:       path.Join(static, "scss"),
		Fonts:      path.Join(static, "fonts"),
		Images:     path.Join(static, "images"),
		ImagesOut:  path.Join(static, "dist", "images"),
		JS:         path.Join(static, "js"),
		Vendor:     path.Join(static, "vendor"),
		VendorRoot: vendorRoot,
	}

	ps.VendorJS = slices.Clone(cfg.VendorJS)
	if len(ps.VendorJS) == 0 {
		ps.VendorJS = DefaultVendorJS(vendorRoot)
	}
	ps.VendorCSS = slices.Clone(cfg.VendorCSS)
	if len(ps.VendorCSS) == 0 {
		ps.VendorCSS = DefaultVendorCSS(vendorRoot)
	}
	ps.VendorPackages = slices.Clone(cfg.VendorPackages)
	if len(ps.VendorPackages) == 0 {
		ps.VendorPackages = dependencies(manifest)
	}

	return ps, nil
}

// readManifest loads package.json from root. A missing manifest is empty.
func readManifest(root string) (gjson.Result, error) {
	p := filepath.Join(root, domain.PackageFileName)
	data, err := os.ReadFile(p) //nolint:gosec // path is derived from the config root
	if err != nil {
		if os.IsNotExist(err) {
			return gjson.Result{}, nil
		}
		return gjson.Result{}, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", p)
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, zerr.With(domain.ErrConfigParseFailed, "path", p)
	}
	return gjson.ParseBytes(data), nil
}

// dependencies returns the sorted keys of the manifest's dependencies object.
func dependencies(manifest gjson.Result) []string {
	var names []string
	manifest.Get("dependencies").ForEach(func(key, _ gjson.Result) bool {
		names = append(names, key.String())
		return true
	})
	slices.Sort(names)
	return names
}
