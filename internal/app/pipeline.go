package app

import (
	"path"

	"go.trai.ch/kiln/internal/adapters/processors"
	"go.trai.ch/kiln/internal/core/domain"
)

// Task names of the asset pipeline.
const (
	TaskGenerateAssets = "generate-assets"
	TaskStyles         = "styles"
	TaskScripts        = "scripts"
	TaskVendorScripts  = "vendor-scripts"
	TaskVendorStyles   = "vendor-styles"
	TaskImages         = "images"
	TaskPlugins        = "plugins"
)

const (
	vendorJSBundle  = "vendor.js"
	vendorCSSBundle = "vendor.css"
	distDir         = "dist"
)

// Pipeline builds the generate-assets task tree for ps.
func Pipeline(ps *domain.PathSet) *domain.Task {
	return domain.Parallel(TaskGenerateAssets,
		domain.Leaf(TaskStyles, styles(ps)),
		domain.Leaf(TaskScripts, scripts(ps)),
		domain.Leaf(TaskVendorScripts, vendorScripts(ps)),
		domain.Leaf(TaskVendorStyles, vendorStyles(ps)),
		domain.Leaf(TaskImages, images(ps)),
		domain.Leaf(TaskPlugins, plugins(ps)),
	)
}

// WatchBindings returns the dev-loop bindings for ps. Tasks are taken from
// pipeline so a binding re-runs exactly the task generate-assets runs.
func WatchBindings(ps *domain.PathSet, pipeline *domain.Task) []domain.WatchBinding {
	stylesTask, _ := pipeline.Find(TaskStyles)
	scriptsTask, _ := pipeline.Find(TaskScripts)

	return []domain.WatchBinding{
		{
			Name:     TaskStyles,
			Patterns: []string{path.Join(ps.SCSS, "*.scss")},
			Task:     stylesTask,
			Reload:   true,
		},
		{
			Name:     "templates",
			Patterns: []string{path.Join(ps.Templates, "**", "*.html")},
			Reload:   true,
		},
		{
			Name: TaskScripts,
			Patterns: []string{
				path.Join(ps.JS, "*.js"),
				"!" + path.Join(ps.JS, "*"+domain.MinSuffix+".js"),
			},
			Task:   scriptsTask,
			Reload: true,
		},
	}
}

// minified is the step that writes the ".min" copy of its input.
func minified(processor, dest string) domain.TransformStep {
	return domain.TransformStep{
		Name:      "minify",
		Input:     domain.InputPrevious,
		Processor: processor,
		Rename:    domain.RenameRule{Suffix: domain.MinSuffix},
		Dest:      dest,
	}
}

func styles(ps *domain.PathSet) *domain.Transform {
	return &domain.Transform{
		Sources: []string{
			path.Join(ps.SCSS, "app.scss"),
			path.Join(ps.SCSS, "icons.scss"),
		},
		Base:     ps.SCSS,
		Required: true,
		Steps: []domain.TransformStep{
			{Name: "compile", Input: domain.InputSource, Processor: processors.Sass},
			{Name: "postcss", Input: domain.InputPrevious, Processor: processors.PostCSS, Dest: ps.CSS},
			minified(processors.MinifyCSS, ps.CSS),
		},
	}
}

func scripts(ps *domain.PathSet) *domain.Transform {
	return &domain.Transform{
		Sources: []string{
			path.Join(ps.JS, "app.js"),
			path.Join(ps.JS, "layout.js"),
			path.Join(ps.JS, "config.js"),
		},
		Base: ps.JS,
		Steps: []domain.TransformStep{
			{
				Name:      "minify",
				Input:     domain.InputSource,
				Processor: processors.MinifyJS,
				Rename:    domain.RenameRule{Suffix: domain.MinSuffix},
				Dest:      ps.JS,
			},
		},
	}
}

func vendorScripts(ps *domain.PathSet) *domain.Transform {
	return &domain.Transform{
		Sources: ps.VendorJS,
		Base:    ps.VendorRoot,
		Steps: []domain.TransformStep{
			{Name: "concat", Input: domain.InputSource, Bundle: vendorJSBundle, Dest: ps.JS},
			minified(processors.MinifyJS, ps.JS),
		},
	}
}

func vendorStyles(ps *domain.PathSet) *domain.Transform {
	return &domain.Transform{
		Sources: ps.VendorCSS,
		Base:    ps.VendorRoot,
		Steps: []domain.TransformStep{
			{Name: "concat", Input: domain.InputSource, Bundle: vendorCSSBundle, Processor: processors.PostCSS, Dest: ps.CSS},
			minified(processors.MinifyCSS, ps.CSS),
		},
	}
}

func images(ps *domain.PathSet) *domain.Transform {
	return &domain.Transform{
		Sources: []string{path.Join(ps.Images, "*")},
		Base:    ps.Images,
		Steps: []domain.TransformStep{
			{Name: "compress", Input: domain.InputSource, Processor: processors.Image, Dest: ps.ImagesOut},
		},
	}
}

// plugins copies the dist tree of every vendor package, dropping the "dist"
// segment: node_modules/swiper/dist/x.js lands in static/vendor/swiper/x.js.
func plugins(ps *domain.PathSet) *domain.Transform {
	sources := make([]string, 0, len(ps.VendorPackages))
	for _, pkg := range ps.VendorPackages {
		sources = append(sources, path.Join(ps.VendorRoot, pkg, distDir, "**"))
	}

	return &domain.Transform{
		Sources: sources,
		Base:    ps.VendorRoot,
		Steps: []domain.TransformStep{
			{
				Name:      "copy",
				Input:     domain.InputSource,
				Processor: processors.Copy,
				Rename:    domain.RenameRule{DropDir: distDir},
				Dest:      ps.Vendor,
			},
		},
	}
}
