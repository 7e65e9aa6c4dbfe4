package app_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/app"
	"go.trai.ch/kiln/internal/core/domain"
)

func testPathSet() *domain.PathSet {
	return &domain.PathSet{
		Root:           "/work",
		App:            "shop",
		Templates:      "shop/templates",
		CSS:            "shop/static/css",
		SCSS:           "shop/static/scss",
		Images:         "shop/static/images",
		ImagesOut:      "shop/static/dist/images",
		JS:             "shop/static/js",
		Vendor:         "shop/static/vendor",
		VendorRoot:     "node_modules",
		VendorJS:       []string{"node_modules/jquery/dist/jquery.js"},
		VendorCSS:      []string{"node_modules/simple/dist/simple.css"},
		VendorPackages: []string{"swiper", "chart.js"},
	}
}

func TestPipeline_Shape(t *testing.T) {
	p := app.Pipeline(testPathSet())

	assert.Equal(t, app.TaskGenerateAssets, p.Name)
	assert.Equal(t, domain.KindParallel, p.Kind)

	var names []string
	for _, c := range p.Children {
		assert.Equal(t, domain.KindLeaf, c.Kind)
		require.NotNil(t, c.Transform)
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{
		app.TaskStyles,
		app.TaskScripts,
		app.TaskVendorScripts,
		app.TaskVendorStyles,
		app.TaskImages,
		app.TaskPlugins,
	}, names)
}

func TestPipeline_Styles(t *testing.T) {
	p := app.Pipeline(testPathSet())
	styles, ok := p.Find(app.TaskStyles)
	require.True(t, ok)

	tr := styles.Transform
	assert.True(t, tr.Required)
	assert.Equal(t, []string{"shop/static/scss/app.scss", "shop/static/scss/icons.scss"}, tr.Sources)

	require.Len(t, tr.Steps, 3)
	assert.Empty(t, tr.Steps[0].Dest, "compiled css is not written before postcss")
	assert.Equal(t, "shop/static/css", tr.Steps[1].Dest)
	assert.Equal(t, domain.InputPrevious, tr.Steps[2].Input)
	assert.Equal(t, "app.min.css", tr.Steps[2].Rename.Apply("app.css"))
}

func TestPipeline_Plugins(t *testing.T) {
	p := app.Pipeline(testPathSet())
	plugins, ok := p.Find(app.TaskPlugins)
	require.True(t, ok)

	assert.Equal(t, []string{
		"node_modules/swiper/dist/**",
		"node_modules/chart.js/dist/**",
	}, plugins.Transform.Sources)

	step := plugins.Transform.Steps[0]
	assert.Equal(t, "shop/static/vendor", step.Dest)
	assert.Equal(t, "swiper/modules/nav.js", step.Rename.Apply("swiper/dist/modules/nav.js"))
}

func TestPipeline_VendorBundles(t *testing.T) {
	p := app.Pipeline(testPathSet())

	scripts, ok := p.Find(app.TaskVendorScripts)
	require.True(t, ok)
	assert.Equal(t, "vendor.js", scripts.Transform.Steps[0].Bundle)
	assert.Equal(t, "shop/static/js", scripts.Transform.Steps[1].Dest)

	styles, ok := p.Find(app.TaskVendorStyles)
	require.True(t, ok)
	assert.Equal(t, "vendor.css", styles.Transform.Steps[0].Bundle)
	assert.Equal(t, "shop/static/css", styles.Transform.Steps[0].Dest)
}

func TestWatchBindings(t *testing.T) {
	ps := testPathSet()
	p := app.Pipeline(ps)

	bindings := app.WatchBindings(ps, p)
	require.Len(t, bindings, 3)

	styles, scripts := bindings[0], bindings[2]
	templates := bindings[1]

	assert.Equal(t, []string{"shop/static/scss/*.scss"}, styles.Patterns)
	assert.Same(t, p.Children[0], styles.Task)

	assert.Equal(t, []string{"shop/templates/**/*.html"}, templates.Patterns)
	assert.Nil(t, templates.Task)

	assert.Equal(t, []string{"shop/static/js/*.js", "!shop/static/js/*.min.js"}, scripts.Patterns)
	assert.Same(t, p.Children[1], scripts.Task)

	for _, b := range bindings {
		assert.True(t, b.Reload, b.Name)
	}
}
