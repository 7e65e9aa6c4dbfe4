package paths

import "path"

// defaultVendorJS are the third-party scripts bundled into vendor.js when the
// config does not list its own. Paths are relative to the vendor root.
var defaultVendorJS = []string{
	"@popperjs/core/dist/umd/popper.js",
	"bootstrap/dist/js/bootstrap.js",
	"simplebar/dist/simplebar.js",
	"gumshoejs/dist/gumshoe.polyfills.js",
	"apexcharts/dist/apexcharts.min.js",
	"prismjs/prism.js",
	"prismjs/plugins/normalize-whitespace/prism-normalize-whitespace.js",
	"toastify-js/src/toastify.js",
	"dragula/dist/dragula.js",
	"vanilla-wizard/dist/js/wizard.min.js",
	"clipboard/dist/clipboard.min.js",
	"moment/moment.js",
	"dropzone/dist/min/dropzone.min.js",
	"flatpickr/dist/flatpickr.js",
	"swiper/swiper-bundle.min.js",
	"rater-js/index.js",
	"sweetalert2/dist/sweetalert2.min.js",
	"inputmask/dist/inputmask.min.js",
	"choices.js/public/assets/scripts/choices.min.js",
	"nouislider/dist/nouislider.min.js",
	"multi.js/dist/multi.min.js",
	"quill/dist/quill.min.js",
	"wnumb/wNumb.min.js",
	"iconify-icon/dist/iconify-icon.js",
	"masonry-layout/dist/masonry.pkgd.min.js",
}

// defaultVendorCSS are the third-party stylesheets bundled into vendor.css.
var defaultVendorCSS = []string{
	"flatpickr/dist/flatpickr.css",
	"swiper/swiper-bundle.min.css",
	"sweetalert2/dist/sweetalert2.min.css",
	"choices.js/public/assets/styles/choices.min.css",
	"nouislider/dist/nouislider.min.css",
	"dropzone/dist/min/dropzone.min.css",
	"multi.js/dist/multi.min.css",
	"quill/dist/quill.core.css",
	"quill/dist/quill.snow.css",
	"quill/dist/quill.bubble.css",
}

// DefaultVendorJS returns the default vendor script list rooted at vendorRoot.
func DefaultVendorJS(vendorRoot string) []string {
	return under(vendorRoot, defaultVendorJS)
}

// DefaultVendorCSS returns the default vendor stylesheet list rooted at vendorRoot.
func DefaultVendorCSS(vendorRoot string) []string {
	return under(vendorRoot, defaultVendorCSS)
}

func under(root string, rels []string) []string {
	out := make([]string, len(rels))
	for i, rel := range rels {
		out[i] = path.Join(root, rel)
	}
	return out
}
