package domain

// PathSet is the resolved set of source and output locations for one application.
// It is built once at startup and never mutated afterwards.
// Root is absolute; every other location is slash-separated and relative to Root.
type PathSet struct {
	Root string

	App        string
	Templates  string
	CSS        string
	SCSS       string
	Fonts      string
	Images     string
	ImagesOut  string
	JS         string
	Vendor     string
	VendorRoot string

	VendorJS       []string
	VendorCSS      []string
	VendorPackages []string
}
