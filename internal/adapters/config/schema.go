package config

// Kilnfile is the structure of kiln.yaml.
type Kilnfile struct {
	App        string     `yaml:"app"`
	VendorRoot string     `yaml:"vendorRoot"`
	Vendor     VendorDTO  `yaml:"vendor"`
	Sass       CommandDTO `yaml:"sass"`
	PostCSS    CommandDTO `yaml:"postcss"`
	Backend    BackendDTO `yaml:"backend"`
	Proxy      ProxyDTO   `yaml:"proxy"`
	Debounce   string     `yaml:"debounce"`
}

// VendorDTO lists the third-party assets bundled into the app.
type VendorDTO struct {
	JS       []string `yaml:"js"`
	CSS      []string `yaml:"css"`
	Packages []string `yaml:"packages"`
}

// CommandDTO configures an external command.
type CommandDTO struct {
	Cmd []string `yaml:"cmd"`
}

// BackendDTO configures the supervised backend process.
type BackendDTO struct {
	Cmd     []string `yaml:"cmd"`
	Address string   `yaml:"address"`
	Dir     string   `yaml:"dir"`
}

// ProxyDTO configures the reload proxy.
type ProxyDTO struct {
	Listen string `yaml:"listen"`
}

// hclFile is the structure of kiln.hcl. Blocks are optional.
type hclFile struct {
	App        string      `hcl:"app,optional"`
	VendorRoot string      `hcl:"vendor_root,optional"`
	Debounce   string      `hcl:"debounce,optional"`
	Vendor     *hclVendor  `hcl:"vendor,block"`
	Sass       *hclCommand `hcl:"sass,block"`
	PostCSS    *hclCommand `hcl:"postcss,block"`
	Backend    *hclBackend `hcl:"backend,block"`
	Proxy      *hclProxy   `hcl:"proxy,block"`
}

type hclVendor struct {
	JS       []string `hcl:"js,optional"`
	CSS      []string `hcl:"css,optional"`
	Packages []string `hcl:"packages,optional"`
}

type hclCommand struct {
	Cmd []string `hcl:"cmd,optional"`
}

type hclBackend struct {
	Cmd     []string `hcl:"cmd,optional"`
	Address string   `hcl:"address,optional"`
	Dir     string   `hcl:"dir,optional"`
}

type hclProxy struct {
	Listen string `hcl:"listen,optional"`
}

// kilnfile converts the HCL form into the common Kilnfile shape.
func (f *hclFile) kilnfile() *Kilnfile {
	kf := &Kilnfile{
		App:        f.App,
		VendorRoot: f.VendorRoot,
		Debounce:   f.Debounce,
	}
	if f.Vendor != nil {
		kf.Vendor = VendorDTO{JS: f.Vendor.JS, CSS: f.Vendor.CSS, Packages: f.Vendor.Packages}
	}
	if f.Sass != nil {
		kf.Sass.Cmd = f.Sass.Cmd
	}
	if f.PostCSS != nil {
		kf.PostCSS.Cmd = f.PostCSS.Cmd
	}
	if f.Backend != nil {
		kf.Backend = BackendDTO{Cmd: f.Backend.Cmd, Address: f.Backend.Address, Dir: f.Backend.Dir}
	}
	if f.Proxy != nil {
		kf.Proxy.Listen = f.Proxy.Listen
	}
	return kf
}
