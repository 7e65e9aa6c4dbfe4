package domain

import "time"

const (
	// DefaultDebounce is the default window for coalescing filesystem events.
	DefaultDebounce = 100 * time.Millisecond

	// DefaultBackendAddress is where the backend listens by default.
	DefaultBackendAddress = "127.0.0.1:8000"

	// DefaultProxyAddress is where the reload proxy listens by default.
	DefaultProxyAddress = "127.0.0.1:3000"

	// DefaultVendorRoot is the directory third-party packages are installed to.
	DefaultVendorRoot = "node_modules"
)

// Config is the resolved pipeline configuration.
type Config struct {
	// Root is the directory all relative paths are resolved against.
	Root string
	// App is the application directory name.
	App string

	VendorRoot     string
	VendorJS       []string
	VendorCSS      []string
	VendorPackages []string

	SassCmd    []string
	PostCSSCmd []string

	BackendCmd     []string
	BackendDir     string
	BackendAddress string
	ProxyAddress   string

	Debounce time.Duration
}

// DefaultSassCmd returns the command used to compile stylesheets.
func DefaultSassCmd() []string {
	return []string{"sass", "--stdin", "--no-source-map"}
}

// DefaultBackendCmd returns the command used to start the backend server.
func DefaultBackendCmd() []string {
	return []string{"python", "manage.py", "runserver"}
}
