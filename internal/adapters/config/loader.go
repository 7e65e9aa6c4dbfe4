// Package config loads the kiln configuration from kiln.yaml or kiln.hcl.
package config

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader.
type Loader struct {
	logger ports.Logger
}

// NewLoader creates a new configuration loader.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load reads the configuration. An explicit path is resolved against cwd and
// must exist. Otherwise kiln.yaml and kiln.hcl are searched from cwd upwards;
// when neither exists the defaults rooted at cwd are returned.
func (l *Loader) Load(cwd, path string) (*domain.Config, error) {
	if path != "" {
		if !filepath.IsAbs(path) {
			path = filepath.Join(cwd, path)
		}
		return LoadFile(path)
	}

	found, err := FindConfig(cwd)
	if err != nil {
		return nil, err
	}
	if found == "" {
		if l.logger != nil {
			l.logger.Info("no kiln.yaml found, using defaults")
		}
		return Defaults(cwd)
	}
	return LoadFile(found)
}

// FindConfig searches for kiln.yaml or kiln.hcl starting at dir and walking up
// to the filesystem root. It returns an empty path when neither exists.
func FindConfig(dir string) (string, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return "", zerr.Wrap(err, "failed to resolve working directory")
	}

	for {
		for _, name := range []string{domain.ConfigFileName, domain.HCLConfigFileName} {
			candidate := filepath.Join(current, name)
			info, statErr := os.Stat(candidate)
			if statErr == nil && !info.IsDir() {
				return candidate, nil
			}
			if statErr != nil && !errors.Is(statErr, os.ErrNotExist) {
				return "", zerr.With(zerr.Wrap(statErr, domain.ErrConfigReadFailed.Error()), "path", candidate)
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", nil
		}
		current = parent
	}
}

// Defaults returns the configuration used when no config file exists.
func Defaults(root string) (*domain.Config, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to resolve working directory")
	}
	return build(abs, &Kilnfile{})
}

// LoadFile reads and validates the configuration at path. The file format is
// chosen by extension; the directory holding the file becomes the root.
func LoadFile(path string) (*domain.Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "path", path)
	}

	var kf *Kilnfile
	if filepath.Ext(path) == ".hcl" {
		kf, err = parseHCL(path, data)
	} else {
		kf, err = parseYAML(data)
	}
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}

	root, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, zerr.Wrap(err, "failed to resolve config directory")
	}
	return build(root, kf)
}

func parseYAML(data []byte) (*Kilnfile, error) {
	var kf Kilnfile
	if err := yaml.Unmarshal(data, &kf); err != nil {
		return nil, zerr.Wrap(err, domain.ErrConfigParseFailed.Error())
	}
	return &kf, nil
}

func parseHCL(path string, data []byte) (*Kilnfile, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return nil, zerr.Wrap(diags, domain.ErrConfigParseFailed.Error())
	}

	var hf hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &hf); diags.HasErrors() {
		return nil, zerr.Wrap(diags, domain.ErrConfigParseFailed.Error())
	}
	return hf.kilnfile(), nil
}

// build applies defaults and validates the raw file values.
func build(root string, kf *Kilnfile) (*domain.Config, error) {
	cfg := &domain.Config{
		Root:           root,
		App:            kf.App,
		VendorRoot:     orDefault(kf.VendorRoot, domain.DefaultVendorRoot),
		VendorJS:       slices.Clone(kf.Vendor.JS),
		VendorCSS:      slices.Clone(kf.Vendor.CSS),
		VendorPackages: slices.Clone(kf.Vendor.Packages),
		SassCmd:        orDefaultCmd(kf.Sass.Cmd, domain.DefaultSassCmd()),
		PostCSSCmd:     slices.Clone(kf.PostCSS.Cmd),
		BackendCmd:     orDefaultCmd(kf.Backend.Cmd, domain.DefaultBackendCmd()),
		BackendDir:     kf.Backend.Dir,
		BackendAddress: orDefault(kf.Backend.Address, domain.DefaultBackendAddress),
		ProxyAddress:   orDefault(kf.Proxy.Listen, domain.DefaultProxyAddress),
		Debounce:       domain.DefaultDebounce,
	}

	if kf.Debounce != "" {
		d, err := time.ParseDuration(kf.Debounce)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrInvalidConfig.Error()), "field", "debounce")
		}
		if d < 0 {
			return nil, zerr.With(zerr.With(domain.ErrInvalidConfig, "field", "debounce"), "value", kf.Debounce)
		}
		cfg.Debounce = d
	}

	for field, addr := range map[string]string{
		"backend.address": cfg.BackendAddress,
		"proxy.listen":    cfg.ProxyAddress,
	} {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrInvalidConfig.Error()), "field", field)
		}
	}

	if cfg.BackendDir == "" {
		cfg.BackendDir = root
	} else if !filepath.IsAbs(cfg.BackendDir) {
		cfg.BackendDir = filepath.Join(root, cfg.BackendDir)
	}

	return cfg, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultCmd(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return slices.Clone(v)
}
