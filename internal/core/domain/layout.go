package domain

import "path/filepath"

const (
	// KilnDirName is the name of the internal workspace directory.
	KilnDirName = ".kiln"

	// DigestsFileName is the name of the output digest manifest inside KilnDirName.
	DigestsFileName = "digests.json"

	// ConfigFileName is the name of the YAML configuration file.
	ConfigFileName = "kiln.yaml"

	// HCLConfigFileName is the name of the HCL configuration file.
	HCLConfigFileName = "kiln.hcl"

	// PackageFileName is the npm manifest the app name and vendor packages are read from.
	PackageFileName = "package.json"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// MinSuffix is inserted before the extension of minified outputs.
	MinSuffix = ".min"
)

// DefaultDigestsPath returns the default path of the output digest manifest.
// It joins .kiln and digests.json.
func DefaultDigestsPath() string {
	return filepath.Join(KilnDirName, DigestsFileName)
}
