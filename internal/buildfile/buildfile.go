// Package buildfile models build.zig descriptors: the package/include-dir
// configuration extracted by the build runner, the optional zls.build.json
// side-config, and the ancestor walk used to associate documents with a
// build file.
package buildfile

import (
	"path/filepath"
)

// Package is one named package exported by a build file.
type Package struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// BuildConfig is the JSON document the build runner prints on stdout.
type BuildConfig struct {
	Packages    []Package `json:"packages"`
	IncludeDirs []string  `json:"include_dirs"`
}

// AbsolutePaths rewrites every package path to an absolute path rooted at
// the build file's directory.
func (c *BuildConfig) AbsolutePaths(buildDir string) {
	for i, pkg := range c.Packages {
		if !filepath.IsAbs(pkg.Path) {
			c.Packages[i].Path = filepath.Join(buildDir, pkg.Path)
		}
	}
}

// BuildFile is the store's record for one build.zig.
type BuildFile struct {
	// URI of the build.zig document.
	URI string

	// Config is the extracted package layout; empty when the runner failed.
	Config BuildConfig

	// BuiltinURI overrides "builtin" imports for documents associated with
	// this build file. Set from the side-config's relative_builtin_path.
	BuiltinURI string

	// SideConfig is the parsed zls.build.json, if one was present and valid.
	SideConfig *SideConfig
}

// BuildOptions returns the extra runner arguments from the side-config.
func (b *BuildFile) BuildOptions() []string {
	if b.SideConfig == nil {
		return nil
	}
	return b.SideConfig.BuildOptions
}
