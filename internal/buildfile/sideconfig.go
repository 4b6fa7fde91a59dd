package buildfile

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/sirupsen/logrus"
)

// SideConfigName is the adjunct file probed next to every build.zig.
const SideConfigName = "zls.build.json"

// SideConfig is the optional per-project configuration living next to a
// build file.
type SideConfig struct {
	// RelativeBuiltinPath points at a builtin.zig override, relative to the
	// build file's directory.
	RelativeBuiltinPath string `json:"relative_builtin_path"`

	// BuildOptions are extra arguments appended to the build-runner argv.
	BuildOptions []string `json:"build_options"`
}

const sideConfigSchema = `{
	"type": "object",
	"properties": {
		"relative_builtin_path": {"type": "string"},
		"build_options": {"type": "array", "items": {"type": "string"}}
	},
	"additionalProperties": true
}`

var compileSchema = sync.OnceValue(func() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(sideConfigSchema)))
	if err != nil {
		panic(err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(SideConfigName, doc); err != nil {
		panic(err)
	}
	sch, err := c.Compile(SideConfigName)
	if err != nil {
		panic(err)
	}
	return sch
})

// LoadSideConfig reads <buildDir>/zls.build.json. A missing file is silent;
// a malformed one is logged at debug level and ignored; any other read error
// is logged but non-fatal. The returned value is nil in every non-success
// case.
func LoadSideConfig(buildDir string, log *logrus.Entry) *SideConfig {
	path := filepath.Join(buildDir, SideConfigName)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).WithField("path", path).Warn("could not read build side-config")
		}
		return nil
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		log.WithError(err).WithField("path", path).Debug("malformed build side-config")
		return nil
	}
	if err := compileSchema().Validate(doc); err != nil {
		log.WithError(err).WithField("path", path).Debug("invalid build side-config")
		return nil
	}

	var sc SideConfig
	if err := json.Unmarshal(data, &sc); err != nil {
		log.WithError(err).WithField("path", path).Debug("malformed build side-config")
		return nil
	}
	return &sc
}
