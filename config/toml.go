package config

import (
	"bytes"
	_ "embed"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	cmtconfig "github.com/cometbft/cometbft/config"
	cmtos "github.com/cometbft/cometbft/libs/os"
)

// DefaultDirPerm is the default permissions used when creating directories.
const DefaultDirPerm = 0o700

var appConfigTemplate *template.Template

func init() {
	var err error
	tmpl := template.New("appConfigFileTemplate").Funcs(template.FuncMap{
		"StringsJoin": strings.Join,
	})
	if appConfigTemplate, err = tmpl.Parse(defaultAppConfigTemplate); err != nil {
		panic(err)
	}
}

// WriteConfigFiles renders config.toml with cometbft's template and app.toml
// with ours, both under <home>/config.
func WriteConfigFiles(config *Config) error {
	dir := filepath.Join(config.RootDir, "config")
	if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
		return err
	}
	cmtconfig.WriteConfigFile(ConfigFile(config.RootDir), config.Config)
	return WriteAppConfigFile(AppConfigFile(config.RootDir), config)
}

// WriteAppConfigFile renders the [app], [agent] and [gov] sections to path.
func WriteAppConfigFile(path string, config *Config) error {
	var buffer bytes.Buffer

	if err := appConfigTemplate.Execute(&buffer, config); err != nil {
		return err
	}

	return cmtos.WriteFile(path, buffer.Bytes(), 0o644)
}

// Note: any changes to the comments/variables/mapstructure
// must be reflected in the appropriate struct in config/config.go.
//
//go:embed app.toml.tpl
var defaultAppConfigTemplate string
