package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults are optional per-user settings loaded from a YAML file. They
// fill in values the command line left unset; explicit flags always win.
type Defaults struct {
	PDFViewer    string `yaml:"pdf_viewer,omitempty"`
	TmpDirPrefix string `yaml:"tmpdirprefix,omitempty"`
	Cleanup      string `yaml:"cleanup,omitempty"`
	Latexmk      bool   `yaml:"latexmk,omitempty"`
	LatexOpt     string `yaml:"latexopt,omitempty"`
	Prepare      string `yaml:"prepare,omitempty"`
}

// LoadDefaults reads the defaults file at path, or the per-user default
// location when path is empty. A missing file is not an error. Environment
// variables in the file content are expanded before parsing, and a .env
// file in the working directory is loaded first (without overriding the
// existing process environment).
func LoadDefaults(path string) (*Defaults, error) {
	// Best-effort .env loading; absence is the normal case.
	_ = godotenv.Load()

	explicit := path != ""
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return &Defaults{}, nil
		}
		path = filepath.Join(home, ".config", "texdiff", "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return &Defaults{}, nil
		}
		return nil, fmt.Errorf("read defaults file: %w", err)
	}

	var d Defaults
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &d); err != nil {
		return nil, fmt.Errorf("parse defaults file %s: %w", path, err)
	}
	return &d, nil
}

// Apply fills unset Options fields from the defaults.
func (d *Defaults) Apply(opts *Options) {
	if opts.PDFViewer == "" {
		opts.PDFViewer = d.PDFViewer
	}
	if opts.TmpDirPrefix == "" {
		opts.TmpDirPrefix = d.TmpDirPrefix
	}
	if opts.Cleanup == "" && d.Cleanup != "" {
		opts.Cleanup = CleanupMode(d.Cleanup)
	}
	if d.Latexmk {
		opts.UseLatexmk = true
	}
	if opts.Prepare == "" {
		opts.Prepare = d.Prepare
	}
	if len(opts.LatexOpts) == 0 && d.LatexOpt != "" {
		opts.LatexOpts = splitOpts(d.LatexOpt)
	}
}
