// Package config reads the benchmark description: where the data lives,
// which tables to load and which experiments to run.
package config

import (
	"bytes"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var ErrConfig = errors.New("config error")

const DefaultFile = "config.yaml"

type Experiment struct {
	Name  string `yaml:"name"`
	Table string `yaml:"table"`
	Query string `yaml:"query"`
}

// TableList splits the comma separated table field, dropping blanks.
func (self Experiment) TableList() []string {
	out := []string{}
	for _, t := range strings.Split(self.Table, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

type Config struct {
	DataPath    string       `yaml:"data_path"`
	Tables      []string     `yaml:"tables"`
	Experiments []Experiment `yaml:"experiments"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(ErrConfig, err.Error())
	}
	c, err := Parse(b)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return c, nil
}

// Parse decodes a document strictly, unknown keys are errors, and validates
// it.
func Parse(content []byte) (*Config, error) {
	var c Config

	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&c); err != nil {
		return nil, errors.Wrap(ErrConfig, err.Error())
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (self *Config) Validate() error {
	if strings.TrimSpace(self.DataPath) == "" {
		return errors.Wrap(ErrConfig, "data_path is required")
	}
	if len(self.Tables) == 0 {
		return errors.Wrap(ErrConfig, "tables must list at least one table")
	}

	seen := make(map[string]bool)
	for i, t := range self.Tables {
		if strings.TrimSpace(t) == "" {
			return errors.Wrapf(ErrConfig, "tables[%d] is empty", i)
		}
		if seen[t] {
			return errors.Wrapf(ErrConfig, "table %s listed twice", t)
		}
		seen[t] = true
	}

	for i, e := range self.Experiments {
		switch {
		case strings.TrimSpace(e.Name) == "":
			return errors.Wrapf(ErrConfig, "experiments[%d]: name is required", i)
		case len(e.TableList()) == 0:
			return errors.Wrapf(ErrConfig, "experiment %s: table is required", e.Name)
		case strings.TrimSpace(e.Query) == "":
			return errors.Wrapf(ErrConfig, "experiment %s: query is required", e.Name)
		}
	}
	return nil
}
