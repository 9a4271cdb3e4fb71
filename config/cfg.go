package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
	"go.uber.org/zap"

	"inlinesvg/common"
	"inlinesvg/datauri"
	"inlinesvg/optimize"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	SVGConfig struct {
		Precision    int  `yaml:"precision" validate:"gte=0,lte=16"`
		KeepComments bool `yaml:"keep_comments"`
	}

	OptimizerConfig struct {
		Patterns    []string           `yaml:"patterns" validate:"dive,required"`
		Workers     int                `yaml:"workers" validate:"gte=0"`
		ErrorPolicy common.ErrorPolicy `yaml:"error_policy" validate:"gte=0,lte=1"`
		Verify      bool               `yaml:"verify"`
		SVG         SVGConfig          `yaml:"svg"`
	}

	Config struct {
		Version   int             `yaml:"version" validate:"eq=1"`
		Optimizer OptimizerConfig `yaml:"optimizer"`
		Logging   LoggingConfig   `yaml:"logging"`
		Reporting ReporterConfig  `yaml:"reporting"`
	}
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, fmt.Errorf("configuration sanitizing failed: %w", err)
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration tamplate to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}

// Prepare builds stylesheet processor from configuration. Non-empty patterns
// replace configured ones.
func (conf *OptimizerConfig) Prepare(log *zap.Logger, patterns ...string) (*optimize.Processor, error) {
	if len(patterns) == 0 {
		patterns = conf.Patterns
	}
	compiled, err := datauri.Compile(patterns...)
	if err != nil {
		return nil, fmt.Errorf("unable to prepare optimizer: %w", err)
	}

	opt := optimize.NewMinifier(optimize.SVGOptions{
		Precision:    conf.SVG.Precision,
		KeepComments: conf.SVG.KeepComments,
	})
	if conf.Verify {
		opt = optimize.Verified(opt)
	}

	return optimize.New(opt, log,
		optimize.WithPatterns(compiled),
		optimize.WithWorkers(conf.Workers),
		optimize.WithErrorPolicy(conf.ErrorPolicy),
	), nil
}
