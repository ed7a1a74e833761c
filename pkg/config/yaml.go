package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/goccy/go-yaml"
	"github.com/spf13/viper"
)

// ConfigBaseName is the base name of the bridge configuration file without extension.
const ConfigBaseName = "bridge"

// ConfigExtension is the file extension for the configuration file without the leading dot.
const ConfigExtension = "yaml"

// ConfigYaml is the filename for the bridge configuration file.
const ConfigYaml = ConfigBaseName + "." + ConfigExtension

// ErrReadYaml is the error returned when reading the bridge.yaml file fails.
var ErrReadYaml = fmt.Errorf("reading %s", ConfigYaml)

// ConfigPath returns the location of the configuration file under rootDir.
func ConfigPath(rootDir string) string {
	return filepath.Join(rootDir, DefaultConfigDir, ConfigYaml)
}

// ReadYaml reads the configuration from the bridge.yaml file under dir and
// returns it on top of DefaultConfig. Flags are not consulted.
func ReadYaml(dir string) (config Config, err error) {
	if dir == "" {
		return config, fmt.Errorf("%w: root directory cannot be empty", ErrReadYaml)
	}

	v := viper.New()
	v.SetConfigFile(ConfigPath(dir))

	config = DefaultConfig
	config.Instrumentation = DefaultInstrumentationConfig()
	setDefaultsInViper(v, config)

	if err = v.ReadInConfig(); err != nil {
		err = fmt.Errorf("%w decoding file: %w", ErrReadYaml, err)
		return
	}

	if err = v.Unmarshal(&config, decoderOptions); err != nil {
		err = fmt.Errorf("%w unmarshaling config: %w", ErrReadYaml, err)
		return
	}
	config.RootDir = dir
	return
}

// WriteYamlConfig writes the configuration to <root>/config/bridge.yaml with every
// field documented by its comment tag.
func WriteYamlConfig(config Config) error {
	if config.RootDir == "" {
		return errors.New("root directory cannot be empty")
	}
	configPath := ConfigPath(config.RootDir)

	if err := os.MkdirAll(filepath.Dir(configPath), DefaultDirPerm); err != nil {
		return err
	}

	yamlCommentMap := yaml.CommentMap{}

	var processFields func(t reflect.Type, prefix string)
	processFields = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}

			yamlTag := field.Tag.Get("yaml")
			if yamlTag == "" || yamlTag == "-" {
				continue
			}

			fieldPath := yamlTag
			if prefix != "" {
				fieldPath = prefix + "." + fieldPath
			}

			if comment := field.Tag.Get("comment"); comment != "" {
				yamlCommentMap["$."+fieldPath] = []*yaml.Comment{yaml.HeadComment(comment)}
			}

			ft := field.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			// DurationWrapper is written as a scalar.
			if ft.Kind() == reflect.Struct && ft != reflect.TypeOf(DurationWrapper{}) {
				processFields(ft, fieldPath)
			}
		}
	}
	processFields(reflect.TypeOf(Config{}), "")

	data, err := yaml.MarshalWithOptions(config, yaml.WithComment(yamlCommentMap))
	if err != nil {
		return fmt.Errorf("error marshaling YAML data: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("error writing %s file: %w", ConfigYaml, err)
	}
	return nil
}

// EnsureRoot ensures that the root directory and its config and data
// subdirectories exist.
func EnsureRoot(rootDir string) error {
	if rootDir == "" {
		return fmt.Errorf("root directory cannot be empty")
	}

	for _, dir := range []string{rootDir, filepath.Join(rootDir, DefaultConfigDir), filepath.Join(rootDir, DefaultDataDir)} {
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("could not create directory %q: %w", dir, err)
		}
	}
	return nil
}
