package cmd

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/mickamy/dieselgen/internal/config"
	"github.com/mickamy/dieselgen/internal/errs"
)

// tableConfig is one entry of `tables:` or the `defaults:` block.
type tableConfig struct {
	Name                 string   `mapstructure:"name"`
	Ignore               *bool    `mapstructure:"ignore"`
	Tsync                *bool    `mapstructure:"tsync"`
	Async                *bool    `mapstructure:"async"`
	OnlyNecessaryDerives *bool    `mapstructure:"only_necessary_derives"`
	AutogeneratedColumns []string `mapstructure:"autogenerated_columns"`
	CreateStr            string   `mapstructure:"create_str"`
	UpdateStr            string   `mapstructure:"update_str"`
	CreateBytes          string   `mapstructure:"create_bytes"`
	UpdateBytes          string   `mapstructure:"update_bytes"`
	Serde                bool     `mapstructure:"serde"`
	Fns                  bool     `mapstructure:"fns"`
	SingleModelFile      bool     `mapstructure:"single_model_file"`
	ReadOnly             bool     `mapstructure:"readonly"`
}

// fileConfig mirrors dieselgen.yaml. Flags and DIESELGEN_* variables are
// bound to the same keys.
type fileConfig struct {
	Input               string        `mapstructure:"input"`
	Output              string        `mapstructure:"output"`
	ConnectionType      string        `mapstructure:"connection_type"`
	Backend             string        `mapstructure:"backend"`
	SchemaPath          string        `mapstructure:"schema_path"`
	ModelPath           string        `mapstructure:"model_path"`
	OnceCommonStructs   bool          `mapstructure:"once_common_structs"`
	OnceConnectionType  bool          `mapstructure:"once_connection_type"`
	ReadOnlyPrefixes    []string      `mapstructure:"readonly_prefixes"`
	ReadOnlySuffixes    []string      `mapstructure:"readonly_suffixes"`
	SingularStructNames bool          `mapstructure:"singular_struct_names"`
	Defaults            tableConfig   `mapstructure:"defaults"`
	Tables              []tableConfig `mapstructure:"tables"`
	Watch               bool          `mapstructure:"watch"`
	Verbose             bool          `mapstructure:"verbose"`
}

func setDefaults(v *viper.Viper) {
	d := config.Default()
	v.SetDefault("backend", d.Backend.Name())
	v.SetDefault("schema_path", d.SchemaPath)
	v.SetDefault("model_path", d.ModelPath)
	v.SetDefault("defaults.serde", d.Defaults.Serde)
	v.SetDefault("defaults.fns", d.Defaults.Fns)
}

func loadFileConfig(v *viper.Viper) (fileConfig, error) {
	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return fc, fmt.Errorf("failed to parse config: %w", err)
	}
	return fc, nil
}

// generationConfig converts the decoded file into a validated
// GenerationConfig.
func (fc fileConfig) generationConfig() (*config.GenerationConfig, error) {
	backend, err := config.BackendByName(fc.Backend)
	if err != nil {
		return nil, err
	}
	cfg := &config.GenerationConfig{
		Tables:              make(map[string]config.TableOptions, len(fc.Tables)),
		ConnectionType:      fc.ConnectionType,
		Backend:             backend,
		SchemaPath:          fc.SchemaPath,
		ModelPath:           fc.ModelPath,
		OnceCommonStructs:   fc.OnceCommonStructs,
		OnceConnectionType:  fc.OnceConnectionType,
		ReadOnlyPrefixes:    fc.ReadOnlyPrefixes,
		ReadOnlySuffixes:    fc.ReadOnlySuffixes,
		SingularStructNames: fc.SingularStructNames,
	}

	if cfg.Defaults, err = fc.Defaults.tableOptions(); err != nil {
		return nil, err
	}
	for _, t := range fc.Tables {
		if t.Name == "" {
			return nil, errs.NewConfigError("tables", nil, "every table entry needs a name")
		}
		if _, dup := cfg.Tables[t.Name]; dup {
			return nil, errs.NewConfigError("tables", t.Name, "table is configured more than once")
		}
		opts, err := t.tableOptions()
		if err != nil {
			return nil, err
		}
		cfg.Tables[t.Name] = opts
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (t tableConfig) tableOptions() (config.TableOptions, error) {
	opts := config.TableOptions{
		Ignore:               t.Ignore,
		Tsync:                t.Tsync,
		Async:                t.Async,
		OnlyNecessaryDerives: t.OnlyNecessaryDerives,
		AutogeneratedColumns: t.AutogeneratedColumns,
		Serde:                t.Serde,
		Fns:                  t.Fns,
		SingleModelFile:      t.SingleModelFile,
		ReadOnly:             t.ReadOnly,
	}

	var err error
	if opts.CreateStrType, err = stringType(t.CreateStr); err != nil {
		return opts, err
	}
	if opts.UpdateStrType, err = stringType(t.UpdateStr); err != nil {
		return opts, err
	}
	if opts.CreateBytesType, err = bytesType(t.CreateBytes); err != nil {
		return opts, err
	}
	if opts.UpdateBytesType, err = bytesType(t.UpdateBytes); err != nil {
		return opts, err
	}
	return opts, nil
}

// stringType returns nil for an unset value so table options fall back
// to the defaults.
func stringType(v string) (*config.StringType, error) {
	if v == "" {
		return nil, nil
	}
	s, err := config.ParseStringType(v)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func bytesType(v string) (*config.BytesType, error) {
	if v == "" {
		return nil, nil
	}
	b, err := config.ParseBytesType(v)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
