package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mickamy/dieselgen/internal/config"
	"github.com/mickamy/dieselgen/internal/errs"
	"github.com/mickamy/dieselgen/internal/syncer"
)

// Version is set at build time.
var Version = "dev"

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// NewRootCmd builds the dieselgen command tree. Each call uses its own
// viper instance.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	setDefaults(v)

	var (
		cfgFile string
		noSerde bool
		noCrud  bool
	)

	root := &cobra.Command{
		Use:   "dieselgen",
		Short: "Generate diesel model code from a schema.rs file",
		Long: `dieselgen reads the table! and joinable! declarations of a diesel schema
file and keeps a directory of Rust model modules in sync with it.

Generated files start with a signature line. Files without it are never
overwritten or deleted.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(v, cfgFile); err != nil {
				return err
			}
			if noSerde {
				v.Set("defaults.serde", false)
			}
			if noCrud {
				v.Set("defaults.fns", false)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			fc, cfg, err := load(v)
			if err != nil {
				return err
			}
			if fc.Output == "" {
				return errs.NewConfigError("output", nil, "an output directory is required (--output)")
			}

			logger := newLogger(cmd.ErrOrStderr(), fc.Verbose)
			if fc.Watch {
				return watch(cmd.Context(), cmd.OutOrStdout(), fc.Input, fc.Output, cfg, logger)
			}
			return generate(cmd.OutOrStdout(), fc.Input, fc.Output, cfg, logger)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./dieselgen.yaml)")
	pf.StringP("input", "i", "", "path to the diesel schema file")
	pf.String("backend", "postgres", "database backend used for the default connection type (postgres, mysql, sqlite)")
	pf.String("schema-path", "crate::schema::", "import path of the diesel schema module")
	pf.Bool("singular-struct-names", false, "singularize model struct names")
	pf.Bool("verbose", false, "log every file action")

	f := root.Flags()
	f.StringP("output", "o", "", "output directory of the model modules")
	f.StringP("connection-type", "c", "", "Rust connection type, overrides the backend preset")
	f.String("model-path", "crate::models::", "import path of the generated models module")
	f.StringSliceP("autogenerated-columns", "g", nil, "columns produced by the database, excluded from Create structs")
	f.Bool("tsync", false, "add #[tsync::tsync] to generated structs")
	f.Bool("async", false, "generate async functions using diesel_async")
	f.BoolVar(&noSerde, "no-serde", false, "do not derive serde traits")
	f.BoolVar(&noCrud, "no-crud", false, "do not generate CRUD functions")
	f.Bool("only-necessary-derives", false, "derive only the traits each struct needs")
	f.String("create-str", "string", "string type of Create structs (string, str, cow)")
	f.String("update-str", "string", "string type of Update structs (string, str, cow)")
	f.String("create-bytes", "vec", "bytes type of Create structs (vec, slice, cow)")
	f.String("update-bytes", "vec", "bytes type of Update structs (vec, slice, cow)")
	f.Bool("single-model-file", false, "write each table to <module>.rs instead of a directory")
	f.Bool("once-common-structs", false, "write shared structs once to common.rs")
	f.Bool("once-connection-type", false, "write the Connection alias once to common.rs")
	f.StringSlice("readonly-prefix", nil, "tables with this prefix only get read functions")
	f.StringSlice("readonly-suffix", nil, "tables with this suffix only get read functions")
	f.Bool("watch", false, "regenerate whenever the schema file changes")

	bind(v, pf, map[string]string{
		"input":                 "input",
		"backend":               "backend",
		"schema_path":           "schema-path",
		"singular_struct_names": "singular-struct-names",
		"verbose":               "verbose",
	})
	bind(v, f, map[string]string{
		"output":                          "output",
		"connection_type":                 "connection-type",
		"model_path":                      "model-path",
		"defaults.autogenerated_columns":  "autogenerated-columns",
		"defaults.tsync":                  "tsync",
		"defaults.async":                  "async",
		"defaults.only_necessary_derives": "only-necessary-derives",
		"defaults.create_str":             "create-str",
		"defaults.update_str":             "update-str",
		"defaults.create_bytes":           "create-bytes",
		"defaults.update_bytes":           "update-bytes",
		"defaults.single_model_file":      "single-model-file",
		"once_common_structs":             "once-common-structs",
		"once_connection_type":            "once-connection-type",
		"readonly_prefixes":               "readonly-prefix",
		"readonly_suffixes":               "readonly-suffix",
		"watch":                           "watch",
	})

	root.AddCommand(newInspectCmd(v))
	return root
}

func bind(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
}

// initConfig reads dieselgen.yaml and DIESELGEN_* environment variables.
func initConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("dieselgen")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("DIESELGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// load decodes the merged flag, env and file settings.
func load(v *viper.Viper) (fileConfig, *config.GenerationConfig, error) {
	fc, err := loadFileConfig(v)
	if err != nil {
		return fc, nil, err
	}
	if fc.Input == "" {
		return fc, nil, errs.NewConfigError("input", nil, "a schema file is required (--input)")
	}
	cfg, err := fc.generationConfig()
	if err != nil {
		return fc, nil, err
	}
	return fc, cfg, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func generate(w io.Writer, input, output string, cfg *config.GenerationConfig, logger *slog.Logger) error {
	changes, err := syncer.GenerateFiles(input, output, cfg, syncer.WithLogger(logger))
	report(w, changes)
	return err
}

// report prints one line per file followed by the number of files touched.
func report(w io.Writer, changes []syncer.Change) {
	modified := 0
	for _, c := range changes {
		fmt.Fprintf(w, "%s %s\n", c.Status, c.Path)
		if c.Status != syncer.Unchanged {
			modified++
		}
	}
	fmt.Fprintf(w, "Modified %d files\n", modified)
}
