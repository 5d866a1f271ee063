package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mickamy/dieselgen/internal/errs"
	"github.com/mickamy/dieselgen/internal/schema"
)

func newInspectCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the parsed schema as YAML",
		Long: `inspect parses the schema file with the current configuration and prints
the tables that would be generated, including primary keys and the
relations taken from joinable! declarations. No files are written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fc, cfg, err := load(v)
			if err != nil {
				return err
			}
			newLogger(cmd.ErrOrStderr(), fc.Verbose)

			src, err := os.ReadFile(fc.Input)
			if err != nil {
				return errs.NewPathError("read", fc.Input, err)
			}
			tables, err := schema.Parse(string(src), cfg, nil)
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(tables); err != nil {
				return fmt.Errorf("failed to encode tables: %w", err)
			}
			return enc.Close()
		},
	}
}
