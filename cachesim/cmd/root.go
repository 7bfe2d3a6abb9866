// Package cmd provides the command-line interface for cachesim.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
)

const envPrefix = "CACHESIM_"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cachesim",
	Short: "cachesim simulates a single-level cache over memory traces.",
	Long: `cachesim replays Valgrind lackey memory traces through a ` +
		`set-associative cache and reports the hit, miss, eviction and ` +
		`cycle count of every access.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")

		err := loadEnvFile(envFile, cmd.Flags().Changed("env-file"))
		if err != nil {
			return err
		}

		return applyEnv(cmd.Flags())
	},
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env",
		"File of CACHESIM_* variables used as flag defaults")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false,
		"Log the decoding and outcome of every access")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// loadEnvFile loads variables from path without overriding the environment.
// A missing default file is not an error.
func loadEnvFile(path string, required bool) error {
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	if !required && errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("loading env file %s: %w", path, err)
}

func envName(flag string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// applyEnv sets every flag the user did not give from its CACHESIM_ variable.
func applyEnv(flags *pflag.FlagSet) error {
	var err error

	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed || f.Name == "env-file" {
			return
		}

		value, ok := os.LookupEnv(envName(f.Name))
		if !ok {
			return
		}

		if setErr := flags.Set(f.Name, value); setErr != nil {
			err = fmt.Errorf("%s: %w", envName(f.Name), setErr)
		}
	})

	return err
}
