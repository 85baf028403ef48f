// Package cli wires the drivescan command line: flag, environment and file
// configuration through viper, and the scan command that assembles and runs a
// scan service.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ahrav/drivescan/internal/config"
)

// Version is reported by --version.
const Version = "0.1.0"

// NewRootCommand creates the drivescan command tree. Every command shares one
// viper instance; precedence is flag, then DRIVESCAN_* environment, then the
// --config file, then defaults.
func NewRootCommand() *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)
	config.BindEnv(v)

	var cfgFile string
	cmd := &cobra.Command{
		Use:   "drivescan",
		Short: "Scan local storage for sensitive numeric patterns",
		Long: `drivescan walks a directory tree breadth-first, then streams every file
through a pool of workers that search its bytes for fixed-shape patterns such
as social security and credit card numbers. Each occurrence is printed as
"<path>: <text>".`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cfgFile == "" {
				return nil
			}
			v.SetConfigFile(cfgFile)
			return v.ReadInConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	_ = v.BindPFlag(config.KeyLogLevel, cmd.PersistentFlags().Lookup("log-level"))

	cmd.AddCommand(NewScanCommand(v))
	return cmd
}
