package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coachpo/borderless/internal/infra/config"
)

const (
	flagConfig    = "config"
	flagLogLevel  = "log-level"
	flagRPCAddr   = "bcRpcAddress"
	flagRPCCookie = "bcRpcScookie"
)

// errMissingCredentials is printed verbatim to the operator.
var errMissingCredentials = errors.New("You have to provide both --bcRpcAddress and --bcRpcScookie")

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	address    string
	scookie    string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "borderless",
		Short:         "Order discovery and price derivation for the cross-chain swap exchange",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, flagConfig, "",
		fmt.Sprintf("path to configuration file (default: $%s or %s)", config.EnvVar, config.DefaultPath))
	cmd.PersistentFlags().StringVar(&opts.logLevel, flagLogLevel, "", "log level override (trace, debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.address, flagRPCAddr, "", "ledger node JSON-RPC address")
	cmd.PersistentFlags().StringVar(&opts.scookie, flagRPCCookie, "", "ledger node session cookie")

	cmd.AddCommand(newGetCommand(opts), newMigrateCommand(opts))
	return cmd
}

// unknownSubcommand rejects stray positional arguments on grouping commands.
func unknownSubcommand(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
	}
	return cmd.Help()
}
