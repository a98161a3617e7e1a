// Command sessionless signs, inspects and serves sessionless tokens.
//
//	sessionless sign alice --ttl 1h
//	sessionless verify <token>
//	sessionless serve --addr :8080
//	sessionless loadtest --users 10000
//
// Every command reads the signing secret from --secret or SESSIONLESS_SECRET.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "sessionless",
		Short: "Stateless token authentication toolkit",
		Long: `sessionless issues and verifies signed tokens that carry a user
subject, and runs a demo HTTP server wired with the authentication
middleware.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.resolve(cmd)
		},
	}

	g.register(rootCmd)

	rootCmd.AddCommand(
		signCmd(g),
		verifyCmd(g),
		serveCmd(g),
		loadtestCmd(g),
		versionCmd(),
	)
	return rootCmd
}
