// dynamate is a terminal client for DynamoDB. Filters written as plain
// expressions are planned onto the table key or a secondary index and run
// as a Query when possible, or a Scan otherwise.
//
// # Installation
//
//	go install github.com/acksell/dynamate/dynamodb/cmd/dynamate@latest
//
// # Commands
//
//	dynamate                 Start the interactive shell
//	dynamate query [filter]  Run one filter and print the items
//	dynamate plan <filter>   Show the chosen access path and expressions
//	dynamate list-tables     List tables
//	dynamate describe        Show keys and indexes
//	dynamate create-table    Create a table from key and index specs
//	dynamate put k=v...      Put one item
//	dynamate import <file>   Batch-write items from JSON
//	dynamate serve           Serve the HTTP API
//	dynamate whoami          Show the AWS identity
//
// # Local mode
//
// With --local-db or --schemas, commands run against a badger-backed store
// that speaks the same API as DynamoDB:
//
//	dynamate --schemas 'schema/*.yaml' --local-db ./data
//	dynamate --schemas 'schema/*.yaml' --local-db :memory: serve
//
// Settings are read from the nearest dynamate.yaml, then DYNAMATE_*
// environment variables, then flags.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "dynamate: %v\n", err)
		os.Exit(1)
	}
}

// run executes one command line and closes whatever client it opened.
func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	a := &app{out: out, errOut: errOut}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(in)

	err := root.ExecuteContext(ctx)
	if closeErr := a.close(); err == nil {
		err = closeErr
	}
	return err
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dynamate",
		Short:         "Query DynamoDB tables with plain filter expressions",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		RunE: a.runShell,
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default: nearest dynamate.yaml)")
	flags.StringVar(&a.flags.EndpointURL, "endpoint-url", "", "DynamoDB endpoint, e.g. http://localhost:8000")
	flags.StringVar(&a.flags.Region, "region", "", "AWS region")
	flags.StringVar(&a.flags.Profile, "profile", "", "AWS shared config profile")
	flags.StringVarP(&a.flags.Table, "table", "t", "", "table to use")
	flags.StringVar(&a.flags.LocalDB, "local-db", "", "use a local store at this path, or :memory:")
	flags.StringVar(&a.flags.Schemas, "schemas", "", "glob of table schema files for the local store")
	flags.CountVarP(&a.verbose, "verbose", "v", "log more, repeat for debug")
	flags.StringVar(&a.flags.LogFormat, "log-format", "text", "text or json")

	root.AddCommand(
		a.queryCmd(),
		a.planCmd(),
		a.listTablesCmd(),
		a.describeCmd(),
		a.createTableCmd(),
		a.putCmd(),
		a.importCmd(),
		a.shellCmd(),
		a.serveCmd(),
		a.whoamiCmd(),
		a.versionCmd(),
	)
	return root
}
