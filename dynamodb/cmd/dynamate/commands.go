package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/acksell/dynamate/dynamodb/ddbsdk"
	"github.com/acksell/dynamate/dynamodb/ddbui"
	"github.com/acksell/dynamate/dynamodb/filterexpr"
	"github.com/acksell/dynamate/dynamodb/itemjson"
	"github.com/acksell/dynamate/dynamodb/shell"
	"github.com/acksell/dynamate/dynamodb/table"
	"github.com/spf13/cobra"
)

// connected wraps a command body so that it runs with an open client.
func (a *app) connected(run func(ctx context.Context, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.connect(cmd.Context()); err != nil {
			return err
		}
		return run(cmd.Context(), args)
	}
}

func (a *app) queryCmd() *cobra.Command {
	var (
		limit      int32
		all        bool
		selectList string
		segments   int
		output     string
		descending bool
		consistent bool
	)
	cmd := &cobra.Command{
		Use:   "query [filter]",
		Short: "Run a filter against the current table",
		Long: `Plans the filter onto the table key or an index and runs it as a Query,
falling back to a Scan when no key condition applies. No filter scans the
whole table.

  dynamate query --table orders 'pk = "user#1" AND begins_with(sk, "order#")'`,
	}
	flags := cmd.Flags()
	flags.Int32Var(&limit, "limit", 0, "page size, or the maximum items with --all (default page_size)")
	flags.BoolVar(&all, "all", false, "fetch every page")
	flags.StringVar(&selectList, "select", "", "comma-separated attributes to return")
	flags.IntVar(&segments, "segments", 0, "parallel scan segments (default segments from config)")
	flags.StringVarP(&output, "output", "o", "", "table, json or dynamodb-json (default output from config)")
	flags.BoolVar(&descending, "desc", false, "return queries in descending sort key order")
	flags.BoolVar(&consistent, "consistent", false, "use strongly consistent reads")

	cmd.RunE = a.connected(func(ctx context.Context, args []string) error {
		tableName, err := a.requireTable()
		if err != nil {
			return err
		}
		if limit == 0 {
			limit = int32(a.cfg.PageSize)
		}
		if segments == 0 {
			segments = a.cfg.Segments
		}
		if output == "" {
			output = a.cfg.Output
		}
		format, err := shell.ParseFormat(output)
		if err != nil {
			return err
		}

		schema, err := a.schemas.Schema(ctx, tableName)
		if err != nil {
			return err
		}
		opts := ddbsdk.RequestOptions{Descending: descending, ConsistentRead: consistent}
		if selectList != "" {
			opts.Projection = strings.Split(selectList, ",")
		}
		req, err := ddbsdk.ParseRequest(schema, strings.Join(args, " "), opts)
		if err != nil {
			return err
		}
		a.log.Info("running request", "operation", req.Operation(), "plan", req.Plan.String())

		var items []ddbsdk.Item
		var more bool
		switch {
		case segments > 1 && req.IsScan():
			maxItems := int(limit)
			if all {
				maxItems = 0
			}
			items, err = a.exec.ParallelScan(ctx, req, segments, limit, maxItems)
		case all:
			items, err = a.exec.NewPager(req, limit).All(ctx, 0)
		default:
			pager := a.exec.NewPager(req, limit)
			var page *ddbsdk.Page
			page, err = pager.Next(ctx)
			if page != nil {
				items = page.Items
			}
			more = pager.HasMore()
		}
		if err != nil {
			return err
		}

		keys := []string{schema.PrimaryKey.HashAttr, schema.PrimaryKey.RangeAttr}
		if err := shell.WriteItems(a.out, items, format, keys); err != nil {
			return err
		}
		if more {
			fmt.Fprintln(a.errOut, "more results available, rerun with --all")
		}
		return nil
	})
	return cmd
}

func (a *app) planCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <filter>",
		Short: "Show how a filter would run without running it",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.RunE = a.connected(func(ctx context.Context, args []string) error {
		tableName, err := a.requireTable()
		if err != nil {
			return err
		}
		schema, err := a.schemas.Schema(ctx, tableName)
		if err != nil {
			return err
		}
		req, err := ddbsdk.ParseRequest(schema, strings.Join(args, " "), ddbsdk.RequestOptions{})
		if err != nil {
			return err
		}
		shell.WritePlan(a.out, req)
		return nil
	})
	return cmd
}

func (a *app) listTablesCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list-tables",
		Aliases: []string{"ls"},
		Short:   "List tables",
		Args:    cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print a JSON array")
	cmd.RunE = a.connected(func(ctx context.Context, _ []string) error {
		names, err := ddbsdk.ListAllTables(ctx, a.client)
		if err != nil {
			return err
		}
		if asJSON {
			if names == nil {
				names = []string{}
			}
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(names)
		}
		for _, name := range names {
			fmt.Fprintln(a.out, name)
		}
		return nil
	})
	return cmd
}

func (a *app) describeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe [table]",
		Short: "Show a table's keys and indexes",
		Args:  cobra.MaximumNArgs(1),
	}
	cmd.RunE = a.connected(func(ctx context.Context, args []string) error {
		tableName := a.cfg.Table
		if len(args) == 1 {
			tableName = args[0]
		}
		if tableName == "" {
			return errNoTable
		}
		desc, err := a.schemas.Describe(ctx, tableName)
		if err != nil {
			return err
		}
		return shell.WriteDescription(a.out, desc)
	})
	return cmd
}

func (a *app) createTableCmd() *cobra.Command {
	var (
		pk, sk string
		gsis   []string
		lsis   []string
	)
	cmd := &cobra.Command{
		Use:   "create-table",
		Short: "Create a table",
		Long: `Creates the table named by --table.

  dynamate create-table --table orders --pk pk:S --sk sk:S \
    --gsi byStatus:status:S:createdAt:N --lsi byTotal:total:N:KEYS_ONLY`,
		Args: cobra.NoArgs,
	}
	flags := cmd.Flags()
	flags.StringVar(&pk, "pk", "", "partition key as NAME:TYPE")
	flags.StringVar(&sk, "sk", "", "sort key as NAME:TYPE")
	flags.StringArrayVar(&gsis, "gsi", nil, "global index as NAME:PK:PK_TYPE[:SK:SK_TYPE][:PROJECTION], repeatable")
	flags.StringArrayVar(&lsis, "lsi", nil, "local index as NAME:SK:SK_TYPE[:PROJECTION], repeatable")
	_ = cmd.MarkFlagRequired("pk")

	cmd.RunE = a.connected(func(ctx context.Context, _ []string) error {
		tableName, err := a.requireTable()
		if err != nil {
			return err
		}
		def, err := tableDefinition(tableName, pk, sk, gsis, lsis)
		if err != nil {
			return err
		}
		in, err := def.CreateTableInput()
		if err != nil {
			return err
		}
		if _, err := a.client.CreateTable(ctx, in); err != nil {
			return fmt.Errorf("create table %s: %w", tableName, err)
		}
		fmt.Fprintf(a.out, "created table %s\n", tableName)
		return nil
	})
	return cmd
}

func tableDefinition(name, pk, sk string, gsis, lsis []string) (table.TableDefinition, error) {
	def := table.TableDefinition{Name: name}
	var err error
	if def.KeyDefinitions.PartitionKey, err = table.ParseKeySpec(pk); err != nil {
		return def, fmt.Errorf("--pk: %w", err)
	}
	if sk != "" {
		if def.KeyDefinitions.SortKey, err = table.ParseKeySpec(sk); err != nil {
			return def, fmt.Errorf("--sk: %w", err)
		}
	}
	for _, raw := range gsis {
		gsi, err := table.ParseGSISpec(raw)
		if err != nil {
			return def, fmt.Errorf("--gsi: %w", err)
		}
		def.GSIs = append(def.GSIs, gsi)
	}
	for _, raw := range lsis {
		lsi, err := table.ParseLSISpec(raw, def.KeyDefinitions.PartitionKey)
		if err != nil {
			return def, fmt.Errorf("--lsi: %w", err)
		}
		def.LSIs = append(def.LSIs, lsi)
	}
	return def, def.Validate()
}

func (a *app) putCmd() *cobra.Command {
	var create bool
	cmd := &cobra.Command{
		Use:   "put key=value...",
		Short: "Put one item given as key=value pairs",
		Long: `Unquoted numbers become numbers, true/false/null their types, and
everything else a string. Quote a value to keep it a string.

  dynamate put --table users pk=user#1 sk=profile age=30 zip="01234"`,
		Args: cobra.MinimumNArgs(1),
	}
	cmd.Flags().BoolVar(&create, "create", false, "fail if an item with the same key exists")
	cmd.RunE = a.connected(func(ctx context.Context, args []string) error {
		tableName, err := a.requireTable()
		if err != nil {
			return err
		}
		assignments, err := filterexpr.ParseAssignments(strings.Join(args, " "))
		if err != nil {
			return err
		}
		item, err := assignments.Item()
		if err != nil {
			return err
		}
		put := ddbsdk.NewPut(tableName, item)
		if create {
			schema, err := a.schemas.Schema(ctx, tableName)
			if err != nil {
				return err
			}
			put = ddbsdk.NewCreate(tableName, schema.PrimaryKey.HashAttr, item)
		}
		if err := a.exec.PutItem(ctx, put); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "ok")
		return nil
	})
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Batch-write items from a JSON file",
		Long: `Reads a JSON array of items, or one item per line, and writes them in
batches of 25. Use - to read stdin. With --format dynamodb-json every value is
a typed object such as {"S": "x"}.`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&format, "format", "json", "json or dynamodb-json")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		var decode func([]byte) ([]ddbsdk.Item, error)
		switch shell.Format(strings.ToLower(format)) {
		case shell.FormatJSON:
			decode = itemjson.FromJSONLines
		case shell.FormatDynamoJSON:
			decode = itemjson.FromDynamoJSONLines
		default:
			return fmt.Errorf("unknown format %q, expected json or dynamodb-json", format)
		}

		data, err := readInput(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		items, err := decode(data)
		if err != nil {
			return fmt.Errorf("decode %s: %w", args[0], err)
		}

		return a.connected(func(ctx context.Context, _ []string) error {
			tableName, err := a.requireTable()
			if err != nil {
				return err
			}
			n, err := ddbsdk.BatchPut(ctx, a.client, tableName, items)
			if err != nil {
				return fmt.Errorf("imported %d of %d items: %w", n, len(items), err)
			}
			fmt.Fprintf(a.out, "imported %d items\n", n)
			return nil
		})(cmd, args)
	}
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func (a *app) shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive shell (default)",
		Args:  cobra.NoArgs,
		RunE:  a.runShell,
	}
}

func (a *app) runShell(cmd *cobra.Command, _ []string) error {
	if err := a.connect(cmd.Context()); err != nil {
		return err
	}
	ctx := cmd.Context()
	if !a.cfg.Local() {
		if err := ddbsdk.ValidateConnection(ctx, a.client); err != nil {
			return err
		}
	}
	format, err := shell.ParseFormat(a.cfg.Output)
	if err != nil {
		return err
	}
	sh := shell.New(a.exec, a.schemas, a.out, shell.Options{
		Table:    a.cfg.Table,
		PageSize: int32(a.cfg.PageSize),
		Output:   format,
		Log:      a.log,
	})

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && isTerminal(f) {
		return sh.Run(ctx)
	}
	return sh.RunScript(ctx, in)
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func (a *app) serveCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default listen from config)")
	cmd.RunE = a.connected(func(ctx context.Context, _ []string) error {
		if listen == "" {
			listen = a.cfg.Listen
		}
		srv := ddbui.NewServer(ddbui.ServerConfig{
			Addr:     listen,
			Gatherer: a.serverRegistry(),
			PageSize: int32(a.cfg.PageSize),
			Log:      a.log,
		}, a.exec, a.schemas)
		return srv.Run(ctx)
	})
	return cmd
}

func (a *app) whoamiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the AWS identity in use",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.connected(func(ctx context.Context, _ []string) error {
		if a.awsCfg == nil {
			fmt.Fprintln(a.out, "local store, no AWS identity")
			return nil
		}
		id, err := ddbsdk.WhoAmI(ctx, *a.awsCfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Account: %s\n", id.Account)
		if id.AccountAlias != "" {
			fmt.Fprintf(a.out, "Alias:   %s\n", id.AccountAlias)
		}
		fmt.Fprintf(a.out, "ARN:     %s\n", id.ARN)
		fmt.Fprintf(a.out, "UserID:  %s\n", id.UserID)
		fmt.Fprintf(a.out, "Region:  %s\n", id.Region)
		return nil
	})
	return cmd
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(a.out, "dynamate version %s\n", version)
		},
	}
}
