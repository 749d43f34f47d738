package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/acksell/dynamate/dynamodb/ddbiface"
	"github.com/acksell/dynamate/dynamodb/ddbsdk"
	"github.com/acksell/dynamate/dynamodb/ddbstore"
	"github.com/acksell/dynamate/dynamodb/logger"
	"github.com/acksell/dynamate/dynamodb/schema"
	"github.com/acksell/dynamate/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var errNoTable = errors.New("no table selected, use --table or set table in dynamate.yaml")

// app carries state shared by every command of one invocation.
type app struct {
	out    io.Writer
	errOut io.Writer

	configPath string
	verbose    int
	flags      Config
	cfg        Config

	log      *slog.Logger
	registry *prometheus.Registry

	client  ddbiface.Client
	awsCfg  *aws.Config
	exec    *ddbsdk.Executor
	schemas *ddbsdk.SchemaCache
	closer  func() error
}

// setup resolves the configuration and logger. Flags override the file and
// environment only when set.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := LoadConfig(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	override := func(name string, dst *string, value string) {
		if flags.Changed(name) {
			*dst = value
		}
	}
	override("endpoint-url", &cfg.EndpointURL, a.flags.EndpointURL)
	override("region", &cfg.Region, a.flags.Region)
	override("profile", &cfg.Profile, a.flags.Profile)
	override("table", &cfg.Table, a.flags.Table)
	override("local-db", &cfg.LocalDB, a.flags.LocalDB)
	override("schemas", &cfg.Schemas, a.flags.Schemas)
	override("log-format", &cfg.LogFormat, a.flags.LogFormat)
	if flags.Changed("verbose") || cfg.LogLevel == "" {
		cfg.LogLevel = logger.LevelFromVerbosity(a.verbose)
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.log = logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}, a.errOut)
	a.registry = prometheus.NewRegistry()
	return nil
}

// connect opens the local store or a DynamoDB client, once.
func (a *app) connect(ctx context.Context) error {
	if a.client != nil {
		return nil
	}

	if a.cfg.Local() {
		store, err := a.openStore()
		if err != nil {
			return err
		}
		a.client = store
		a.closer = store.Close
	} else {
		client, awsCfg, err := ddbsdk.NewClient(ctx, ddbsdk.ClientOptions{
			Region:      a.cfg.Region,
			Profile:     a.cfg.Profile,
			EndpointURL: a.cfg.EndpointURL,
		})
		if err != nil {
			return err
		}
		a.client = client
		a.awsCfg = &awsCfg
		a.log.Debug("using dynamodb", "region", awsCfg.Region, "endpoint", a.cfg.EndpointURL)
	}

	a.exec = ddbsdk.NewExecutor(a.client,
		ddbsdk.WithLogger(a.log),
		ddbsdk.WithMetrics(ddbsdk.NewMetrics(a.registry)),
	)
	a.schemas = ddbsdk.NewSchemaCache(a.client, 0, 0)
	return nil
}

func (a *app) openStore() (*ddbstore.Store, error) {
	var defs []table.TableDefinition
	if a.cfg.Schemas != "" {
		var err error
		defs, err = schema.LoadSchemas(a.cfg.Schemas)
		if err != nil {
			return nil, err
		}
	}

	opts := ddbstore.StoreOptions{Logger: logger.BadgerLogger{L: a.log}}
	if a.cfg.LocalDB == "" || a.cfg.LocalDB == memoryDB {
		opts.InMemory = true
	} else {
		opts.Path = a.cfg.LocalDB
	}
	store, err := ddbstore.New(opts, defs...)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	a.log.Debug("using local store", "path", a.cfg.LocalDB, "tables", len(defs))
	return store, nil
}

func (a *app) close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer()
	a.closer = nil
	return err
}

func (a *app) requireTable() (string, error) {
	if a.cfg.Table == "" {
		return "", errNoTable
	}
	return a.cfg.Table, nil
}

// serverRegistry adds process and Go runtime collectors for /metrics.
func (a *app) serverRegistry() *prometheus.Registry {
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return a.registry
}
