// Package shell is the interactive dynamate prompt. Lines that start with a
// dot are commands; anything else is a filter expression that is planned
// and run against the current table.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/acksell/dynamate/dynamodb/ddbsdk"
	"github.com/acksell/dynamate/dynamodb/logger"
)

// HistoryFile is the name of the history file in the home directory.
const HistoryFile = ".dynamate_history"

const DefaultPageSize = 25

// ErrExit is returned by Execute for .exit and .quit.
var ErrExit = errors.New("exit")

type Options struct {
	// Table is selected on start. Empty leaves the shell without a table
	// until .use.
	Table    string
	PageSize int32
	Output   Format
	// HistoryPath defaults to ~/.dynamate_history. "-" disables history.
	HistoryPath string
	Log         *slog.Logger
}

type Shell struct {
	exec    *ddbsdk.Executor
	schemas *ddbsdk.SchemaCache
	out     io.Writer
	log     *slog.Logger

	table       string
	pageSize    int32
	output      Format
	historyPath string

	pager *ddbsdk.Pager
	last  []ddbsdk.Item
}

func New(exec *ddbsdk.Executor, schemas *ddbsdk.SchemaCache, out io.Writer, opts Options) *Shell {
	s := &Shell{
		exec:        exec,
		schemas:     schemas,
		out:         out,
		log:         opts.Log,
		table:       opts.Table,
		pageSize:    opts.PageSize,
		output:      opts.Output,
		historyPath: opts.HistoryPath,
	}
	if s.log == nil {
		s.log = logger.Get()
	}
	if s.pageSize <= 0 {
		s.pageSize = DefaultPageSize
	}
	if s.output == "" {
		s.output = FormatTable
	}
	switch s.historyPath {
	case "":
		if home, err := os.UserHomeDir(); err == nil {
			s.historyPath = filepath.Join(home, HistoryFile)
		}
	case "-":
		s.historyPath = ""
	}
	return s
}

func (s *Shell) Table() string {
	return s.table
}

// Run reads lines from the terminal until .exit or end of input.
func (s *Shell) Run(ctx context.Context) error {
	p := newInteractive(s.historyPath, commandNames())
	defer p.Close()
	fmt.Fprintln(s.out, "dynamate shell. Type .help for commands.")
	return s.loop(ctx, p)
}

// RunScript executes every line of r, as when input is piped in.
func (s *Shell) RunScript(ctx context.Context, r io.Reader) error {
	return s.loop(ctx, newScript(r))
}

func (s *Shell) loop(ctx context.Context, p prompter) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := p.Prompt(s.prompt())
		if errors.Is(err, errInterrupted) {
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read line: %w", err)
		}
		if strings.TrimSpace(line) != "" {
			p.AppendHistory(line)
		}

		err = s.Execute(ctx, line)
		if errors.Is(err, ErrExit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
}

func (s *Shell) prompt() string {
	if s.table == "" {
		return "dynamate> "
	}
	return s.table + "> "
}

// Execute runs one line. An empty line scans the current table.
func (s *Shell) Execute(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, ".") {
		name, args, _ := strings.Cut(line, " ")
		cmd, ok := commands[strings.ToLower(name)]
		if !ok {
			return fmt.Errorf("unknown command %s, type .help", name)
		}
		return cmd.run(s, ctx, strings.TrimSpace(args))
	}
	return s.runFilter(ctx, line)
}

func (s *Shell) runFilter(ctx context.Context, text string) error {
	if s.table == "" {
		return errNoTable
	}
	schema, err := s.schemas.Schema(ctx, s.table)
	if err != nil {
		return err
	}
	req, err := ddbsdk.ParseRequest(schema, text, ddbsdk.RequestOptions{})
	if err != nil {
		return err
	}
	s.log.Debug("request rendered",
		"operation", req.Operation(),
		"key_condition", req.KeyCondition,
		"filter", req.Filter,
		"names", req.Names,
	)
	fmt.Fprintln(s.out, req.Operation())

	s.pager = s.exec.NewPager(req, s.pageSize)
	return s.nextPage(ctx)
}

func (s *Shell) nextPage(ctx context.Context) error {
	if s.pager == nil || !s.pager.HasMore() {
		return errors.New("no more results")
	}
	page, err := s.pager.Next(ctx)
	if err != nil {
		return err
	}
	s.last = page.Items

	keys, err := s.keyAttributes(ctx)
	if err != nil {
		return err
	}
	if err := WriteItems(s.out, page.Items, s.output, keys); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%d items (%d scanned)\n", page.Count, page.ScannedCount)
	if s.pager.HasMore() {
		fmt.Fprintln(s.out, "more results available, type .next")
	}
	return nil
}

func (s *Shell) keyAttributes(ctx context.Context) ([]string, error) {
	schema, err := s.schemas.Schema(ctx, s.table)
	if err != nil {
		return nil, err
	}
	return []string{schema.PrimaryKey.HashAttr, schema.PrimaryKey.RangeAttr}, nil
}
