package shell

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/acksell/dynamate/dynamodb/ddbsdk"
	"github.com/acksell/dynamate/dynamodb/filterexpr"
	"github.com/dustin/go-humanize"
)

var errNoTable = errors.New("no table selected, use .use <table>")

type command struct {
	run func(s *Shell, ctx context.Context, args string) error
}

var commands = map[string]command{
	".help":     {run: (*Shell).cmdHelp},
	".exit":     {run: (*Shell).cmdExit},
	".quit":     {run: (*Shell).cmdExit},
	".tables":   {run: (*Shell).cmdTables},
	".use":      {run: (*Shell).cmdUse},
	".describe": {run: (*Shell).cmdDescribe},
	".plan":     {run: (*Shell).cmdPlan},
	".next":     {run: (*Shell).cmdNext},
	".limit":    {run: (*Shell).cmdLimit},
	".output":   {run: (*Shell).cmdOutput},
	".put":      {run: (*Shell).cmdPut},
	".get":      {run: (*Shell).cmdGet},
	".delete":   {run: (*Shell).cmdDelete},
	".size":     {run: (*Shell).cmdSize},
}

var helpLines = [][2]string{
	{"<filter>", "Run a filter on the current table, e.g. pk = \"user#1\" AND begins_with(sk, \"order\")"},
	{"<empty line>", "Scan the current table"},
	{".help", "Show this help"},
	{".exit, .quit", "Leave the shell"},
	{".tables", "List tables"},
	{".use <table>", "Select the current table"},
	{".describe", "Show keys and indexes of the current table"},
	{".plan <filter>", "Show the access plan and expressions without running them"},
	{".next", "Fetch the next page of the last filter"},
	{".limit <n>", "Set the page size"},
	{".output table|json|dynamodb-json", "Set the output format"},
	{".put k=v ...", "Put an item"},
	{".get k=v ...", "Get an item by key"},
	{".delete k=v ...", "Delete an item by key"},
	{".size", "Show estimated sizes of the items on the last page"},
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Shell) cmdHelp(context.Context, string) error {
	width := 0
	for _, l := range helpLines {
		width = max(width, len(l[0]))
	}
	for _, l := range helpLines {
		fmt.Fprintf(s.out, "  %-*s  %s\n", width, l[0], l[1])
	}
	return nil
}

func (s *Shell) cmdExit(context.Context, string) error {
	return ErrExit
}

func (s *Shell) cmdTables(ctx context.Context, _ string) error {
	names, err := ddbsdk.ListAllTables(ctx, s.exec.Client())
	if err != nil {
		return err
	}
	for _, name := range names {
		marker := " "
		if name == s.table {
			marker = "*"
		}
		fmt.Fprintf(s.out, "%s %s\n", marker, name)
	}
	return nil
}

func (s *Shell) cmdUse(ctx context.Context, args string) error {
	if args == "" {
		return errors.New("usage: .use <table>")
	}
	s.schemas.Invalidate(args)
	if _, err := s.schemas.Describe(ctx, args); err != nil {
		return err
	}
	s.table = args
	s.pager = nil
	s.last = nil
	fmt.Fprintf(s.out, "using %s\n", args)
	return nil
}

func (s *Shell) cmdDescribe(ctx context.Context, _ string) error {
	if s.table == "" {
		return errNoTable
	}
	desc, err := s.schemas.Describe(ctx, s.table)
	if err != nil {
		return err
	}
	return WriteDescription(s.out, desc)
}

func (s *Shell) cmdPlan(ctx context.Context, args string) error {
	if s.table == "" {
		return errNoTable
	}
	schema, err := s.schemas.Schema(ctx, s.table)
	if err != nil {
		return err
	}
	req, err := ddbsdk.ParseRequest(schema, args, ddbsdk.RequestOptions{})
	if err != nil {
		return err
	}

	WritePlan(s.out, req)
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Shell) cmdNext(ctx context.Context, _ string) error {
	return s.nextPage(ctx)
}

func (s *Shell) cmdLimit(_ context.Context, args string) error {
	if args == "" {
		fmt.Fprintf(s.out, "limit %d\n", s.pageSize)
		return nil
	}
	n, err := strconv.ParseInt(args, 10, 32)
	if err != nil || n <= 0 {
		return fmt.Errorf("limit must be a positive integer, got %q", args)
	}
	s.pageSize = int32(n)
	return nil
}

func (s *Shell) cmdOutput(_ context.Context, args string) error {
	if args == "" {
		fmt.Fprintf(s.out, "output %s\n", s.output)
		return nil
	}
	f, err := ParseFormat(args)
	if err != nil {
		return err
	}
	s.output = f
	return nil
}

func (s *Shell) assignmentItem(args, usage string) (ddbsdk.Item, error) {
	if s.table == "" {
		return nil, errNoTable
	}
	as, err := filterexpr.ParseAssignments(args)
	if err != nil {
		return nil, err
	}
	if len(as) == 0 {
		return nil, errors.New("usage: " + usage)
	}
	return as.Item()
}

func (s *Shell) cmdPut(ctx context.Context, args string) error {
	item, err := s.assignmentItem(args, ".put k=v ...")
	if err != nil {
		return err
	}
	if err := s.exec.PutItem(ctx, ddbsdk.NewPut(s.table, item)); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "ok")
	return nil
}

func (s *Shell) cmdGet(ctx context.Context, args string) error {
	key, err := s.assignmentItem(args, ".get k=v ...")
	if err != nil {
		return err
	}
	item, err := s.exec.GetItem(ctx, ddbsdk.GetItemRequest{Table: s.table, Key: key})
	if err != nil {
		return err
	}
	if item == nil {
		fmt.Fprintln(s.out, "not found")
		return nil
	}
	s.last = []ddbsdk.Item{item}
	keys, err := s.keyAttributes(ctx)
	if err != nil {
		return err
	}
	return WriteItems(s.out, s.last, s.output, keys)
}

func (s *Shell) cmdDelete(ctx context.Context, args string) error {
	key, err := s.assignmentItem(args, ".delete k=v ...")
	if err != nil {
		return err
	}
	old, err := s.exec.DeleteItem(ctx, ddbsdk.NewDelete(s.table, key))
	if err != nil {
		return err
	}
	if old == nil {
		fmt.Fprintln(s.out, "not found")
		return nil
	}
	fmt.Fprintln(s.out, "deleted")
	return nil
}

func (s *Shell) cmdSize(ctx context.Context, _ string) error {
	if len(s.last) == 0 {
		return errors.New("no items shown yet")
	}
	keys, err := s.keyAttributes(ctx)
	if err != nil {
		return err
	}
	total := 0
	for _, item := range s.last {
		size := ddbsdk.EstimateItemSize(item)
		total += size
		var parts []string
		for _, k := range keys {
			if av, ok := item[k]; ok && k != "" {
				parts = append(parts, k+"="+FormatValue(av))
			}
		}
		fmt.Fprintf(s.out, "%s  %s\n", humanize.IBytes(uint64(size)), strings.Join(parts, " "))
	}
	fmt.Fprintf(s.out, "total %s in %d items\n", humanize.IBytes(uint64(total)), len(s.last))
	return nil
}

