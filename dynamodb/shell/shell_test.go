package shell

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/acksell/dynamate/dynamodb/ddbsdk"
	"github.com/acksell/dynamate/dynamodb/ddbstore"
	"github.com/acksell/dynamate/dynamodb/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var usersTable = table.TableDefinition{
	Name: "users",
	KeyDefinitions: table.PrimaryKeyDefinition{
		PartitionKey: table.KeyDef{Name: "pk", Kind: table.KeyKindS},
		SortKey:      table.KeyDef{Name: "sk", Kind: table.KeyKindS},
	},
	GSIs: []table.IndexDefinition{
		{
			Name: "byEmail",
			KeyDefinitions: table.PrimaryKeyDefinition{
				PartitionKey: table.KeyDef{Name: "email", Kind: table.KeyKindS},
			},
		},
	},
}

func newTestShell(t *testing.T, opts Options) (*Shell, *bytes.Buffer) {
	t.Helper()
	store, err := ddbstore.New(ddbstore.StoreOptions{InMemory: true}, usersTable)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	exec := ddbsdk.NewExecutor(store, ddbsdk.WithLogger(log), ddbsdk.WithDelay(0))
	out := &bytes.Buffer{}
	opts.Log = log
	opts.HistoryPath = "-"
	return New(exec, ddbsdk.NewSchemaCache(store, 0, 0), out, opts), out
}

func run(t *testing.T, s *Shell, out *bytes.Buffer, line string) string {
	t.Helper()
	out.Reset()
	require.NoError(t, s.Execute(context.Background(), line))
	return out.String()
}

func TestShell_PutGetDelete(t *testing.T) {
	s, out := newTestShell(t, Options{Table: "users"})

	assert.Equal(t, "ok\n", run(t, s, out, `.put pk="user#1" sk=profile email=a@example.com age=30`))

	got := run(t, s, out, `.get pk="user#1" sk=profile`)
	assert.Contains(t, got, "| pk     | sk      | age | email         |")
	assert.Contains(t, got, "| user#1 | profile |  30 | a@example.com |")

	assert.Equal(t, "deleted\n", run(t, s, out, `.delete pk="user#1" sk=profile`))
	assert.Equal(t, "not found\n", run(t, s, out, `.get pk="user#1" sk=profile`))
	assert.Equal(t, "not found\n", run(t, s, out, `.delete pk="user#1" sk=profile`))
}

func TestShell_Filters(t *testing.T) {
	s, out := newTestShell(t, Options{Table: "users", PageSize: 2})
	for i := 0; i < 3; i++ {
		run(t, s, out, fmt.Sprintf(`.put pk="user#1" sk="order#%d" email=u1@example.com`, i))
	}
	run(t, s, out, `.put pk="user#2" sk=profile email=u2@example.com`)

	t.Run("query with pages", func(t *testing.T) {
		got := run(t, s, out, `pk = "user#1"`)
		assert.True(t, strings.HasPrefix(got, "Query (Table)\n"), got)
		assert.Contains(t, got, "order#0")
		assert.Contains(t, got, "order#1")
		assert.Contains(t, got, "2 items (2 scanned)")
		assert.Contains(t, got, "more results available")

		got = run(t, s, out, ".next")
		assert.Contains(t, got, "order#2")
		assert.Contains(t, got, "1 items (1 scanned)")
		assert.NotContains(t, got, "more results available")

		err := s.Execute(context.Background(), ".next")
		require.EqualError(t, err, "no more results")
	})

	t.Run("global index", func(t *testing.T) {
		got := run(t, s, out, `email = "u2@example.com"`)
		assert.True(t, strings.HasPrefix(got, "Query (GSI: byEmail)\n"), got)
		assert.Contains(t, got, "user#2")
	})

	t.Run("empty line scans", func(t *testing.T) {
		run(t, s, out, ".limit 10")
		got := run(t, s, out, "")
		assert.True(t, strings.HasPrefix(got, "Scan\n"), got)
		assert.Contains(t, got, "4 items (4 scanned)")
	})

	t.Run("json output", func(t *testing.T) {
		run(t, s, out, ".output json")
		got := run(t, s, out, `pk = "user#2"`)
		assert.Contains(t, got, `"email": "u2@example.com"`)

		run(t, s, out, ".output dynamodb-json")
		got = run(t, s, out, `pk = "user#2"`)
		assert.Contains(t, got, `"S": "u2@example.com"`)
	})

	t.Run("size", func(t *testing.T) {
		got := run(t, s, out, ".size")
		assert.Contains(t, got, "pk=user#2 sk=profile")
		assert.Contains(t, got, "total ")
	})

	t.Run("parse error", func(t *testing.T) {
		err := s.Execute(context.Background(), `pk = `)
		require.Error(t, err)
	})
}

func TestShell_Commands(t *testing.T) {
	t.Run("no table", func(t *testing.T) {
		s, _ := newTestShell(t, Options{})
		for _, line := range []string{`pk = "x"`, ".describe", ".plan pk = \"x\"", ".put a=b"} {
			err := s.Execute(context.Background(), line)
			assert.ErrorIs(t, err, errNoTable, line)
		}
	})

	t.Run("use and tables", func(t *testing.T) {
		s, out := newTestShell(t, Options{})
		assert.Equal(t, "  users\n", run(t, s, out, ".tables"))
		assert.Equal(t, "using users\n", run(t, s, out, ".use users"))
		assert.Equal(t, "users", s.Table())
		assert.Equal(t, "* users\n", run(t, s, out, ".tables"))

		err := s.Execute(context.Background(), ".use missing")
		require.Error(t, err)
		assert.Equal(t, "users", s.Table())
	})

	t.Run("describe", func(t *testing.T) {
		s, out := newTestShell(t, Options{Table: "users"})
		got := run(t, s, out, ".describe")
		assert.Contains(t, got, "Table: users")
		assert.Contains(t, got, "Keys: pk (S), sk (S)")
		assert.Contains(t, got, "GSI byEmail: email (S) (ALL)")
	})

	t.Run("plan", func(t *testing.T) {
		s, out := newTestShell(t, Options{Table: "users"})
		got := run(t, s, out, `.plan pk = "user#1" AND begins_with(sk, "order")`)
		assert.Contains(t, got, "Operation: Query (Table)")
		assert.Contains(t, got, "KeyConditionExpression: #name0 = :val0 AND begins_with(#name1, :val1)")
		assert.Contains(t, got, "  #name0 = pk\n")
		assert.Contains(t, got, "  :val1 = order\n")
	})

	t.Run("limit and output validation", func(t *testing.T) {
		s, out := newTestShell(t, Options{Table: "users"})
		assert.Equal(t, "limit 25\n", run(t, s, out, ".limit"))
		require.Error(t, s.Execute(context.Background(), ".limit 0"))
		require.Error(t, s.Execute(context.Background(), ".limit lots"))
		assert.Equal(t, "output table\n", run(t, s, out, ".output"))
		require.Error(t, s.Execute(context.Background(), ".output xml"))
	})

	t.Run("unknown and exit", func(t *testing.T) {
		s, _ := newTestShell(t, Options{})
		require.ErrorContains(t, s.Execute(context.Background(), ".frobnicate"), "unknown command")
		require.ErrorIs(t, s.Execute(context.Background(), ".exit"), ErrExit)
		require.ErrorIs(t, s.Execute(context.Background(), ".QUIT"), ErrExit)
	})

	t.Run("help lists every command", func(t *testing.T) {
		s, out := newTestShell(t, Options{})
		got := run(t, s, out, ".help")
		for _, name := range commandNames() {
			assert.Contains(t, got, name)
		}
	})
}

func TestShell_RunScript(t *testing.T) {
	s, out := newTestShell(t, Options{Table: "users"})
	script := strings.Join([]string{
		`.put pk=a sk=b`,
		`.bogus`,
		`pk = "a"`,
		`.exit`,
		`.put pk=never sk=run`,
	}, "\n")

	require.NoError(t, s.RunScript(context.Background(), strings.NewReader(script)))
	got := out.String()
	assert.Contains(t, got, "ok\n")
	assert.Contains(t, got, "error: unknown command .bogus")
	assert.Contains(t, got, "1 items (1 scanned)")
	assert.NotContains(t, got, "never")
}
