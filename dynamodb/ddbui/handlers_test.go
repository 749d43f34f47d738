package ddbui

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/acksell/dynamate/dynamodb/ddbsdk"
	"github.com/acksell/dynamate/dynamodb/ddbstore"
	"github.com/acksell/dynamate/dynamodb/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productsTable = table.TableDefinition{
	Name: "products",
	KeyDefinitions: table.PrimaryKeyDefinition{
		PartitionKey: table.KeyDef{Name: "pk", Kind: table.KeyKindS},
		SortKey:      table.KeyDef{Name: "sk", Kind: table.KeyKindS},
	},
	GSIs: []table.IndexDefinition{
		{
			Name: "byCategory",
			KeyDefinitions: table.PrimaryKeyDefinition{
				PartitionKey: table.KeyDef{Name: "category", Kind: table.KeyKindS},
				SortKey:      table.KeyDef{Name: "price", Kind: table.KeyKindN},
			},
			Projection: table.ProjectKeysOnly(),
		},
	},
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	store, err := ddbstore.New(ddbstore.StoreOptions{InMemory: true}, productsTable)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	exec := ddbsdk.NewExecutor(store,
		ddbsdk.WithLogger(log),
		ddbsdk.WithDelay(0),
		ddbsdk.WithMetrics(ddbsdk.NewMetrics(reg)),
	)
	srv := NewServer(ServerConfig{Gatherer: reg, PageSize: 2, Log: log}, exec, ddbsdk.NewSchemaCache(store, 0, 0))
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func seedProducts(t *testing.T, h http.Handler) {
	t.Helper()
	bodies := []string{
		`{"item":{"pk":"p1","sk":"v1","category":"tools","price":10}}`,
		`{"item":{"pk":"p1","sk":"v2","category":"tools","price":12.5}}`,
		`{"item":{"pk":"p1","sk":"v3","category":"garden","price":3}}`,
		`{"item":{"pk":"p2","sk":"v1","category":"tools","price":99}}`,
	}
	for _, body := range bodies {
		rec := do(t, h, http.MethodPost, "/api/tables/products/items", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
}

func TestAPI_Tables(t *testing.T) {
	h := newTestServer(t)

	t.Run("list", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/tables", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		got := decode[map[string][]string](t, rec)
		assert.Equal(t, []string{"products"}, got["tables"])
	})

	t.Run("describe", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/tables/products", "")
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[tableJSON](t, rec)
		assert.Equal(t, "products", got.Name)
		assert.Equal(t, []keyJSON{{Name: "pk", Type: "S"}, {Name: "sk", Type: "S"}}, got.Keys)
		require.Len(t, got.GSIs, 1)
		assert.Equal(t, "byCategory", got.GSIs[0].Name)
		assert.Equal(t, []keyJSON{{Name: "category", Type: "S"}, {Name: "price", Type: "N"}}, got.GSIs[0].Keys)
		assert.Equal(t, "KEYS_ONLY", got.GSIs[0].Projection)
		assert.Empty(t, got.LSIs)
	})

	t.Run("unknown table", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/tables/missing", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, decode[map[string]string](t, rec)["error"], "missing")
	})
}

func TestAPI_QueryItems(t *testing.T) {
	h := newTestServer(t)
	seedProducts(t, h)

	t.Run("pages through a query", func(t *testing.T) {
		target := "/api/tables/products/items?filter=" + url.QueryEscape(`pk = "p1"`)
		rec := do(t, h, http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		first := decode[queryResponse](t, rec)
		assert.Equal(t, "Query (Table)", first.Operation)
		assert.NotEmpty(t, first.KeyCondition)
		require.Len(t, first.Items, 2)
		assert.Equal(t, "v1", first.Items[0]["sk"])
		require.NotEmpty(t, first.NextCursor)

		rec = do(t, h, http.MethodGet, target+"&cursor="+first.NextCursor, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		second := decode[queryResponse](t, rec)
		require.Len(t, second.Items, 1)
		assert.Equal(t, "v3", second.Items[0]["sk"])
		assert.Empty(t, second.NextCursor)
	})

	t.Run("descending with limit", func(t *testing.T) {
		target := "/api/tables/products/items?limit=5&order=desc&filter=" + url.QueryEscape(`pk = "p1"`)
		got := decode[queryResponse](t, do(t, h, http.MethodGet, target, ""))
		require.Len(t, got.Items, 3)
		assert.Equal(t, "v3", got.Items[0]["sk"])
	})

	t.Run("global index with range condition", func(t *testing.T) {
		target := "/api/tables/products/items?limit=10&filter=" + url.QueryEscape(`category = "tools" AND price > 11`)
		got := decode[queryResponse](t, do(t, h, http.MethodGet, target, ""))
		assert.Equal(t, "Query (GSI: byCategory)", got.Operation)
		assert.Contains(t, got.KeyCondition, ">")
		assert.Empty(t, got.Filter)
		require.Len(t, got.Items, 2)
		assert.Equal(t, 12.5, got.Items[0]["price"])
		assert.Equal(t, float64(99), got.Items[1]["price"])
	})

	t.Run("scan without filter", func(t *testing.T) {
		got := decode[queryResponse](t, do(t, h, http.MethodGet, "/api/tables/products/items?limit=10&select=pk,sk", ""))
		assert.Equal(t, "Scan", got.Operation)
		assert.Equal(t, int32(4), got.Count)
		for _, item := range got.Items {
			assert.NotContains(t, item, "price")
		}
	})

	t.Run("bad requests", func(t *testing.T) {
		tests := []struct {
			name   string
			target string
			status int
		}{
			{"parse error", "/api/tables/products/items?filter=" + url.QueryEscape(`pk = `), http.StatusBadRequest},
			{"limit zero", "/api/tables/products/items?limit=0", http.StatusBadRequest},
			{"limit too large", "/api/tables/products/items?limit=5000", http.StatusBadRequest},
			{"garbage cursor", "/api/tables/products/items?cursor=%21%21", http.StatusBadRequest},
			{"unknown table", "/api/tables/missing/items", http.StatusNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := do(t, h, http.MethodGet, tt.target, "")
				assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			})
		}
	})
}

func TestAPI_Plan(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/tables/products/plan", `{"filter":"category = \"tools\" AND price > 5"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[planResponse](t, rec)
	assert.Equal(t, "Query (GSI: byCategory)", got.Operation)
	assert.Equal(t, "byCategory", got.IndexName)
	assert.True(t, strings.HasPrefix(got.Plan, "GlobalIndex{"), got.Plan)
	assert.Contains(t, got.Names, "#name0")
	assert.Len(t, got.Values, 2)
	assert.Empty(t, got.Filter)

	t.Run("empty filter is a scan", func(t *testing.T) {
		got := decode[planResponse](t, do(t, h, http.MethodPost, "/api/tables/products/plan", `{}`))
		assert.Equal(t, "Scan", got.Operation)
		assert.Equal(t, "FullScan", got.Plan)
	})

	t.Run("invalid body", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/tables/products/plan", `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAPI_PutDelete(t *testing.T) {
	h := newTestServer(t)
	seedProducts(t, h)

	t.Run("put rejects bad items", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{"missing item", `{}`},
			{"not an object", `{"item":[1]}`},
			{"missing key", `{"item":{"pk":"p9"}}`},
			{"wrong key type", `{"item":{"pk":1,"sk":"x"}}`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := do(t, h, http.MethodPost, "/api/tables/products/items", tt.body)
				assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			})
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec := do(t, h, http.MethodDelete, "/api/tables/products/items", `{"key":{"pk":"p2","sk":"v1"}}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, map[string]bool{"deleted": true}, decode[map[string]bool](t, rec))

		rec = do(t, h, http.MethodDelete, "/api/tables/products/items", `{"key":{"pk":"p2","sk":"v1"}}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, map[string]bool{"deleted": false}, decode[map[string]bool](t, rec))

		got := decode[queryResponse](t, do(t, h, http.MethodGet, "/api/tables/products/items?filter="+url.QueryEscape(`pk = "p2"`), ""))
		assert.Empty(t, got.Items)
	})
}

func TestServer_Middleware(t *testing.T) {
	h := newTestServer(t)

	t.Run("assigns request id", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/tables", "")
		assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
	})

	t.Run("keeps incoming request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/tables", nil)
		req.Header.Set(RequestIDHeader, "abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))
	})

	t.Run("cors preflight", func(t *testing.T) {
		rec := do(t, h, http.MethodOptions, "/api/tables/products/items", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("metrics", func(t *testing.T) {
		do(t, h, http.MethodGet, "/api/tables/products/items", "")
		rec := do(t, h, http.MethodGet, "/metrics", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "dynamate_requests_total")
	})
}
