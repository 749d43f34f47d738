package ddbui

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/acksell/dynamate/dynamodb/ddbsdk"
	"github.com/acksell/dynamate/dynamodb/ddbstore"
	"github.com/acksell/dynamate/dynamodb/filterexpr"
	"github.com/acksell/dynamate/dynamodb/itemjson"
	"github.com/acksell/dynamate/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

const (
	defaultPageSize = 25
	maxPageSize     = 1000
	maxBodyBytes    = 1 << 20
)

// APIHandler serves the table, item and plan endpoints.
type APIHandler struct {
	exec     *ddbsdk.Executor
	schemas  *ddbsdk.SchemaCache
	pageSize int32
}

func NewAPIHandler(exec *ddbsdk.Executor, schemas *ddbsdk.SchemaCache, pageSize int32) *APIHandler {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &APIHandler{
		exec:     exec,
		schemas:  schemas,
		pageSize: pageSize,
	}
}

func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/tables", h.listTables)
	mux.HandleFunc("GET /api/tables/{table}", h.getTable)
	mux.HandleFunc("GET /api/tables/{table}/items", h.queryItems)
	mux.HandleFunc("POST /api/tables/{table}/items", h.putItem)
	mux.HandleFunc("DELETE /api/tables/{table}/items", h.deleteItem)
	mux.HandleFunc("POST /api/tables/{table}/plan", h.planFilter)
}

func (h *APIHandler) listTables(w http.ResponseWriter, r *http.Request) {
	names, err := ddbsdk.ListAllTables(r.Context(), h.exec.Client())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": names})
}

type keyJSON struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type indexJSON struct {
	Name       string    `json:"name"`
	Keys       []keyJSON `json:"keys"`
	Projection string    `json:"projection"`
}

type tableJSON struct {
	Name      string      `json:"name"`
	Keys      []keyJSON   `json:"keys"`
	GSIs      []indexJSON `json:"gsis"`
	LSIs      []indexJSON `json:"lsis"`
	ItemCount *int64      `json:"itemCount,omitempty"`
}

func (h *APIHandler) getTable(w http.ResponseWriter, r *http.Request) {
	desc, err := h.schemas.Describe(r.Context(), r.PathValue("table"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	def, err := table.DefinitionFromDescription(desc)
	if err != nil {
		writeFailure(w, err)
		return
	}
	out := tableJSON{
		Name:      def.Name,
		Keys:      keysJSON(def.KeyDefinitions),
		GSIs:      indexesJSON(def.GSIs),
		LSIs:      indexesJSON(def.LSIs),
		ItemCount: desc.ItemCount,
	}
	writeJSON(w, http.StatusOK, out)
}

func keysJSON(k table.PrimaryKeyDefinition) []keyJSON {
	out := []keyJSON{{Name: k.PartitionKey.Name, Type: string(k.PartitionKey.Kind)}}
	if k.HasSortKey() {
		out = append(out, keyJSON{Name: k.SortKey.Name, Type: string(k.SortKey.Kind)})
	}
	return out
}

func indexesJSON(defs []table.IndexDefinition) []indexJSON {
	out := make([]indexJSON, 0, len(defs))
	for _, idx := range defs {
		out = append(out, indexJSON{
			Name:       idx.Name,
			Keys:       keysJSON(idx.KeyDefinitions),
			Projection: idx.Projection.String(),
		})
	}
	return out
}

type queryResponse struct {
	Operation    string           `json:"operation"`
	Plan         string           `json:"plan"`
	KeyCondition string           `json:"keyCondition,omitempty"`
	Filter       string           `json:"filter,omitempty"`
	Items        []map[string]any `json:"items"`
	Count        int32            `json:"count"`
	ScannedCount int32            `json:"scannedCount"`
	NextCursor   string           `json:"nextCursor,omitempty"`
}

// queryItems runs one page of the filter in ?filter=. ?cursor= continues
// from the nextCursor of a previous response.
func (h *APIHandler) queryItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseLimit(q.Get("limit"), h.pageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cursor, err := decodeCursor(q.Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	schema, err := h.schemas.Schema(r.Context(), r.PathValue("table"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	opts := ddbsdk.RequestOptions{
		Descending: q.Get("order") == "desc",
	}
	if sel := q.Get("select"); sel != "" {
		opts.Projection = strings.Split(sel, ",")
	}
	req, err := ddbsdk.ParseRequest(schema, q.Get("filter"), opts)
	if err != nil {
		writeFailure(w, err)
		return
	}

	page, err := h.exec.ExecutePage(r.Context(), req, cursor, limit)
	if err != nil {
		writeFailure(w, err)
		return
	}

	resp := queryResponse{
		Operation:    req.Operation(),
		Plan:         req.Plan.String(),
		KeyCondition: req.KeyCondition,
		Filter:       req.Filter,
		Items:        make([]map[string]any, 0, len(page.Items)),
		Count:        page.Count,
		ScannedCount: page.ScannedCount,
	}
	for _, item := range page.Items {
		doc, err := itemjson.ToJSON(item)
		if err != nil {
			writeFailure(w, err)
			return
		}
		resp.Items = append(resp.Items, doc)
	}
	if len(page.LastEvaluatedKey) > 0 {
		resp.NextCursor, err = encodeCursor(page.LastEvaluatedKey)
		if err != nil {
			writeFailure(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type planRequest struct {
	Filter string `json:"filter"`
}

type planResponse struct {
	Operation    string            `json:"operation"`
	Plan         string            `json:"plan"`
	IndexName    string            `json:"indexName,omitempty"`
	KeyCondition string            `json:"keyCondition,omitempty"`
	Filter       string            `json:"filter,omitempty"`
	Names        map[string]string `json:"names,omitempty"`
	Values       map[string]any    `json:"values,omitempty"`
}

func (h *APIHandler) planFilter(w http.ResponseWriter, r *http.Request) {
	var body planRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	schema, err := h.schemas.Schema(r.Context(), r.PathValue("table"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	req, err := ddbsdk.ParseRequest(schema, body.Filter, ddbsdk.RequestOptions{})
	if err != nil {
		writeFailure(w, err)
		return
	}
	values, err := itemjson.ToJSON(req.Values)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, planResponse{
		Operation:    req.Operation(),
		Plan:         req.Plan.String(),
		IndexName:    req.IndexName,
		KeyCondition: req.KeyCondition,
		Filter:       req.Filter,
		Names:        req.Names,
		Values:       values,
	})
}

type itemRequest struct {
	Item json.RawMessage `json:"item"`
}

type keyRequest struct {
	Key json.RawMessage `json:"key"`
}

func (h *APIHandler) putItem(w http.ResponseWriter, r *http.Request) {
	var body itemRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := itemjson.FromJSONString(string(body.Item))
	if err != nil {
		writeError(w, http.StatusBadRequest, "item: "+err.Error())
		return
	}
	if err := h.exec.PutItem(r.Context(), ddbsdk.NewPut(r.PathValue("table"), item)); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true})
}

func (h *APIHandler) deleteItem(w http.ResponseWriter, r *http.Request) {
	var body keyRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	key, err := itemjson.FromJSONString(string(body.Key))
	if err != nil {
		writeError(w, http.StatusBadRequest, "key: "+err.Error())
		return
	}
	old, err := h.exec.DeleteItem(r.Context(), ddbsdk.NewDelete(r.PathValue("table"), key))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": old != nil})
}

func parseLimit(raw string, fallback int32) (int32, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxPageSize {
		return 0, fmt.Errorf("limit must be between 1 and %d", maxPageSize)
	}
	return int32(n), nil
}

// Cursors are the DynamoDB JSON of the last evaluated key, base64url encoded.
func encodeCursor(key ddbsdk.Item) (string, error) {
	doc, err := itemjson.ToDynamoJSON(key)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func decodeCursor(cursor string) (ddbsdk.Item, error) {
	if cursor == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor")
	}
	key, err := itemjson.FromDynamoJSONString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	return key, nil
}

func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// statusFor maps store, SDK and parse errors to HTTP status codes.
func statusFor(err error) int {
	var notFound *types.ResourceNotFoundException
	var parseErr *filterexpr.ParseError
	var apiErr smithy.APIError
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &parseErr), ddbstore.IsValidation(err):
		return http.StatusBadRequest
	case errors.As(err, &apiErr) && apiErr.ErrorCode() == "ValidationException":
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeFailure(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
