// Package ddbstore is a DynamoDB-compatible store backed by BadgerDB. It
// serves the table and item operations dynamate needs, so the client can be
// used offline and tested without a network.
package ddbstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/acksell/dynamate/dynamodb/ddbiface"
	"github.com/acksell/dynamate/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dgraph-io/badger/v4"
)

var _ ddbiface.Client = (*Store)(nil)

// Store is a DynamoDB-compatible store backed by BadgerDB.
type Store struct {
	db *badger.DB

	mu     sync.RWMutex
	tables map[string]*tableSchema
}

type tableSchema struct {
	definition table.TableDefinition
	indexes    map[string]*badgerKeyEncoder
}

func newTableSchema(def table.TableDefinition) *tableSchema {
	schema := &tableSchema{
		definition: def,
		indexes:    make(map[string]*badgerKeyEncoder),
	}
	for _, idx := range def.Indexes() {
		schema.indexes[idx.Name] = &badgerKeyEncoder{
			tableName: def.Name,
			indexName: idx.Name,
			keyDefs:   idx.KeyDefinitions,
			tableKeys: def.KeyDefinitions,
		}
	}
	return schema
}

func (t *tableSchema) encoder() *badgerKeyEncoder {
	return &badgerKeyEncoder{
		tableName: t.definition.Name,
		keyDefs:   t.definition.KeyDefinitions,
	}
}

// StoreOptions configures the BadgerDB store.
type StoreOptions struct {
	// Path to the database directory. If empty, uses in-memory mode.
	Path string
	// InMemory forces in-memory mode even if Path is set.
	InMemory bool
	// Logger for BadgerDB. If nil, logging is disabled.
	Logger badger.Logger
}

// New opens the store and registers defs. Tables persisted by an earlier
// run are loaded first; a definition in defs replaces a persisted table of
// the same name.
func New(opts StoreOptions, defs ...table.TableDefinition) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)

	if opts.Path == "" || opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(opts.Logger)
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	s := &Store{
		db:     db,
		tables: make(map[string]*tableSchema),
	}
	if err := s.loadTables(); err != nil {
		db.Close()
		return nil, err
	}
	for _, def := range defs {
		if err := s.register(def); err != nil {
			db.Close()
			return nil, fmt.Errorf("register table %s: %w", def.Name, err)
		}
	}
	return s, nil
}

// Close closes the BadgerDB database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) loadTables() error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = metaPrefix()
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var def table.TableDefinition
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &def)
			}); err != nil {
				return fmt.Errorf("load table definition: %w", err)
			}
			s.tables[def.Name] = newTableSchema(def)
		}
		return nil
	})
}

// register validates and persists a definition.
func (s *Store) register(def table.TableDefinition) error {
	if err := def.Validate(); err != nil {
		return validationErrorf("%s", err)
	}
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshal table definition: %w", err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metaKey(def.Name), data)
	}); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[def.Name] = newTableSchema(def)
	return nil
}

func (s *Store) getTable(tableName *string) (*tableSchema, error) {
	if tableName == nil || *tableName == "" {
		return nil, validationErrorf("table name is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	schema, ok := s.tables[*tableName]
	if !ok {
		return nil, &types.ResourceNotFoundException{
			Message: aws.String(fmt.Sprintf("Requested resource not found: Table: %s not found", *tableName)),
		}
	}
	return schema, nil
}

// tableNames returns the registered tables in sorted order.
func (s *Store) tableNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Used in query/scan to get the appropriate key encoder based on table and index name.
func (s *Store) getBadgerKeyEncoder(tableName *string, indexName *string) (*tableSchema, *badgerKeyEncoder, error) {
	schema, err := s.getTable(tableName)
	if err != nil {
		return nil, nil, err
	}
	if indexName == nil || *indexName == "" {
		return schema, schema.encoder(), nil
	}
	idx, ok := schema.indexes[*indexName]
	if !ok {
		return nil, nil, validationErrorf("The table does not have the specified index: %s", *indexName)
	}
	return schema, idx, nil
}

// ValidationError mirrors DynamoDB's ValidationException: the request is
// malformed and retrying it cannot succeed.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "ValidationException: " + e.Message
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{
		Message: aws.String("The conditional request failed"),
	}
}
