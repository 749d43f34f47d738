package table

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type TableDefinition struct {
	Name           string
	KeyDefinitions PrimaryKeyDefinition
	GSIs           []IndexDefinition
	// LSIs always carry the table's partition key in KeyDefinitions.
	LSIs []IndexDefinition
}

// IndexDefinition represents a global or local secondary index.
type IndexDefinition struct {
	Name           string
	KeyDefinitions PrimaryKeyDefinition
	Projection     Projection
}

// ExtractPrimaryKey extracts the index key values from a document.
func (i IndexDefinition) ExtractPrimaryKey(doc map[string]types.AttributeValue) (PrimaryKey, error) {
	return i.KeyDefinitions.ExtractPrimaryKey(doc)
}

func (t TableDefinition) ExtractPrimaryKey(doc map[string]types.AttributeValue) (PrimaryKey, error) {
	return t.KeyDefinitions.ExtractPrimaryKey(doc)
}

// Index looks up a secondary index by name, GSIs first.
func (t TableDefinition) Index(name string) (IndexDefinition, bool) {
	for _, idx := range t.GSIs {
		if idx.Name == name {
			return idx, true
		}
	}
	for _, idx := range t.LSIs {
		if idx.Name == name {
			return idx, true
		}
	}
	return IndexDefinition{}, false
}

// Indexes returns all secondary indexes, GSIs in declared order followed by LSIs.
func (t TableDefinition) Indexes() []IndexDefinition {
	out := make([]IndexDefinition, 0, len(t.GSIs)+len(t.LSIs))
	out = append(out, t.GSIs...)
	return append(out, t.LSIs...)
}

// Validate checks the definition the same way CreateTable would.
func (t TableDefinition) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("table name is required")
	}
	if strings.TrimSpace(t.KeyDefinitions.PartitionKey.Name) == "" {
		return fmt.Errorf("partition key is required")
	}
	if len(t.LSIs) > 0 && !t.KeyDefinitions.HasSortKey() {
		return fmt.Errorf("LSI requires a table sort key")
	}

	seen := make(map[string]bool)
	for _, gsi := range t.GSIs {
		if strings.TrimSpace(gsi.Name) == "" {
			return fmt.Errorf("GSI name is required")
		}
		if seen[gsi.Name] {
			return fmt.Errorf("duplicate index name: %s", gsi.Name)
		}
		seen[gsi.Name] = true
		if strings.TrimSpace(gsi.KeyDefinitions.PartitionKey.Name) == "" {
			return fmt.Errorf("GSI %s: partition key is required", gsi.Name)
		}
		if err := gsi.Projection.Validate(); err != nil {
			return fmt.Errorf("GSI %s: %w", gsi.Name, err)
		}
	}
	for _, lsi := range t.LSIs {
		if strings.TrimSpace(lsi.Name) == "" {
			return fmt.Errorf("LSI name is required")
		}
		if seen[lsi.Name] {
			return fmt.Errorf("duplicate index name: %s", lsi.Name)
		}
		seen[lsi.Name] = true
		if lsi.KeyDefinitions.PartitionKey.Name != t.KeyDefinitions.PartitionKey.Name {
			return fmt.Errorf("LSI %s: partition key must be the table partition key %q", lsi.Name, t.KeyDefinitions.PartitionKey.Name)
		}
		if !lsi.KeyDefinitions.HasSortKey() {
			return fmt.Errorf("LSI %s: sort key is required", lsi.Name)
		}
		if err := lsi.Projection.Validate(); err != nil {
			return fmt.Errorf("LSI %s: %w", lsi.Name, err)
		}
	}

	_, err := t.attributeKinds()
	return err
}

// attributeKinds collects every key attribute with its kind, rejecting an
// attribute that is declared with two different kinds.
func (t TableDefinition) attributeKinds() (map[string]KeyKind, error) {
	kinds := make(map[string]KeyKind)
	register := func(def KeyDef) error {
		if def.Name == "" {
			return nil
		}
		if existing, ok := kinds[def.Name]; ok {
			if existing != def.Kind {
				return fmt.Errorf("attribute %s has conflicting types (%s vs %s)", def.Name, existing, def.Kind)
			}
			return nil
		}
		kinds[def.Name] = def.Kind
		return nil
	}

	keys := []PrimaryKeyDefinition{t.KeyDefinitions}
	for _, idx := range t.Indexes() {
		keys = append(keys, idx.KeyDefinitions)
	}
	for _, k := range keys {
		if err := register(k.PartitionKey); err != nil {
			return nil, err
		}
		if err := register(k.SortKey); err != nil {
			return nil, err
		}
	}
	return kinds, nil
}
