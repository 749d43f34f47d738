package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/acksell/dynamate/dynamodb/table"
	"gopkg.in/yaml.v3"
)

// LoadSchemas loads every schema file matching the glob pattern and returns
// the validated table definitions sorted by name.
func LoadSchemas(pattern string) ([]table.TableDefinition, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob pattern error: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no schema files found matching: %s", pattern)
	}

	seen := make(map[string]string)
	var defs []table.TableDefinition
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		fileDefs, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		for _, def := range fileDefs {
			if prev, ok := seen[def.Name]; ok {
				return nil, fmt.Errorf("table %s is defined in both %s and %s", def.Name, prev, path)
			}
			seen[def.Name] = path
			defs = append(defs, def)
		}
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs, nil
}

// Parse decodes a single schema document.
func Parse(data []byte) ([]table.TableDefinition, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if len(s.Tables) == 0 {
		return nil, fmt.Errorf("no tables defined")
	}
	defs := make([]table.TableDefinition, 0, len(s.Tables))
	for _, t := range s.Tables {
		def, err := t.Definition()
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Definition converts the YAML table into a validated table definition.
func (t Table) Definition() (table.TableDefinition, error) {
	if t.Name == "" {
		return table.TableDefinition{}, fmt.Errorf("table name is required")
	}
	pk, err := t.PartitionKey.keyDef()
	if err != nil {
		return table.TableDefinition{}, fmt.Errorf("table %s partition key: %w", t.Name, err)
	}
	def := table.TableDefinition{
		Name:           t.Name,
		KeyDefinitions: table.PrimaryKeyDefinition{PartitionKey: pk},
	}
	if t.SortKey != nil {
		if def.KeyDefinitions.SortKey, err = t.SortKey.keyDef(); err != nil {
			return table.TableDefinition{}, fmt.Errorf("table %s sort key: %w", t.Name, err)
		}
	}

	for _, gsi := range t.GSIs {
		idx := table.IndexDefinition{Name: gsi.Name}
		if idx.KeyDefinitions.PartitionKey, err = gsi.PartitionKey.keyDef(); err != nil {
			return table.TableDefinition{}, fmt.Errorf("gsi %s partition key: %w", gsi.Name, err)
		}
		if gsi.SortKey != nil {
			if idx.KeyDefinitions.SortKey, err = gsi.SortKey.keyDef(); err != nil {
				return table.TableDefinition{}, fmt.Errorf("gsi %s sort key: %w", gsi.Name, err)
			}
		}
		if idx.Projection, err = parseProjection(gsi.Projection); err != nil {
			return table.TableDefinition{}, fmt.Errorf("gsi %s: %w", gsi.Name, err)
		}
		def.GSIs = append(def.GSIs, idx)
	}

	for _, lsi := range t.LSIs {
		idx := table.IndexDefinition{Name: lsi.Name}
		idx.KeyDefinitions.PartitionKey = pk
		if idx.KeyDefinitions.SortKey, err = lsi.SortKey.keyDef(); err != nil {
			return table.TableDefinition{}, fmt.Errorf("lsi %s sort key: %w", lsi.Name, err)
		}
		if idx.Projection, err = parseProjection(lsi.Projection); err != nil {
			return table.TableDefinition{}, fmt.Errorf("lsi %s: %w", lsi.Name, err)
		}
		def.LSIs = append(def.LSIs, idx)
	}

	if err := def.Validate(); err != nil {
		return table.TableDefinition{}, err
	}
	return def, nil
}

// keyDef defaults an empty kind to S.
func (k KeyDef) keyDef() (table.KeyDef, error) {
	if k.Name == "" {
		return table.KeyDef{}, fmt.Errorf("name is required")
	}
	if k.Kind == "" {
		return table.KeyDef{Name: k.Name, Kind: table.KeyKindS}, nil
	}
	kind, err := table.ParseKeyKind(k.Kind)
	if err != nil {
		return table.KeyDef{}, err
	}
	return table.KeyDef{Name: k.Name, Kind: kind}, nil
}

func parseProjection(raw string) (table.Projection, error) {
	if raw == "" {
		return table.ProjectAll(), nil
	}
	return table.ParseProjection(raw)
}
