package table

import (
	"fmt"
	"strings"
)

// ParseKeySpec parses a NAME:TYPE key spec such as "pk:S".
func ParseKeySpec(raw string) (KeyDef, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 2 {
		return KeyDef{}, fmt.Errorf("expected NAME:TYPE, got %q", raw)
	}
	name, err := parseName(parts[0], "key name")
	if err != nil {
		return KeyDef{}, err
	}
	kind, err := ParseKeyKind(parts[1])
	if err != nil {
		return KeyDef{}, err
	}
	return KeyDef{Name: name, Kind: kind}, nil
}

// ParseGSISpec parses NAME:PK:PK_TYPE[:SK:SK_TYPE][:PROJECTION]. The
// projection defaults to ALL.
func ParseGSISpec(raw string) (IndexDefinition, error) {
	parts, projection := splitProjection(strings.Split(raw, ":"))

	if n := len(parts); n != 3 && n != 5 {
		return IndexDefinition{}, fmt.Errorf("expected NAME:PK:PK_TYPE[:SK:SK_TYPE][:PROJECTION], got %q", raw)
	}
	var keys PrimaryKeyDefinition
	name, err := parseName(parts[0], "GSI name")
	if err != nil {
		return IndexDefinition{}, err
	}
	if keys.PartitionKey, err = parseKeyParts(parts[1], parts[2], "GSI partition key"); err != nil {
		return IndexDefinition{}, err
	}
	if len(parts) == 5 {
		if keys.SortKey, err = parseKeyParts(parts[3], parts[4], "GSI sort key"); err != nil {
			return IndexDefinition{}, err
		}
	}
	return IndexDefinition{Name: name, KeyDefinitions: keys, Projection: projection}, nil
}

// ParseLSISpec parses NAME:SK:SK_TYPE[:PROJECTION]. Local indexes share the
// table's partition key, which the caller passes in.
func ParseLSISpec(raw string, partitionKey KeyDef) (IndexDefinition, error) {
	parts, projection := splitProjection(strings.Split(raw, ":"))
	if len(parts) != 3 {
		return IndexDefinition{}, fmt.Errorf("expected NAME:SK:SK_TYPE[:PROJECTION], got %q", raw)
	}
	name, err := parseName(parts[0], "LSI name")
	if err != nil {
		return IndexDefinition{}, err
	}
	sk, err := parseKeyParts(parts[1], parts[2], "LSI sort key")
	if err != nil {
		return IndexDefinition{}, err
	}
	return IndexDefinition{
		Name:           name,
		KeyDefinitions: PrimaryKeyDefinition{PartitionKey: partitionKey, SortKey: sk},
		Projection:     projection,
	}, nil
}

// splitProjection pops a trailing projection token if the last part parses
// as one. Anything else is left for the key parser to reject.
func splitProjection(parts []string) ([]string, Projection) {
	if len(parts) == 0 {
		return parts, ProjectAll()
	}
	last := strings.TrimSpace(parts[len(parts)-1])
	if last == "" {
		return parts, ProjectAll()
	}
	if p, err := ParseProjection(last); err == nil {
		return parts[:len(parts)-1], p
	}
	return parts, ProjectAll()
}

func parseKeyParts(name, kind, label string) (KeyDef, error) {
	n, err := parseName(name, label)
	if err != nil {
		return KeyDef{}, err
	}
	k, err := ParseKeyKind(kind)
	if err != nil {
		return KeyDef{}, fmt.Errorf("%s: %w", label, err)
	}
	return KeyDef{Name: n, Kind: k}, nil
}

func parseName(value, label string) (string, error) {
	name := strings.TrimSpace(value)
	if name == "" {
		return "", fmt.Errorf("%s is required", label)
	}
	return name, nil
}
