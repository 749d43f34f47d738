// Package schema defines the YAML file format used to declare tables for the
// local store. A file may hold one or more tables:
//
//	tables:
//	  - name: orders
//	    partitionKey: {name: pk, kind: S}
//	    sortKey: {name: sk, kind: S}
//	    gsis:
//	      - name: byStatus
//	        partitionKey: {name: status, kind: S}
//	        projection: keys_only
//	    lsis:
//	      - name: byTotal
//	        sortKey: {name: total, kind: N}
package schema

// Schema is the root type of a schema file.
type Schema struct {
	Tables []Table `yaml:"tables" json:"tables"`
}

// Table describes a DynamoDB table structure.
type Table struct {
	Name         string  `yaml:"name" json:"name"`
	PartitionKey KeyDef  `yaml:"partitionKey" json:"partitionKey"`
	SortKey      *KeyDef `yaml:"sortKey,omitempty" json:"sortKey,omitempty"`
	GSIs         []GSI   `yaml:"gsis,omitempty" json:"gsis,omitempty"`
	LSIs         []LSI   `yaml:"lsis,omitempty" json:"lsis,omitempty"`
}

// KeyDef describes a key attribute definition.
type KeyDef struct {
	Name string `yaml:"name" json:"name"`
	Kind string `yaml:"kind" json:"kind"` // "S", "N", or "B"
}

// GSI describes a Global Secondary Index.
type GSI struct {
	Name         string  `yaml:"name" json:"name"`
	PartitionKey KeyDef  `yaml:"partitionKey" json:"partitionKey"`
	SortKey      *KeyDef `yaml:"sortKey,omitempty" json:"sortKey,omitempty"`
	// Projection uses the create-table syntax: all, keys_only, include=a,b.
	Projection string `yaml:"projection,omitempty" json:"projection,omitempty"`
}

// LSI describes a Local Secondary Index. The partition key is always the
// table's.
type LSI struct {
	Name       string `yaml:"name" json:"name"`
	SortKey    KeyDef `yaml:"sortKey" json:"sortKey"`
	Projection string `yaml:"projection,omitempty" json:"projection,omitempty"`
}
