package ddbstore

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"math"
	"strconv"

	"github.com/acksell/dynamate/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Key encoding for BadgerDB that supports proper lexicographic ordering.
//
// Table items:   t 0x00 [table] 0x00 [pk] 0x00 [sk] 0x00
// Index entries: i 0x00 [table] 0x00 [index] 0x00 [index pk] 0x00 [index sk] 0x00 [pk] 0x00 [sk] 0x00
// Definitions:   m 0x00 [table]
//
// Names and S/B values are escaped so they never contain the separator.
// Numbers have a fixed width, so a partition prefix never matches a longer
// partition value.

const (
	keySeparator byte = 0x00

	spaceTable byte = 't'
	spaceIndex byte = 'i'
	spaceMeta  byte = 'm'
)

// Key type markers for encoding
const (
	keyTypeString byte = 'S'
	keyTypeNumber byte = 'N'
	keyTypeBinary byte = 'B'
)

// badgerKeyEncoder encodes the keys of one table or one of its indexes.
type badgerKeyEncoder struct {
	tableName string
	indexName string // empty for the base table
	keyDefs   table.PrimaryKeyDefinition
	// tableKeys is only set for indexes; entries end with the table key.
	tableKeys table.PrimaryKeyDefinition
}

func (e *badgerKeyEncoder) isIndex() bool {
	return e.indexName != ""
}

// tablePrefix returns the prefix shared by every key of the table or index.
func (e *badgerKeyEncoder) tablePrefix() []byte {
	var buf bytes.Buffer
	if e.isIndex() {
		buf.WriteByte(spaceIndex)
	} else {
		buf.WriteByte(spaceTable)
	}
	buf.WriteByte(keySeparator)
	buf.Write(escapeBytes([]byte(e.tableName)))
	buf.WriteByte(keySeparator)
	if e.isIndex() {
		buf.Write(escapeBytes([]byte(e.indexName)))
		buf.WriteByte(keySeparator)
	}
	return buf.Bytes()
}

// encodePartitionPrefix returns the prefix for all items of one partition.
func (e *badgerKeyEncoder) encodePartitionPrefix(pk types.AttributeValue) ([]byte, error) {
	buf := bytes.NewBuffer(e.tablePrefix())
	if err := writeKeyValue(buf, pk, e.keyDefs.PartitionKey); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeKey encodes the key of an item. For indexes the item must carry
// both the index key and the table key.
func (e *badgerKeyEncoder) encodeKey(item map[string]types.AttributeValue) ([]byte, error) {
	buf := bytes.NewBuffer(e.tablePrefix())
	if err := writeKey(buf, item, e.keyDefs); err != nil {
		return nil, err
	}
	if e.isIndex() {
		if err := writeKey(buf, item, e.tableKeys); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// keyAttributes returns the attribute names that make up LastEvaluatedKey.
func (e *badgerKeyEncoder) keyAttributes() []string {
	names := e.keyDefs.Names()
	if e.isIndex() {
		names = append(names, e.tableKeys.Names()...)
	}
	return names
}

func writeKey(buf *bytes.Buffer, item map[string]types.AttributeValue, def table.PrimaryKeyDefinition) error {
	if err := writeKeyValue(buf, item[def.PartitionKey.Name], def.PartitionKey); err != nil {
		return err
	}
	if def.HasSortKey() {
		return writeKeyValue(buf, item[def.SortKey.Name], def.SortKey)
	}
	return nil
}

func writeKeyValue(buf *bytes.Buffer, av types.AttributeValue, def table.KeyDef) error {
	if av == nil {
		return fmt.Errorf("missing key attribute %q", def.Name)
	}
	b, err := encodeKeyValue(av, def.Kind)
	if err != nil {
		return fmt.Errorf("key attribute %q: %w", def.Name, err)
	}
	buf.Write(b)
	buf.WriteByte(keySeparator)
	return nil
}

// encodeKeyValue encodes a key value with proper ordering based on key kind.
func encodeKeyValue(av types.AttributeValue, kind table.KeyKind) ([]byte, error) {
	var buf bytes.Buffer

	switch kind {
	case table.KeyKindS:
		v, ok := av.(*types.AttributeValueMemberS)
		if !ok {
			return nil, fmt.Errorf("expected S, got %s", typeName(av))
		}
		buf.WriteByte(keyTypeString)
		buf.Write(escapeBytes([]byte(v.Value)))

	case table.KeyKindN:
		v, ok := av.(*types.AttributeValueMemberN)
		if !ok {
			return nil, fmt.Errorf("expected N, got %s", typeName(av))
		}
		encoded, err := encodeNumber(v.Value)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(keyTypeNumber)
		buf.Write(encoded)

	case table.KeyKindB:
		v, ok := av.(*types.AttributeValueMemberB)
		if !ok {
			return nil, fmt.Errorf("expected B, got %s", typeName(av))
		}
		buf.WriteByte(keyTypeBinary)
		buf.Write(escapeBytes(v.Value))

	default:
		return nil, fmt.Errorf("unsupported key kind: %s", kind)
	}

	return buf.Bytes(), nil
}

// encodeNumber encodes a number string for lexicographic ordering.
// Format: [sign byte][big-endian float64 bits]
// Positive numbers: 0x80 + bits with the sign bit flipped
// Negative numbers: 0x7F + all bits inverted
func encodeNumber(numStr string) ([]byte, error) {
	f, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return nil, fmt.Errorf("parse number %q: %w", numStr, err)
	}
	if f == 0 {
		f = 0 // -0 and +0 are the same key
	}

	bits := math.Float64bits(f)
	buf := make([]byte, 9)

	if f >= 0 {
		buf[0] = 0x80
		bits ^= (1 << 63)
	} else {
		buf[0] = 0x7F
		bits = ^bits
	}

	binary.BigEndian.PutUint64(buf[1:], bits)
	return buf, nil
}

// escapeBytes escapes null bytes (0x00) in the input to preserve separator integrity.
// Uses 0x01 0x01 for literal 0x00, and 0x01 0x02 for literal 0x01.
func escapeBytes(b []byte) []byte {
	var buf bytes.Buffer
	for _, c := range b {
		switch c {
		case 0x00:
			buf.WriteByte(0x01)
			buf.WriteByte(0x01)
		case 0x01:
			buf.WriteByte(0x01)
			buf.WriteByte(0x02)
		default:
			buf.WriteByte(c)
		}
	}
	return buf.Bytes()
}

func metaKey(tableName string) []byte {
	return append(metaPrefix(), escapeBytes([]byte(tableName))...)
}

func metaPrefix() []byte {
	return []byte{spaceMeta, keySeparator}
}

// Item serialization for BadgerDB values

// storedValue is the gob form of an AttributeValue. Only the fields for T
// are set.
type storedValue struct {
	T    string
	S    string // S and N
	B    []byte
	Bool bool
	SS   []string // SS and NS
	BS   [][]byte
	L    []storedValue
	M    map[string]storedValue
}

// SerializeItem serializes a DynamoDB item to bytes for storage.
func SerializeItem(item map[string]types.AttributeValue) ([]byte, error) {
	stored := make(map[string]storedValue, len(item))
	for k, v := range item {
		sv, err := toStored(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		stored[k] = sv
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(stored); err != nil {
		return nil, fmt.Errorf("encode item: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeItem deserializes bytes back to a DynamoDB item.
func DeserializeItem(data []byte) (map[string]types.AttributeValue, error) {
	var stored map[string]storedValue
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&stored); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}

	item := make(map[string]types.AttributeValue, len(stored))
	for k, v := range stored {
		av, err := fromStored(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		item[k] = av
	}
	return item, nil
}

func toStored(av types.AttributeValue) (storedValue, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return storedValue{T: "S", S: v.Value}, nil
	case *types.AttributeValueMemberN:
		return storedValue{T: "N", S: v.Value}, nil
	case *types.AttributeValueMemberB:
		return storedValue{T: "B", B: v.Value}, nil
	case *types.AttributeValueMemberBOOL:
		return storedValue{T: "BOOL", Bool: v.Value}, nil
	case *types.AttributeValueMemberNULL:
		return storedValue{T: "NULL", Bool: v.Value}, nil
	case *types.AttributeValueMemberSS:
		return storedValue{T: "SS", SS: v.Value}, nil
	case *types.AttributeValueMemberNS:
		return storedValue{T: "NS", SS: v.Value}, nil
	case *types.AttributeValueMemberBS:
		return storedValue{T: "BS", BS: v.Value}, nil
	case *types.AttributeValueMemberL:
		l := make([]storedValue, len(v.Value))
		for i, elem := range v.Value {
			sv, err := toStored(elem)
			if err != nil {
				return storedValue{}, err
			}
			l[i] = sv
		}
		return storedValue{T: "L", L: l}, nil
	case *types.AttributeValueMemberM:
		m := make(map[string]storedValue, len(v.Value))
		for k, elem := range v.Value {
			sv, err := toStored(elem)
			if err != nil {
				return storedValue{}, err
			}
			m[k] = sv
		}
		return storedValue{T: "M", M: m}, nil
	default:
		return storedValue{}, fmt.Errorf("unsupported attribute value type: %T", av)
	}
}

func fromStored(sv storedValue) (types.AttributeValue, error) {
	switch sv.T {
	case "S":
		return &types.AttributeValueMemberS{Value: sv.S}, nil
	case "N":
		return &types.AttributeValueMemberN{Value: sv.S}, nil
	case "B":
		return &types.AttributeValueMemberB{Value: sv.B}, nil
	case "BOOL":
		return &types.AttributeValueMemberBOOL{Value: sv.Bool}, nil
	case "NULL":
		return &types.AttributeValueMemberNULL{Value: sv.Bool}, nil
	case "SS":
		return &types.AttributeValueMemberSS{Value: sv.SS}, nil
	case "NS":
		return &types.AttributeValueMemberNS{Value: sv.SS}, nil
	case "BS":
		return &types.AttributeValueMemberBS{Value: sv.BS}, nil
	case "L":
		l := make([]types.AttributeValue, len(sv.L))
		for i, elem := range sv.L {
			av, err := fromStored(elem)
			if err != nil {
				return nil, err
			}
			l[i] = av
		}
		return &types.AttributeValueMemberL{Value: l}, nil
	case "M":
		m := make(map[string]types.AttributeValue, len(sv.M))
		for k, elem := range sv.M {
			av, err := fromStored(elem)
			if err != nil {
				return nil, err
			}
			m[k] = av
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	default:
		return nil, fmt.Errorf("unsupported stored type: %q", sv.T)
	}
}

// keyOf copies the named attributes that are present on item.
func keyOf(item map[string]types.AttributeValue, names []string) map[string]types.AttributeValue {
	key := make(map[string]types.AttributeValue, len(names))
	for _, name := range names {
		if v, ok := item[name]; ok {
			key[name] = v
		}
	}
	return key
}
