package ddbstore

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/acksell/dynamate/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyEncoding_NumberOrdering(t *testing.T) {
	store := newTestStore(t, numericSortKeyTable)

	numbers := []string{"1000", "-100", "0", "-0.5", "3.14", "-7", "42", "1e2", "0.001"}
	for _, n := range numbers {
		putItems(t, store, numericSortKeyTable.Name, map[string]types.AttributeValue{
			"pk": strAV("nums"), "sk": numAV(n),
		})
	}

	result, err := store.Query(context.Background(), &dynamodb.QueryInput{
		TableName:                 &numericSortKeyTable.Name,
		KeyConditionExpression:    ptrStr("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":pk": strAV("nums")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"-100", "-7", "-0.5", "0", "0.001", "3.14", "42", "1e2", "1000"}, sortKeys(result.Items, "sk"))
}

func TestKeyEncoding_StringOrdering(t *testing.T) {
	store := newTestStore(t, singleTableDesign)

	keys := []string{"b", "a", "ab", "a\x00z", "A", ""}
	for _, k := range keys {
		putItems(t, store, singleTableDesign.Name, map[string]types.AttributeValue{
			"pk": strAV("strings"), "sk": strAV(k),
		})
	}

	result, err := store.Query(context.Background(), &dynamodb.QueryInput{
		TableName:                 &singleTableDesign.Name,
		KeyConditionExpression:    ptrStr("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":pk": strAV("strings")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"", "A", "a", "a\x00z", "ab", "b"}, sortKeys(result.Items, "sk"))
}

func TestKeyEncoding_PartitionPrefix(t *testing.T) {
	enc := &badgerKeyEncoder{tableName: "t", keyDefs: singleTableDesign.KeyDefinitions}

	short, err := enc.encodePartitionPrefix(strAV("user"))
	require.NoError(t, err)
	long, err := enc.encodeKey(map[string]types.AttributeValue{"pk": strAV("user#1"), "sk": strAV("x")})
	require.NoError(t, err)
	own, err := enc.encodeKey(map[string]types.AttributeValue{"pk": strAV("user"), "sk": strAV("x")})
	require.NoError(t, err)

	assert.False(t, bytes.HasPrefix(long, short), "partition prefix must not match a longer partition value")
	assert.True(t, bytes.HasPrefix(own, short))
}

func TestEncodeNumber(t *testing.T) {
	t.Run("negative zero", func(t *testing.T) {
		pos, err := encodeNumber("0")
		require.NoError(t, err)
		neg, err := encodeNumber("-0")
		require.NoError(t, err)
		assert.Equal(t, pos, neg)
	})

	t.Run("ordering", func(t *testing.T) {
		values := []float64{-1e10, -2.5, -1, 0, 1e-9, 1, 2.5, 1e10}
		for i := 1; i < len(values); i++ {
			a, err := encodeNumber(fmt.Sprint(values[i-1]))
			require.NoError(t, err)
			b, err := encodeNumber(fmt.Sprint(values[i]))
			require.NoError(t, err)
			assert.Negative(t, bytes.Compare(a, b), "%v < %v", values[i-1], values[i])
		}
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := encodeNumber("abc")
		require.Error(t, err)
	})
}

func TestEscapeBytes(t *testing.T) {
	assert.Equal(t, []byte{'a', 0x01, 0x01, 0x01, 0x02, 'b'}, escapeBytes([]byte{'a', 0x00, 0x01, 'b'}))
	assert.NotContains(t, string(escapeBytes([]byte{0x00, 0x00})), "\x00")
}

func TestSerializeItem_AllDataTypes(t *testing.T) {
	item := map[string]types.AttributeValue{
		"s":    strAV("hello"),
		"n":    numAV("-12.5"),
		"b":    &types.AttributeValueMemberB{Value: []byte{0x00, 0xFF}},
		"bool": &types.AttributeValueMemberBOOL{Value: true},
		"null": &types.AttributeValueMemberNULL{Value: true},
		"ss":   &types.AttributeValueMemberSS{Value: []string{"a", "b"}},
		"ns":   &types.AttributeValueMemberNS{Value: []string{"1", "2"}},
		"bs":   &types.AttributeValueMemberBS{Value: [][]byte{{0x01}, {0x02}}},
		"l": &types.AttributeValueMemberL{Value: []types.AttributeValue{
			strAV("x"),
			&types.AttributeValueMemberL{Value: []types.AttributeValue{numAV("1")}},
		}},
		"m": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"inner": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{"deep": strAV("y")}},
		}},
	}

	data, err := SerializeItem(item)
	require.NoError(t, err)
	got, err := DeserializeItem(data)
	require.NoError(t, err)
	assert.Equal(t, item, got)
}

func TestBadgerKeyEncoder_Index(t *testing.T) {
	gsi := singleTableDesign.GSIs[0]
	enc := &badgerKeyEncoder{
		tableName: singleTableDesign.Name,
		indexName: gsi.Name,
		keyDefs:   gsi.KeyDefinitions,
		tableKeys: singleTableDesign.KeyDefinitions,
	}

	assert.Equal(t, []string{"gsi1pk", "gsi1sk", "pk", "sk"}, enc.keyAttributes())

	_, err := enc.encodeKey(map[string]types.AttributeValue{"gsi1pk": strAV("a"), "gsi1sk": strAV("b")})
	require.Error(t, err, "index keys need the table key")

	k1, err := enc.encodeKey(map[string]types.AttributeValue{"gsi1pk": strAV("a"), "gsi1sk": strAV("b"), "pk": strAV("1"), "sk": strAV("x")})
	require.NoError(t, err)
	k2, err := enc.encodeKey(map[string]types.AttributeValue{"gsi1pk": strAV("a"), "gsi1sk": strAV("b"), "pk": strAV("2"), "sk": strAV("x")})
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2, "entries with equal index keys stay distinct")
	assert.True(t, bytes.HasPrefix(k1, enc.tablePrefix()))
}

func TestEncodeKeyValue_TypeMismatch(t *testing.T) {
	for _, kind := range []table.KeyKind{table.KeyKindS, table.KeyKindN, table.KeyKindB} {
		_, err := encodeKeyValue(&types.AttributeValueMemberBOOL{Value: true}, kind)
		assert.Error(t, err, kind)
	}
}

func TestIncrementBytes(t *testing.T) {
	assert.Equal(t, []byte{0x01, 0x03}, incrementBytes([]byte{0x01, 0x02}))
	assert.Equal(t, []byte{0x02}, incrementBytes([]byte{0x01, 0xFF}))
	assert.Equal(t, []byte{0xFF, 0xFF}, incrementBytes([]byte{0xFF}))
}
