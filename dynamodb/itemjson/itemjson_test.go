package itemjson

import (
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToJSON(t *testing.T) {
	item := Item{
		"string":  &types.AttributeValueMemberS{Value: "hello"},
		"int":     &types.AttributeValueMemberN{Value: "42"},
		"float":   &types.AttributeValueMemberN{Value: "3.14"},
		"exp":     &types.AttributeValueMemberN{Value: "1e2"},
		"huge":    &types.AttributeValueMemberN{Value: "123456789012345678901234567890"},
		"bool":    &types.AttributeValueMemberBOOL{Value: true},
		"null":    &types.AttributeValueMemberNULL{Value: true},
		"bin":     &types.AttributeValueMemberB{Value: []byte("hi")},
		"tags":    &types.AttributeValueMemberSS{Value: []string{"a", "b"}},
		"scores":  &types.AttributeValueMemberNS{Value: []string{"1", "2.5"}},
		"blobs":   &types.AttributeValueMemberBS{Value: [][]byte{[]byte("x")}},
		"list":    &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberS{Value: "x"}, &types.AttributeValueMemberN{Value: "1"}}},
		"profile": &types.AttributeValueMemberM{Value: Item{"age": &types.AttributeValueMemberN{Value: "30"}}},
	}

	got, err := ToJSON(item)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"string":  "hello",
		"int":     int64(42),
		"float":   3.14,
		"exp":     json.Number("1e2"),
		"huge":    json.Number("123456789012345678901234567890"),
		"bool":    true,
		"null":    nil,
		"bin":     "aGk=",
		"tags":    []any{"a", "b"},
		"scores":  []any{int64(1), 2.5},
		"blobs":   []any{"eA=="},
		"list":    []any{"x", int64(1)},
		"profile": map[string]any{"age": int64(30)},
	}, got)

	t.Run("invalid number", func(t *testing.T) {
		_, err := ToJSON(Item{"n": &types.AttributeValueMemberN{Value: "abc"}})
		var numErr *InvalidNumberError
		require.ErrorAs(t, err, &numErr)
		assert.Equal(t, "abc", numErr.Value)
		assert.ErrorContains(t, err, `attribute "n"`)
	})

	t.Run("nested invalid number", func(t *testing.T) {
		_, err := ToJSON(Item{"l": &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberN{Value: "NaN"}}}})
		var numErr *InvalidNumberError
		require.ErrorAs(t, err, &numErr)
	})
}

func TestFromJSONString(t *testing.T) {
	t.Run("values", func(t *testing.T) {
		item, err := FromJSONString(`{"pk":"u1","n":1.50,"big":12345678901234567890,"ok":false,"none":null,"l":[1,"a"],"m":{"k":"v"}}`)
		require.NoError(t, err)
		assert.Equal(t, Item{
			"pk":   &types.AttributeValueMemberS{Value: "u1"},
			"n":    &types.AttributeValueMemberN{Value: "1.50"},
			"big":  &types.AttributeValueMemberN{Value: "12345678901234567890"},
			"ok":   &types.AttributeValueMemberBOOL{Value: false},
			"none": &types.AttributeValueMemberNULL{Value: true},
			"l": &types.AttributeValueMemberL{Value: []types.AttributeValue{
				&types.AttributeValueMemberN{Value: "1"},
				&types.AttributeValueMemberS{Value: "a"},
			}},
			"m": &types.AttributeValueMemberM{Value: Item{"k": &types.AttributeValueMemberS{Value: "v"}}},
		}, item)
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name  string
			input string
		}{
			{"not an object", `[1, 2]`},
			{"scalar", `"x"`},
			{"malformed", `{"a":`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := FromJSONString(tt.input)
				require.Error(t, err)
			})
		}

		_, err := FromJSONString(`[]`)
		var structErr *InvalidStructureError
		require.ErrorAs(t, err, &structErr)
	})
}

func TestFromJSON_GoValues(t *testing.T) {
	item, err := FromJSON(map[string]any{
		"i":   7,
		"i64": int64(-3),
		"f":   0.25,
	})
	require.NoError(t, err)
	assert.Equal(t, Item{
		"i":   &types.AttributeValueMemberN{Value: "7"},
		"i64": &types.AttributeValueMemberN{Value: "-3"},
		"f":   &types.AttributeValueMemberN{Value: "0.25"},
	}, item)

	_, err = FromJSON(map[string]any{"ch": make(chan int)})
	var typeErr *UnsupportedTypeError
	require.ErrorAs(t, err, &typeErr)
}

func TestFromJSONLines(t *testing.T) {
	want := []Item{
		{"pk": &types.AttributeValueMemberS{Value: "a"}},
		{"pk": &types.AttributeValueMemberS{Value: "b"}},
	}

	tests := []struct {
		name  string
		input string
	}{
		{"array", `[{"pk":"a"},{"pk":"b"}]`},
		{"stream", "{\"pk\":\"a\"}\n{\"pk\":\"b\"}\n"},
		{"padded array", "\n  [ {\"pk\":\"a\"}, {\"pk\":\"b\"} ]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := FromJSONLines([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, want, items)
		})
	}

	t.Run("empty", func(t *testing.T) {
		items, err := FromJSONLines([]byte("  "))
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("non object element", func(t *testing.T) {
		_, err := FromJSONLines([]byte(`[{"pk":"a"}, 3]`))
		var structErr *InvalidStructureError
		require.ErrorAs(t, err, &structErr)
		assert.Contains(t, structErr.Message, "element 1")
	})
}

func TestMarshalJSON(t *testing.T) {
	out, err := MarshalJSON([]Item{{
		"pk": &types.AttributeValueMemberS{Value: "u1"},
		"n":  &types.AttributeValueMemberN{Value: "5"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "[\n  {\n    \"n\": 5,\n    \"pk\": \"u1\"\n  }\n]", string(out))
}
