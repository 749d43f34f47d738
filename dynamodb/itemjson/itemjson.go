// Package itemjson converts DynamoDB items to and from two JSON shapes:
// plain JSON, where values are natural JSON values, and DynamoDB JSON,
// where each value is an object with a single type key such as {"S": "x"}.
package itemjson

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type Item = map[string]types.AttributeValue

type InvalidStructureError struct {
	Message string
}

func (e *InvalidStructureError) Error() string {
	return "invalid JSON structure: " + e.Message
}

type InvalidNumberError struct {
	Value string
}

func (e *InvalidNumberError) Error() string {
	return "invalid DynamoDB number: " + e.Value
}

type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return "unsupported DynamoDB attribute type: " + e.Type
}

// ToJSON converts an item to plain JSON values. Numbers become int64 when
// integral, float64 when the text round-trips, and json.Number otherwise.
// Binary values are base64 strings and sets become arrays.
func ToJSON(item Item) (map[string]any, error) {
	out := make(map[string]any, len(item))
	for name, av := range item {
		v, err := toJSONValue(av)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

func toJSONValue(av types.AttributeValue) (any, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value, nil
	case *types.AttributeValueMemberN:
		return jsonNumber(v.Value)
	case *types.AttributeValueMemberB:
		return base64.StdEncoding.EncodeToString(v.Value), nil
	case *types.AttributeValueMemberBOOL:
		return v.Value, nil
	case *types.AttributeValueMemberNULL:
		return nil, nil
	case *types.AttributeValueMemberL:
		list := make([]any, len(v.Value))
		for i, elem := range v.Value {
			conv, err := toJSONValue(elem)
			if err != nil {
				return nil, err
			}
			list[i] = conv
		}
		return list, nil
	case *types.AttributeValueMemberM:
		return ToJSON(v.Value)
	case *types.AttributeValueMemberSS:
		list := make([]any, len(v.Value))
		for i, s := range v.Value {
			list[i] = s
		}
		return list, nil
	case *types.AttributeValueMemberNS:
		list := make([]any, len(v.Value))
		for i, n := range v.Value {
			conv, err := jsonNumber(n)
			if err != nil {
				return nil, err
			}
			list[i] = conv
		}
		return list, nil
	case *types.AttributeValueMemberBS:
		list := make([]any, len(v.Value))
		for i, b := range v.Value {
			list[i] = base64.StdEncoding.EncodeToString(b)
		}
		return list, nil
	default:
		return nil, &UnsupportedTypeError{Type: fmt.Sprintf("%T", av)}
	}
}

func jsonNumber(text string) (any, error) {
	text = strings.TrimSpace(text)
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return json.Number(text), nil
		}
		return nil, &InvalidNumberError{Value: text}
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, &InvalidNumberError{Value: text}
	}
	if strconv.FormatFloat(f, 'f', -1, 64) == text || strconv.FormatFloat(f, 'g', -1, 64) == text {
		return f, nil
	}
	return json.Number(text), nil
}

// FromJSON converts plain JSON values into an item. Numbers become N,
// arrays L, objects M and null NULL.
func FromJSON(doc map[string]any) (Item, error) {
	item := make(Item, len(doc))
	for name, v := range doc {
		av, err := fromJSONValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		item[name] = av
	}
	return item, nil
}

func fromJSONValue(v any) (types.AttributeValue, error) {
	switch v := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case string:
		return &types.AttributeValueMemberS{Value: v}, nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: v}, nil
	case json.Number:
		if _, err := strconv.ParseFloat(v.String(), 64); err != nil {
			if numErr, ok := err.(*strconv.NumError); !ok || numErr.Err != strconv.ErrRange {
				return nil, &InvalidNumberError{Value: v.String()}
			}
		}
		return &types.AttributeValueMemberN{Value: v.String()}, nil
	case float64:
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(v, 'f', -1, 64)}, nil
	case float32:
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(float64(v), 'f', -1, 32)}, nil
	case int:
		return &types.AttributeValueMemberN{Value: strconv.Itoa(v)}, nil
	case int64:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}, nil
	case []any:
		list := make([]types.AttributeValue, len(v))
		for i, elem := range v {
			av, err := fromJSONValue(elem)
			if err != nil {
				return nil, err
			}
			list[i] = av
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	case map[string]any:
		m, err := FromJSON(v)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	default:
		return nil, &UnsupportedTypeError{Type: fmt.Sprintf("%T", v)}
	}
}

// FromJSONString parses a plain JSON object into an item. Number text is
// kept as written.
func FromJSONString(input string) (Item, error) {
	doc, err := decodeObject(input)
	if err != nil {
		return nil, err
	}
	return FromJSON(doc)
}

// FromJSONLines parses a JSON array of plain objects, or a stream of them,
// into items.
func FromJSONLines(input []byte) ([]Item, error) {
	return decodeItems(input, FromJSON)
}

func decodeItems(input []byte, convert func(map[string]any) (Item, error)) ([]Item, error) {
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.UseNumber()

	var docs []any
	if trimmed := bytes.TrimSpace(input); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := dec.Decode(&docs); err != nil {
			return nil, fmt.Errorf("failed to parse JSON value: %w", err)
		}
	} else {
		for dec.More() {
			var doc any
			if err := dec.Decode(&doc); err != nil {
				return nil, fmt.Errorf("failed to parse JSON value: %w", err)
			}
			docs = append(docs, doc)
		}
	}

	items := make([]Item, 0, len(docs))
	for i, doc := range docs {
		obj, ok := doc.(map[string]any)
		if !ok {
			return nil, &InvalidStructureError{Message: fmt.Sprintf("element %d is not an object", i)}
		}
		item, err := convert(obj)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// MarshalJSON renders items as an indented plain JSON array.
func MarshalJSON(items []Item) ([]byte, error) {
	docs := make([]map[string]any, len(items))
	for i, item := range items {
		doc, err := ToJSON(item)
		if err != nil {
			return nil, err
		}
		docs[i] = doc
	}
	return json.MarshalIndent(docs, "", "  ")
}

func decodeObject(input string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(input))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON value: %w", err)
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, &InvalidStructureError{Message: "expected a JSON object at the top level"}
	}
	return obj, nil
}
