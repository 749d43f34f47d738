package itemjson

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ToDynamoJSON converts an item to DynamoDB JSON, the shape used by the AWS
// CLI and the wire protocol.
func ToDynamoJSON(item Item) (map[string]any, error) {
	out := make(map[string]any, len(item))
	for name, av := range item {
		v, err := toDynamoValue(av)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

func typed(key string, v any) map[string]any {
	return map[string]any{key: v}
}

func toDynamoValue(av types.AttributeValue) (map[string]any, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return typed("S", v.Value), nil
	case *types.AttributeValueMemberN:
		return typed("N", v.Value), nil
	case *types.AttributeValueMemberB:
		return typed("B", base64.StdEncoding.EncodeToString(v.Value)), nil
	case *types.AttributeValueMemberBOOL:
		return typed("BOOL", v.Value), nil
	case *types.AttributeValueMemberNULL:
		return typed("NULL", true), nil
	case *types.AttributeValueMemberL:
		list := make([]any, len(v.Value))
		for i, elem := range v.Value {
			conv, err := toDynamoValue(elem)
			if err != nil {
				return nil, err
			}
			list[i] = conv
		}
		return typed("L", list), nil
	case *types.AttributeValueMemberM:
		m, err := ToDynamoJSON(v.Value)
		if err != nil {
			return nil, err
		}
		return typed("M", m), nil
	case *types.AttributeValueMemberSS:
		return typed("SS", append([]string{}, v.Value...)), nil
	case *types.AttributeValueMemberNS:
		return typed("NS", append([]string{}, v.Value...)), nil
	case *types.AttributeValueMemberBS:
		list := make([]string, len(v.Value))
		for i, b := range v.Value {
			list[i] = base64.StdEncoding.EncodeToString(b)
		}
		return typed("BS", list), nil
	default:
		return nil, &UnsupportedTypeError{Type: fmt.Sprintf("%T", av)}
	}
}

// FromDynamoJSON converts DynamoDB JSON into an item.
func FromDynamoJSON(doc map[string]any) (Item, error) {
	item := make(Item, len(doc))
	for name, v := range doc {
		av, err := fromDynamoValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		item[name] = av
	}
	return item, nil
}

func fromDynamoValue(v any) (types.AttributeValue, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &InvalidStructureError{Message: "expected a DynamoDB JSON attribute object"}
	}
	if len(obj) != 1 {
		return nil, &InvalidStructureError{Message: "expected a single DynamoDB type key"}
	}

	var key string
	var raw any
	for k, v := range obj {
		key, raw = k, v
	}
	switch key {
	case "S":
		s, ok := raw.(string)
		if !ok {
			return nil, &InvalidStructureError{Message: "S must be a string"}
		}
		return &types.AttributeValueMemberS{Value: s}, nil
	case "N":
		n, err := numberText(raw)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberN{Value: n}, nil
	case "B":
		b, err := binary(raw)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberB{Value: b}, nil
	case "BOOL":
		b, ok := raw.(bool)
		if !ok {
			return nil, &InvalidStructureError{Message: "BOOL must be true/false"}
		}
		return &types.AttributeValueMemberBOOL{Value: b}, nil
	case "NULL":
		if _, ok := raw.(bool); !ok {
			return nil, &InvalidStructureError{Message: "NULL must be true"}
		}
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case "L":
		elems, ok := raw.([]any)
		if !ok {
			return nil, &InvalidStructureError{Message: "L must be an array"}
		}
		list := make([]types.AttributeValue, len(elems))
		for i, elem := range elems {
			av, err := fromDynamoValue(elem)
			if err != nil {
				return nil, err
			}
			list[i] = av
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	case "M":
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, &InvalidStructureError{Message: "M must be an object"}
		}
		item, err := FromDynamoJSON(m)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: item}, nil
	case "SS", "NS", "BS":
		elems, ok := raw.([]any)
		if !ok {
			return nil, &InvalidStructureError{Message: key + " must be an array"}
		}
		return setValue(key, elems)
	default:
		return nil, &UnsupportedTypeError{Type: key}
	}
}

func setValue(key string, elems []any) (types.AttributeValue, error) {
	switch key {
	case "SS":
		out := make([]string, len(elems))
		for i, elem := range elems {
			s, ok := elem.(string)
			if !ok {
				return nil, &InvalidStructureError{Message: "SS elements must be strings"}
			}
			out[i] = s
		}
		return &types.AttributeValueMemberSS{Value: out}, nil
	case "NS":
		out := make([]string, len(elems))
		for i, elem := range elems {
			n, err := numberText(elem)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return &types.AttributeValueMemberNS{Value: out}, nil
	default:
		out := make([][]byte, len(elems))
		for i, elem := range elems {
			b, err := binary(elem)
			if err != nil {
				return nil, err
			}
			out[i] = b
		}
		return &types.AttributeValueMemberBS{Value: out}, nil
	}
}

// numberText accepts N as a string, which is the DynamoDB JSON form, and
// tolerates a bare JSON number.
func numberText(raw any) (string, error) {
	var text string
	switch n := raw.(type) {
	case string:
		text = n
	case json.Number:
		text = n.String()
	case float64:
		text = strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return "", &InvalidStructureError{Message: "N must be a string"}
	}
	if _, err := strconv.ParseFloat(text, 64); err != nil {
		if numErr, ok := err.(*strconv.NumError); !ok || numErr.Err != strconv.ErrRange {
			return "", &InvalidNumberError{Value: text}
		}
	}
	return text, nil
}

func binary(raw any) ([]byte, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, &InvalidStructureError{Message: "binary values must be base64 strings"}
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, &InvalidStructureError{Message: fmt.Sprintf("invalid base64: %v", err)}
	}
	return b, nil
}

// FromDynamoJSONString parses a DynamoDB JSON object into an item.
func FromDynamoJSONString(input string) (Item, error) {
	doc, err := decodeObject(input)
	if err != nil {
		return nil, err
	}
	return FromDynamoJSON(doc)
}

// FromDynamoJSONLines parses a JSON array of DynamoDB JSON objects, or a
// stream of them, into items.
func FromDynamoJSONLines(input []byte) ([]Item, error) {
	return decodeItems(input, FromDynamoJSON)
}

// MarshalDynamoJSON renders items as an indented DynamoDB JSON array.
func MarshalDynamoJSON(items []Item) ([]byte, error) {
	docs := make([]map[string]any, len(items))
	for i, item := range items {
		doc, err := ToDynamoJSON(item)
		if err != nil {
			return nil, err
		}
		docs[i] = doc
	}
	return json.MarshalIndent(docs, "", "  ")
}
