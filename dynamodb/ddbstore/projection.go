package ddbstore

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// projectionNames resolves a ProjectionExpression into top-level attribute
// names. A nil expression means all attributes and returns nil.
func projectionNames(raw *string, names map[string]string) ([]string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	var out []string
	for _, part := range strings.Split(*raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			return nil, validationErrorf("Invalid ProjectionExpression: empty attribute name")
		}
		if strings.HasPrefix(name, "#") {
			resolved, ok := names[name]
			if !ok {
				return nil, validationErrorf("An expression attribute name used in the document path is not defined; attribute name: %s", name)
			}
			name = resolved
		}
		out = append(out, name)
	}
	return out, nil
}

func project(item map[string]types.AttributeValue, attrs []string) map[string]types.AttributeValue {
	if attrs == nil || item == nil {
		return item
	}
	out := make(map[string]types.AttributeValue, len(attrs))
	for _, name := range attrs {
		if v, ok := item[name]; ok {
			out[name] = v
		}
	}
	return out
}
