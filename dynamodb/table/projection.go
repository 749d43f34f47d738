package table

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Projection decides which attributes of an item are copied into a
// secondary index. The zero value projects everything.
type Projection struct {
	Type types.ProjectionType
	// NonKeyAttributes is only used when Type is INCLUDE.
	NonKeyAttributes []string
}

func ProjectAll() Projection {
	return Projection{Type: types.ProjectionTypeAll}
}

func ProjectKeysOnly() Projection {
	return Projection{Type: types.ProjectionTypeKeysOnly}
}

func ProjectInclude(attrs ...string) Projection {
	return Projection{Type: types.ProjectionTypeInclude, NonKeyAttributes: attrs}
}

func (p Projection) Validate() error {
	switch p.Type {
	case "", types.ProjectionTypeAll, types.ProjectionTypeKeysOnly:
		return nil
	case types.ProjectionTypeInclude:
		if len(p.NonKeyAttributes) == 0 {
			return fmt.Errorf("include projection requires attributes")
		}
		return nil
	default:
		return fmt.Errorf("unknown projection type %q", p.Type)
	}
}

// Project copies the attributes visible through the index. keys lists the
// table and index key attributes, which every projection keeps.
func (p Projection) Project(doc map[string]types.AttributeValue, keys []string) map[string]types.AttributeValue {
	if p.Type == "" || p.Type == types.ProjectionTypeAll {
		return doc
	}
	attrs := keys
	if p.Type == types.ProjectionTypeInclude {
		attrs = append(append([]string{}, keys...), p.NonKeyAttributes...)
	}
	proj := make(map[string]types.AttributeValue, len(attrs))
	for _, key := range attrs {
		if val, ok := doc[key]; ok {
			proj[key] = val
		}
	}
	return proj
}

func (p Projection) String() string {
	switch p.Type {
	case "", types.ProjectionTypeAll:
		return "ALL"
	case types.ProjectionTypeInclude:
		return "INCLUDE(" + strings.Join(p.NonKeyAttributes, ", ") + ")"
	default:
		return string(p.Type)
	}
}

func (p Projection) sdk() *types.Projection {
	out := &types.Projection{ProjectionType: p.Type}
	if out.ProjectionType == "" {
		out.ProjectionType = types.ProjectionTypeAll
	}
	if p.Type == types.ProjectionTypeInclude {
		out.NonKeyAttributes = p.NonKeyAttributes
	}
	return out
}

func projectionFromSDK(p *types.Projection) Projection {
	if p == nil {
		return ProjectAll()
	}
	return Projection{Type: p.ProjectionType, NonKeyAttributes: p.NonKeyAttributes}
}

// ParseProjection parses "all", "keys_only" (also "keys-only" and "keys")
// and "include=a,b" (also "include:a,b" and "include(a,b)").
func ParseProjection(raw string) (Projection, error) {
	token := strings.TrimSpace(raw)
	if token == "" {
		return Projection{}, fmt.Errorf("projection is empty")
	}
	lower := strings.ToLower(token)
	switch lower {
	case "all":
		return ProjectAll(), nil
	case "keys_only", "keys-only", "keys":
		return ProjectKeysOnly(), nil
	}

	var attrs string
	switch {
	case strings.HasPrefix(lower, "include="), strings.HasPrefix(lower, "include:"):
		attrs = token[len("include="):]
	case strings.HasPrefix(lower, "include(") && strings.HasSuffix(lower, ")"):
		attrs = token[len("include(") : len(token)-1]
	default:
		return Projection{}, fmt.Errorf("unknown projection: %s", token)
	}
	list := parseAttributeList(attrs)
	if len(list) == 0 {
		return Projection{}, fmt.Errorf("include projection requires attributes")
	}
	return ProjectInclude(list...), nil
}

func parseAttributeList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
