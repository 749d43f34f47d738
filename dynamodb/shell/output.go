package shell

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/acksell/dynamate/dynamodb/ddbsdk"
	"github.com/acksell/dynamate/dynamodb/itemjson"
	"github.com/acksell/dynamate/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Format selects how items are printed.
type Format string

const (
	FormatTable      Format = "table"
	FormatJSON       Format = "json"
	FormatDynamoJSON Format = "dynamodb-json"
)

func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatTable, FormatJSON, FormatDynamoJSON:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or dynamodb-json)", raw)
	}
}

// MaxCellWidth is the widest a table cell gets before it is truncated.
const MaxCellWidth = 40

// WriteItems prints items in the given format. keyAttrs lead the table
// columns.
func WriteItems(w io.Writer, items []ddbsdk.Item, format Format, keyAttrs []string) error {
	switch format {
	case FormatJSON:
		out, err := itemjson.MarshalJSON(items)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case FormatDynamoJSON:
		out, err := itemjson.MarshalDynamoJSON(items)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	default:
		return WriteTable(w, items, keyAttrs)
	}
}

type justification int

const (
	left justification = iota
	right
)

// WriteTable formats items as an ASCII table. Columns are the union of all
// attribute names, with keyAttrs first and the rest sorted.
func WriteTable(w io.Writer, items []ddbsdk.Item, keyAttrs []string) error {
	if len(items) == 0 {
		_, err := io.WriteString(w, "(no items)\n")
		return err
	}

	columnNames := columns(items, keyAttrs)
	columnWidths := make([]int, len(columnNames))
	justify := make([]justification, len(columnNames))
	for i, name := range columnNames {
		columnWidths[i] = len(name)
		justify[i] = right
	}

	rows := make([][]string, len(items))
	for r, item := range items {
		row := make([]string, len(columnNames))
		for i, name := range columnNames {
			av, ok := item[name]
			if !ok {
				continue
			}
			if _, isNum := av.(*types.AttributeValueMemberN); !isNum {
				justify[i] = left
			}
			row[i] = truncate(FormatValue(av), MaxCellWidth)
			columnWidths[i] = max(columnWidths[i], len(row[i]))
		}
		rows[r] = row
	}

	var b strings.Builder
	writeBorder(&b, columnWidths)
	sep := "| "
	for i, name := range columnNames {
		fmt.Fprintf(&b, "%s%-*s", sep, columnWidths[i], name)
		sep = " | "
	}
	b.WriteString(" |\n")
	writeBorder(&b, columnWidths)
	for _, row := range rows {
		sep = "| "
		for i, cell := range row {
			if justify[i] == right {
				fmt.Fprintf(&b, "%s%*s", sep, columnWidths[i], cell)
			} else {
				fmt.Fprintf(&b, "%s%-*s", sep, columnWidths[i], cell)
			}
			sep = " | "
		}
		b.WriteString(" |\n")
	}
	writeBorder(&b, columnWidths)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeBorder(b *strings.Builder, columnWidths []int) {
	sep := "+-"
	for _, width := range columnWidths {
		b.WriteString(sep)
		b.WriteString(strings.Repeat("-", width))
		sep = "-+-"
	}
	b.WriteString("-+\n")
}

func columns(items []ddbsdk.Item, keyAttrs []string) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, k := range keyAttrs {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	var rest []string
	for _, item := range items {
		for name := range item {
			if !seen[name] {
				seen[name] = true
				rest = append(rest, name)
			}
		}
	}
	slices.Sort(rest)
	return append(keys, rest...)
}

// FormatValue renders a single attribute value on one line. Scalars print
// bare, documents and sets as compact JSON.
func FormatValue(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	case *types.AttributeValueMemberBOOL:
		return fmt.Sprint(v.Value)
	case *types.AttributeValueMemberNULL:
		return "null"
	}
	doc, err := itemjson.ToJSON(itemjson.Item{"v": av})
	if err != nil {
		return "<" + err.Error() + ">"
	}
	out, err := json.Marshal(doc["v"])
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return string(out)
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// WriteDescription prints a table's keys, item count and indexes.
func WriteDescription(w io.Writer, desc *types.TableDescription) error {
	def, err := table.DefinitionFromDescription(desc)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Table: %s\n", def.Name)
	fmt.Fprintf(w, "  Keys: %s\n", keyString(def.KeyDefinitions))
	if desc.ItemCount != nil {
		fmt.Fprintf(w, "  Items: %d\n", aws.ToInt64(desc.ItemCount))
	}
	for _, gsi := range def.GSIs {
		fmt.Fprintf(w, "  GSI %s: %s (%s)\n", gsi.Name, keyString(gsi.KeyDefinitions), gsi.Projection)
	}
	for _, lsi := range def.LSIs {
		fmt.Fprintf(w, "  LSI %s: %s (%s)\n", lsi.Name, keyString(lsi.KeyDefinitions), lsi.Projection)
	}
	return nil
}

func keyString(k table.PrimaryKeyDefinition) string {
	out := fmt.Sprintf("%s (%s)", k.PartitionKey.Name, k.PartitionKey.Kind)
	if k.HasSortKey() {
		out += fmt.Sprintf(", %s (%s)", k.SortKey.Name, k.SortKey.Kind)
	}
	return out
}

// WritePlan prints the access plan and rendered expressions of req without
// running it.
func WritePlan(w io.Writer, req ddbsdk.Request) {
	fmt.Fprintf(w, "Operation: %s\n", req.Operation())
	fmt.Fprintf(w, "Plan: %s\n", req.Plan)
	if req.KeyCondition != "" {
		fmt.Fprintf(w, "KeyConditionExpression: %s\n", req.KeyCondition)
	}
	if req.Filter != "" {
		fmt.Fprintf(w, "FilterExpression: %s\n", req.Filter)
	}
	if req.Projection != "" {
		fmt.Fprintf(w, "ProjectionExpression: %s\n", req.Projection)
	}
	for _, placeholder := range sortedKeys(req.Names) {
		fmt.Fprintf(w, "  %s = %s\n", placeholder, req.Names[placeholder])
	}
	for _, placeholder := range sortedKeys(req.Values) {
		fmt.Fprintf(w, "  %s = %s\n", placeholder, FormatValue(req.Values[placeholder]))
	}
}
