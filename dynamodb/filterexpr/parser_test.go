package filterexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Comparators(t *testing.T) {
	tests := []struct {
		op   string
		want Comparator
	}{
		{"=", Equal},
		{"<>", NotEqual},
		{"!=", NotEqual},
		{"<", Less},
		{"<=", LessOrEqual},
		{">", Greater},
		{">=", GreaterOrEqual},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			expr, err := Parse("a " + tt.op + " 1")
			require.NoError(t, err)
			assert.Equal(t, &Comparison{Left: Path{Name: "a"}, Operator: tt.want, Right: Number{Value: 1}}, expr)
		})
	}

	t.Run("bang equal and angle brackets are identical", func(t *testing.T) {
		bang, err := Parse("status != 'x'")
		require.NoError(t, err)
		angle, err := Parse("status <> 'x'")
		require.NoError(t, err)
		assert.Equal(t, bang, angle)
	})
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Expression
	}{
		{
			name:  "between",
			input: "age BETWEEN 18 AND 65",
			want:  &Between{Operand: Path{Name: "age"}, Lower: Number{Value: 18}, Upper: Number{Value: 65}},
		},
		{
			name:  "in",
			input: `status IN ("active", "pending")`,
			want:  &In{Operand: Path{Name: "status"}, Values: []Operand{Value{Text: "active"}, Value{Text: "pending"}}},
		},
		{
			name:  "parentheses",
			input: "(a = 1)",
			want:  &Parentheses{Inner: &Comparison{Left: Path{Name: "a"}, Operator: Equal, Right: Number{Value: 1}}},
		},
		{
			name:  "literals",
			input: "a = true AND b = null AND c = 'x'",
			want: &And{
				Left: &And{
					Left:  &Comparison{Left: Path{Name: "a"}, Operator: Equal, Right: Boolean{Value: true}},
					Right: &Comparison{Left: Path{Name: "b"}, Operator: Equal, Right: Null{}},
				},
				Right: &Comparison{Left: Path{Name: "c"}, Operator: Equal, Right: Value{Text: "x"}},
			},
		},
		{
			name:  "and binds tighter than or",
			input: "a = 1 OR b = 2 AND c = 3",
			want: &Or{
				Left: &Comparison{Left: Path{Name: "a"}, Operator: Equal, Right: Number{Value: 1}},
				Right: &And{
					Left:  &Comparison{Left: Path{Name: "b"}, Operator: Equal, Right: Number{Value: 2}},
					Right: &Comparison{Left: Path{Name: "c"}, Operator: Equal, Right: Number{Value: 3}},
				},
			},
		},
		{
			name:  "not binds tighter than and",
			input: "NOT a = 1 AND b = 2",
			want: &And{
				Left:  &Not{Inner: &Comparison{Left: Path{Name: "a"}, Operator: Equal, Right: Number{Value: 1}}},
				Right: &Comparison{Left: Path{Name: "b"}, Operator: Equal, Right: Number{Value: 2}},
			},
		},
		{
			name:  "function",
			input: `begins_with(sk, "order#")`,
			want:  &Function{Name: FuncBeginsWith, Args: []Operand{Path{Name: "sk"}, Value{Text: "order#"}}},
		},
		{
			name:  "function name is case insensitive",
			input: "ATTRIBUTE_EXISTS(email)",
			want:  &Function{Name: FuncAttributeExists, Args: []Operand{Path{Name: "email"}}},
		},
		{
			name:  "function name used as a path",
			input: "size = 1",
			want:  &Comparison{Left: Path{Name: "size"}, Operator: Equal, Right: Number{Value: 1}},
		},
		{
			name:  "not function",
			input: "NOT attribute_exists(deletedAt)",
			want:  &Not{Inner: &Function{Name: FuncAttributeExists, Args: []Operand{Path{Name: "deletedAt"}}}},
		},
		{
			name:  "value on the left",
			input: "18 < age",
			want:  &Comparison{Left: Number{Value: 18}, Operator: Less, Right: Path{Name: "age"}},
		},
		{
			name:  "placeholders",
			input: "#name0 = :val0",
			want:  &Comparison{Left: Path{Name: "#name0"}, Operator: Equal, Right: ValueRef{Name: ":val0"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := Parse(tt.input, WithPlaceholders())
			require.NoError(t, err)
			assert.Equal(t, tt.want, expr)
		})
	}
}

func TestParse_String(t *testing.T) {
	expr, err := Parse(`(a = 1 OR b IN ("x", 2)) AND NOT contains(tags, 'red')`)
	require.NoError(t, err)
	assert.Equal(t, `(a = 1 OR b IN ("x", 2)) AND NOT contains(tags, "red")`, expr.String())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  ErrorKind
		pos   int
	}{
		{"missing right operand", "age = ", ErrUnexpectedEndOfInput, 6},
		{"missing left operand", "= 25", ErrUnexpectedToken, 0},
		{"between without and", "age BETWEEN 18", ErrUnexpectedEndOfInput, 14},
		{"unclosed in", "age IN (", ErrUnexpectedEndOfInput, 8},
		{"bare bang", "age ! 25", ErrUnexpectedToken, 4},
		{"empty input", "", ErrUnexpectedEndOfInput, 0},
		{"missing operator", "age 25", ErrInvalidSyntax, 4},
		{"operand only", "age", ErrUnexpectedEndOfInput, 3},
		{"trailing tokens", "a = 1 b", ErrUnexpectedToken, 6},
		{"unclosed paren", "(a = 1", ErrUnexpectedEndOfInput, 6},
		{"empty in list", "a IN ()", ErrInvalidSyntax, 2},
		{"function without arguments", "attribute_exists()", ErrInvalidSyntax, 0},
		{"trailing comma in arguments", `begins_with(a, )`, ErrUnexpectedToken, 15},
		{"trailing comma in list", "a IN (1, )", ErrUnexpectedToken, 9},
		{"dangling and", "a = 1 AND", ErrUnexpectedEndOfInput, 9},
		{"unterminated string", `a = "x`, ErrUnterminatedQuote, 4},
		{"keyword as operand", "a = AND", ErrUnexpectedToken, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := Parse(tt.input)
			require.Error(t, err)
			assert.Nil(t, expr)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.kind, perr.Kind, perr.Error())
			assert.Equal(t, tt.pos, perr.Position)
		})
	}
}

func TestParse_ErrorPositionsNonDecreasing(t *testing.T) {
	full := `status = "active" AND age BETWEEN 18 AND 65 OR tier IN ("gold", "silver")`
	last := -1
	for i := 1; i < len(full); i++ {
		prefix := full[:i]
		_, err := Parse(prefix)
		if err == nil {
			continue
		}
		var perr *ParseError
		require.ErrorAs(t, err, &perr, prefix)
		assert.LessOrEqual(t, perr.Position, len(prefix), prefix)
		if perr.Kind == ErrUnexpectedEndOfInput {
			assert.GreaterOrEqual(t, perr.Position, last, prefix)
			last = perr.Position
		}
	}
}
