// Package rsql translates RSQL filter and sort expressions into parameterized
// SQL fragments. Field names are resolved through a per-entity allow-list, so
// user input never reaches the database as raw text.
package rsql

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Mapping is the allow-list for one entity: external field name to column.
// Filters and sorts referencing a field outside the mapping are rejected
// before any storage access.
type Mapping map[string]string

const (
	defaultSortField = "creationTime"
	tieBreakField    = "id"
)

// Query is a parameterized WHERE fragment ready for gorm's Where().
type Query struct {
	Where string
	Args  []any
}

// SyntaxError reports a filter or sort expression that does not parse.
type SyntaxError struct {
	Input string
	Msg   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid query %q: %s", e.Input, e.Msg)
}

// UnknownFieldError reports a field outside the entity's allow-list.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown query field %q", e.Field)
}

var rsqlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "whitespace", Pattern: `\s+`},
	{Name: "Operator", Pattern: `==|!=|=gt=|=ge=|=lt=|=le=|=in=|=out=|=like=|=notlike=`},
	{Name: "String", Pattern: `"[^"]*"|'[^']*'`},
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
	{Name: "Comma", Pattern: `,`},
	{Name: "Semi", Pattern: `;`},
	{Name: "Value", Pattern: `[^\s();,=!]+`},
})

// expression := and ( ("," | "or") and )*
type expression struct {
	First *conjunction   `parser:"@@"`
	Rest  []*conjunction `parser:"( ( Comma | 'or' ) @@ )*"`
}

// conjunction := term ( (";" | "and") term )*
type conjunction struct {
	First *term   `parser:"@@"`
	Rest  []*term `parser:"( ( Semi | 'and' ) @@ )*"`
}

type term struct {
	Sub  *expression `parser:"LParen @@ RParen"`
	Comp *comparison `parser:"| @@"`
}

type comparison struct {
	Field string   `parser:"@Value"`
	Op    string   `parser:"@Operator"`
	List  []string `parser:"( LParen @( Value | String ) ( Comma @( Value | String ) )* RParen"`
	Value *string  `parser:"| @( Value | String ) )"`
}

var parser = participle.MustBuild[expression](
	participle.Lexer(rsqlLexer),
)

// Translate parses an RSQL filter expression and renders it against the
// mapping. An empty filter yields a nil Query.
func Translate(filter string, m Mapping) (*Query, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return nil, nil
	}

	ast, err := parser.ParseString("", filter)
	if err != nil {
		return nil, &SyntaxError{Input: filter, Msg: err.Error()}
	}

	var sb strings.Builder
	var args []any
	if err := renderExpression(ast, m, &sb, &args); err != nil {
		return nil, err
	}
	return &Query{Where: sb.String(), Args: args}, nil
}

func renderExpression(e *expression, m Mapping, sb *strings.Builder, args *[]any) error {
	if err := renderConjunction(e.First, m, sb, args); err != nil {
		return err
	}
	for _, c := range e.Rest {
		sb.WriteString(" OR ")
		if err := renderConjunction(c, m, sb, args); err != nil {
			return err
		}
	}
	return nil
}

func renderConjunction(c *conjunction, m Mapping, sb *strings.Builder, args *[]any) error {
	if err := renderTerm(c.First, m, sb, args); err != nil {
		return err
	}
	for _, t := range c.Rest {
		sb.WriteString(" AND ")
		if err := renderTerm(t, m, sb, args); err != nil {
			return err
		}
	}
	return nil
}

func renderTerm(t *term, m Mapping, sb *strings.Builder, args *[]any) error {
	if t.Sub != nil {
		sb.WriteString("(")
		if err := renderExpression(t.Sub, m, sb, args); err != nil {
			return err
		}
		sb.WriteString(")")
		return nil
	}
	return renderComparison(t.Comp, m, sb, args)
}

func renderComparison(c *comparison, m Mapping, sb *strings.Builder, args *[]any) error {
	column, ok := m[c.Field]
	if !ok {
		return &UnknownFieldError{Field: c.Field}
	}

	switch c.Op {
	case "==":
		return renderScalar(c, column, "=", sb, args)
	case "!=":
		return renderScalar(c, column, "<>", sb, args)
	case "=gt=":
		return renderScalar(c, column, ">", sb, args)
	case "=ge=":
		return renderScalar(c, column, ">=", sb, args)
	case "=lt=":
		return renderScalar(c, column, "<", sb, args)
	case "=le=":
		return renderScalar(c, column, "<=", sb, args)
	case "=like=", "=notlike=":
		if c.Value == nil {
			return &SyntaxError{Input: c.Field + c.Op, Msg: "operator requires a single value"}
		}
		op := "LIKE"
		if c.Op == "=notlike=" {
			op = "NOT LIKE"
		}
		fmt.Fprintf(sb, "%s %s ?", column, op)
		*args = append(*args, strings.ReplaceAll(unquote(*c.Value), "*", "%"))
		return nil
	case "=in=", "=out=":
		if len(c.List) == 0 {
			return &SyntaxError{Input: c.Field + c.Op, Msg: "operator requires a parenthesized list"}
		}
		op := "IN"
		if c.Op == "=out=" {
			op = "NOT IN"
		}
		values := make([]string, 0, len(c.List))
		for _, v := range c.List {
			values = append(values, unquote(v))
		}
		fmt.Fprintf(sb, "%s %s ?", column, op)
		*args = append(*args, values)
		return nil
	default:
		return &SyntaxError{Input: c.Op, Msg: "unsupported operator"}
	}
}

func renderScalar(c *comparison, column, op string, sb *strings.Builder, args *[]any) error {
	if c.Value == nil {
		return &SyntaxError{Input: c.Field + c.Op, Msg: "operator requires a single value"}
	}
	fmt.Fprintf(sb, "%s %s ?", column, op)
	*args = append(*args, unquote(*c.Value))
	return nil
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

// ParseSort renders a comma-joined list of `field=asc=` / `field=desc=`
// clauses as an ORDER BY column list. An empty sort defaults to
// `creationTime=desc=`. A tie-break on the id column is always appended
// unless id is listed explicitly, so page windows stay stable across
// requests.
func ParseSort(sort string, m Mapping) (string, error) {
	sort = strings.TrimSpace(sort)
	if sort == "" {
		sort = defaultSortField + "=desc="
	}

	var (
		columns []string
		sawTie  bool
	)
	for _, clause := range strings.Split(sort, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}

		var field, direction string
		switch {
		case strings.HasSuffix(clause, "=asc="):
			field, direction = strings.TrimSuffix(clause, "=asc="), "ASC"
		case strings.HasSuffix(clause, "=desc="):
			field, direction = strings.TrimSuffix(clause, "=desc="), "DESC"
		default:
			return "", &SyntaxError{Input: clause, Msg: "sort clause must end with =asc= or =desc="}
		}
		if field == "" {
			return "", &SyntaxError{Input: clause, Msg: "sort clause is missing a field"}
		}

		column, ok := m[field]
		if !ok {
			return "", &UnknownFieldError{Field: field}
		}
		if field == tieBreakField {
			sawTie = true
		}
		columns = append(columns, column+" "+direction)
	}

	if len(columns) == 0 {
		return "", &SyntaxError{Input: sort, Msg: "sort expression has no clauses"}
	}
	if !sawTie {
		if column, ok := m[tieBreakField]; ok {
			columns = append(columns, column+" ASC")
		}
	}
	return strings.Join(columns, ", "), nil
}
