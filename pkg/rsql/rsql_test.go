package rsql

import (
	"errors"
	"reflect"
	"testing"
)

var testMapping = Mapping{
	"id":           "id",
	"identifier":   "identifier",
	"type":         "type",
	"status":       "status",
	"result":       "result",
	"creationTime": "creation_time",
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name      string
		filter    string
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "equality",
			filter:    "status==FINISHED",
			wantWhere: "status = ?",
			wantArgs:  []any{"FINISHED"},
		},
		{
			name:      "inequality",
			filter:    "status!=FAILED",
			wantWhere: "status <> ?",
			wantArgs:  []any{"FAILED"},
		},
		{
			name:      "relational operators",
			filter:    "creationTime=ge=2024-01-01T00:00:00Z;creationTime=lt=2025-01-01T00:00:00Z",
			wantWhere: "creation_time >= ? AND creation_time < ?",
			wantArgs:  []any{"2024-01-01T00:00:00Z", "2025-01-01T00:00:00Z"},
		},
		{
			name:      "conjunction keyword",
			filter:    "type==BUILD and status==NEW",
			wantWhere: "type = ? AND status = ?",
			wantArgs:  []any{"BUILD", "NEW"},
		},
		{
			name:      "disjunction",
			filter:    "status==NEW,status==IN_PROGRESS",
			wantWhere: "status = ? OR status = ?",
			wantArgs:  []any{"NEW", "IN_PROGRESS"},
		},
		{
			name:      "in list",
			filter:    "status=in=(NEW,IN_PROGRESS)",
			wantWhere: "status IN ?",
			wantArgs:  []any{[]string{"NEW", "IN_PROGRESS"}},
		},
		{
			name:      "out list",
			filter:    "type=out=(OPERATION,ANALYSIS)",
			wantWhere: "type NOT IN ?",
			wantArgs:  []any{[]string{"OPERATION", "ANALYSIS"}},
		},
		{
			name:      "like with wildcard",
			filter:    "identifier=like=AB*",
			wantWhere: "identifier LIKE ?",
			wantArgs:  []any{"AB%"},
		},
		{
			name:      "notlike",
			filter:    "identifier=notlike=*test*",
			wantWhere: "identifier NOT LIKE ?",
			wantArgs:  []any{"%test%"},
		},
		{
			name:      "quoted value with spaces",
			filter:    `identifier=="two words"`,
			wantWhere: "identifier = ?",
			wantArgs:  []any{"two words"},
		},
		{
			name:      "grouping",
			filter:    "(status==NEW,status==IN_PROGRESS);type==BUILD",
			wantWhere: "(status = ? OR status = ?) AND type = ?",
			wantArgs:  []any{"NEW", "IN_PROGRESS", "BUILD"},
		},
		{
			name:      "nested grouping depth three",
			filter:    "((type==BUILD;(status==NEW,status==IN_PROGRESS)),result==SUCCESS)",
			wantWhere: "((type = ? AND (status = ? OR status = ?)) OR result = ?)",
			wantArgs:  []any{"BUILD", "NEW", "IN_PROGRESS", "SUCCESS"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Translate(tt.filter, testMapping)
			if err != nil {
				t.Fatalf("Translate() error = %v", err)
			}
			if q.Where != tt.wantWhere {
				t.Fatalf("Where = %q, want %q", q.Where, tt.wantWhere)
			}
			if !reflect.DeepEqual(q.Args, tt.wantArgs) {
				t.Fatalf("Args = %#v, want %#v", q.Args, tt.wantArgs)
			}
		})
	}
}

func TestTranslateEmptyFilter(t *testing.T) {
	q, err := Translate("  ", testMapping)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if q != nil {
		t.Fatalf("Translate() = %#v, want nil", q)
	}
}

func TestTranslateUnknownField(t *testing.T) {
	_, err := Translate("secretColumn==x", testMapping)
	var unknown *UnknownFieldError
	if !errors.As(err, &unknown) {
		t.Fatalf("Translate() error = %v, want *UnknownFieldError", err)
	}
	if unknown.Field != "secretColumn" {
		t.Fatalf("Field = %q", unknown.Field)
	}
}

func TestTranslateSyntaxErrors(t *testing.T) {
	inputs := []string{
		"status==",
		"status=unknown=NEW",
		"(status==NEW",
		"status=in=NEW",
		";status==NEW",
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := Translate(input, testMapping)
			var syntax *SyntaxError
			if !errors.As(err, &syntax) {
				t.Fatalf("Translate(%q) error = %v, want *SyntaxError", input, err)
			}
		})
	}
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		name string
		sort string
		want string
	}{
		{"default", "", "creation_time DESC, id ASC"},
		{"explicit ascending", "creationTime=asc=", "creation_time ASC, id ASC"},
		{"multiple clauses", "status=asc=,creationTime=desc=", "status ASC, creation_time DESC, id ASC"},
		{"explicit id skips tie break", "id=desc=", "id DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSort(tt.sort, testMapping)
			if err != nil {
				t.Fatalf("ParseSort() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseSort() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseSortErrors(t *testing.T) {
	t.Run("unknown field", func(t *testing.T) {
		_, err := ParseSort("secretColumn=asc=", testMapping)
		var unknown *UnknownFieldError
		if !errors.As(err, &unknown) {
			t.Fatalf("ParseSort() error = %v, want *UnknownFieldError", err)
		}
	})

	t.Run("bad direction", func(t *testing.T) {
		_, err := ParseSort("creationTime=up=", testMapping)
		var syntax *SyntaxError
		if !errors.As(err, &syntax) {
			t.Fatalf("ParseSort() error = %v, want *SyntaxError", err)
		}
	})
}
