package ai

import (
	"testing"
)

func TestUnmarshalFlexible_ObjectVariants(t *testing.T) {
	type company struct {
		LegalName   string `json:"legal_name"`
		FoundingYear int   `json:"founding_year,omitempty"`
	}

	tests := []struct {
		name  string
		input string
		want  company
	}{
		{
			name:  "valid json object",
			input: `{"legal_name":"Acme GmbH"}`,
			want:  company{LegalName: "Acme GmbH"},
		},
		{
			name:  "unquoted key and single quotes",
			input: `{legal_name: 'Acme GmbH'}`,
			want:  company{LegalName: "Acme GmbH"},
		},
		{
			name:  "trailing comma",
			input: `{"legal_name":"Acme GmbH",}`,
			want:  company{LegalName: "Acme GmbH"},
		},
		{
			name:  "missing endbracket",
			input: `{"legal_name":"Acme GmbH`,
			want:  company{LegalName: "Acme GmbH"},
		},
		{
			name:  "stringified invalid json object",
			input: `"{legal_name: 'Acme GmbH'}"`,
			want:  company{LegalName: "Acme GmbH"},
		},
		{
			name:  "stringified valid json object",
			input: `"{ \"legal_name\": \"Acme GmbH\", \"founding_year\": 1987 }"`,
			want:  company{LegalName: "Acme GmbH", FoundingYear: 1987},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got company
			if err := UnmarshalFlexible(tc.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if got.LegalName != tc.want.LegalName || got.FoundingYear != tc.want.FoundingYear {
				t.Fatalf("UnmarshalFlexible() got = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestUnmarshalFlexible_ArrayVariants(t *testing.T) {
	type site struct {
		Name string `json:"name"`
	}

	input := `[{name:'Plant Hamburg'},{name:'HQ Munich',}]`
	var got []site
	if err := UnmarshalFlexible(input, &got); err != nil {
		t.Fatalf("UnmarshalFlexible() error = %v", err)
	}
	if len(got) != 2 || got[0].Name != "Plant Hamburg" || got[1].Name != "HQ Munich" {
		t.Fatalf("UnmarshalFlexible() got = %+v, want two sites", got)
	}
}

func TestUnmarshalFlexible_Unrecoverable(t *testing.T) {
	type company struct {
		LegalName string `json:"legal_name"`
	}

	var got company
	if err := UnmarshalFlexible("no structured answer here", &got); err == nil {
		t.Fatalf("UnmarshalFlexible() expected error for unrecoverable input")
	}
}
