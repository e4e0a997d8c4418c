package llm

import (
	"reflect"
	"testing"
)

func TestExtractJSON_PlainArray(t *testing.T) {
	input := `["SELECT 1", "SELECT 2"]`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != input {
		t.Errorf("expected %q, got %q", input, result)
	}
}

func TestExtractJSON_WithThinkTags(t *testing.T) {
	input := `<think>
The user wants a count, so {maybe} a GROUP BY.
</think>
{"sql": ["SELECT COUNT(*) FROM employees"]}`

	expected := `{"sql": ["SELECT COUNT(*) FROM employees"]}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestExtractJSON_BracketsInStrings(t *testing.T) {
	input := "Here you go:\n```json\n[\"SELECT [name] FROM [dbo].[users] WHERE note = 'a]b'\"]\n```"
	expected := "[\"SELECT [name] FROM [dbo].[users] WHERE note = 'a]b'\"]"
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestExtractJSON_NoJSON(t *testing.T) {
	if _, err := ExtractJSON("SELECT 1"); err == nil {
		t.Error("expected error for text without JSON")
	}
}

func TestParseStatements(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []string
	}{
		{
			name:     "json array",
			response: `["SELECT * FROM employees", "SELECT COUNT(*) FROM departments"]`,
			want:     []string{"SELECT * FROM employees", "SELECT COUNT(*) FROM departments"},
		},
		{
			name:     "fenced json array",
			response: "```json\n[\"SELECT 1 FROM dual\"]\n```",
			want:     []string{"SELECT 1 FROM dual"},
		},
		{
			name:     "object envelope",
			response: `{"queries": ["SELECT 1", "  "]}`,
			want:     []string{"SELECT 1"},
		},
		{
			name:     "semicolon separated",
			response: "SELECT * FROM a;\nSELECT * FROM b;",
			want:     []string{"SELECT * FROM a", "SELECT * FROM b"},
		},
		{
			name:     "fenced sql keeps semicolons in literals",
			response: "Sure:\n```sql\nSELECT 'a;b' AS x FROM t; -- done;\nSELECT 2\n```",
			want:     []string{"SELECT 'a;b' AS x FROM t", "-- done;\nSELECT 2"},
		},
		{
			name:     "sql server brackets are not json",
			response: "SELECT TOP 5 [name] FROM [dbo].[users]",
			want:     []string{"SELECT TOP 5 [name] FROM [dbo].[users]"},
		},
		{
			name:     "comment only pieces dropped",
			response: "SELECT 1; -- trailing note",
			want:     []string{"SELECT 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStatements(tt.response)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParseStatements_Empty(t *testing.T) {
	_, err := ParseStatements("   ")
	if GetErrorType(err) != ErrorTypeResponse {
		t.Errorf("expected response error, got %v", err)
	}
}

func TestSplitStatements_Comments(t *testing.T) {
	got := SplitStatements("SELECT 1 /* a; b */; SELECT \"x;y\" FROM `t;u`")
	want := []string{"SELECT 1 /* a; b */", " SELECT \"x;y\" FROM `t;u`"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestParseStringList(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []string
	}{
		{"json", `["Show salaries", "Compare departments"]`, []string{"Show salaries", "Compare departments"}},
		{"bullets", "- Show salaries\n* Compare departments\n\n", []string{"Show salaries", "Compare departments"}},
		{"numbered", "1. Show 2023 sales\n2) Top 10 orders", []string{"Show 2023 sales", "Top 10 orders"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseStringList(tt.response); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
