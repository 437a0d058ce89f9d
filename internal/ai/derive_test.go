package ai

import (
	"strings"
	"testing"

	"github.com/hireloop/hireloop/internal/store"
)

func TestParseFieldValue(t *testing.T) {
	cases := []struct {
		name      string
		raw       string
		fieldType store.FieldType
		value     string
		reasoning string
		wantErr   bool
	}{
		{
			name:      "boolean",
			raw:       `{"value": true, "reasoning": "profile mentions Go"}`,
			fieldType: store.FieldBoolean,
			value:     "true",
			reasoning: "profile mentions Go",
		},
		{
			name:      "boolean as string",
			raw:       `{"value": "false", "reasoning": "no match"}`,
			fieldType: store.FieldBoolean,
			value:     "false",
			reasoning: "no match",
		},
		{
			name:      "number",
			raw:       `{"value": 7, "reasoning": "seven years listed"}`,
			fieldType: store.FieldNumber,
			value:     "7",
			reasoning: "seven years listed",
		},
		{
			name:      "date",
			raw:       `{"value": "2021-03-01", "reasoning": "start date on profile"}`,
			fieldType: store.FieldDate,
			value:     "2021-03-01",
			reasoning: "start date on profile",
		},
		{
			name:      "fenced output",
			raw:       "```json\n{\"value\": \"Berlin\", \"reasoning\": \"listed location\"}\n```",
			fieldType: store.FieldText,
			value:     "Berlin",
			reasoning: "listed location",
		},
		{
			name:      "surrounding prose",
			raw:       "Here is the result:\n{\"value\": 42, \"reasoning\": \"count\"} hope that helps",
			fieldType: store.FieldNumber,
			value:     "42",
			reasoning: "count",
		},
		{
			name:      "wrong type for boolean",
			raw:       `{"value": "maybe", "reasoning": "unclear"}`,
			fieldType: store.FieldBoolean,
			wantErr:   true,
		},
		{
			name:      "bad date",
			raw:       `{"value": "March 2021", "reasoning": "approximate"}`,
			fieldType: store.FieldDate,
			wantErr:   true,
		},
		{
			name:      "missing value",
			raw:       `{"reasoning": "nothing to go on"}`,
			fieldType: store.FieldText,
			wantErr:   true,
		},
		{
			name:      "no JSON at all",
			raw:       "I cannot determine this.",
			fieldType: store.FieldText,
			wantErr:   true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			value, reasoning, err := parseFieldValue(tc.raw, tc.fieldType)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got value %q", value)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseFieldValue: %v", err)
			}
			if value != tc.value {
				t.Errorf("value = %q, want %q", value, tc.value)
			}
			if reasoning != tc.reasoning {
				t.Errorf("reasoning = %q, want %q", reasoning, tc.reasoning)
			}
		})
	}
}

func TestRecruiterPromptIncludesJobDetails(t *testing.T) {
	job := store.Job{
		Title:       "Senior Go Engineer",
		Description: "Build distributed systems",
		Department:  "Platform",
		Location:    "Remote",
	}
	prompt := recruiterPrompt(job)
	for _, want := range []string{"Senior Go Engineer", "Build distributed systems", "Platform", "Remote", "add_candidate"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestFieldValuePromptIncludesProfileData(t *testing.T) {
	job := store.Job{Title: "Data Engineer", Description: "Pipelines"}
	field := store.CustomField{Name: "Years of experience", Description: "Total years", Type: store.FieldNumber}
	profile := store.Profile{Handle: "jane-doe", Data: map[string]any{"headline": "10y data eng"}}

	prompt := fieldValuePrompt(job, field, profile)
	for _, want := range []string{"Years of experience", "jane-doe", "10y data eng", "number"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
