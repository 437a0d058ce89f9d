package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/flitsinc/go-llms/content"
	"github.com/flitsinc/go-llms/llms"

	"github.com/hireloop/hireloop/internal/store"
)

// DeriveFieldValue asks the model for a single custom field value given the
// candidate's profile. The model responds with a JSON object holding the
// value and the reasoning behind it; the value is validated against the
// field's declared type before being returned.
func (c *Client) DeriveFieldValue(ctx context.Context, job store.Job, field store.CustomField, profile store.Profile) (string, string, error) {
	llm, err := c.newLLM()
	if err != nil {
		return "", "", err
	}
	llm.SystemPrompt = func() content.Content {
		return content.FromText("You evaluate candidate profiles for recruiters. Respond with a single JSON object and nothing else.")
	}

	prompt := fieldValuePrompt(job, field, profile)
	var text strings.Builder
	for update := range llm.ChatUsingMessages(ctx, []llms.Message{{Role: "user", Content: content.FromText(prompt)}}) {
		if textUpdate, ok := update.(llms.TextUpdate); ok {
			text.WriteString(textUpdate.Text)
		}
	}
	if err := llm.Err(); err != nil {
		return "", "", err
	}

	value, reasoning, err := parseFieldValue(text.String(), field.Type)
	if err != nil {
		return "", "", fmt.Errorf("field %q: %w", field.Name, err)
	}
	return value, reasoning, nil
}

// parseFieldValue extracts {"value": ..., "reasoning": ...} from model
// output, tolerating code fences and surrounding prose.
func parseFieldValue(raw string, fieldType store.FieldType) (string, string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return "", "", fmt.Errorf("no JSON object in model output")
	}

	var parsed struct {
		Value     any    `json:"value"`
		Reasoning string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return "", "", fmt.Errorf("decode model output: %w", err)
	}
	if parsed.Value == nil {
		return "", "", fmt.Errorf("model output has no value")
	}

	value, err := normalizeFieldValue(parsed.Value, fieldType)
	if err != nil {
		return "", "", err
	}
	return value, parsed.Reasoning, nil
}

func normalizeFieldValue(value any, fieldType store.FieldType) (string, error) {
	switch fieldType {
	case store.FieldBoolean:
		switch v := value.(type) {
		case bool:
			return strconv.FormatBool(v), nil
		case string:
			parsed, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return "", fmt.Errorf("value %q is not a boolean", v)
			}
			return strconv.FormatBool(parsed), nil
		}
	case store.FieldNumber:
		switch v := value.(type) {
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return "", fmt.Errorf("value %q is not a number", v)
			}
			return strconv.FormatFloat(parsed, 'f', -1, 64), nil
		}
	case store.FieldDate:
		s, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("value %v is not a date string", value)
		}
		s = strings.TrimSpace(s)
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if _, err := time.Parse(layout, s); err == nil {
				return s, nil
			}
		}
		return "", fmt.Errorf("value %q is not an ISO 8601 date", s)
	case store.FieldText:
		if s, ok := value.(string); ok {
			return s, nil
		}
		return fmt.Sprintf("%v", value), nil
	}
	return "", fmt.Errorf("value %v does not match field type %s", value, fieldType)
}
