package ai

import (
	"fmt"
	"strings"

	"github.com/hireloop/hireloop/internal/store"
)

// recruiterPrompt is the system prompt for the interactive sourcing agent.
func recruiterPrompt(job store.Job) string {
	var sb strings.Builder
	sb.WriteString(`<role>
You are an expert recruitment researcher finding exceptional candidates for a specific role. You collaborate with the hiring manager, refine your search based on their feedback, and add confirmed candidates with the add_candidate tool.
</role>

<job_description>
`)
	sb.WriteString(jobDescription(job))
	sb.WriteString(`
</job_description>

<guidelines>
Prioritize quality and fit over volume. Evaluate each candidate against the job description before adding them, and include a short written rationale with every add_candidate call.
</guidelines>`)
	return sb.String()
}

func fieldValuePrompt(job store.Job, field store.CustomField, profile store.Profile) string {
	return fmt.Sprintf(`<task>
Generate a value for the custom field %q (%s) for this candidate, based on their profile. Respond with a JSON object {"value": ..., "reasoning": ...} where value is of type %s and reasoning is a clear, human-readable explanation of how the value was determined.
</task>

<job_description>
%s
</job_description>

<candidate_profile>
%s
</candidate_profile>`, field.Name, field.Description, fieldTypeHint(field.Type), jobDescription(job), profileSummary(profile))
}

func fieldTypeHint(t store.FieldType) string {
	switch t {
	case store.FieldBoolean:
		return "boolean (true or false)"
	case store.FieldNumber:
		return "number"
	case store.FieldDate:
		return "ISO 8601 date string"
	default:
		return "string"
	}
}

func jobDescription(job store.Job) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\n", job.Title)
	if job.Department != "" {
		fmt.Fprintf(&sb, "Department: %s\n", job.Department)
	}
	if job.Location != "" {
		fmt.Fprintf(&sb, "Location: %s\n", job.Location)
	}
	fmt.Fprintf(&sb, "Description: %s", job.Description)
	return sb.String()
}

func profileSummary(profile store.Profile) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Handle: %s\n", profile.Handle)
	for key, value := range profile.Data {
		fmt.Fprintf(&sb, "%s: %v\n", key, value)
	}
	return strings.TrimRight(sb.String(), "\n")
}
