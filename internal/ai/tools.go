package ai

import (
	"github.com/flitsinc/go-llms/llms"
	llmtools "github.com/flitsinc/go-llms/tools"

	"github.com/hireloop/hireloop/internal/agent"
	"github.com/hireloop/hireloop/internal/candidates"
	"github.com/hireloop/hireloop/internal/store"
)

type addCandidateParams struct {
	ProfileHandle string `json:"profile_handle" description:"External handle of the candidate's profile"`
	MatchScore    int    `json:"match_score" description:"Match score of the candidate for this job, 0-100"`
	Reasoning     string `json:"reasoning" description:"Why this candidate is a potential match for the job"`
}

type searchCandidatesParams struct {
	Query string `json:"query" description:"Free-text search over the candidate pool, e.g. skills, titles, locations"`
	Limit int    `json:"limit" description:"Maximum number of profiles to return, default 10"`
}

// searchCandidatesTool exposes the external profile pool to the agent.
func (c *Client) searchCandidatesTool(emit func(agent.Event)) llmtools.Tool {
	return llmtools.Func(
		"Search Candidates",
		"Searches the candidate pool for profiles matching a query",
		"search_candidates",
		func(r llmtools.Runner, p searchCandidatesParams) llmtools.Result {
			callID, callName := "", "search_candidates"
			if tc, ok := llms.GetToolCall(r.Context()); ok {
				callID, callName = tc.ID, tc.Name
			}
			emit(agent.Event{
				Kind:       agent.KindToolCall,
				ToolCallID: callID,
				ToolName:   callName,
				Args:       map[string]any{"query": p.Query, "limit": p.Limit},
			})

			limit := p.Limit
			if limit <= 0 || limit > 50 {
				limit = 10
			}
			profiles, err := c.Searcher.SearchProfiles(r.Context(), p.Query, limit)
			if err != nil {
				emit(agent.Event{Kind: agent.KindToolResult, ToolCallID: callID, Result: map[string]any{
					"message": "Search failed: " + err.Error(),
				}})
				return llmtools.Error(err)
			}
			result := map[string]any{"profiles": profiles, "count": len(profiles)}
			emit(agent.Event{Kind: agent.KindToolResult, ToolCallID: callID, Result: result})
			return llmtools.Success(result)
		},
	)
}

// addCandidateTool lets the agent attach a sourced profile to the job. The
// tool emits both halves of its invocation into the turn stream so the
// correlator can pair them.
func (c *Client) addCandidateTool(job store.Job, emit func(agent.Event)) llmtools.Tool {
	return llmtools.Func(
		"Add Candidate",
		"Adds a sourced candidate profile to this job post",
		"add_candidate",
		func(r llmtools.Runner, p addCandidateParams) llmtools.Result {
			callID, callName := "", "add_candidate"
			if tc, ok := llms.GetToolCall(r.Context()); ok {
				callID, callName = tc.ID, tc.Name
			}
			emit(agent.Event{
				Kind:       agent.KindToolCall,
				ToolCallID: callID,
				ToolName:   callName,
				Args: map[string]any{
					"profile_handle": p.ProfileHandle,
					"match_score":    p.MatchScore,
					"reasoning":      p.Reasoning,
				},
			})

			result := map[string]any{}
			candidate, created, err := c.candidates.Add(r.Context(), candidates.AddInput{
				JobID:        job.ID,
				Handle:       p.ProfileHandle,
				MatchScore:   p.MatchScore,
				Reasoning:    p.Reasoning,
				EagerlyAdded: true,
			})
			if err != nil {
				result["message"] = "Failed to add candidate: " + err.Error()
				emit(agent.Event{Kind: agent.KindToolResult, ToolCallID: callID, Result: result})
				return llmtools.Error(err)
			}
			result["candidate_id"] = candidate.ID
			if created {
				result["message"] = "Successfully added candidate to job post."
			} else {
				result["message"] = "Candidate already added to this job post."
			}
			emit(agent.Event{Kind: agent.KindToolResult, ToolCallID: callID, Result: result})
			return llmtools.Success(result)
		},
	)
}
