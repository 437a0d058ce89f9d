package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hireloop/hireloop/internal/idgen"
)

type Candidate struct {
	ID           string    `json:"id"`
	JobID        string    `json:"job_id"`
	ProfileID    string    `json:"profile_id"`
	Reasoning    string    `json:"reasoning,omitempty"`
	MatchScore   int       `json:"match_score,omitempty"`
	EagerlyAdded bool      `json:"eagerly_added"`
	Applied      bool      `json:"applied"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CandidateInput struct {
	JobID        string
	ProfileID    string
	Reasoning    string
	MatchScore   int
	EagerlyAdded bool
}

// CreateCandidate adds a candidate to a job, keeping at most one row per
// (job, profile) pair. There is no unique constraint backing this; the pair
// is re-checked immediately before insert, and the existing row wins. A
// concurrent add can slip through the window and leave a duplicate row, which
// readers tolerate. Deliberately not a transaction: a deferred read-then-write
// upgrade is not retried by the busy handler, so overlapping adds would fail
// instead of converging.
func (s *Store) CreateCandidate(ctx context.Context, input CandidateInput) (Candidate, bool, error) {
	existing, err := s.candidateByPair(ctx, input.JobID, input.ProfileID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Candidate{}, false, err
	}

	id := idgen.New()
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO candidates (id, job_id, profile_id, reasoning, match_score, eagerly_added, applied, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
	`, id, input.JobID, input.ProfileID, nullString(input.Reasoning), input.MatchScore,
		boolToInt(input.EagerlyAdded), formatTime(now), formatTime(now))
	if err != nil {
		return Candidate{}, false, fmt.Errorf("insert candidate: %w", err)
	}

	return Candidate{
		ID:           id,
		JobID:        input.JobID,
		ProfileID:    input.ProfileID,
		Reasoning:    input.Reasoning,
		MatchScore:   input.MatchScore,
		EagerlyAdded: input.EagerlyAdded,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, true, nil
}

func (s *Store) ListCandidates(ctx context.Context, jobID string) ([]Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, profile_id, reasoning, match_score, eagerly_added, applied, created_at, updated_at
		FROM candidates WHERE job_id = ? ORDER BY created_at ASC
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		candidate, err := scanCandidate(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return out, nil
}

// MarkApplied sets the applied flag on a candidate. Scoped to the job so a
// caller cannot flip candidates it does not own.
func (s *Store) MarkApplied(ctx context.Context, jobID, candidateID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE candidates SET applied = 1, updated_at = ? WHERE id = ? AND job_id = ?`,
		formatTime(time.Now().UTC()), candidateID, jobID)
	if err != nil {
		return fmt.Errorf("mark applied: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("candidate %s: %w", candidateID, ErrNotFound)
	}
	return nil
}

func (s *Store) candidateByPair(ctx context.Context, jobID, profileID string) (Candidate, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, job_id, profile_id, reasoning, match_score, eagerly_added, applied, created_at, updated_at
		FROM candidates WHERE job_id = ? AND profile_id = ?
	`, jobID, profileID)
	candidate, err := scanCandidate(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Candidate{}, fmt.Errorf("candidate for job %s: %w", jobID, ErrNotFound)
		}
		return Candidate{}, err
	}
	return candidate, nil
}

func scanCandidate(scan func(...any) error) (Candidate, error) {
	var candidate Candidate
	var reasoning sql.NullString
	var matchScore sql.NullInt64
	var eager, applied int
	var createdAtStr, updatedAtStr string
	if err := scan(&candidate.ID, &candidate.JobID, &candidate.ProfileID, &reasoning, &matchScore, &eager, &applied, &createdAtStr, &updatedAtStr); err != nil {
		return Candidate{}, err
	}
	candidate.Reasoning = reasoning.String
	candidate.MatchScore = int(matchScore.Int64)
	candidate.EagerlyAdded = eager != 0
	candidate.Applied = applied != 0
	candidate.CreatedAt = parseTime(createdAtStr)
	candidate.UpdatedAt = parseTime(updatedAtStr)
	return candidate, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
