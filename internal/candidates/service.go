// Package candidates adds sourced profiles to a job, either from the agent's
// add-candidate tool or from the explicit add endpoint.
package candidates

import (
	"context"
	"fmt"
	"time"

	"github.com/hireloop/hireloop/internal/realtime"
	"github.com/hireloop/hireloop/internal/store"
)

// ProfileFetcher pulls raw profile data for an external handle. The network
// source behind it is a black box.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, handle string) (map[string]any, error)
}

// ProfileFetcherFunc adapts a function to ProfileFetcher.
type ProfileFetcherFunc func(ctx context.Context, handle string) (map[string]any, error)

func (f ProfileFetcherFunc) FetchProfile(ctx context.Context, handle string) (map[string]any, error) {
	return f(ctx, handle)
}

const DefaultProfileTTL = 30 * 24 * time.Hour

type Service struct {
	Store      *store.Store
	Hub        *realtime.Hub
	Fetcher    ProfileFetcher
	ProfileTTL time.Duration
}

type AddInput struct {
	JobID        string
	Handle       string
	MatchScore   int
	Reasoning    string
	EagerlyAdded bool
}

// Add resolves the handle to a cached profile and attaches it to the job as a
// candidate. Both the profile create and the candidate create tolerate
// concurrent duplicates: the profile loser adopts the winner's row via the
// unique handle, and the candidate path re-checks the (job, profile) pair
// before insert. Returns the candidate and whether it was newly created.
func (s *Service) Add(ctx context.Context, input AddInput) (store.Candidate, bool, error) {
	job, err := s.Store.GetJob(ctx, input.JobID)
	if err != nil {
		return store.Candidate{}, false, err
	}

	profile, err := s.resolveProfile(ctx, input.Handle)
	if err != nil {
		return store.Candidate{}, false, err
	}

	candidate, created, err := s.Store.CreateCandidate(ctx, store.CandidateInput{
		JobID:        job.ID,
		ProfileID:    profile.ID,
		Reasoning:    input.Reasoning,
		MatchScore:   input.MatchScore,
		EagerlyAdded: input.EagerlyAdded,
	})
	if err != nil {
		return store.Candidate{}, false, err
	}

	if created {
		s.broadcastAdded(ctx, job, candidate, profile)
	}
	return candidate, created, nil
}

func (s *Service) resolveProfile(ctx context.Context, handle string) (store.Profile, error) {
	ttl := s.ProfileTTL
	if ttl <= 0 {
		ttl = DefaultProfileTTL
	}

	profile, err := s.Store.ProfileByHandle(ctx, handle)
	if err == nil && !profile.Expired() {
		return profile, nil
	}

	data, fetchErr := s.Fetcher.FetchProfile(ctx, handle)
	if fetchErr != nil {
		return store.Profile{}, fmt.Errorf("fetch profile %s: %w", handle, fetchErr)
	}

	if err == nil {
		return s.Store.RefreshProfile(ctx, profile.ID, data, ttl)
	}
	return s.Store.CreateProfile(ctx, handle, data, ttl)
}

func (s *Service) broadcastAdded(ctx context.Context, job store.Job, candidate store.Candidate, profile store.Profile) {
	userIDs, err := s.Store.OrganizationUserIDs(ctx, job.OwnerOrganizationHandle)
	if err != nil || len(userIDs) == 0 {
		return
	}
	s.Hub.BroadcastToUsers(userIDs, realtime.Envelope{
		MessageType: realtime.Topic(job.ID, realtime.KindCandidateAdded),
		Data: map[string]any{
			"candidate": candidate,
			"profile":   profile,
			"jobId":     job.ID,
		},
	})
}
