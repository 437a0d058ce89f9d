// Package enrich computes derived custom-field values for a job's
// candidates in the background.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/hireloop/hireloop/internal/realtime"
	"github.com/hireloop/hireloop/internal/store"
)

// Deriver produces one typed field value for a candidate. The generation
// step behind it is a black box.
type Deriver interface {
	DeriveFieldValue(ctx context.Context, job store.Job, field store.CustomField, profile store.Profile) (value, reasoning string, err error)
}

const DefaultBatchSize = 10

type Scheduler struct {
	Store     *store.Store
	Hub       *realtime.Hub
	Deriver   Deriver
	BatchSize int
}

// Run computes at most one value per (candidate, field) pair. Candidates are
// processed in fixed-size batches: batches run strictly in sequence, items
// within a batch run concurrently, so peak concurrency is the batch size. A
// failing item is logged and skipped; Run finishes once every item has been
// attempted.
func (s *Scheduler) Run(ctx context.Context, job store.Job, field store.CustomField, candidates []store.Candidate) error {
	batchSize := s.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	audience, err := s.Store.OrganizationUserIDs(ctx, job.OwnerOrganizationHandle)
	if err != nil {
		return fmt.Errorf("load broadcast audience: %w", err)
	}

	for start := 0; start < len(candidates); start += batchSize {
		end := start + batchSize
		if end > len(candidates) {
			end = len(candidates)
		}

		g := new(errgroup.Group)
		for _, candidate := range candidates[start:end] {
			g.Go(func() error {
				if err := s.processCandidate(ctx, job, field, candidate, audience); err != nil {
					log.Printf("enrich candidate %s field %s: %v", candidate.ID, field.ID, err)
				}
				return nil
			})
		}
		_ = g.Wait()
	}
	return nil
}

// RunForJob enriches every existing candidate of the job for one field, the
// path taken when a field definition is created.
func (s *Scheduler) RunForJob(ctx context.Context, job store.Job, field store.CustomField) error {
	candidates, err := s.Store.ListCandidates(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("list candidates: %w", err)
	}
	return s.Run(ctx, job, field, candidates)
}

func (s *Scheduler) processCandidate(ctx context.Context, job store.Job, field store.CustomField, candidate store.Candidate, audience []string) error {
	_, err := s.Store.FieldValue(ctx, field.ID, candidate.ID)
	if err == nil {
		// Already computed; never recomputed or overwritten.
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	profile, err := s.Store.ProfileByID(ctx, candidate.ProfileID)
	if err != nil {
		return err
	}

	value, reasoning, err := s.Deriver.DeriveFieldValue(ctx, job, field, profile)
	if err != nil {
		return fmt.Errorf("derive value: %w", err)
	}

	fieldValue, err := s.Store.CreateFieldValue(ctx, field.ID, candidate.ID, value, reasoning)
	if err != nil {
		return err
	}

	s.Hub.BroadcastToUsers(audience, realtime.Envelope{
		MessageType: realtime.Topic(job.ID, realtime.KindCustomFieldValueCreated),
		Data: map[string]any{
			"customFieldValue": fieldValue,
			"customField":      field,
		},
	})
	return nil
}
