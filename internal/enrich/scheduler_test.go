package enrich

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hireloop/hireloop/internal/realtime"
	"github.com/hireloop/hireloop/internal/store"
	"github.com/hireloop/hireloop/internal/testutil"
)

type fakeDeriver struct {
	mu       sync.Mutex
	calls    int
	inflight int32
	peak     int32
	failFor  map[string]bool
}

func (f *fakeDeriver) DeriveFieldValue(_ context.Context, _ store.Job, _ store.CustomField, profile store.Profile) (string, string, error) {
	cur := atomic.AddInt32(&f.inflight, 1)
	defer atomic.AddInt32(&f.inflight, -1)
	for {
		peak := atomic.LoadInt32(&f.peak)
		if cur <= peak || atomic.CompareAndSwapInt32(&f.peak, peak, cur) {
			break
		}
	}

	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.failFor[profile.Handle] {
		return "", "", errors.New("derivation blew up")
	}
	return "yes", "looks right for " + profile.Handle, nil
}

func (f *fakeDeriver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func setupEnrichment(t *testing.T, candidateCount int) (*store.Store, store.Job, store.CustomField, []store.Candidate, func()) {
	t.Helper()
	db, closeFn := testutil.OpenTestDB(t)
	st := store.NewStore(db)
	ctx := context.Background()

	if _, err := st.CreateOrganization(ctx, "acme", "Acme"); err != nil {
		t.Fatalf("create org: %v", err)
	}
	if _, err := st.CreateUser(ctx, "Recruiter", "r@acme.test", "acme"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	job, err := st.CreateJob(ctx, store.JobInput{
		Handle: "backend-eng", OwnerOrganizationHandle: "acme",
		Title: "Backend Engineer", Description: "Build services",
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	field, err := st.CreateCustomField(ctx, job.ID, "Has Go experience", "Whether the candidate has shipped Go", store.FieldBoolean)
	if err != nil {
		t.Fatalf("create field: %v", err)
	}

	candidates := make([]store.Candidate, 0, candidateCount)
	for i := 0; i < candidateCount; i++ {
		handle := fmt.Sprintf("person-%d", i)
		profile, err := st.CreateProfile(ctx, handle, map[string]any{"name": handle}, 24*time.Hour)
		if err != nil {
			t.Fatalf("create profile: %v", err)
		}
		candidate, _, err := st.CreateCandidate(ctx, store.CandidateInput{JobID: job.ID, ProfileID: profile.ID})
		if err != nil {
			t.Fatalf("create candidate: %v", err)
		}
		candidates = append(candidates, candidate)
	}
	return st, job, field, candidates, closeFn
}

func TestRunComputesOneValuePerCandidate(t *testing.T) {
	st, job, field, candidates, closeFn := setupEnrichment(t, 5)
	defer closeFn()

	deriver := &fakeDeriver{}
	sched := &Scheduler{Store: st, Hub: realtime.NewHub(), Deriver: deriver, BatchSize: 2}

	if err := sched.Run(context.Background(), job, field, candidates); err != nil {
		t.Fatalf("run: %v", err)
	}

	values, err := st.ListFieldValues(context.Background(), field.ID)
	if err != nil {
		t.Fatalf("list values: %v", err)
	}
	if len(values) != 5 {
		t.Fatalf("expected 5 values, got %d", len(values))
	}
	if deriver.callCount() != 5 {
		t.Fatalf("expected 5 derivations, got %d", deriver.callCount())
	}
	if peak := atomic.LoadInt32(&deriver.peak); peak > 2 {
		t.Fatalf("concurrency exceeded batch size: peak %d", peak)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	st, job, field, candidates, closeFn := setupEnrichment(t, 3)
	defer closeFn()

	deriver := &fakeDeriver{}
	sched := &Scheduler{Store: st, Hub: realtime.NewHub(), Deriver: deriver}

	if err := sched.Run(context.Background(), job, field, candidates); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := sched.Run(context.Background(), job, field, candidates); err != nil {
		t.Fatalf("second run: %v", err)
	}

	values, err := st.ListFieldValues(context.Background(), field.ID)
	if err != nil {
		t.Fatalf("list values: %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("second run must be a no-op, got %d values", len(values))
	}
	if deriver.callCount() != 3 {
		t.Fatalf("existing pairs must not be rederived, got %d calls", deriver.callCount())
	}
}

func TestRunIsolatesItemFailures(t *testing.T) {
	st, job, field, candidates, closeFn := setupEnrichment(t, 3)
	defer closeFn()

	deriver := &fakeDeriver{failFor: map[string]bool{"person-1": true}}
	sched := &Scheduler{Store: st, Hub: realtime.NewHub(), Deriver: deriver, BatchSize: 1}

	if err := sched.Run(context.Background(), job, field, candidates); err != nil {
		t.Fatalf("run must not fail on item errors: %v", err)
	}

	values, err := st.ListFieldValues(context.Background(), field.ID)
	if err != nil {
		t.Fatalf("list values: %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("neighbours of the failing item must still be computed, got %d values", len(values))
	}
	for _, v := range values {
		if v.CandidateID == candidates[1].ID {
			t.Fatalf("failing item must not produce a value")
		}
	}
}

func TestRunPublishesEachValue(t *testing.T) {
	st, job, field, candidates, closeFn := setupEnrichment(t, 2)
	defer closeFn()

	hub := realtime.NewHub()
	userIDs, err := st.OrganizationUserIDs(context.Background(), "acme")
	if err != nil || len(userIDs) == 0 {
		t.Fatalf("org users: %v", err)
	}
	conn := hub.Register(userIDs[0])
	defer hub.Unregister(conn)

	sched := &Scheduler{Store: st, Hub: hub, Deriver: &fakeDeriver{}}
	if err := sched.Run(context.Background(), job, field, candidates); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := realtime.Topic(job.ID, realtime.KindCustomFieldValueCreated)
	for i := 0; i < 2; i++ {
		select {
		case env := <-conn.Recv():
			if env.MessageType != want {
				t.Fatalf("unexpected topic: %s", env.MessageType)
			}
			if env.Data["customFieldValue"] == nil || env.Data["customField"] == nil {
				t.Fatalf("value broadcast missing payload: %+v", env.Data)
			}
		default:
			t.Fatalf("expected %d broadcasts, got %d", 2, i)
		}
	}
}
