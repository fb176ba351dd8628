package queue

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/notifyd/pkg/errors"
)

type fakeStore struct {
	mu      sync.Mutex
	sets    map[string]map[string]float64
	zaddErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{sets: make(map[string]map[string]float64)}
}

func (f *fakeStore) ZAdd(_ context.Context, key string, score float64, member string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.zaddErr != nil {
		return f.zaddErr
	}
	if f.sets[key] == nil {
		f.sets[key] = make(map[string]float64)
	}
	f.sets[key][member] = score
	return nil
}

func (f *fakeStore) ZRangeByScore(_ context.Context, key string, max float64, limit int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	type entry struct {
		member string
		score  float64
	}
	var entries []entry
	for m, s := range f.sets[key] {
		if s <= max {
			entries = append(entries, entry{m, s})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].score < entries[j].score })
	var out []string
	for _, e := range entries {
		if int64(len(out)) >= limit {
			break
		}
		out = append(out, e.member)
	}
	return out, nil
}

func (f *fakeStore) ZRem(_ context.Context, key string, member string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sets[key][member]; !ok {
		return false, nil
	}
	delete(f.sets[key], member)
	return true, nil
}

func (f *fakeStore) ZCard(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.sets[key])), nil
}

func (f *fakeStore) QueueKey(lane string) string { return "test:" + lane }

func newTestQueue(t *testing.T, store *fakeStore, now time.Time) *Queue {
	t.Helper()
	q, err := New(store)
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	q.now = func() time.Time { return now }
	return q
}

func TestNewRequiresStore(t *testing.T) {
	if _, err := New(nil); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestEnqueueAndClaimImmediate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	q := newTestQueue(t, store, now)

	job, err := q.Enqueue(ctx, "sms", "sms.deliver", map[string]string{"id": "abc"}, 0)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if job.Lane != "sms" || job.Kind != "sms.deliver" || job.ID == "" {
		t.Fatalf("unexpected job %+v", job)
	}
	if !job.RunAt.Equal(now) {
		t.Fatalf("expected run at now, got %s", job.RunAt)
	}

	jobs, err := q.Claim(ctx, "sms", 10)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != job.ID {
		t.Fatalf("expected claimed job %s, got %+v", job.ID, jobs)
	}
	var payload map[string]string
	if err := jobs[0].Decode(&payload); err != nil || payload["id"] != "abc" {
		t.Fatalf("unexpected payload %v err=%v", payload, err)
	}

	again, err := q.Claim(ctx, "sms", 10)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("claimed job must not be returned twice, got %+v", again)
	}
}

func TestClaimRespectsDelay(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	q := newTestQueue(t, store, now)

	if _, err := q.Enqueue(ctx, "mailers", "mail.deliver", nil, 5*time.Minute); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	jobs, err := q.Claim(ctx, "mailers", 10)
	if err != nil || len(jobs) != 0 {
		t.Fatalf("delayed job must not be due yet, jobs=%v err=%v", jobs, err)
	}

	q.now = func() time.Time { return now.Add(5 * time.Minute) }
	jobs, err = q.Claim(ctx, "mailers", 10)
	if err != nil || len(jobs) != 1 {
		t.Fatalf("expected delayed job to be due, jobs=%v err=%v", jobs, err)
	}
}

func TestClaimIsolatesLanes(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	q := newTestQueue(t, newFakeStore(), now)

	if _, err := q.Enqueue(ctx, "sms", "sms.deliver", nil, 0); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	jobs, err := q.Claim(ctx, "mailers", 10)
	if err != nil || len(jobs) != 0 {
		t.Fatalf("expected no jobs on other lane, got %v err=%v", jobs, err)
	}
	depth, err := q.Depth(ctx, "sms")
	if err != nil || depth != 1 {
		t.Fatalf("expected depth 1, got %d err=%v", depth, err)
	}
}

func TestClaimDropsUndecodableMembers(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := newFakeStore()
	q := newTestQueue(t, store, now)

	_ = store.ZAdd(ctx, store.QueueKey("sms"), 0, "{broken")
	if _, err := q.Enqueue(ctx, "sms", "sms.deliver", nil, 0); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	jobs, err := q.Claim(ctx, "sms", 10)
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if len(jobs) != 1 {
		t.Fatalf("expected valid job to still be claimed, got %d", len(jobs))
	}
	if depth, _ := q.Depth(ctx, "sms"); depth != 0 {
		t.Fatalf("broken member should be removed, depth=%d", depth)
	}
}

func TestClaimConcurrentAtMostOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := newFakeStore()
	q := newTestQueue(t, store, now)

	const total = 50
	for i := 0; i < total; i++ {
		if _, err := q.Enqueue(ctx, "sms", "sms.deliver", i, 0); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]int)
	)
	for w := 0; w < 5; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				jobs, err := q.Claim(ctx, "sms", 7)
				if err != nil {
					t.Errorf("claim: %v", err)
					return
				}
				if len(jobs) == 0 {
					return
				}
				mu.Lock()
				for _, j := range jobs {
					seen[j.ID]++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != total {
		t.Fatalf("expected %d distinct jobs, got %d", total, len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("job %s claimed %d times", id, n)
		}
	}
}

func TestEnqueueValidation(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t, newFakeStore(), time.Now())

	if _, err := q.Enqueue(ctx, " ", "sms.deliver", nil, 0); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for blank lane, got %v", err)
	}
	if _, err := q.Enqueue(ctx, "sms", "", nil, 0); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for blank kind, got %v", err)
	}
	if _, err := q.Enqueue(ctx, "sms", "k", func() {}, 0); !pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected internal error for unencodable payload, got %v", err)
	}
}

func TestEnqueueStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.zaddErr = errors.New("connection refused")
	q := newTestQueue(t, store, time.Now())

	if _, err := q.Enqueue(context.Background(), "sms", "sms.deliver", nil, 0); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestJobSnapshot(t *testing.T) {
	q := newTestQueue(t, newFakeStore(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	job, err := q.Enqueue(context.Background(), "sms", "sms.deliver", map[string]string{"id": "x"}, time.Second)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	snap := job.Snapshot()
	if snap["queue_name"] != "sms" || snap["job_class"] != "sms.deliver" || snap["job_id"] != job.ID {
		t.Fatalf("unexpected snapshot %v", snap)
	}
	args, ok := snap["arguments"].(map[string]any)
	if !ok || args["id"] != "x" {
		t.Fatalf("expected decoded arguments, got %v", snap["arguments"])
	}
	if snap["scheduled_at"] != "2024-01-01T00:00:01Z" {
		t.Fatalf("unexpected scheduled_at %v", snap["scheduled_at"])
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	var got string
	reg.Register("b.kind", func(_ context.Context, job Job) error {
		got = job.ID
		return nil
	})
	reg.Register("a.kind", func(context.Context, Job) error { return errors.New("boom") })

	if err := reg.Handle(context.Background(), Job{ID: "1", Kind: "b.kind"}); err != nil || got != "1" {
		t.Fatalf("expected handler to run, got=%s err=%v", got, err)
	}
	if err := reg.Handle(context.Background(), Job{Kind: "a.kind"}); err == nil {
		t.Fatalf("expected handler error to propagate")
	}
	if err := reg.Handle(context.Background(), Job{Kind: "missing"}); err == nil {
		t.Fatalf("expected error for unregistered kind")
	}
	kinds := reg.Kinds()
	if len(kinds) != 2 || kinds[0] != "a.kind" || kinds[1] != "b.kind" {
		t.Fatalf("unexpected kinds %v", kinds)
	}
}
