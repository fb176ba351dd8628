package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"

	pkgerrors "github.com/angelmondragon/notifyd/pkg/errors"
	"github.com/angelmondragon/notifyd/pkg/redis"
)

// Enqueuer schedules work on a named lane.
type Enqueuer interface {
	Enqueue(ctx context.Context, lane, kind string, payload any, delay time.Duration) (*Job, error)
}

// Queue is a delayed job queue backed by one redis sorted set per lane,
// scored by the time a job becomes due.
type Queue struct {
	store redis.SortedSetStore
	now   func() time.Time
}

// New constructs a queue over the sorted-set store.
func New(store redis.SortedSetStore) (*Queue, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "queue store required")
	}
	return &Queue{store: store, now: time.Now}, nil
}

// Enqueue stores a job that becomes claimable after delay.
func (q *Queue) Enqueue(ctx context.Context, lane, kind string, payload any, delay time.Duration) (*Job, error) {
	lane = strings.TrimSpace(lane)
	if lane == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "queue lane required")
	}
	if strings.TrimSpace(kind) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job kind required")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode job payload")
	}
	job := newJob(lane, kind, raw, q.now(), delay)
	member, err := json.Marshal(job)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode job")
	}
	if err := q.store.ZAdd(ctx, q.store.QueueKey(lane), score(job.RunAt), string(member)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enqueue job")
	}
	return &job, nil
}

// Claim removes and returns up to limit due jobs from the lane. A job is
// returned to at most one caller: only the caller whose ZREM removed the
// member receives it. Members that cannot be decoded are dropped and
// reported in the returned error alongside any claimed jobs.
func (q *Queue) Claim(ctx context.Context, lane string, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 1
	}
	key := q.store.QueueKey(lane)
	members, err := q.store.ZRangeByScore(ctx, key, score(q.now()), int64(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due jobs")
	}

	var (
		jobs []Job
		errs error
	)
	for _, member := range members {
		won, err := q.store.ZRem(ctx, key, member)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("claim job: %w", err))
			continue
		}
		if !won {
			continue
		}
		var job Job
		if err := json.Unmarshal([]byte(member), &job); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("decode job: %w", err))
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, errs
}

// Depth reports how many jobs are waiting on the lane, due or not.
func (q *Queue) Depth(ctx context.Context, lane string) (int64, error) {
	return q.store.ZCard(ctx, q.store.QueueKey(lane))
}
