package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const jobVersion = 1

// Job is the stable envelope stored as a sorted-set member.
type Job struct {
	Version    int             `json:"version"`
	ID         string          `json:"id"`
	Lane       string          `json:"lane"`
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
	RunAt      time.Time       `json:"runAt"`
}

func newJob(lane, kind string, payload json.RawMessage, now time.Time, delay time.Duration) Job {
	if delay < 0 {
		delay = 0
	}
	return Job{
		Version:    jobVersion,
		ID:         uuid.NewString(),
		Lane:       lane,
		Kind:       kind,
		Payload:    payload,
		EnqueuedAt: now.UTC(),
		RunAt:      now.Add(delay).UTC(),
	}
}

// Decode unmarshals the job payload into dest.
func (j Job) Decode(dest any) error {
	return json.Unmarshal(j.Payload, dest)
}

// Snapshot renders the job as an audit log entry.
func (j Job) Snapshot() map[string]any {
	var payload any
	if len(j.Payload) > 0 {
		if err := json.Unmarshal(j.Payload, &payload); err != nil {
			payload = string(j.Payload)
		}
	}
	return map[string]any{
		"job_id":       j.ID,
		"queue_name":   j.Lane,
		"job_class":    j.Kind,
		"arguments":    payload,
		"enqueued_at":  j.EnqueuedAt.Format(time.RFC3339Nano),
		"scheduled_at": j.RunAt.Format(time.RFC3339Nano),
	}
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}
