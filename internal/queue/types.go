package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobType identifies a kind of background work
type JobType string

const (
	// JobTypeReferralVerified credits the referrer after a referred user is verified
	JobTypeReferralVerified JobType = "referral_verified"

	// JobTypeProcessPayout initiates the gateway payout for an approved withdrawal
	JobTypeProcessPayout JobType = "process_payout"

	// JobTypeCheckPayoutStatus polls an in-flight payout transfer
	JobTypeCheckPayoutStatus JobType = "check_payout_status"
)

// Job is a unit of background work
type Job struct {
	ID         uuid.UUID       `json:"id"`
	Type       JobType         `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	RetryCount int             `json:"retry_count"`
	MaxRetries int             `json:"max_retries"`
	CreatedAt  time.Time       `json:"created_at"`
}

// JobHandler processes a single job. Returning an error schedules a retry
// with exponential backoff until MaxRetries is exhausted.
type JobHandler func(ctx context.Context, job *Job) error

// Enqueuer is the narrow interface services use to submit jobs
type Enqueuer interface {
	Enqueue(job *Job) error
	EnqueueIn(delay time.Duration, job *Job) error
}

// NewJob builds a job with a marshaled payload
func NewJob(jobType JobType, payload interface{}) (*Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		Payload:    data,
		MaxRetries: 5,
		CreatedAt:  time.Now(),
	}, nil
}
