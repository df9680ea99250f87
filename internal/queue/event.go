package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const EventReportRequested = "report.requested"

// ErrRedeliver marks a processing error whose outcome was not recorded. The
// message must not be committed.
var ErrRedeliver = errors.New("event must be redelivered")

// Redeliver wraps err with ErrRedeliver.
func Redeliver(err error) error {
	return fmt.Errorf("%w: %w", ErrRedeliver, err)
}

// Event is the message exchanged between the API and the worker.
type Event struct {
	Type      string    `json:"type"`
	JobID     string    `json:"job_id"`
	StoreID   string    `json:"store_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReportRequested(jobID, storeID string) Event {
	return Event{
		Type:      EventReportRequested,
		JobID:     jobID,
		StoreID:   storeID,
		Timestamp: time.Now().UTC(),
	}
}

func Decode(data []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return Event{}, fmt.Errorf("failed to parse event: %w", err)
	}
	return event, nil
}
