package validation

import (
	"errors"
	"fmt"

	"shopcsv/internal/logger"
	"shopcsv/internal/queue"

	"github.com/google/uuid"
)

var ErrInvalidEvent = errors.New("invalid event")

type Validator struct {
	logger *logger.Logger
}

func New(logger *logger.Logger) *Validator {
	return &Validator{
		logger: logger,
	}
}

// ValidateEvent checks that a report event names a job and a store by uuid.
func (v *Validator) ValidateEvent(event queue.Event) error {
	v.logger.Debug("Validating event: %+v", event)

	if event.Type == "" {
		return fmt.Errorf("%w: missing type", ErrInvalidEvent)
	}
	if _, err := uuid.Parse(event.JobID); err != nil {
		return fmt.Errorf("%w: job_id %q: %v", ErrInvalidEvent, event.JobID, err)
	}
	if _, err := uuid.Parse(event.StoreID); err != nil {
		return fmt.Errorf("%w: store_id %q: %v", ErrInvalidEvent, event.StoreID, err)
	}
	return nil
}
