package report

import (
	"errors"
	"fmt"
)

// ErrAuthentication means the session is missing, incomplete, or was rejected by Shopify.
var ErrAuthentication = errors.New("authentication required")

// RemoteLookupError wraps a failed Shopify call made while building the report.
type RemoteLookupError struct {
	Op      string
	OrderID int64
	Err     error
}

func (e *RemoteLookupError) Error() string {
	if e.OrderID == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s for order %d: %v", e.Op, e.OrderID, e.Err)
}

func (e *RemoteLookupError) Unwrap() error {
	return e.Err
}

// EncodingError wraps a failure of the CSV writer.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode csv: %v", e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}
