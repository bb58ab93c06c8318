package services

import (
	"errors"
	"fmt"
)

var (
	ErrTrackerNotFound = errors.New("tracker not found")
	ErrDelivery        = errors.New("alert delivery failed")
	ErrPersistence     = errors.New("observation write-back failed")
)

// DeliveryError represents a notifier failure for one recipient
type DeliveryError struct {
	Sink    string
	OwnerID int64
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s delivery to %d failed: %v", e.Sink, e.OwnerID, e.Err)
}

func (e *DeliveryError) Unwrap() []error {
	return []error{ErrDelivery, e.Err}
}

// PersistenceError represents a failed observation write-back
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%v: %v", ErrPersistence, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}
