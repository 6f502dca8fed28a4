package service

import (
	"errors"

	"github.com/arbr39/kaizen/internal/domain"
	"github.com/arbr39/kaizen/internal/repository"
)

var domainErrors = []error{
	domain.ErrAccountNotFound,
	domain.ErrInsufficientFunds,
	domain.ErrItemNotFound,
	domain.ErrItemInactive,
	domain.ErrInvalidItem,
	domain.ErrInvalidRate,
	domain.ErrInvalidContext,
	domain.ErrInboxItemNotFound,
}

// storageErr passes domain errors through and wraps everything else as a
// StorageError for op.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	if domain.IsStorageError(err) {
		return err
	}
	return &domain.StorageError{Op: op, Err: err}
}

// notFoundAs replaces repository.ErrNotFound with the given domain sentinel.
func notFoundAs(err, sentinel error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return sentinel
	}
	return err
}
