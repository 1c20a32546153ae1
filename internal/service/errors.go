package service

import (
	"errors"
	"fmt"

	"github.com/mansoorceksport/mentorlink/internal/domain"
)

var classified = []error{
	domain.ErrNotFound,
	domain.ErrForbidden,
	domain.ErrConflict,
	domain.ErrValidation,
	domain.ErrDependency,
	domain.ErrUnauthenticated,
}

// dependencyOr passes domain errors through and classifies anything else
// (driver, network, broker) as a dependency failure.
func dependencyOr(err error, msg string) error {
	if err == nil {
		return nil
	}
	for _, target := range classified {
		if errors.Is(err, target) {
			return err
		}
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrDependency, msg, err)
}
