// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"github.com/bvilove/datebot/internal/cache"
	"github.com/bvilove/datebot/internal/matching"
	"github.com/bvilove/datebot/internal/preference"
	"github.com/bvilove/datebot/internal/repository"
	"github.com/bvilove/datebot/internal/utils/pagination"
)

// Map converts domain/repo/infra errors into gRPC-friendly status errors.
// Keeps service layer clean by centralizing error mapping.
func Map(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err // already a status
	}

	switch {
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrDatingNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, repository.ErrInvalidProfile),
		errors.Is(err, preference.ErrInvalidGrade),
		errors.Is(err, preference.ErrInvalidGender),
		errors.Is(err, preference.ErrInvalidLocationFilter),
		errors.Is(err, pagination.ErrInvalidToken):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, gorm.ErrDuplicatedKey):
		return AlreadyExists(err.Error())

	case errors.Is(err, matching.ErrInvalidPreferenceState),
		errors.Is(err, matching.ErrPurposeNotSet),
		errors.Is(err, repository.ErrIncompleteProfile):
		return status.Error(codes.FailedPrecondition, err.Error())

	// corrupt stored bit patterns
	case errors.Is(err, preference.ErrInvalidSubjectBits),
		errors.Is(err, preference.ErrInvalidPurposeBits):
		return status.Error(codes.DataLoss, err.Error())

	case errors.Is(err, cache.ErrLockHeld):
		return status.Error(codes.Aborted, err.Error())

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request was canceled")

	default:
		// fallback → bubble up error message for debugging
		return status.Error(codes.Internal, err.Error())
	}
}

// InvalidArgument creates a gRPC InvalidArgument error.
// Use this in service layer for bad input validation.
func InvalidArgument(msg string) error {
	return status.Error(codes.InvalidArgument, msg)
}

// AlreadyExists creates a gRPC AlreadyExists error.
func AlreadyExists(msg string) error {
	return status.Error(codes.AlreadyExists, msg)
}
