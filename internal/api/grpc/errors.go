package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"divecenter-backend/internal/domain"
)

// errorKindTrailer carries domain.ErrorKind so clients can branch without parsing messages.
const errorKindTrailer = "error-kind"

var errorCodes = []struct {
	err  error
	code codes.Code
}{
	{domain.ErrNotFound, codes.NotFound},
	{domain.ErrAlreadyRented, codes.FailedPrecondition},
	{domain.ErrOverlappingRental, codes.FailedPrecondition},
	{domain.ErrInvalidTransition, codes.FailedPrecondition},
	{domain.ErrNotInExpectedState, codes.FailedPrecondition},
	{domain.ErrHasOpenRental, codes.FailedPrecondition},
	{domain.ErrInvalidDateRange, codes.InvalidArgument},
	{domain.ErrUsageNotTracked, codes.InvalidArgument},
	{domain.ErrInvalidArgument, codes.InvalidArgument},
	{domain.ErrVersionConflict, codes.Aborted},
	{domain.ErrBusy, codes.Unavailable},
	{domain.ErrStoreUnavailable, codes.Unavailable},
	{domain.ErrForbidden, codes.PermissionDenied},
	{context.DeadlineExceeded, codes.DeadlineExceeded},
	{context.Canceled, codes.Canceled},
}

// toStatus converts a service error into a gRPC status error.
func toStatus(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	_ = grpc.SetTrailer(ctx, metadata.Pairs(errorKindTrailer, domain.ErrorKind(err)))
	for _, m := range errorCodes {
		if errors.Is(err, m.err) {
			return status.Error(m.code, err.Error())
		}
	}
	return status.Error(codes.Internal, err.Error())
}
