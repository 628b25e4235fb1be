package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/autopeer-io/fleetsim/internal/pkg/util"
)

// toStatus maps fleet error kinds onto gRPC codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	return status.Error(Code(err), err.Error())
}

func Code(err error) codes.Code {
	switch {
	case errors.Is(err, util.ErrAlreadyRegistered):
		return codes.AlreadyExists
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	}

	switch util.KindOf(err) {
	case util.KindNotFound:
		return codes.NotFound
	case util.KindCommand:
		return codes.InvalidArgument
	case util.KindConfiguration, util.KindInitialization, util.KindPlacement:
		return codes.FailedPrecondition
	case util.KindTerminated:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}
