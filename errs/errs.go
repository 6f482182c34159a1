// Package errs holds the error taxonomy shared by the scheduler packages.
//
// Every failure is one of the sentinels below wrapped with fault context, so
// callers can branch with errors.Is or read the kind with ftag.Get.
package errs

import (
	"errors"
	"fmt"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

var (
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrDuplicateFragment    = errors.New("duplicate fragment")
	ErrNotFound             = errors.New("fragment not found")
	ErrAlreadyPlaying       = errors.New("already playing")
	ErrNotPlaying           = errors.New("not playing")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrWorkerUnavailable    = errors.New("tick worker unavailable")
	ErrTickFault            = errors.New("tick delivery failed")
)

// Kinds attached with ftag.
const (
	KindInvalidArgument      ftag.Kind = "INVALID_ARGUMENT"
	KindDuplicateFragment    ftag.Kind = "DUPLICATE_FRAGMENT"
	KindNotFound             ftag.Kind = "NOT_FOUND"
	KindAlreadyPlaying       ftag.Kind = "ALREADY_PLAYING"
	KindNotPlaying           ftag.Kind = "NOT_PLAYING"
	KindUnsupportedOperation ftag.Kind = "UNSUPPORTED_OPERATION"
	KindWorkerUnavailable    ftag.Kind = "WORKER_UNAVAILABLE"
	KindTickFault            ftag.Kind = "TICK_FAULT"
)

func wrap(sentinel error, kind ftag.Kind, format string, args ...any) error {
	return fault.Wrap(sentinel,
		fmsg.With(fmt.Sprintf(format, args...)),
		ftag.With(kind),
	)
}

func InvalidArgument(format string, args ...any) error {
	return wrap(ErrInvalidArgument, KindInvalidArgument, format, args...)
}

func DuplicateFragment(format string, args ...any) error {
	return wrap(ErrDuplicateFragment, KindDuplicateFragment, format, args...)
}

func NotFound(format string, args ...any) error {
	return wrap(ErrNotFound, KindNotFound, format, args...)
}

func AlreadyPlaying(format string, args ...any) error {
	return wrap(ErrAlreadyPlaying, KindAlreadyPlaying, format, args...)
}

func NotPlaying(format string, args ...any) error {
	return wrap(ErrNotPlaying, KindNotPlaying, format, args...)
}

func Unsupported(format string, args ...any) error {
	return wrap(ErrUnsupportedOperation, KindUnsupportedOperation, format, args...)
}

// WorkerUnavailable wraps the cause that kept an isolated tick worker from starting.
func WorkerUnavailable(cause error, format string, args ...any) error {
	if cause == nil {
		cause = ErrWorkerUnavailable
	} else {
		cause = fmt.Errorf("%w: %w", ErrWorkerUnavailable, cause)
	}
	return fault.Wrap(cause,
		fmsg.With(fmt.Sprintf(format, args...)),
		ftag.With(KindWorkerUnavailable),
	)
}

// TickFault reports a tick that could not be delivered, such as a panicking
// subscriber or a crashed worker.
func TickFault(format string, args ...any) error {
	return wrap(ErrTickFault, KindTickFault, format, args...)
}
