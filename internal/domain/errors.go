package domain

import "errors"

var (
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrAlreadyRented      = errors.New("already rented")
	ErrOverlappingRental  = errors.New("overlapping rental")
	ErrNotInExpectedState = errors.New("not in expected state")
	ErrInvalidDateRange   = errors.New("invalid date range")
	ErrUsageNotTracked    = errors.New("usage not tracked")
	ErrNotFound           = errors.New("not found")
	ErrVersionConflict    = errors.New("version conflict")
	ErrBusy               = errors.New("busy")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrHasOpenRental      = errors.New("has open rental")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrForbidden          = errors.New("forbidden")
)

// IsRetryable reports whether the caller may retry the command unchanged.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrBusy)
}

var kinds = []struct {
	err  error
	name string
}{
	// AlreadyRented must be matched before OverlappingRental.
	{ErrAlreadyRented, "ALREADY_RENTED"},
	{ErrOverlappingRental, "OVERLAPPING_RENTAL"},
	{ErrInvalidTransition, "INVALID_TRANSITION"},
	{ErrNotInExpectedState, "NOT_IN_EXPECTED_STATE"},
	{ErrInvalidDateRange, "INVALID_DATE_RANGE"},
	{ErrUsageNotTracked, "USAGE_NOT_TRACKED"},
	{ErrNotFound, "NOT_FOUND"},
	{ErrVersionConflict, "VERSION_CONFLICT"},
	{ErrBusy, "BUSY"},
	{ErrStoreUnavailable, "STORE_UNAVAILABLE"},
	{ErrHasOpenRental, "HAS_OPEN_RENTAL"},
	{ErrInvalidArgument, "INVALID_ARGUMENT"},
	{ErrForbidden, "FORBIDDEN"},
}

// ErrorKind returns the stable name callers show to users, or "INTERNAL".
func ErrorKind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "INTERNAL"
}
