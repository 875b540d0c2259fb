package service

import "errors"

// Policy violations: the request conflicts with the target's current
// state or standing. Recoverable, surfaced to the caller as a notice,
// never logged as errors.
var (
	// ErrPrivilegedTarget means the target is the chat owner or an
	// administrator and may not be sanctioned
	ErrPrivilegedTarget = errors.New("target is a chat owner or administrator")

	// ErrAlreadyRestricted means the target is already muted and
	// extend was not requested
	ErrAlreadyRestricted = errors.New("user is already muted")

	// ErrNotRestricted means the target is not muted
	ErrNotRestricted = errors.New("user is not muted")

	// ErrAlreadyBanned means the target is already banned and extend
	// was not requested
	ErrAlreadyBanned = errors.New("user is already banned")

	// ErrNoActiveWarnings means the target's warning counter is zero
	ErrNoActiveWarnings = errors.New("user has no active warnings")

	// ErrNoRecords means a history query matched nothing
	ErrNoRecords = errors.New("no history records")
)

// IsPolicyViolation reports whether err is one of the recoverable
// policy violations, as opposed to a platform or storage failure.
func IsPolicyViolation(err error) bool {
	for _, sentinel := range []error{
		ErrPrivilegedTarget,
		ErrAlreadyRestricted,
		ErrNotRestricted,
		ErrAlreadyBanned,
		ErrNoActiveWarnings,
		ErrNoRecords,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
