package domain

import "errors"

// Domain errors. All of these are expected, recoverable outcomes reported to
// the caller as typed results; none of them signals a defect.
var (
	ErrMatchNotFound       = errors.New("match not found")
	ErrCompetitionNotFound = errors.New("competition not found")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrTeamNotFound        = errors.New("team not found")
	ErrVotingClosed        = errors.New("voting is closed for this match")
	ErrIneligibleCandidate = errors.New("candidate is not registered to either team of this match")
	ErrDuplicateVote       = errors.New("this identity has already voted for this match")
	ErrConflict            = errors.New("write conflict")
	ErrInvalidEventType    = errors.New("invalid event type")
	ErrRateLimited         = errors.New("rate limit exceeded")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInternalError       = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrMatchNotFound) ||
		errors.Is(err, ErrCompetitionNotFound) ||
		errors.Is(err, ErrPlayerNotFound) ||
		errors.Is(err, ErrTeamNotFound)
}
