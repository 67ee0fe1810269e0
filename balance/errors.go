package balance

import "errors"

var (
	ErrEvenCountRequired      = errors.New("balance: an even number of players is required")
	ErrGroupTooLarge          = errors.New("balance: group is larger than half the roster")
	ErrTooManyMultiUnitGroups = errors.New("balance: at most two groups of two or more players are allowed")
	ErrDuplicatePlayer        = errors.New("balance: player appears in more than one unit")

	// ErrInfeasiblePartition means no combination of whole units fills exactly half the roster.
	ErrInfeasiblePartition = errors.New("balance: no even split keeps every group together")
)

// IsValidation reports whether err is a roster validation failure, as opposed
// to a well-formed roster with no feasible split.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEvenCountRequired) ||
		errors.Is(err, ErrGroupTooLarge) ||
		errors.Is(err, ErrTooManyMultiUnitGroups) ||
		errors.Is(err, ErrDuplicatePlayer)
}
