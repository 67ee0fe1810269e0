package services

import "errors"

var (
	ErrPlayerNotFound     = errors.New("player not found")
	ErrInvalidPlayerName  = errors.New("player name is required")
	ErrInvalidAttribute   = errors.New("attribute must be one of shooting, pace, physical, defense, aura with a value between 0 and 100")
	ErrPlayerNameTaken    = errors.New("a player with that name already exists")
	ErrEmptyPhoto         = errors.New("photo is empty")
	ErrPhotoStoreDisabled = errors.New("photo storage is not configured")

	ErrMatchNotFound        = errors.New("match not found")
	ErrInvalidCapacity      = errors.New("max players must be an even number of at least 2")
	ErrMatchFull            = errors.New("match is full")
	ErrAlreadyInMatch       = errors.New("player already joined this match")
	ErrInvalidSide          = errors.New("side must be team1 or team2")
	ErrNotEnoughPlayers     = errors.New("at least two players are needed to generate teams")
	ErrVotingStarted        = errors.New("teams cannot change once voting has started")
	ErrRosterLocked         = errors.New("roster is locked once teams are generated")
	ErrMatchAlreadyClosed   = errors.New("match already closed")
	ErrNotParticipant       = errors.New("player is not part of this match")
	ErrTeamsNotAssigned     = errors.New("teams have not been assigned yet")
	ErrInvalidResult        = errors.New("result must be win or loss")
	ErrDuplicateVote        = errors.New("player already reported a result for this match")
	ErrEvaluationNotAllowed = errors.New("evaluator is not allowed to rate this player")
)
