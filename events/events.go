// Package events publishes match lifecycle events to other services.
package events

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"pickup-match-system/models"
)

const (
	ExchangeMatchEvents = "match_events"
	ExchangeTypeFanout  = "fanout"

	EventTypeMatchClosed = "match.closed"
)

// MatchClosed is emitted once, after the closing transaction commits.
type MatchClosed struct {
	EventType  string      `json:"event_type"`
	MatchID    string      `json:"match_id"`
	WinnerSide models.Side `json:"winner_side"`
	Trigger    string      `json:"trigger"`
	Team1Votes int         `json:"team1_votes"`
	Team2Votes int         `json:"team2_votes"`
	Players    []string    `json:"players"`
	ClosedAt   time.Time   `json:"closed_at"`
}

// Emitter delivers match events. Implementations must be safe for concurrent use.
type Emitter interface {
	PublishMatchClosed(ctx context.Context, evt MatchClosed) error
}

// LogEmitter only logs. Used when no broker is configured.
type LogEmitter struct{}

func (LogEmitter) PublishMatchClosed(ctx context.Context, evt MatchClosed) error {
	log.Info().
		Str("match_id", evt.MatchID).
		Str("winner", string(evt.WinnerSide)).
		Str("trigger", evt.Trigger).
		Msg("[EVENTS] match closed")
	return nil
}
