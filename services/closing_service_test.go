package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"pickup-match-system/consensus"
	"pickup-match-system/models"
)

// votes7to1 casts seven credits for team1 and one for team2 out of a ten player match.
func votes7to1(t *testing.T, f *fixture, matchID string) (team1, team2 []string) {
	team1, team2 = f.sides(t, matchID)
	require.Len(t, team1, 5)
	for _, id := range team1 {
		f.vote(t, matchID, id, models.VoteWin)
	}
	f.vote(t, matchID, team2[0], models.VoteLoss)
	f.vote(t, matchID, team2[1], models.VoteLoss)
	f.vote(t, matchID, team2[2], models.VoteWin)
	return team1, team2
}

func TestTickClosesOnIrreversibleLead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, _ := f.balancedMatch(t, 10)
	team1, team2 := votes7to1(t, f, m.ID)
	f.clock.Advance(2 * time.Hour)

	closed, err := f.closer.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	got := f.reload(t, m.ID)
	require.NotNil(t, got.WinnerSide)
	assert.Equal(t, models.SideTeam1, *got.WinnerSide)
	assert.Equal(t, models.CloseTriggerIrreversible, got.CloseTrigger)
	assert.Equal(t, 7, got.VotesTeam1)
	assert.Equal(t, 1, got.VotesTeam2)

	var pending int64
	require.NoError(t, f.db.Model(&models.MatchVote{}).Where("pending = ?", true).Count(&pending).Error)
	assert.Zero(t, pending)

	winner := f.player(t, team1[0])
	assert.Equal(t, 1, winner.GamesPlayed)
	assert.Equal(t, 1, winner.GamesWon)
	assert.Equal(t, []bool{true}, winner.RecentResults)
	assert.Equal(t, 1050, winner.Elo)

	loser := f.player(t, team2[0])
	assert.Equal(t, 1, loser.GamesPlayed)
	assert.Equal(t, 0, loser.GamesWon)
	assert.Equal(t, 950, loser.Elo)

	var perms int64
	require.NoError(t, f.db.Model(&models.EvaluationPermission{}).Where("match_id = ?", m.ID).Count(&perms).Error)
	assert.EqualValues(t, 90, perms)

	var notes int64
	require.NoError(t, f.db.Model(&models.Notification{}).Where("match_id = ?", m.ID).Count(&notes).Error)
	assert.EqualValues(t, 20, notes)

	require.Equal(t, 1, f.emitter.count())
	evt := f.emitter.events[0]
	assert.Equal(t, m.ID, evt.MatchID)
	assert.Equal(t, models.SideTeam1, evt.WinnerSide)
	assert.Len(t, evt.Players, 10)
}

func TestTickUpdatesRelationsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, _ := f.balancedMatch(t, 10)
	team1, team2 := votes7to1(t, f, m.ID)

	_, err := f.closer.Tick(ctx)
	require.NoError(t, err)
	// a second tick must not propagate again
	closed, err := f.closer.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, closed)

	same, err := f.players.GetRelation(ctx, team1[0], team1[1])
	require.NoError(t, err)
	assert.Equal(t, 1, same.GamesTogether)
	assert.Equal(t, 0, same.GamesApart)

	opposed, err := f.players.GetRelation(ctx, team2[0], team1[0])
	require.NoError(t, err)
	assert.Equal(t, 0, opposed.GamesTogether)
	assert.Equal(t, 1, opposed.GamesApart)

	var rows int64
	require.NoError(t, f.db.Model(&models.PlayerRelation{}).Count(&rows).Error)
	assert.EqualValues(t, 45, rows)

	assert.Equal(t, 1, f.player(t, team1[0]).GamesPlayed)
	assert.Equal(t, 1, f.emitter.count())
}

func TestRelationsAccumulateAcrossMatches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	players := f.createPlayers(t, 2)

	for i := 0; i < 2; i++ {
		m, err := f.matches.CreateMatch(ctx, CreateMatchInput{MaxPlayers: 2})
		require.NoError(t, err)
		for _, p := range players {
			_, err := f.matches.AddPlayer(ctx, m.ID, p.ID, nil)
			require.NoError(t, err)
		}
		_, err = f.matches.GenerateTeams(ctx, m.ID, nil)
		require.NoError(t, err)
		f.vote(t, m.ID, players[0].ID, models.VoteWin)
		f.vote(t, m.ID, players[1].ID, models.VoteLoss)

		out, err := f.closer.EvaluateMatch(ctx, m.ID)
		require.NoError(t, err)
		require.True(t, out.Closed)
		assert.Equal(t, consensus.TriggerUnanimity, out.Decision.Trigger)
	}

	rel, err := f.players.GetRelation(ctx, players[1].ID, players[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 0, rel.GamesTogether)
	assert.Equal(t, 2, rel.GamesApart)
}

func TestEarlyTieStaysOpen(t *testing.T) {
	f := newFixture(t)
	m, _ := f.balancedMatch(t, 10)
	team1, team2 := f.sides(t, m.ID)
	f.vote(t, m.ID, team1[0], models.VoteWin)
	f.vote(t, m.ID, team2[0], models.VoteWin)

	out, err := f.closer.EvaluateMatch(context.Background(), m.ID)
	require.NoError(t, err)
	assert.False(t, out.Closed)
	assert.Equal(t, consensus.Tally{Team1: 1, Team2: 1}, out.Tally)

	got := f.reload(t, m.ID)
	assert.Nil(t, got.WinnerSide)
	assert.Equal(t, 1, got.VotesTeam1)
	assert.Equal(t, 1, got.VotesTeam2)

	// tallies persist and votes are not counted twice
	out, err = f.closer.EvaluateMatch(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, consensus.Tally{Team1: 1, Team2: 1}, out.Tally)
}

func TestTimeout(t *testing.T) {
	t.Run("tie stays open", func(t *testing.T) {
		f := newFixture(t)
		m, _ := f.balancedMatch(t, 10)
		team1, team2 := f.sides(t, m.ID)
		f.vote(t, m.ID, team1[0], models.VoteWin)
		f.vote(t, m.ID, team1[1], models.VoteWin)
		f.vote(t, m.ID, team2[0], models.VoteWin)
		f.vote(t, m.ID, team2[1], models.VoteWin)
		f.clock.Advance(25 * time.Hour)

		closed, err := f.closer.Tick(context.Background())
		require.NoError(t, err)
		assert.Zero(t, closed)
		assert.Nil(t, f.reload(t, m.ID).WinnerSide)
	})

	t.Run("plurality closes", func(t *testing.T) {
		f := newFixture(t)
		m, _ := f.balancedMatch(t, 10)
		team1, team2 := f.sides(t, m.ID)
		f.vote(t, m.ID, team1[0], models.VoteLoss)
		f.vote(t, m.ID, team2[0], models.VoteWin)
		f.vote(t, m.ID, team2[1], models.VoteLoss)

		f.clock.Advance(23 * time.Hour)
		closed, err := f.closer.Tick(context.Background())
		require.NoError(t, err)
		assert.Zero(t, closed)

		f.clock.Advance(time.Hour)
		closed, err = f.closer.Tick(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, closed)

		got := f.reload(t, m.ID)
		require.NotNil(t, got.WinnerSide)
		assert.Equal(t, models.SideTeam2, *got.WinnerSide)
		assert.Equal(t, models.CloseTriggerTimeout, got.CloseTrigger)
	})
}

func TestTickSkipsUnbalancedMatches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.matches.CreateMatch(ctx, CreateMatchInput{MaxPlayers: 2})
	require.NoError(t, err)
	f.clock.Advance(48 * time.Hour)

	closed, err := f.closer.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, closed)
}

type failingPropagator struct{}

func (failingPropagator) Apply(tx *gorm.DB, match *models.Match, winner models.Side) error {
	return errors.New("store unavailable")
}

func TestFailedPropagationRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, players := f.balancedMatch(t, 10)
	votes7to1(t, f, m.ID)

	f.closer.Propagator = failingPropagator{}
	closed, err := f.closer.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, closed)

	got := f.reload(t, m.ID)
	assert.Nil(t, got.WinnerSide)
	assert.Zero(t, got.VotesTeam1)
	assert.Zero(t, got.VotesTeam2)

	var pending int64
	require.NoError(t, f.db.Model(&models.MatchVote{}).Where("match_id = ? AND pending = ?", m.ID, true).Count(&pending).Error)
	assert.EqualValues(t, 8, pending)
	assert.Zero(t, f.emitter.count())

	// recovers on the next tick
	f.closer.Propagator = NewStatsPropagator()
	closed, err = f.closer.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)
	assert.Equal(t, 1, f.player(t, players[0].ID).GamesPlayed)
}

func TestCloseMatchFirstWriterWins(t *testing.T) {
	f := newFixture(t)
	m, _ := f.balancedMatch(t, 2)
	stale := f.reload(t, m.ID)

	require.NoError(t, f.db.Model(&models.Match{}).Where("id = ?", m.ID).
		Update("winner_side", models.SideTeam2).Error)

	won, err := closeMatch(f.db, &stale, consensus.Decision{Close: true, Winner: models.SideTeam1, Trigger: consensus.TriggerUnanimity}, f.clock.Now())
	require.NoError(t, err)
	assert.False(t, won)

	got := f.reload(t, m.ID)
	require.NotNil(t, got.WinnerSide)
	assert.Equal(t, models.SideTeam2, *got.WinnerSide)
	assert.Nil(t, stale.WinnerSide)
}

func TestEvaluateClosedMatchIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, players := f.balancedMatch(t, 2)
	team1, team2 := f.sides(t, m.ID)
	f.vote(t, m.ID, team1[0], models.VoteWin)
	f.vote(t, m.ID, team2[0], models.VoteLoss)

	out, err := f.closer.EvaluateMatch(ctx, m.ID)
	require.NoError(t, err)
	require.True(t, out.Closed)

	out, err = f.closer.EvaluateMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, out.Closed)
	assert.False(t, out.Decision.Close)
	assert.Equal(t, 1, f.player(t, players[0].ID).GamesPlayed)

	_, err = f.closer.EvaluateMatch(ctx, "missing")
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestClosingLocksMatchAndPlayers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	locked := f.lockedTables(t)

	m, _ := f.balancedMatch(t, 2)
	assert.Equal(t, []string{"matches"}, locked())

	team1, team2 := f.sides(t, m.ID)
	f.vote(t, m.ID, team1[0], models.VoteWin)
	f.vote(t, m.ID, team2[0], models.VoteLoss)
	out, err := f.closer.EvaluateMatch(ctx, m.ID)
	require.NoError(t, err)
	require.True(t, out.Closed)

	assert.ElementsMatch(t, []string{"matches", "players"}, locked())
}

func TestTalliesAccumulateAcrossTicks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, _ := f.balancedMatch(t, 10)
	team1, team2 := f.sides(t, m.ID)

	f.vote(t, m.ID, team1[0], models.VoteWin)
	f.vote(t, m.ID, team2[0], models.VoteWin)
	_, err := f.closer.EvaluateMatch(ctx, m.ID)
	require.NoError(t, err)

	f.vote(t, m.ID, team1[1], models.VoteWin)
	out, err := f.closer.EvaluateMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, out.Closed)

	got := f.reload(t, m.ID)
	assert.Equal(t, 2, got.VotesTeam1)
	assert.Equal(t, 1, got.VotesTeam2)
}

func TestPropagationKeepsAttributes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, players := f.balancedMatch(t, 2)
	team1, team2 := f.sides(t, m.ID)
	f.vote(t, m.ID, team1[0], models.VoteWin)
	f.vote(t, m.ID, team2[0], models.VoteLoss)

	// an evaluation lands while the close is in flight
	f.writeBeforePlayerUpdate(t, "UPDATE players SET shooting = ?", 77)

	out, err := f.closer.EvaluateMatch(ctx, m.ID)
	require.NoError(t, err)
	require.True(t, out.Closed)

	for _, p := range players {
		got := f.player(t, p.ID)
		assert.Equal(t, 77, got.Shooting, got.Name)
		assert.Equal(t, 1, got.GamesPlayed, got.Name)
	}
}
