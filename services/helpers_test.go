package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jonboulle/clockwork"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pickup-match-system/events"
	"pickup-match-system/models"
)

var kickoff = time.Date(2026, 5, 2, 19, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// one connection keeps the in-memory database alive and shared
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []events.MatchClosed
}

func (r *recordingEmitter) PublishMatchClosed(ctx context.Context, evt events.MatchClosed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recordingEmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type fixture struct {
	db      *gorm.DB
	clock   *clockwork.FakeClock
	players *PlayerService
	matches *MatchService
	notes   *NotificationService
	closer  *ClosingService
	emitter *recordingEmitter
	evals   *EvaluationService
	seq     int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(kickoff)
	emitter := &recordingEmitter{}
	notes := NewNotificationService(db, clock, 3)
	return &fixture{
		db:      db,
		clock:   clock,
		players: NewPlayerService(db, nil),
		matches: NewMatchService(db, clock),
		notes:   notes,
		closer:  NewClosingService(db, clock, 24*time.Hour, notes, emitter),
		emitter: emitter,
		evals:   NewEvaluationService(db),
	}
}

func (f *fixture) createPlayers(t *testing.T, n int) []models.Player {
	t.Helper()
	out := make([]models.Player, n)
	for i := range out {
		f.seq++
		p, err := f.players.CreatePlayer(context.Background(), CreatePlayerInput{Name: fmt.Sprintf("Player %d", f.seq)})
		require.NoError(t, err)
		out[i] = *p
	}
	return out
}

// balancedMatch creates a full match of n players with generated teams.
func (f *fixture) balancedMatch(t *testing.T, n int) (*models.Match, []models.Player) {
	t.Helper()
	ctx := context.Background()
	m, err := f.matches.CreateMatch(ctx, CreateMatchInput{MaxPlayers: n})
	require.NoError(t, err)

	players := f.createPlayers(t, n)
	for _, p := range players {
		_, err := f.matches.AddPlayer(ctx, m.ID, p.ID, nil)
		require.NoError(t, err)
	}
	_, err = f.matches.GenerateTeams(ctx, m.ID, nil)
	require.NoError(t, err)
	return m, players
}

func (f *fixture) sides(t *testing.T, matchID string) (team1, team2 []string) {
	t.Helper()
	mps, err := roster(f.db, matchID)
	require.NoError(t, err)
	for _, mp := range mps {
		require.NotNil(t, mp.Side)
		if *mp.Side == models.SideTeam1 {
			team1 = append(team1, mp.PlayerID)
		} else {
			team2 = append(team2, mp.PlayerID)
		}
	}
	return team1, team2
}

func (f *fixture) vote(t *testing.T, matchID, voterID string, result models.VoteResult) {
	t.Helper()
	_, err := f.matches.RecordVote(context.Background(), matchID, voterID, result)
	require.NoError(t, err)
}

func (f *fixture) reload(t *testing.T, matchID string) models.Match {
	t.Helper()
	var m models.Match
	require.NoError(t, f.db.First(&m, "id = ?", matchID).Error)
	return m
}

func (f *fixture) player(t *testing.T, id string) models.Player {
	t.Helper()
	var p models.Player
	require.NoError(t, f.db.First(&p, "id = ?", id).Error)
	return p
}

// lockedTables records every table read with a row lock. SQLite drops the
// FOR clause when building SQL, but the statement still carries it.
func (f *fixture) lockedTables(t *testing.T) func() []string {
	t.Helper()
	var mu sync.Mutex
	var tables []string
	err := f.db.Callback().Query().Before("gorm:query").Register("test:locked_tables", func(d *gorm.DB) {
		if _, ok := d.Statement.Clauses["FOR"]; ok {
			mu.Lock()
			tables = append(tables, d.Statement.Table)
			mu.Unlock()
		}
	})
	require.NoError(t, err)
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		return lo.Uniq(tables)
	}
}

// writeBeforePlayerUpdate runs stmt on the same transaction right before the
// first players update, like another writer committing in between.
func (f *fixture) writeBeforePlayerUpdate(t *testing.T, stmt string, args ...any) {
	t.Helper()
	done := false
	err := f.db.Callback().Update().Before("gorm:update").Register("test:interleaved_write", func(d *gorm.DB) {
		if done || d.Statement.Table != "players" {
			return
		}
		done = true
		assert.NoError(t, d.Session(&gorm.Session{NewDB: true}).Exec(stmt, args...).Error)
	})
	require.NoError(t, err)
}
