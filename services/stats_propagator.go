package services

import (
	"fmt"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pickup-match-system/models"
	"pickup-match-system/rating"
)

// Propagator applies the consequences of a closed match. It must only use tx.
type Propagator interface {
	Apply(tx *gorm.DB, match *models.Match, winner models.Side) error
}

// ratingColumns are the player columns owned by match propagation.
// Attributes belong to peer evaluation and are never written here.
var ratingColumns = []string{"elo", "games_played", "games_won", "recent_results"}

// saveRatings writes only ratingColumns of pl.
func saveRatings(tx *gorm.DB, pl *models.Player) *gorm.DB {
	return tx.Model(pl).Select(ratingColumns).Updates(pl)
}

// StatsPropagator updates player counters, ratings and pair relations.
type StatsPropagator struct{}

func NewStatsPropagator() *StatsPropagator {
	return &StatsPropagator{}
}

func (p *StatsPropagator) Apply(tx *gorm.DB, match *models.Match, winner models.Side) error {
	mps, err := roster(tx, match.ID)
	if err != nil {
		return err
	}
	ids := lo.Map(mps, func(mp models.MatchPlayer, _ int) string { return mp.PlayerID })
	byID, err := playersByID(forUpdate(tx), ids)
	if err != nil {
		return err
	}
	if len(byID) != len(ids) {
		return fmt.Errorf("match %s: %d of %d players found", match.ID, len(byID), len(ids))
	}

	snapshots := lo.Map(ids, func(id string, _ int) rating.Snapshot {
		pl := byID[id]
		return rating.Snapshot{
			ID:            pl.ID,
			Elo:           pl.Elo,
			GamesPlayed:   pl.GamesPlayed,
			GamesWon:      pl.GamesWon,
			RecentResults: pl.RecentResults,
		}
	})
	outcome, err := rating.Plan(snapshots, sideMap(mps), winner)
	if err != nil {
		return fmt.Errorf("match %s: %w", match.ID, err)
	}

	for _, snap := range outcome.Players {
		pl := byID[snap.ID]
		pl.Elo = snap.Elo
		pl.GamesPlayed = snap.GamesPlayed
		pl.GamesWon = snap.GamesWon
		pl.RecentResults = snap.RecentResults
		if err := saveRatings(tx, &pl).Error; err != nil {
			return fmt.Errorf("failed to save player %s: %w", pl.ID, err)
		}
	}

	for _, d := range outcome.Relations {
		if err := upsertRelation(tx, d); err != nil {
			return err
		}
	}
	return nil
}

// upsertRelation creates the pair row or increments its counters in one statement.
func upsertRelation(tx *gorm.DB, d rating.RelationDelta) error {
	row := models.PlayerRelation{
		Player1ID:     d.Player1ID,
		Player2ID:     d.Player2ID,
		GamesTogether: d.Together,
		GamesApart:    d.Apart,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "player1_id"}, {Name: "player2_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"games_together": gorm.Expr("player_relations.games_together + ?", d.Together),
			"games_apart":    gorm.Expr("player_relations.games_apart + ?", d.Apart),
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert relation %s/%s: %w", d.Player1ID, d.Player2ID, err)
	}
	return nil
}
