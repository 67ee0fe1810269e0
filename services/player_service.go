package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/gosimple/slug"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"pickup-match-system/models"
)

// PhotoStore persists an uploaded player photo and returns its public URL.
type PhotoStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

type PlayerService struct {
	DB     *gorm.DB
	Photos PhotoStore
}

func NewPlayerService(db *gorm.DB, photos PhotoStore) *PlayerService {
	return &PlayerService{DB: db, Photos: photos}
}

type CreatePlayerInput struct {
	Name       string         `json:"name"`
	Attributes map[string]int `json:"attributes"`
	IsBot      bool           `json:"is_bot"`
}

// ValidateAttributes checks names and the 0..100 range.
func ValidateAttributes(attrs map[string]int) error {
	for name, v := range attrs {
		if !lo.Contains(models.AttributeNames, name) || v < 0 || v > 100 {
			return fmt.Errorf("%w: %s=%d", ErrInvalidAttribute, name, v)
		}
	}
	return nil
}

func newPlayer(name string, attrs map[string]int, isBot bool) models.Player {
	p := models.Player{
		Name:          name,
		Slug:          slug.Make(name),
		Elo:           models.DefaultElo,
		RecentResults: []bool{},
		IsBot:         isBot,
	}
	for _, a := range models.AttributeNames {
		p.SetAttribute(a, models.DefaultAttribute)
	}
	for a, v := range attrs {
		p.SetAttribute(a, v)
	}
	return p
}

func (s *PlayerService) CreatePlayer(ctx context.Context, in CreatePlayerInput) (*models.Player, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrInvalidPlayerName
	}
	if err := ValidateAttributes(in.Attributes); err != nil {
		return nil, err
	}

	p := newPlayer(name, in.Attributes, in.IsBot)
	if p.Slug == "" {
		return nil, ErrInvalidPlayerName
	}

	var taken int64
	if err := s.DB.WithContext(ctx).Model(&models.Player{}).Where("slug = ?", p.Slug).Count(&taken).Error; err != nil {
		return nil, err
	}
	if taken > 0 {
		return nil, ErrPlayerNameTaken
	}
	if err := s.DB.WithContext(ctx).Create(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrPlayerNameTaken
		}
		return nil, err
	}
	return &p, nil
}

func (s *PlayerService) GetPlayer(ctx context.Context, id string) (*models.Player, error) {
	var p models.Player
	if err := s.DB.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *PlayerService) GetPlayerBySlug(ctx context.Context, value string) (*models.Player, error) {
	var p models.Player
	if err := s.DB.WithContext(ctx).First(&p, "slug = ?", value).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListPlayers returns players ordered by elo, strongest first.
func (s *PlayerService) ListPlayers(ctx context.Context, includeBots bool) ([]models.Player, error) {
	var players []models.Player
	q := s.DB.WithContext(ctx).Order("elo DESC, name")
	if !includeBots {
		q = q.Where("is_bot = ?", false)
	}
	if err := q.Find(&players).Error; err != nil {
		return nil, err
	}
	return players, nil
}

// UploadPhoto stores the image and records its URL on the player.
func (s *PlayerService) UploadPhoto(ctx context.Context, playerID, filename, contentType string, body []byte) (string, error) {
	if s.Photos == nil {
		return "", ErrPhotoStoreDisabled
	}
	if len(body) == 0 {
		return "", ErrEmptyPhoto
	}
	p, err := s.GetPlayer(ctx, playerID)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("players/%s%s", p.ID, strings.ToLower(path.Ext(filename)))
	url, err := s.Photos.Put(ctx, key, contentType, body)
	if err != nil {
		return "", err
	}
	if err := s.DB.WithContext(ctx).Model(&models.Player{}).Where("id = ?", p.ID).Update("photo_url", url).Error; err != nil {
		return "", err
	}
	return url, nil
}

// RelatedPlayer is another player ranked by a relation counter.
type RelatedPlayer struct {
	Player models.Player `json:"player"`
	Games  int           `json:"games"`
}

// RelationSummary groups a player's most frequent teammates and opponents.
type RelationSummary struct {
	Teammates []RelatedPlayer `json:"teammates"`
	Opponents []RelatedPlayer `json:"opponents"`
}

// GetRelations ranks the players this player has shared or faced the most, up to limit each.
// Bots are left out.
func (s *PlayerService) GetRelations(ctx context.Context, playerID string, limit int) (*RelationSummary, error) {
	if _, err := s.GetPlayer(ctx, playerID); err != nil {
		return nil, err
	}

	var rels []models.PlayerRelation
	if err := s.DB.WithContext(ctx).
		Where("player1_id = ? OR player2_id = ?", playerID, playerID).
		Find(&rels).Error; err != nil {
		return nil, err
	}

	otherIDs := lo.Map(rels, func(r models.PlayerRelation, _ int) string { return r.Other(playerID) })
	var others []models.Player
	if len(otherIDs) > 0 {
		if err := s.DB.WithContext(ctx).Where("id IN ? AND is_bot = ?", otherIDs, false).Find(&others).Error; err != nil {
			return nil, err
		}
	}
	byID := lo.KeyBy(others, func(p models.Player) string { return p.ID })

	rank := func(count func(models.PlayerRelation) int) []RelatedPlayer {
		var out []RelatedPlayer
		for _, r := range rels {
			other, ok := byID[r.Other(playerID)]
			if !ok || count(r) == 0 {
				continue
			}
			out = append(out, RelatedPlayer{Player: other, Games: count(r)})
		}
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Games != out[j].Games {
				return out[i].Games > out[j].Games
			}
			return out[i].Player.Name < out[j].Player.Name
		})
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
		return out
	}

	return &RelationSummary{
		Teammates: rank(func(r models.PlayerRelation) int { return r.GamesTogether }),
		Opponents: rank(func(r models.PlayerRelation) int { return r.GamesApart }),
	}, nil
}

// GetRelation returns the stored counters for a pair, or a zero relation if they never met.
func (s *PlayerService) GetRelation(ctx context.Context, a, b string) (models.PlayerRelation, error) {
	p1, p2 := models.CanonicalPair(a, b)
	rel := models.PlayerRelation{Player1ID: p1, Player2ID: p2}
	err := s.DB.WithContext(ctx).Where("player1_id = ? AND player2_id = ?", p1, p2).First(&rel).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return rel, err
	}
	return rel, nil
}
