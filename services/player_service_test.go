package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pickup-match-system/models"
)

type memoryStore struct {
	keys []string
	err  error
}

func (m *memoryStore) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.keys = append(m.keys, key)
	return "https://cdn.test/" + key, nil
}

func TestCreatePlayer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.players.CreatePlayer(ctx, CreatePlayerInput{
		Name:       "  Juan Pérez ",
		Attributes: map[string]int{"pace": 72},
	})
	require.NoError(t, err)
	assert.Equal(t, "Juan Pérez", p.Name)
	assert.Equal(t, "juan-perez", p.Slug)
	assert.Equal(t, 72, p.Pace)
	assert.Equal(t, models.DefaultAttribute, p.Shooting)
	assert.Equal(t, models.DefaultElo, p.Elo)
	assert.NotEmpty(t, p.ID)

	bySlug, err := f.players.GetPlayerBySlug(ctx, "juan-perez")
	require.NoError(t, err)
	assert.Equal(t, p.ID, bySlug.ID)

	_, err = f.players.CreatePlayer(ctx, CreatePlayerInput{Name: "juan perez"})
	assert.ErrorIs(t, err, ErrPlayerNameTaken)

	_, err = f.players.CreatePlayer(ctx, CreatePlayerInput{Name: "   "})
	assert.ErrorIs(t, err, ErrInvalidPlayerName)

	_, err = f.players.CreatePlayer(ctx, CreatePlayerInput{Name: "Bad", Attributes: map[string]int{"speed": 10}})
	assert.ErrorIs(t, err, ErrInvalidAttribute)

	_, err = f.players.CreatePlayer(ctx, CreatePlayerInput{Name: "Bad", Attributes: map[string]int{"aura": 101}})
	assert.ErrorIs(t, err, ErrInvalidAttribute)

	_, err = f.players.GetPlayer(ctx, "missing")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestListPlayers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.players.CreatePlayer(ctx, CreatePlayerInput{Name: "Ana"})
	require.NoError(t, err)
	_, err = f.players.CreatePlayer(ctx, CreatePlayerInput{Name: "Robo", IsBot: true})
	require.NoError(t, err)

	humans, err := f.players.ListPlayers(ctx, false)
	require.NoError(t, err)
	assert.Len(t, humans, 1)

	all, err := f.players.ListPlayers(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUploadPhoto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createPlayers(t, 1)[0]

	_, err := f.players.UploadPhoto(ctx, p.ID, "me.png", "image/png", []byte("x"))
	assert.ErrorIs(t, err, ErrPhotoStoreDisabled)

	store := &memoryStore{}
	f.players.Photos = store

	url, err := f.players.UploadPhoto(ctx, p.ID, "Me.PNG", "image/png", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/players/"+p.ID+".png", url)
	assert.Equal(t, url, f.player(t, p.ID).PhotoURL)

	_, err = f.players.UploadPhoto(ctx, p.ID, "me.png", "image/png", nil)
	assert.ErrorIs(t, err, ErrEmptyPhoto)

	store.err = errors.New("bucket down")
	_, err = f.players.UploadPhoto(ctx, p.ID, "me.png", "image/png", []byte("x"))
	assert.Error(t, err)
	assert.Equal(t, url, f.player(t, p.ID).PhotoURL)
}

func TestGetRelations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ps := f.createPlayers(t, 4)
	me := ps[0].ID

	rel := func(other string, together, apart int) {
		a, b := models.CanonicalPair(me, other)
		require.NoError(t, f.db.Create(&models.PlayerRelation{Player1ID: a, Player2ID: b, GamesTogether: together, GamesApart: apart}).Error)
	}
	rel(ps[1].ID, 5, 1)
	rel(ps[2].ID, 2, 7)
	rel(ps[3].ID, 0, 3)

	summary, err := f.players.GetRelations(ctx, me, 2)
	require.NoError(t, err)

	require.Len(t, summary.Teammates, 2)
	assert.Equal(t, ps[1].ID, summary.Teammates[0].Player.ID)
	assert.Equal(t, 5, summary.Teammates[0].Games)
	assert.Equal(t, ps[2].ID, summary.Teammates[1].Player.ID)

	require.Len(t, summary.Opponents, 2)
	assert.Equal(t, ps[2].ID, summary.Opponents[0].Player.ID)
	assert.Equal(t, ps[3].ID, summary.Opponents[1].Player.ID)

	none, err := f.players.GetRelation(ctx, ps[1].ID, ps[2].ID)
	require.NoError(t, err)
	assert.Zero(t, none.GamesTogether)
	assert.Empty(t, none.ID)
}
