package profile

import (
	"context"
	"testing"
	"time"

	profileRepo "nahio/database/repository/profile"
	"nahio/models"
	"nahio/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) *profileRepo.MemoryProfileRepo {
	t.Helper()
	ctx := context.Background()
	repo := profileRepo.NewMemoryProfileRepo()
	require.NoError(t, repo.CreateUser(ctx, &models.User{ID: "i1", UserType: models.UserTypeInstitution, IsActive: true}))
	require.NoError(t, repo.SaveInstitution(ctx, &models.InstitutionProfile{
		ID: "i1", SchoolName: "Escola Alfa", Address: models.Address{City: "Santos", State: "SP"},
	}))
	require.NoError(t, repo.SaveScout(ctx, &models.ScoutProfile{ID: "s1", Name: "Carlos"}))
	return repo
}

func TestDirectoryCachesNames(t *testing.T) {
	ctx := context.Background()
	repo := seed(t)
	cache := utils.NewMemoryKV()
	dir := NewDirectory(repo, cache, time.Minute, nil)

	name, err := dir.InstitutionName(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, "Escola Alfa", name)

	cached, err := cache.Get(ctx, "profile:name:instituicao:i1")
	require.NoError(t, err)
	assert.Equal(t, "Escola Alfa", cached)

	// Served from cache even when the store changes underneath.
	school := "Escola Renomeada"
	require.NoError(t, repo.UpdateProfile(ctx, "i1", models.UserTypeInstitution, models.ProfileUpdate{SchoolName: &school}))
	name, err = dir.InstitutionName(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, "Escola Alfa", name)

	dir.Forget(ctx, models.UserTypeInstitution, "i1")
	name, err = dir.InstitutionName(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, "Escola Renomeada", name)

	name, err = dir.ScoutName(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Carlos", name)
}

func TestDirectoryUnknownProfile(t *testing.T) {
	dir := NewDirectory(seed(t), nil, time.Minute, nil)
	_, err := dir.ScoutName(context.Background(), "ghost")
	assert.ErrorIs(t, err, profileRepo.ErrNotFound)
}

func TestListInstitutions(t *testing.T) {
	dir := NewDirectory(seed(t), nil, 0, nil)
	list, err := dir.ListInstitutions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.InstitutionSummary{{ID: "i1", SchoolName: "Escola Alfa", City: "Santos", State: "SP"}}, list)
}
