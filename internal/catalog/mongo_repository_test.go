package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/healthymarket/healthy-market/internal/domain"
	"github.com/healthymarket/healthy-market/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func setupTestDB(t *testing.T) (Repository, func()) {
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	conn, err := repository.Connect(ctx, uri, "testdb", repository.DefaultPoolOptions)
	require.NoError(t, err)

	cleanup := func() {
		_ = conn.Close(ctx)
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return NewMongoRepository(conn.DB), cleanup
}

func TestCreate_And_GetProduct(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	p := &domain.Product{Name: "Oat milk", Price: 3.2, Quantity: 40, CarbonEmission: 0.9, TraderID: "t1"}
	require.NoError(t, repo.Create(ctx, p))
	require.False(t, p.ID.IsZero())

	got, err := repo.GetProduct(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Oat milk", got.Name)
	assert.Equal(t, 3.2, got.Price)
	assert.Equal(t, domain.DefaultProductUnit, got.Unit)
	assert.Equal(t, "t1", got.TraderID)
}

func TestCreate_Invalid(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	err := repo.Create(context.Background(), &domain.Product{Price: 1, TraderID: "t1"})

	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestGetProduct_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.GetProduct(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = repo.GetProduct(ctx, "not-an-object-id")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestList_And_ListByTrader(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	for _, p := range []*domain.Product{
		{Name: "a", TraderID: "t1"},
		{Name: "b", TraderID: "t2"},
		{Name: "c", TraderID: "t1"},
	} {
		require.NoError(t, repo.Create(ctx, p))
		time.Sleep(2 * time.Millisecond)
	}

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := repo.ListByTrader(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "c", mine[0].Name)
	assert.Equal(t, "a", mine[1].Name)

	none, err := repo.ListByTrader(ctx, "t9")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestDelete_OwnershipRules(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	p := &domain.Product{Name: "Honey", Price: 8, TraderID: "t1"}
	require.NoError(t, repo.Create(ctx, p))

	err := repo.Delete(ctx, p.ID.Hex(), "t2", false)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, repo.Delete(ctx, p.ID.Hex(), "t1", false))

	err = repo.Delete(ctx, p.ID.Hex(), "t1", false)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestDelete_AdminMayDeleteAny(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	p := &domain.Product{Name: "Bread", Price: 4, TraderID: "t1"}
	require.NoError(t, repo.Create(ctx, p))

	require.NoError(t, repo.Delete(ctx, p.ID.Hex(), "admin-1", true))

	_, err := repo.GetProduct(ctx, p.ID.Hex())
	assert.ErrorIs(t, err, ErrProductNotFound)
}
