//go:build integration
// +build integration

package postgres_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"campus-market/internal/domain"
	"campus-market/internal/repository/postgres"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgres starts a PostgreSQL container, applies the schema and
// returns a connection to it.
func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithDeadline(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err, "failed to connect to PostgreSQL")
	t.Cleanup(func() { db.Close() })

	require.Eventually(t, func() bool { return db.PingContext(ctx) == nil }, 10*time.Second, 200*time.Millisecond)
	require.NoError(t, postgres.Migrate(ctx, db), "failed to run migrations")
	require.NoError(t, postgres.Migrate(ctx, db), "migrations must be idempotent")

	return db
}

func TestPostgres_Sessions(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	repo, err := postgres.NewSessionRepository(db)
	require.NoError(t, err)
	defer repo.Close()

	live := &domain.ServerSession{
		Token:     "live",
		CSRFToken: "csrf-1",
		Identity:  domain.Identity{Email: "f20230001@goa.bits-pilani.ac.in", Name: "Asha"},
		Campus:    domain.CampusGoa,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, repo.Create(ctx, live))
	assert.ErrorIs(t, repo.Create(ctx, live), domain.ErrSessionExists)

	expired := *live
	expired.Token = "expired"
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, repo.Create(ctx, &expired))

	got, err := repo.GetByToken(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, domain.CampusGoa, got.Campus)

	_, err = repo.GetByToken(ctx, "expired")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	got.CSRFToken = "csrf-2"
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.GetByToken(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, "csrf-2", got.CSRFToken)

	count, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, repo.Delete(ctx, "live"))
	_, err = repo.GetByToken(ctx, "live")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestPostgres_Listings(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	repo := postgres.NewListingRepository(db)

	const asha = "asha@pilani.bits-pilani.ac.in"
	base := time.Now().Add(-time.Hour)
	for i, l := range []domain.Listing{
		{Title: "HC Verma", Price: 300, Category: "Books", Campus: domain.CampusPilani},
		{Title: "Irodov", Price: 200, Category: "Books", Campus: domain.CampusPilani},
		{Title: "Hero cycle", Price: 2500, Category: "Cycles", Campus: domain.CampusPilani},
		{Title: "Goa cycle", Price: 1800, Category: "Cycles", Campus: domain.CampusGoa},
	} {
		l.Hostel = "Ram Bhawan"
		l.Contact = "9876543210"
		l.SellerEmail = asha
		l.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, &l))
	}

	page, err := repo.Search(ctx, domain.Filters{Campus: domain.CampusPilani, Category: "Books", Sort: domain.SortPriceAscending, Page: 1})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Irodov", page.Items[0].Title)
	assert.Equal(t, 2, page.TotalCount)
	assert.Equal(t, map[string]int{"Books": 2, "Cycles": 1}, page.TotalCountByCategory)

	page, err = repo.Search(ctx, domain.Filters{Search: "cycle", Campus: domain.CampusAllCampuses, Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalCount)
	assert.Equal(t, "Goa cycle", page.Items[0].Title, "newest first")

	mine, err := repo.ListBySeller(ctx, "ASHA@pilani.bits-pilani.ac.in")
	require.NoError(t, err)
	require.Len(t, mine, 4)
	ids := []string{mine[0].ID, mine[1].ID}

	err = repo.ApplyBatch(ctx, "ravi@pilani.bits-pilani.ac.in", domain.MethodDelete, ids)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, repo.ApplyBatch(ctx, asha, domain.MethodMarkSold, ids))
	for _, id := range ids {
		l, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.True(t, l.Sold)
	}

	require.NoError(t, repo.ApplyBatch(ctx, asha, domain.MethodDelete, ids))
	_, err = repo.GetByID(ctx, ids[0])
	assert.ErrorIs(t, err, domain.ErrListingNotFound)
}

func TestPostgres_Feedback(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	repo := postgres.NewFeedbackRepository(db)

	require.NoError(t, repo.Create(ctx, &domain.Feedback{Email: "a@pilani.bits-pilani.ac.in", Description: "Images fail to load"}))

	reports, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Empty(t, reports[0].Images)
}
