package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"campus-market/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var listingRowColumns = []string{
	"id", "title", "description", "price", "images", "hostel", "category",
	"campus", "sold", "contact", "seller_name", "seller_email", "created_at",
}

func newListingRepo(t *testing.T) (*ListingRepository, sqlmock.Sqlmock, time.Time) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewListingRepository(db)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	return repo, mock, now
}

func listingRow(rows *sqlmock.Rows, id, title string, price float64, sold bool, created time.Time) *sqlmock.Rows {
	return rows.AddRow(id, title, "", price, "{/media/a.png}", "Ram Bhawan", "Books", "Pilani", sold,
		"9876543210", "Asha", "asha@pilani.bits-pilani.ac.in", created)
}

func TestListingRepository_Search(t *testing.T) {
	t.Run("campus_search_category_and_page", func(t *testing.T) {
		repo, mock, now := newListingRepo(t)

		mock.ExpectQuery(`SELECT category, count\(\*\) FROM listings WHERE campus = \$1 AND \(title ILIKE \$2 OR description ILIKE \$2\) GROUP BY category`).
			WithArgs("Pilani", `%50\% off%`).
			WillReturnRows(sqlmock.NewRows([]string{"category", "count"}).
				AddRow("Books", 25).
				AddRow("Cycles", 3))

		rows := sqlmock.NewRows(listingRowColumns)
		listingRow(rows, "l1", "HC Verma, 50% off", 300, false, now)
		mock.ExpectQuery(`FROM listings WHERE campus = \$1 AND .* AND category = \$3 ORDER BY price ASC, created_at DESC, id ASC LIMIT \$4 OFFSET \$5`).
			WithArgs("Pilani", `%50\% off%`, "Books", domain.PageSize, domain.PageSize).
			WillReturnRows(rows)

		page, err := repo.Search(context.Background(), domain.Filters{
			Campus:   domain.CampusPilani,
			Search:   " 50% off ",
			Category: "Books",
			Page:     2,
			Sort:     domain.SortPriceAscending,
		})

		require.NoError(t, err)
		assert.Equal(t, 25, page.TotalCount)
		assert.Equal(t, domain.TotalPages(25), page.TotalPages)
		assert.Equal(t, map[string]int{"Books": 25, "Cycles": 3}, page.TotalCountByCategory)
		require.Len(t, page.Items, 1)
		assert.Equal(t, []string{"/media/a.png"}, page.Items[0].Images)
		assert.Equal(t, domain.CampusPilani, page.Items[0].Campus)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("all_campuses_has_no_filter", func(t *testing.T) {
		repo, mock, _ := newListingRepo(t)

		mock.ExpectQuery(`SELECT category, count\(\*\) FROM listings GROUP BY category`).
			WillReturnRows(sqlmock.NewRows([]string{"category", "count"}).AddRow("Books", 2).AddRow("Sports", 1))
		mock.ExpectQuery(`FROM listings ORDER BY created_at DESC, id ASC LIMIT \$1 OFFSET \$2`).
			WithArgs(domain.PageSize, 0).
			WillReturnRows(sqlmock.NewRows(listingRowColumns))

		page, err := repo.Search(context.Background(), domain.Filters{Campus: domain.CampusAllCampuses})

		require.NoError(t, err)
		assert.Equal(t, 3, page.TotalCount)
		assert.NotNil(t, page.Items)
		assert.Empty(t, page.Items)
	})

	t.Run("count_query_fails", func(t *testing.T) {
		repo, mock, _ := newListingRepo(t)

		mock.ExpectQuery(`SELECT category`).WillReturnError(sql.ErrConnDone)

		_, err := repo.Search(context.Background(), domain.Filters{Page: 1})
		assert.ErrorIs(t, err, sql.ErrConnDone)
	})
}

func TestListingRepository_GetByID(t *testing.T) {
	repo, mock, now := newListingRepo(t)

	rows := sqlmock.NewRows(listingRowColumns)
	listingRow(rows, "l1", "Cycle", 2500, true, now)
	mock.ExpectQuery(`FROM listings WHERE id = \$1`).WithArgs("l1").WillReturnRows(rows)
	mock.ExpectQuery(`FROM listings WHERE id = \$1`).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	l, err := repo.GetByID(context.Background(), "l1")
	require.NoError(t, err)
	assert.True(t, l.Sold)
	assert.Equal(t, 2500.0, l.Price)

	_, err = repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrListingNotFound)
}

func TestListingRepository_Create(t *testing.T) {
	repo, mock, now := newListingRepo(t)

	mock.ExpectExec(`INSERT INTO listings`).
		WithArgs(sqlmock.AnyArg(), "Lamp", "", 150.0, sqlmock.AnyArg(), "Ram Bhawan", "Others",
			"Pilani", false, "9876543210", "Asha", "asha@pilani.bits-pilani.ac.in", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	l := &domain.Listing{
		Title: "Lamp", Price: 150, Hostel: "Ram Bhawan", Category: "Others", Campus: domain.CampusPilani,
		Contact: "9876543210", SellerName: "Asha", SellerEmail: "asha@pilani.bits-pilani.ac.in",
	}
	require.NoError(t, repo.Create(context.Background(), l))

	assert.NotEmpty(t, l.ID)
	assert.Equal(t, now, l.CreatedAt)
	assert.NotNil(t, l.Images)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepository_Update(t *testing.T) {
	t.Run("returns_stored_row", func(t *testing.T) {
		repo, mock, now := newListingRepo(t)

		rows := sqlmock.NewRows(listingRowColumns)
		listingRow(rows, "l1", "Cycle v2", 2000, false, now)
		mock.ExpectQuery(`UPDATE listings SET title = \$2`).
			WithArgs("l1", "Cycle v2", "", 2000.0, "Cycles", "", "", sqlmock.AnyArg()).
			WillReturnRows(rows)

		l := &domain.Listing{ID: "l1", Title: "Cycle v2", Price: 2000, Category: "Cycles"}
		require.NoError(t, repo.Update(context.Background(), l))
		assert.Equal(t, []string{"/media/a.png"}, l.Images, "images come back from the row")
		assert.Equal(t, "asha@pilani.bits-pilani.ac.in", l.SellerEmail)
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock, _ := newListingRepo(t)

		mock.ExpectQuery(`UPDATE listings`).WillReturnError(sql.ErrNoRows)

		err := repo.Update(context.Background(), &domain.Listing{ID: "gone"})
		assert.ErrorIs(t, err, domain.ErrListingNotFound)
	})
}

func TestListingRepository_ApplyBatch(t *testing.T) {
	const seller = "asha@pilani.bits-pilani.ac.in"

	t.Run("applies_when_every_id_is_owned", func(t *testing.T) {
		repo, mock, _ := newListingRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM listings WHERE id = ANY\(\$1\) AND lower\(seller_email\) = lower\(\$2\) FOR UPDATE`).
			WithArgs(sqlmock.AnyArg(), seller).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("l1").AddRow("l2"))
		mock.ExpectExec(`UPDATE listings SET sold = TRUE WHERE id = ANY\(\$1\)`).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		err := repo.ApplyBatch(context.Background(), seller, domain.MethodMarkSold, []string{"l1", "l2", "l1"})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("repost_bumps_created_at", func(t *testing.T) {
		repo, mock, now := newListingRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM listings`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("l1"))
		mock.ExpectExec(`UPDATE listings SET sold = FALSE, created_at = \$2`).
			WithArgs(sqlmock.AnyArg(), now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.ApplyBatch(context.Background(), seller, domain.MethodRepost, []string{"l1"}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("foreign_id_rolls_back", func(t *testing.T) {
		repo, mock, _ := newListingRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM listings`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("l1"))
		mock.ExpectRollback()

		err := repo.ApplyBatch(context.Background(), seller, domain.MethodDelete, []string{"l1", "someone-else"})
		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects_non_batch_method", func(t *testing.T) {
		repo, _, _ := newListingRepo(t)

		err := repo.ApplyBatch(context.Background(), seller, domain.MethodCreate, []string{"l1"})
		assert.True(t, errors.Is(err, domain.ErrInvalidMethod))
	})
}

func TestUniqueIDs(t *testing.T) {
	assert.Equal(t, []string{"b", "a"}, uniqueIDs([]string{"b", "a", "b", "a"}))
	assert.Empty(t, uniqueIDs(nil))
}
