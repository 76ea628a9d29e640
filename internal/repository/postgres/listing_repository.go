package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"campus-market/internal/domain"
	"campus-market/internal/observability"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const listingColumns = `id, title, description, price, images, hostel, category, campus, sold, contact, seller_name, seller_email, created_at`

// ListingRepository implements domain.ListingRepository for PostgreSQL.
type ListingRepository struct {
	db  *sql.DB
	tx  *TxManager
	now func() time.Time
}

// NewListingRepository creates a PostgreSQL listing repository. Batches run
// in one transaction so they apply to every listing or to none.
func NewListingRepository(db *sql.DB) *ListingRepository {
	return &ListingRepository{
		db:  db,
		tx:  NewTxManager(db, nil),
		now: time.Now,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (domain.Listing, error) {
	var (
		l      domain.Listing
		campus string
	)
	err := row.Scan(
		&l.ID,
		&l.Title,
		&l.Description,
		&l.Price,
		pq.Array(&l.Images),
		&l.Hostel,
		&l.Category,
		&campus,
		&l.Sold,
		&l.Contact,
		&l.SellerName,
		&l.SellerEmail,
		&l.CreatedAt,
	)
	l.Campus = domain.Campus(campus)
	if l.Images == nil {
		l.Images = []string{}
	}
	return l, err
}

func (r *ListingRepository) queryListings(ctx context.Context, query string, args ...any) ([]domain.Listing, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	listings := []domain.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listings: %w", err)
	}
	return listings, nil
}

// whereClause collects conditions and their positional arguments.
type whereClause struct {
	conds []string
	args  []any
}

func (w *whereClause) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(w.args))))
}

func (w *whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func (w *whereClause) clone() *whereClause {
	return &whereClause{
		conds: append([]string(nil), w.conds...),
		args:  append([]any(nil), w.args...),
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func orderBy(mode domain.SortMode) string {
	switch mode {
	case domain.SortPriceAscending:
		return " ORDER BY price ASC, created_at DESC, id ASC"
	case domain.SortPriceDescending:
		return " ORDER BY price DESC, created_at DESC, id ASC"
	}
	return " ORDER BY created_at DESC, id ASC"
}

// Search filters, sorts and pages listings. Category counts ignore the
// category filter so every category tab can show its total.
func (r *ListingRepository) Search(ctx context.Context, f domain.Filters) (*domain.Page, error) {
	where := &whereClause{}
	if f.Campus != "" && f.Campus != domain.CampusAllCampuses {
		where.add("campus = ?", string(f.Campus))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		where.add("(title ILIKE ? OR description ILIKE ?)", "%"+likeEscaper.Replace(search)+"%")
	}

	byCategory := make(map[string]int)
	rows, err := r.db.QueryContext(ctx,
		"SELECT category, count(*) FROM listings"+where.String()+" GROUP BY category", where.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count listings: %w", err)
	}
	for rows.Next() {
		var (
			category string
			count    int
		)
		if err := rows.Scan(&category, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		byCategory[category] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category counts: %w", err)
	}

	filtered := where.clone()
	if f.Category != "" {
		filtered.add("category = ?", f.Category)
	}

	total := 0
	if f.Category != "" {
		total = byCategory[f.Category]
	} else {
		for _, n := range byCategory {
			total += n
		}
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	args := append(filtered.args, domain.PageSize, (page-1)*domain.PageSize)
	query := "SELECT " + listingColumns + " FROM listings" + filtered.String() + orderBy(f.Sort) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	items, err := r.queryListings(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &domain.Page{
		Items:                items,
		TotalCount:           total,
		TotalCountByCategory: byCategory,
		TotalPages:           domain.TotalPages(total),
	}, nil
}

func (r *ListingRepository) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	l, err := scanListing(r.db.QueryRowContext(ctx,
		"SELECT "+listingColumns+" FROM listings WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &l, nil
}

// Similar returns up to limit unsold listings of the same category and
// campus, newest first.
func (r *ListingRepository) Similar(ctx context.Context, l *domain.Listing, limit int) ([]domain.Listing, error) {
	return r.queryListings(ctx, "SELECT "+listingColumns+` FROM listings
		WHERE id <> $1 AND NOT sold AND category = $2 AND campus = $3
		ORDER BY created_at DESC, id ASC
		LIMIT $4`, l.ID, l.Category, string(l.Campus), limit)
}

func (r *ListingRepository) ListBySeller(ctx context.Context, email string) ([]domain.Listing, error) {
	return r.queryListings(ctx, "SELECT "+listingColumns+` FROM listings
		WHERE lower(seller_email) = lower($1)
		ORDER BY created_at DESC, id ASC`, email)
}

func (r *ListingRepository) Create(ctx context.Context, l *domain.Listing) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = r.now()
	}
	if l.Images == nil {
		l.Images = []string{}
	}

	_, err := r.db.ExecContext(ctx, "INSERT INTO listings ("+listingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		l.ID, l.Title, l.Description, l.Price, pq.Array(l.Images), l.Hostel, l.Category,
		string(l.Campus), l.Sold, l.Contact, l.SellerName, l.SellerEmail, l.CreatedAt,
	)
	if IsUniqueViolation(err, constraintListingsPK) {
		return fmt.Errorf("listing %s already exists", l.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	observability.ListingsStored.Inc()
	return nil
}

// Update replaces the editable fields of an existing listing. Images are
// kept when l carries none.
func (r *ListingRepository) Update(ctx context.Context, l *domain.Listing) error {
	updated, err := scanListing(r.db.QueryRowContext(ctx, `
		UPDATE listings
		SET title = $2, description = $3, price = $4, category = $5, hostel = $6, contact = $7,
			images = CASE WHEN cardinality($8::text[]) > 0 THEN $8::text[] ELSE images END
		WHERE id = $1
		RETURNING `+listingColumns,
		l.ID, l.Title, l.Description, l.Price, l.Category, l.Hostel, l.Contact, pq.Array(l.Images),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrListingNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update listing: %w", err)
	}
	*l = updated
	return nil
}

// ApplyBatch locks the targeted rows, checks that sellerEmail owns every one
// of them and only then applies method.
func (r *ListingRepository) ApplyBatch(ctx context.Context, sellerEmail string, method domain.Method, ids []string) error {
	var stmt string
	switch method {
	case domain.MethodDelete:
		stmt = `DELETE FROM listings WHERE id = ANY($1)`
	case domain.MethodMarkSold:
		stmt = `UPDATE listings SET sold = TRUE WHERE id = ANY($1)`
	case domain.MethodMarkUnsold:
		stmt = `UPDATE listings SET sold = FALSE WHERE id = ANY($1)`
	case domain.MethodRepost:
		stmt = `UPDATE listings SET sold = FALSE, created_at = $2 WHERE id = ANY($1)`
	default:
		return domain.ErrInvalidMethod
	}

	unique := uniqueIDs(ids)
	err := r.tx.WithTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id FROM listings
			WHERE id = ANY($1) AND lower(seller_email) = lower($2)
			FOR UPDATE`, pq.Array(unique), sellerEmail)
		if err != nil {
			return fmt.Errorf("failed to lock listings: %w", err)
		}
		owned := 0
		for rows.Next() {
			owned++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating locked listings: %w", err)
		}
		if owned != len(unique) {
			return domain.ErrForbidden
		}

		args := []any{pq.Array(unique)}
		if method == domain.MethodRepost {
			args = append(args, r.now())
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("failed to apply %s: %w", method, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if method == domain.MethodDelete {
		observability.ListingsStored.Sub(float64(len(unique)))
	}
	return nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
