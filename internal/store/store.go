package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/dealio/dealio/internal/logger"
	"github.com/dealio/dealio/pkg/listing"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Query bounds for TopDeals.
const (
	MinLimit = 1
	MaxLimit = 100
	MinScore = 0.0
	MaxScore = 100.0
)

// ErrInvalidQuery is returned by TopDeals for out-of-range arguments.
var ErrInvalidQuery = errors.New("invalid query")

// Store is the persistence interface.
type Store interface {
	EnsureSchema(ctx context.Context) error
	ResetSchema(ctx context.Context) error
	Seed(ctx context.Context) (int, error)

	Upsert(ctx context.Context, l listing.Listing) error
	TopDeals(ctx context.Context, limit int, minScore float64) ([]listing.Listing, error)

	Ping(ctx context.Context) bool
	Close() error
}

// SQLStore implements Store on PostgreSQL or SQLite.
type SQLStore struct {
	db     *sqlx.DB
	logger logger.Logger
	now    func() time.Time
}

// Open connects with the given driver. Idle connections are not kept, so
// every operation opens and releases its own connection.
func Open(driver, dsn string, log logger.Logger) (*SQLStore, error) {
	switch driver {
	case DriverPostgres:
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
	default:
		return nil, fmt.Errorf("open store: unsupported driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	db.SetMaxIdleConns(0)
	return NewFromDB(db, log), nil
}

// NewFromDB wraps an existing handle. The driver name of db selects the dialect.
func NewFromDB(db *sqlx.DB, log logger.Logger) *SQLStore {
	return &SQLStore{db: db, logger: log, now: time.Now}
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// ResetSchema drops the listings table and recreates it empty.
func (s *SQLStore) ResetSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, dropListings); err != nil {
		return fmt.Errorf("drop listings: %w", err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("reset schema: %w", err)
	}
	s.logger.Warn("listings table reset")
	return nil
}

// Seed inserts SampleListings when the table is empty and returns how many
// rows it wrote.
func (s *SQLStore) Seed(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM listings"); err != nil {
		return 0, fmt.Errorf("count listings: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	samples := SampleListings()
	for _, l := range samples {
		if err := s.Upsert(ctx, l); err != nil {
			return 0, fmt.Errorf("seed: %w", err)
		}
	}
	s.logger.Info("seeded sample listings", logger.Int("count", len(samples)))
	return len(samples), nil
}

// Upsert inserts l or overwrites the mutable fields of the row with the
// same id. created_at is only written on insert.
func (s *SQLStore) Upsert(ctx context.Context, l listing.Listing) error {
	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO listings (id, title, price, category, deal_score, url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			price = excluded.price,
			category = excluded.category,
			deal_score = excluded.deal_score,
			url = excluded.url,
			updated_at = excluded.updated_at
	`), l.ID, l.Title, l.Price, string(l.Category), l.DealScore, l.URL, now, now)
	if err != nil {
		return fmt.Errorf("upsert listing %s: %w", l.ID, err)
	}
	return nil
}

// TopDeals returns up to limit priced listings scoring at least minScore,
// best score first and cheapest first among equal scores.
func (s *SQLStore) TopDeals(ctx context.Context, limit int, minScore float64) ([]listing.Listing, error) {
	if err := ValidateQuery(limit, minScore); err != nil {
		return nil, err
	}

	var rows []listingRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT id, title, price, category, deal_score, url, created_at, updated_at
		FROM listings
		WHERE deal_score >= ? AND price > 0
		ORDER BY deal_score DESC, price ASC
		LIMIT ?
	`), minScore, limit)
	if err != nil {
		return nil, fmt.Errorf("top deals: %w", err)
	}

	deals := make([]listing.Listing, 0, len(rows))
	for _, r := range rows {
		deals = append(deals, r.toListing())
	}
	return deals, nil
}

// ValidateQuery checks TopDeals arguments.
func ValidateQuery(limit int, minScore float64) error {
	if limit < MinLimit || limit > MaxLimit {
		return fmt.Errorf("%w: limit %d not in [%d, %d]", ErrInvalidQuery, limit, MinLimit, MaxLimit)
	}
	if math.IsNaN(minScore) || minScore < MinScore || minScore > MaxScore {
		return fmt.Errorf("%w: min_score %v not in [%v, %v]", ErrInvalidQuery, minScore, MinScore, MaxScore)
	}
	return nil
}

// Ping runs a version query and reports whether the database answered.
func (s *SQLStore) Ping(ctx context.Context) bool {
	query := "SELECT version()"
	if s.db.DriverName() == DriverSQLite {
		query = "SELECT sqlite_version()"
	}

	var version string
	if err := s.db.GetContext(ctx, &version, query); err != nil {
		s.logger.Error("database ping failed", logger.Error(err))
		return false
	}
	s.logger.Info("database reachable", logger.String("version", version))
	return true
}

type listingRow struct {
	ID        string          `db:"id"`
	Title     string          `db:"title"`
	Price     sql.NullFloat64 `db:"price"`
	Category  sql.NullString  `db:"category"`
	DealScore sql.NullFloat64 `db:"deal_score"`
	URL       sql.NullString  `db:"url"`
	CreatedAt sql.NullTime    `db:"created_at"`
	UpdatedAt sql.NullTime    `db:"updated_at"`
}

func (r listingRow) toListing() listing.Listing {
	category, err := listing.ParseCategory(r.Category.String)
	if err != nil {
		category = listing.General
	}
	return listing.Listing{
		ID:        r.ID,
		Title:     r.Title,
		Price:     r.Price.Float64,
		Category:  category,
		DealScore: r.DealScore.Float64,
		URL:       r.URL.String,
		CreatedAt: r.CreatedAt.Time,
		UpdatedAt: r.UpdatedAt.Time,
	}
}

// SampleListings are the demo rows written by Seed.
func SampleListings() []listing.Listing {
	return []listing.Listing{
		{
			ID:        "test_1",
			Title:     "MacBook Pro 2021 - Excellent Condition",
			Price:     1200,
			Category:  listing.Electronics,
			DealScore: 85,
			URL:       "https://craigslist.org/test1",
		},
		{
			ID:        "test_2",
			Title:     "iPhone 14 Pro Max Unlocked",
			Price:     800,
			Category:  listing.Electronics,
			DealScore: 78,
			URL:       "https://craigslist.org/test2",
		},
		{
			ID:        "test_3",
			Title:     "Herman Miller Office Chair",
			Price:     400,
			Category:  listing.Furniture,
			DealScore: 92,
			URL:       "https://craigslist.org/test3",
		},
	}
}

var _ Store = (*SQLStore)(nil)
