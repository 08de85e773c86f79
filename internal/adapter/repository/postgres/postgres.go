package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/link-shortener/internal/entity"
)

const uniqueViolationErrCode = "23505"

// Names of the partial unique indexes created by the migrations.
const (
	safeSlugConstraint = "urls_safe_slug_key"
	safeHashConstraint = "urls_safe_hash_key"
)

const urlColumns = `id, original_url, original_url_hash, slug, is_safe, unsafe_details, visit_count, created_at, updated_at`

// uniqueViolation reports whether err is a unique violation and, if so, which constraint failed.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.SQLState() != uniqueViolationErrCode {
		return "", false
	}
	return pgErr.ConstraintName, true
}

type urlDB struct {
	ID              int64     `db:"id"`
	OriginalURL     string    `db:"original_url"`
	OriginalURLHash string    `db:"original_url_hash"`
	Slug            string    `db:"slug"`
	IsSafe          bool      `db:"is_safe"`
	UnsafeDetails   []byte    `db:"unsafe_details"`
	VisitCount      int64     `db:"visit_count"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (u *urlDB) toEntity() *entity.URL {
	return &entity.URL{
		ID:              u.ID,
		OriginalURL:     u.OriginalURL,
		OriginalURLHash: u.OriginalURLHash,
		Slug:            u.Slug,
		IsSafe:          u.IsSafe,
		UnsafeDetails:   u.UnsafeDetails,
		VisitCount:      u.VisitCount,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

// URLRepository stores URL mappings in the urls table. Every lookup is
// restricted to rows that passed the safety check.
type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{db: db}
}

func (r *URLRepository) Save(ctx context.Context, url entity.NewURL) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.Save"
	const query = `INSERT INTO urls(original_url, original_url_hash, slug, is_safe, unsafe_details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + urlColumns

	var details any
	if len(url.UnsafeDetails) > 0 {
		details = string(url.UnsafeDetails)
	}

	var row urlDB

	err := r.db.GetContext(ctx, &row, query, url.OriginalURL, url.OriginalURLHash, url.Slug, url.IsSafe, details)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			switch constraint {
			case safeSlugConstraint:
				return nil, fmt.Errorf("%s: %w", op, entity.ErrSlugExists)
			case safeHashConstraint:
				return nil, fmt.Errorf("%s: %w", op, entity.ErrURLExists)
			}
		}

		return nil, fmt.Errorf("%s: failed to insert into urls table: %w", op, err)
	}

	return row.toEntity(), nil
}

func (r *URLRepository) RetrieveByHash(ctx context.Context, hash string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.RetrieveByHash"
	const query = `SELECT ` + urlColumns + ` FROM urls WHERE original_url_hash = $1 AND is_safe`

	var row urlDB

	if err := r.db.GetContext(ctx, &row, query, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from urls table: %w", op, err)
	}

	return row.toEntity(), nil
}

func (r *URLRepository) RetrieveBySlug(ctx context.Context, slug string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.RetrieveBySlug"
	const query = `SELECT ` + urlColumns + ` FROM urls WHERE slug = $1 AND is_safe`

	var row urlDB

	if err := r.db.GetContext(ctx, &row, query, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from urls table: %w", op, err)
	}

	return row.toEntity(), nil
}

// SlugExists reports whether a safe URL already uses slug. Slugs of unsafe
// URLs are not considered taken.
func (r *URLRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	const op = "adapter.repository.postgres.URLRepository.SlugExists"
	const query = `SELECT EXISTS(SELECT 1 FROM urls WHERE slug = $1 AND is_safe)`

	var exists bool

	if err := r.db.GetContext(ctx, &exists, query, slug); err != nil {
		return false, fmt.Errorf("%s: failed to check slug in urls table: %w", op, err)
	}

	return exists, nil
}

// IncrementVisitCount adds one visit to the safe URL with the given slug.
// It does nothing if there is no such URL.
func (r *URLRepository) IncrementVisitCount(ctx context.Context, slug string) error {
	const op = "adapter.repository.postgres.URLRepository.IncrementVisitCount"
	const query = `UPDATE urls SET visit_count = visit_count + 1, updated_at = NOW() WHERE slug = $1 AND is_safe`

	if _, err := r.db.ExecContext(ctx, query, slug); err != nil {
		return fmt.Errorf("%s: failed to update urls table row: %w", op, err)
	}

	return nil
}
