package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/simple-media/pkg/mediastore"
)

// Repository implements mediastore.MetadataStore using PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

// NewWithPool creates a new PostgreSQL metadata store backed by a connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ mediastore.MetadataStore = (*Repository)(nil)

// Error handling helper
func handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", mediastore.ErrMediaExists, pgErr.ConstraintName)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return mediastore.ErrMediaNotFound
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

const mediaColumns = `
	id, entity_id, author, title, description, file_name, file_extension,
	mime_type, file_size, sha_checksum, kind, width, height, length,
	is_avatar, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedia(row rowScanner) (*mediastore.Media, error) {
	var m mediastore.Media
	err := row.Scan(
		&m.ID, &m.EntityID, &m.Author, &m.Title, &m.Description,
		&m.FileName, &m.FileExtension, &m.MimeType, &m.FileSize,
		&m.ShaChecksum, &m.Kind, &m.Width, &m.Height, &m.Length,
		&m.IsAvatar, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const upsertMediaQuery = `
	INSERT INTO media (
		id, entity_id, author, title, description, file_name,
		file_extension, mime_type, file_size, sha_checksum, kind,
		width, height, length, is_avatar, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title,
		description = EXCLUDED.description,
		file_name = EXCLUDED.file_name,
		file_size = EXCLUDED.file_size,
		sha_checksum = EXCLUDED.sha_checksum,
		width = EXCLUDED.width,
		height = EXCLUDED.height,
		length = EXCLUDED.length,
		is_avatar = EXCLUDED.is_avatar,
		updated_at = EXCLUDED.updated_at`

func upsertMedia(ctx context.Context, db interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
}, m *mediastore.Media) error {
	_, err := db.Exec(ctx, upsertMediaQuery,
		m.ID, m.EntityID, m.Author, m.Title, m.Description, m.FileName,
		m.FileExtension, m.MimeType, m.FileSize, m.ShaChecksum, string(m.Kind),
		m.Width, m.Height, m.Length, m.IsAvatar, m.CreatedAt, m.UpdatedAt)
	return err
}

func (r *Repository) StoreMedia(ctx context.Context, media *mediastore.Media) error {
	if err := upsertMedia(ctx, r.pool, media); err != nil {
		return handlePostgresError("store media", err)
	}
	return nil
}

func (r *Repository) GetMedia(ctx context.Context, id string) (*mediastore.Media, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE id = $1`

	media, err := scanMedia(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, handlePostgresError("get media", err)
	}
	return media, nil
}

func (r *Repository) DeleteMedia(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return handlePostgresError("delete media", err)
	}
	if tag.RowsAffected() == 0 {
		return mediastore.ErrMediaNotFound
	}
	return nil
}

// StoreAvatar unmarks the entity's prior avatar and upserts the new one in a
// single transaction, so concurrent readers never observe two avatars for
// the entity. A partial unique index on (entity_id) WHERE is_avatar backs
// this up at the schema level.
func (r *Repository) StoreAvatar(ctx context.Context, media *mediastore.Media) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return handlePostgresError("store avatar", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE media SET is_avatar = FALSE, updated_at = $3
		 WHERE entity_id = $1 AND is_avatar AND id <> $2`,
		media.EntityID, media.ID, media.UpdatedAt)
	if err != nil {
		return handlePostgresError("store avatar", err)
	}

	avatar := *media
	avatar.IsAvatar = true
	if err := upsertMedia(ctx, tx, &avatar); err != nil {
		return handlePostgresError("store avatar", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return handlePostgresError("store avatar", err)
	}
	return nil
}

func (r *Repository) GetAvatar(ctx context.Context, entityID string) (*mediastore.Media, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE entity_id = $1 AND is_avatar`

	media, err := scanMedia(r.pool.QueryRow(ctx, query, entityID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, mediastore.ErrAvatarNotFound
		}
		return nil, handlePostgresError("get avatar", err)
	}
	return media, nil
}

func (r *Repository) DeleteEntityAvatar(ctx context.Context, entityID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE media SET is_avatar = FALSE WHERE entity_id = $1 AND is_avatar`,
		entityID)
	if err != nil {
		return handlePostgresError("delete entity avatar", err)
	}
	if tag.RowsAffected() == 0 {
		return mediastore.ErrAvatarNotFound
	}
	return nil
}
