package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"fileforge-backend/internal/models"
)

type Client struct {
	db *sql.DB
}

func NewClient(connectionString string) (*Client, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

// RecordOperation appends one ledger row. Rows are never updated; a
// correction is a new row. Anonymous callers are recorded with a NULL
// user id.
func (c *Client) RecordOperation(ctx context.Context, op *models.Operation) error {
	err := c.db.QueryRowContext(ctx, `
		INSERT INTO operations (id, user_id, kind, source_name, source_size, target_type,
		                        result_size, status, storage_ref, upscale_factor, drop_link_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`, op.ID, op.UserID, op.Kind, op.SourceName, op.SourceSize, op.TargetType,
		op.ResultSize, op.Status, op.StorageRef, op.UpscaleFactor, op.DropLinkID,
	).Scan(&op.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record operation: %w", err)
	}
	return nil
}

func (c *Client) GetOperation(ctx context.Context, id, userID uuid.UUID) (*models.Operation, error) {
	var op models.Operation
	err := c.db.QueryRowContext(ctx, `
		SELECT id, user_id, kind, source_name, source_size, target_type,
		       result_size, status, storage_ref, upscale_factor, drop_link_id, created_at
		FROM operations
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(
		&op.ID, &op.UserID, &op.Kind, &op.SourceName, &op.SourceSize, &op.TargetType,
		&op.ResultSize, &op.Status, &op.StorageRef, &op.UpscaleFactor, &op.DropLinkID, &op.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}
	return &op, nil
}

func (c *Client) ListOperations(ctx context.Context, userID uuid.UUID) ([]models.Operation, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, user_id, kind, source_name, source_size, target_type,
		       result_size, status, storage_ref, upscale_factor, drop_link_id, created_at
		FROM operations
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	var ops []models.Operation
	for rows.Next() {
		var op models.Operation
		err := rows.Scan(
			&op.ID, &op.UserID, &op.Kind, &op.SourceName, &op.SourceSize, &op.TargetType,
			&op.ResultSize, &op.Status, &op.StorageRef, &op.UpscaleFactor, &op.DropLinkID, &op.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// DeleteOperation removes the row and hands back its storage reference so
// the caller can release the referenced bytes in the same logical step.
func (c *Client) DeleteOperation(ctx context.Context, id, userID uuid.UUID) (string, error) {
	var ref sql.NullString
	err := c.db.QueryRowContext(ctx, `
		DELETE FROM operations
		WHERE id = $1 AND user_id = $2
		RETURNING storage_ref
	`, id, userID).Scan(&ref)
	if err != nil {
		return "", fmt.Errorf("failed to delete operation: %w", err)
	}
	return ref.String, nil
}

// InsertBlob stores inline-tier bytes as a row of their own.
func (c *Client) InsertBlob(ctx context.Context, id uuid.UUID, fileName string, content []byte, targetType string) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO blobs (id, file_name, content, target_type)
		VALUES ($1, $2, $3, $4)
	`, id, fileName, content, targetType)
	if err != nil {
		return fmt.Errorf("failed to insert blob: %w", err)
	}
	return nil
}

// BlobRow is one inline-storage row as the driver hands it over. Content is
// scanned into sql.RawBytes-compatible []byte without interpretation; the
// resolver normalizes the encoding. AliasOf, when set, points at the row
// actually holding the bytes.
type BlobRow struct {
	ID         uuid.UUID
	FileName   string
	Content    []byte
	TargetType string
	AliasOf    uuid.NullUUID
}

func (c *Client) GetBlob(ctx context.Context, id uuid.UUID) (*BlobRow, error) {
	var row BlobRow
	err := c.db.QueryRowContext(ctx, `
		SELECT id, file_name, content, target_type, alias_of
		FROM blobs
		WHERE id = $1
	`, id).Scan(&row.ID, &row.FileName, &row.Content, &row.TargetType, &row.AliasOf)
	if err != nil {
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}
	return &row, nil
}

func (c *Client) DeleteBlob(ctx context.Context, id uuid.UUID) error {
	_, err := c.db.ExecContext(ctx, `
		DELETE FROM blobs
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}
