package repository

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/property-intake/constants"
	"github.com/joseph-ayodele/property-intake/internal/common"
)

// SetDocumentStatus upserts the upload_status of a document row.
func (d *DB) SetDocumentStatus(ctx context.Context, documentID string, status constants.DocumentStatus) error {
	now := d.now().UTC()
	q, args := d.builder().Insert(uploadTable.name).
		Columns("id", "upload_status", "created_at", "updated_at").
		Values(documentID, string(status), now, now).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWith(func(u *entsql.UpdateSet) {
			u.SetExcluded("upload_status")
			u.SetExcluded("updated_at")
		})).
		Query()
	if _, err := exec(ctx, d.drv, q, args); err != nil {
		return fmt.Errorf("%w: document status: %v", common.ErrDatabase, err)
	}
	return nil
}

// SetBatchStatus upserts the status of a batch row.
func (d *DB) SetBatchStatus(ctx context.Context, batchID string, status constants.BatchStatus) error {
	now := d.now().UTC()
	q, args := d.builder().Insert(batchTable.name).
		Columns("id", "user_id", "status", "created_at", "updated_at").
		Values(batchID, nullable(common.UserIDFromContext(ctx)), string(status), now, now).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWith(func(u *entsql.UpdateSet) {
			u.SetExcluded("status")
			u.SetExcluded("updated_at")
		})).
		Query()
	if _, err := exec(ctx, d.drv, q, args); err != nil {
		return fmt.Errorf("%w: batch status: %v", common.ErrDatabase, err)
	}
	return nil
}

// DocumentStatus reads the current upload_status of a document.
func (d *DB) DocumentStatus(ctx context.Context, documentID string) (constants.DocumentStatus, error) {
	s, err := d.scalar(ctx, uploadTable.name, "upload_status", documentID)
	return constants.DocumentStatus(s), err
}

// BatchStatus reads the current status of a batch.
func (d *DB) BatchStatus(ctx context.Context, batchID string) (constants.BatchStatus, error) {
	s, err := d.scalar(ctx, batchTable.name, "status", batchID)
	return constants.BatchStatus(s), err
}

func (d *DB) scalar(ctx context.Context, tbl, col, id string) (string, error) {
	b := d.builder()
	q, args := b.Select(col).From(b.Table(tbl)).Where(entsql.EQ("id", id)).Query()
	var rows entsql.Rows
	if err := d.drv.Query(ctx, q, args, &rows); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	if !rows.Next() {
		if err := closeRows(&rows); err != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: %s %s", common.ErrNotFound, tbl, id)
	}
	var v string
	if err := rows.Scan(&v); err != nil {
		_ = rows.Close()
		return "", fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return v, closeRows(&rows)
}
