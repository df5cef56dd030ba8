package repository

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/property-intake/constants"
	"github.com/joseph-ayodele/property-intake/internal/common"
	"github.com/joseph-ayodele/property-intake/internal/pipeline"
)

// CreateBatch records a PENDING batch for userID.
func (d *DB) CreateBatch(ctx context.Context, batchID, userID string) error {
	now := d.now().UTC()
	q, args := d.builder().Insert(batchTable.name).
		Columns("id", "user_id", "status", "created_at", "updated_at").
		Values(batchID, userID, string(constants.BatchPending), now, now).
		Query()
	if _, err := exec(ctx, d.drv, q, args); err != nil {
		return fmt.Errorf("%w: create batch: %v", common.ErrDatabase, err)
	}
	return nil
}

// RegisterUpload records an UPLOADED document row. The submission's
// DocumentID doubles as the upload id.
func (d *DB) RegisterUpload(ctx context.Context, sub pipeline.Submission) error {
	if sub.DocumentID == "" {
		return fmt.Errorf("%w: document id is required", common.ErrInvalidInput)
	}
	now := d.now().UTC()
	q, args := d.builder().Insert(uploadTable.name).
		Columns("id", "batch_id", "user_id", "property_id", "original_filename", "file_path", "file_size", "upload_status", "created_at", "updated_at").
		Values(sub.DocumentID, nullable(sub.BatchID), nullable(sub.UserID), nullable(sub.PropertyID),
			sub.OriginalFilename, sub.Path, sub.DeclaredSize, string(constants.DocumentUploaded), now, now).
		Query()
	if _, err := exec(ctx, d.drv, q, args); err != nil {
		return fmt.Errorf("%w: register upload: %v", common.ErrDatabase, err)
	}
	return nil
}

// BatchSubmissions loads a batch and its uploads in upload order, ready
// for ProcessBatch. Content is fetched later from each file path.
func (d *DB) BatchSubmissions(ctx context.Context, batchID string) (pipeline.Batch, error) {
	b := d.builder()
	batch := pipeline.Batch{ID: batchID}

	q, args := b.Select("user_id").From(b.Table(batchTable.name)).Where(entsql.EQ("id", batchID)).Query()
	var rows entsql.Rows
	if err := d.drv.Query(ctx, q, args, &rows); err != nil {
		return batch, fmt.Errorf("%w: load batch: %v", common.ErrDatabase, err)
	}
	found := rows.Next()
	if found {
		var uid sql.NullString
		if err := rows.Scan(&uid); err != nil {
			_ = rows.Close()
			return batch, fmt.Errorf("%w: scan batch: %v", common.ErrDatabase, err)
		}
		batch.UserID = uid.String
	}
	if err := closeRows(&rows); err != nil {
		return batch, err
	}
	if !found {
		return batch, fmt.Errorf("%w: batch %s", common.ErrNotFound, batchID)
	}

	q, args = b.Select("id", "user_id", "property_id", "original_filename", "file_path", "file_size").
		From(b.Table(uploadTable.name)).
		Where(entsql.EQ("batch_id", batchID)).
		OrderBy("created_at", "id").
		Query()
	var urows entsql.Rows
	if err := d.drv.Query(ctx, q, args, &urows); err != nil {
		return batch, fmt.Errorf("%w: load uploads: %v", common.ErrDatabase, err)
	}
	for urows.Next() {
		var (
			id                   string
			uid, pid, name, path sql.NullString
			size                 sql.NullInt64
		)
		if err := urows.Scan(&id, &uid, &pid, &name, &path, &size); err != nil {
			_ = urows.Close()
			return batch, fmt.Errorf("%w: scan upload: %v", common.ErrDatabase, err)
		}
		batch.Submissions = append(batch.Submissions, pipeline.Submission{
			DocumentID:       id,
			UploadID:         id,
			BatchID:          batchID,
			UserID:           uid.String,
			PropertyID:       pid.String,
			OriginalFilename: name.String,
			Path:             path.String,
			DeclaredSize:     size.Int64,
		})
	}
	return batch, closeRows(&urows)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
