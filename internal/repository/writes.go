package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/property-intake/internal/common"
	"github.com/joseph-ayodele/property-intake/internal/consolidate"
)

// ApplyWrites applies one batch's write requests in a single transaction:
// the owner row, the property insert or update, the mortgage sub-record and
// one document_uploads row per processed document.
func (d *DB) ApplyWrites(ctx context.Context, batchID string, out *consolidate.Outcome) (err error) {
	if out == nil {
		return nil
	}
	tx, err := d.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", common.ErrDatabase, err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				d.logger.Error("repository.rollback.failed", "batch_id", batchID, "error", rerr)
			}
		}
	}()

	now := d.now().UTC()
	b := d.builder()

	if p := out.Person; p != nil {
		q, args := b.Insert(personTable.name).
			Columns("id", "legal_type", "full_name", "status", "created_at").
			Values(p.PersonID, p.LegalType, p.FullName, p.Status, now).
			OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing()).
			Query()
		if _, err = exec(ctx, tx, q, args); err != nil {
			return fmt.Errorf("%w: insert person: %v", common.ErrDatabase, err)
		}
	}

	if p := out.Property; p != nil {
		if err = d.writeProperty(ctx, tx, b, p); err != nil {
			return err
		}
	}

	if m := out.Mortgage; m != nil {
		cols, vals := columnValues(mortgageTable, m.Columns, d.logger)
		cols = append([]string{"property_id"}, cols...)
		vals = append([]any{m.PropertyID}, vals...)
		cols = append(cols, "created_at", "updated_at")
		vals = append(vals, now, now)
		q, args := b.Insert(mortgageTable.name).
			Columns(cols...).
			Values(vals...).
			OnConflict(entsql.ConflictColumns("property_id"), entsql.ResolveWith(func(u *entsql.UpdateSet) {
				for _, c := range cols {
					if c != "property_id" && c != "created_at" {
						u.SetExcluded(c)
					}
				}
			})).
			Query()
		if _, err = exec(ctx, tx, q, args); err != nil {
			return fmt.Errorf("%w: upsert mortgage: %v", common.ErrDatabase, err)
		}
	}

	for _, u := range out.Documents {
		var data any
		if u.Data != nil {
			raw, jerr := json.Marshal(u.Data)
			if jerr != nil {
				err = fmt.Errorf("encode extracted data for %s: %w", u.UploadID, jerr)
				return err
			}
			data = string(raw)
		}
		var errMsg any
		if u.Error != "" {
			errMsg = u.Error
		}
		q, args := b.Insert(uploadTable.name).
			Columns("id", "batch_id", "upload_status", "document_type", "extracted_data", "extraction_confidence", "error_message", "created_at", "updated_at").
			Values(u.UploadID, batchID, string(u.Status), string(u.DocumentType), data, u.Confidence, errMsg, now, now).
			OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWith(func(s *entsql.UpdateSet) {
				for _, c := range []string{"batch_id", "upload_status", "document_type", "extracted_data", "extraction_confidence", "error_message", "updated_at"} {
					s.SetExcluded(c)
				}
			})).
			Query()
		if _, err = exec(ctx, tx, q, args); err != nil {
			return fmt.Errorf("%w: upsert document %s: %v", common.ErrDatabase, u.UploadID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", common.ErrDatabase, err)
	}
	d.logger.InfoContext(ctx, "repository.writes.applied",
		"batch_id", batchID,
		"person", out.Person != nil,
		"property", out.Property != nil,
		"mortgage", out.Mortgage != nil,
		"documents", len(out.Documents),
	)
	return nil
}

func (d *DB) writeProperty(ctx context.Context, tx dialect.Tx, b *entsql.DialectBuilder, p *consolidate.PropertyWrite) error {
	now := d.now().UTC()
	cols, vals := columnValues(propertyTable, p.Columns, d.logger)

	switch p.Op {
	case consolidate.OpInsert:
		cols = append([]string{"id", "owner_id", "normalized_address"}, cols...)
		vals = append([]any{p.PropertyID, p.OwnerID, p.NormalizedAddress}, vals...)
		cols = append(cols, "created_at", "updated_at")
		vals = append(vals, now, now)
		q, args := b.Insert(propertyTable.name).Columns(cols...).Values(vals...).Query()
		if _, err := exec(ctx, tx, q, args); err != nil {
			return fmt.Errorf("%w: insert property: %v", common.ErrDatabase, err)
		}
	case consolidate.OpUpdate:
		u := b.Update(propertyTable.name).Set("updated_at", now).Set("normalized_address", p.NormalizedAddress)
		for i, c := range cols {
			u.Set(c, vals[i])
		}
		q, args := u.Where(entsql.EQ("id", p.PropertyID)).Query()
		n, err := exec(ctx, tx, q, args)
		if err != nil {
			return fmt.Errorf("%w: update property: %v", common.ErrDatabase, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: property %s", common.ErrNotFound, p.PropertyID)
		}
	default:
		return fmt.Errorf("%w: unknown property op %q", common.ErrInvalidInput, p.Op)
	}
	return nil
}

// columnValues keeps the columns the table knows, in sorted order so the
// generated SQL is stable.
func columnValues(t table, in map[string]any, logger *slog.Logger) ([]string, []any) {
	names := make([]string, 0, len(in))
	for k := range in {
		if !t.has(k) {
			logger.Warn("repository.column.unknown", "table", t.name, "column", k)
			continue
		}
		names = append(names, k)
	}
	sort.Strings(names)
	vals := make([]any, len(names))
	for i, n := range names {
		vals[i] = in[n]
	}
	return names, vals
}
