package repository

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/property-intake/internal/common"
	"github.com/joseph-ayodele/property-intake/internal/entity"
)

// OwnerContext loads whether the owner row exists and its properties in
// creation order.
func (d *DB) OwnerContext(ctx context.Context, ownerID string) (entity.OwnerContext, error) {
	oc := entity.OwnerContext{OwnerID: ownerID, Properties: []entity.PropertyRef{}}
	b := d.builder()

	q, args := b.Select("id").From(b.Table(personTable.name)).Where(entsql.EQ("id", ownerID)).Query()
	var rows entsql.Rows
	if err := d.drv.Query(ctx, q, args, &rows); err != nil {
		return oc, fmt.Errorf("%w: load owner: %v", common.ErrDatabase, err)
	}
	oc.Exists = rows.Next()
	if err := closeRows(&rows); err != nil {
		return oc, err
	}

	q, args = b.Select("id", "address").
		From(b.Table(propertyTable.name)).
		Where(entsql.EQ("owner_id", ownerID)).
		OrderBy("created_at", "id").
		Query()
	var prows entsql.Rows
	if err := d.drv.Query(ctx, q, args, &prows); err != nil {
		return oc, fmt.Errorf("%w: load properties: %v", common.ErrDatabase, err)
	}
	for prows.Next() {
		var id string
		var addr sql.NullString
		if err := prows.Scan(&id, &addr); err != nil {
			_ = prows.Close()
			return oc, fmt.Errorf("%w: scan property: %v", common.ErrDatabase, err)
		}
		oc.Properties = append(oc.Properties, entity.PropertyRef{ID: id, Address: addr.String})
	}
	if err := closeRows(&prows); err != nil {
		return oc, err
	}
	d.logger.DebugContext(ctx, "repository.owner.loaded", "owner_id", ownerID, "exists", oc.Exists, "properties", len(oc.Properties))
	return oc, nil
}

func closeRows(rows *entsql.Rows) error {
	err := rows.Err()
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return nil
}
