package repository

import (
	"context"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
)

type colType int

const (
	colText colType = iota
	colNumber
	colInteger
	colBool
	colTime
	colJSON
)

type tableColumn struct {
	name string
	typ  colType
}

type table struct {
	name    string
	primary []string
	columns []tableColumn
}

var propertyTable = table{
	name:    "properties",
	primary: []string{"id"},
	columns: []tableColumn{
		{"id", colText},
		{"owner_id", colText},
		{"normalized_address", colText},
		{"address", colText},
		{"city", colText},
		{"state", colText},
		{"zip_code", colText},
		{"county", colText},
		{"property_type", colText},
		{"legal_description", colText},
		{"property_sqf", colNumber},
		{"construction_year", colNumber},
		{"purchase_price", colNumber},
		{"refinance_price", colNumber},
		{"purchase_refinance_closing_date", colText},
		{"closing_date", colText},
		{"valuation", colNumber},
		{"assessed_value", colNumber},
		{"loan_amount", colNumber},
		{"loan_number", colText},
		{"loan_rate", colNumber},
		{"loan_term", colNumber},
		{"interest_rate", colNumber},
		{"term_years", colNumber},
		{"monthly_payment", colNumber},
		{"borrower_name", colText},
		{"lender_name", colText},
		{"rent", colNumber},
		{"taxes", colNumber},
		{"insurance", colNumber},
		{"hoa", colNumber},
		{"is_primary_residence", colBool},
		{"created_at", colTime},
		{"updated_at", colTime},
	},
}

var mortgageTable = table{
	name:    "mortgages",
	primary: []string{"property_id"},
	columns: []tableColumn{
		{"property_id", colText},
		{"lender_name", colText},
		{"loan_number", colText},
		{"loan_amount", colNumber},
		{"interest_rate", colNumber},
		{"monthly_payment", colNumber},
		{"start_date", colText},
		{"first_payment_date", colText},
		{"loan_term_months", colInteger},
		{"created_at", colTime},
		{"updated_at", colTime},
	},
}

var personTable = table{
	name:    "persons",
	primary: []string{"id"},
	columns: []tableColumn{
		{"id", colText},
		{"legal_type", colText},
		{"full_name", colText},
		{"status", colText},
		{"created_at", colTime},
	},
}

var uploadTable = table{
	name:    "document_uploads",
	primary: []string{"id"},
	columns: []tableColumn{
		{"id", colText},
		{"batch_id", colText},
		{"user_id", colText},
		{"property_id", colText},
		{"original_filename", colText},
		{"file_path", colText},
		{"file_size", colInteger},
		{"upload_status", colText},
		{"document_type", colText},
		{"extracted_data", colJSON},
		{"extraction_confidence", colNumber},
		{"error_message", colText},
		{"created_at", colTime},
		{"updated_at", colTime},
	},
}

var batchTable = table{
	name:    "upload_batches",
	primary: []string{"id"},
	columns: []tableColumn{
		{"id", colText},
		{"user_id", colText},
		{"status", colText},
		{"created_at", colTime},
		{"updated_at", colTime},
	},
}

var eventTable = table{
	name:    "processing_events",
	primary: []string{"id"},
	columns: []tableColumn{
		{"id", colText},
		{"batch_id", colText},
		{"user_id", colText},
		{"document_id", colText},
		{"event_type", colText},
		{"status", colText},
		{"event_data", colJSON},
		{"created_at", colTime},
	},
}

var allTables = []table{personTable, propertyTable, mortgageTable, batchTable, uploadTable, eventTable}

func (t table) has(col string) bool {
	for _, c := range t.columns {
		if c.name == col {
			return true
		}
	}
	return false
}

func sqlType(dialectName string, t colType) string {
	pg := dialectName == dialect.Postgres
	switch t {
	case colNumber:
		return "DOUBLE PRECISION"
	case colInteger:
		return "BIGINT"
	case colBool:
		return "BOOLEAN"
	case colTime:
		if pg {
			return "TIMESTAMPTZ"
		}
		return "TIMESTAMP"
	case colJSON:
		if pg {
			return "JSONB"
		}
		return "TEXT"
	}
	return "TEXT"
}

func (t table) ddl(dialectName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (", t.name)
	for i, c := range t.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", c.name, sqlType(dialectName, c.typ))
	}
	fmt.Fprintf(&b, ", PRIMARY KEY (%s))", strings.Join(t.primary, ", "))
	return b.String()
}

var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_properties_owner ON properties (owner_id)",
	"CREATE INDEX IF NOT EXISTS idx_uploads_batch ON document_uploads (batch_id)",
	"CREATE INDEX IF NOT EXISTS idx_events_batch ON processing_events (batch_id, created_at)",
}

// Migrate creates the tables and indexes if they are missing.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := make([]string, 0, len(allTables)+len(indexes))
	for _, t := range allTables {
		stmts = append(stmts, t.ddl(d.Dialect()))
	}
	stmts = append(stmts, indexes...)
	for _, s := range stmts {
		if _, err := exec(ctx, d.drv, s, []any{}); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	d.logger.Info("repository.migrated", "tables", len(allTables))
	return nil
}
