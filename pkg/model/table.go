package model

import (
	"context"
	"fmt"

	"github.com/fhirstack/fhir-schema-deploy/internal/identifier"
)

// ColumnType is the semantic type of a column or row type field
type ColumnType string

const (
	ColumnTypeInt       ColumnType = "INT"
	ColumnTypeBigInt    ColumnType = "BIGINT"
	ColumnTypeVarchar   ColumnType = "VARCHAR"
	ColumnTypeDouble    ColumnType = "DOUBLE"
	ColumnTypeTimestamp ColumnType = "TIMESTAMP"
)

type (
	// Column is one typed column of a table or field of a row type. Size is
	// the maximum length and only meaningful for varchar
	Column struct {
		Name     string
		Type     ColumnType
		Size     int
		Nullable bool
	}

	// Index is a secondary index over declared columns. IncludeColumns are
	// carried in the index leaf pages without being part of the key
	Index struct {
		Name           string
		Columns        []string
		IncludeColumns []string
		Unique         bool
	}

	// Table is a schema table. A non-empty TenantColumn means every row is
	// scoped to a tenant; a non-nil AccessVariable means the store itself
	// restricts rows to the tenant held in that session variable. Fields are
	// exported for targets to render; callers must not mutate them
	Table struct {
		object
		Columns        []Column
		PrimaryKey     []string
		Indexes        []Index
		TenantColumn   string
		Tablespace     *Tablespace
		AccessVariable *SessionVariable
	}
)

func validateColumn(c Column) error {
	if err := identifier.Validate(c.Name); err != nil {
		return err
	}
	if c.Type == ColumnTypeVarchar && c.Size <= 0 {
		return fmt.Errorf("varchar column %q must declare a positive size", c.Name)
	}
	return nil
}

func (t *Table) Apply(ctx context.Context, target Target) error {
	if err := target.CreateTable(ctx, t); err != nil {
		return fmt.Errorf("creating table %s: %w", t.name, err)
	}
	return applyPrivileges(ctx, t, target)
}
