package model

import (
	"fmt"

	"github.com/fhirstack/fhir-schema-deploy/internal/identifier"
	"github.com/fhirstack/fhir-schema-deploy/internal/set"
)

// TableBuilder assembles a Table. Declarations are collected fluently and
// validated as a whole in Build, so a builder can be populated in any order
type TableBuilder struct {
	schema  string
	name    string
	version int

	columns        []Column
	primaryKey     []string
	indexes        []Index
	tenantColumn   string
	tablespace     *Tablespace
	accessVariable *SessionVariable
	deps           []Object
	privs          []GroupPrivilege
}

func NewTableBuilder(schema, name string, version int) *TableBuilder {
	return &TableBuilder{
		schema:  schema,
		name:    name,
		version: version,
	}
}

func (b *TableBuilder) AddIntColumn(name string, nullable bool) *TableBuilder {
	return b.addColumn(name, ColumnTypeInt, 0, nullable)
}

func (b *TableBuilder) AddBigIntColumn(name string, nullable bool) *TableBuilder {
	return b.addColumn(name, ColumnTypeBigInt, 0, nullable)
}

func (b *TableBuilder) AddVarcharColumn(name string, size int, nullable bool) *TableBuilder {
	return b.addColumn(name, ColumnTypeVarchar, size, nullable)
}

func (b *TableBuilder) AddDoubleColumn(name string, nullable bool) *TableBuilder {
	return b.addColumn(name, ColumnTypeDouble, 0, nullable)
}

func (b *TableBuilder) AddTimestampColumn(name string, nullable bool) *TableBuilder {
	return b.addColumn(name, ColumnTypeTimestamp, 0, nullable)
}

func (b *TableBuilder) addColumn(name string, typ ColumnType, size int, nullable bool) *TableBuilder {
	b.columns = append(b.columns, Column{Name: name, Type: typ, Size: size, Nullable: nullable})
	return b
}

func (b *TableBuilder) AddPrimaryKey(columns ...string) *TableBuilder {
	b.primaryKey = append(b.primaryKey, columns...)
	return b
}

func (b *TableBuilder) AddIndex(name string, columns ...string) *TableBuilder {
	b.indexes = append(b.indexes, Index{Name: name, Columns: columns})
	return b
}

// AddUniqueIndex declares a unique index. includeColumns ride along in the
// index without participating in the uniqueness constraint
func (b *TableBuilder) AddUniqueIndex(name string, columns []string, includeColumns ...string) *TableBuilder {
	b.indexes = append(b.indexes, Index{
		Name:           name,
		Columns:        columns,
		IncludeColumns: includeColumns,
		Unique:         true,
	})
	return b
}

// SetTenantColumn scopes every row of the table to a tenant. The column is
// declared implicitly as a leading non-null INT; it must not also be declared
// explicitly
func (b *TableBuilder) SetTenantColumn(name string) *TableBuilder {
	b.tenantColumn = name
	return b
}

// SetTablespace places the table in ts and records ts as a dependency
func (b *TableBuilder) SetTablespace(ts *Tablespace) *TableBuilder {
	b.tablespace = ts
	return b
}

// EnableAccessControl binds the table to a session variable: the store
// restricts reads and writes to rows whose tenant column matches the
// variable's value. The variable's object is recorded as a dependency, so it
// is applied before any bound table
func (b *TableBuilder) EnableAccessControl(v *SessionVariable) *TableBuilder {
	b.accessVariable = v
	return b
}

func (b *TableBuilder) AddDependencies(deps ...Object) *TableBuilder {
	b.deps = append(b.deps, deps...)
	return b
}

func (b *TableBuilder) AddPrivileges(group string, privileges ...Privilege) *TableBuilder {
	b.privs = append(b.privs, GroupPrivileges(group, privileges...)...)
	return b
}

// Build validates the declaration, registers the table into m, and returns it
// so the caller can wire later objects to depend on it
func (b *TableBuilder) Build(m *PhysicalDataModel) (*Table, error) {
	qualified := SchemaQualifiedName{Schema: b.schema, Name: b.name}
	fail := func(err error) (*Table, error) {
		return nil, fmt.Errorf("building table %s: %w", qualified, err)
	}

	for _, part := range []string{b.schema, b.name} {
		if err := identifier.Validate(part); err != nil {
			return fail(err)
		}
	}

	columns := b.columns
	if b.tenantColumn != "" {
		// the tenant discriminator leads every multi-tenant table
		columns = append([]Column{{Name: b.tenantColumn, Type: ColumnTypeInt}}, columns...)
	}
	if len(columns) == 0 {
		return fail(fmt.Errorf("no columns declared"))
	}

	declared := set.NewSet[string]()
	for _, col := range columns {
		if err := validateColumn(col); err != nil {
			return fail(err)
		}
		if declared.Has(col.Name) {
			return fail(fmt.Errorf("column %q: %w", col.Name, ErrDuplicateColumn))
		}
		declared.Add(col.Name)
	}

	for _, col := range b.primaryKey {
		if !declared.Has(col) {
			return fail(fmt.Errorf("primary key column %q: %w", col, ErrUnknownColumn))
		}
	}
	for _, idx := range b.indexes {
		if err := identifier.Validate(idx.Name); err != nil {
			return fail(err)
		}
		if len(idx.Columns) == 0 {
			return fail(fmt.Errorf("index %q has no key columns", idx.Name))
		}
		for _, col := range append(append([]string(nil), idx.Columns...), idx.IncludeColumns...) {
			if !declared.Has(col) {
				return fail(fmt.Errorf("index %q column %q: %w", idx.Name, col, ErrUnknownColumn))
			}
		}
	}

	table := &Table{
		object:         newObject(b.schema, b.name, KindTable, b.version),
		Columns:        columns,
		PrimaryKey:     append([]string(nil), b.primaryKey...),
		Indexes:        append([]Index(nil), b.indexes...),
		TenantColumn:   b.tenantColumn,
		Tablespace:     b.tablespace,
		AccessVariable: b.accessVariable,
	}

	deps := append([]Object(nil), b.deps...)
	if b.tablespace != nil {
		deps = append(deps, b.tablespace)
	}
	if b.accessVariable != nil {
		deps = append(deps, b.accessVariable)
	}
	if err := table.AddDependencies(deps...); err != nil {
		return fail(err)
	}
	if err := table.AddPrivileges(b.privs...); err != nil {
		return fail(err)
	}

	if err := m.AddTable(table); err != nil {
		return fail(err)
	}
	return table, nil
}
