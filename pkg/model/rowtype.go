package model

import (
	"context"
	"fmt"

	"github.com/fhirstack/fhir-schema-deploy/internal/identifier"
	"github.com/fhirstack/fhir-schema-deploy/internal/set"
)

// ArraySize is the fixed capacity of every row array type: the hard upper
// bound on how many structured values one procedure call can carry. Callers
// with more values must chunk their input
const ArraySize = 256

type (
	// RowType is a fixed-layout structured type: an ordered list of typed
	// fields, used to pass batched multi-valued parameters to procedures
	RowType struct {
		object
		Fields []Column
	}

	// RowArrayType is a bounded array of exactly one row type
	RowArrayType struct {
		object
		RowType  *RowType
		Capacity int
	}
)

func (rt *RowType) Apply(ctx context.Context, t Target) error {
	if err := t.CreateRowType(ctx, rt); err != nil {
		return fmt.Errorf("creating row type %s: %w", rt.name, err)
	}
	return applyPrivileges(ctx, rt, t)
}

// NewRowArrayType wraps rowType in an array type of the given capacity. The
// row type is the array type's only structural dependency
func NewRowArrayType(schema, name string, version int, rowType *RowType, capacity int) *RowArrayType {
	at := &RowArrayType{
		object:   newObject(schema, name, KindRowArrayType, version),
		RowType:  rowType,
		Capacity: capacity,
	}
	// rowType is non-nil by contract; a nil row type panics here rather than
	// at apply time
	if err := at.AddDependencies(rowType); err != nil {
		panic(err)
	}
	return at
}

func (at *RowArrayType) Apply(ctx context.Context, t Target) error {
	if err := t.CreateRowArrayType(ctx, at); err != nil {
		return fmt.Errorf("creating row array type %s: %w", at.name, err)
	}
	return applyPrivileges(ctx, at, t)
}

// RowTypeBuilder assembles a RowType. Unlike TableBuilder, Build does not
// register the result: callers add the type to the model themselves and track
// it for dependency wiring
type RowTypeBuilder struct {
	schema  string
	name    string
	version int
	fields  []Column
}

func NewRowTypeBuilder(schema, name string, version int) *RowTypeBuilder {
	return &RowTypeBuilder{
		schema:  schema,
		name:    name,
		version: version,
	}
}

func (b *RowTypeBuilder) AddIntField(name string, nullable bool) *RowTypeBuilder {
	return b.addField(name, ColumnTypeInt, 0, nullable)
}

func (b *RowTypeBuilder) AddBigIntField(name string, nullable bool) *RowTypeBuilder {
	return b.addField(name, ColumnTypeBigInt, 0, nullable)
}

func (b *RowTypeBuilder) AddVarcharField(name string, size int, nullable bool) *RowTypeBuilder {
	return b.addField(name, ColumnTypeVarchar, size, nullable)
}

func (b *RowTypeBuilder) AddDoubleField(name string, nullable bool) *RowTypeBuilder {
	return b.addField(name, ColumnTypeDouble, 0, nullable)
}

func (b *RowTypeBuilder) AddTimestampField(name string, nullable bool) *RowTypeBuilder {
	return b.addField(name, ColumnTypeTimestamp, 0, nullable)
}

func (b *RowTypeBuilder) addField(name string, typ ColumnType, size int, nullable bool) *RowTypeBuilder {
	b.fields = append(b.fields, Column{Name: name, Type: typ, Size: size, Nullable: nullable})
	return b
}

func (b *RowTypeBuilder) Build() (*RowType, error) {
	qualified := SchemaQualifiedName{Schema: b.schema, Name: b.name}
	for _, part := range []string{b.schema, b.name} {
		if err := identifier.Validate(part); err != nil {
			return nil, fmt.Errorf("building row type %s: %w", qualified, err)
		}
	}
	if len(b.fields) == 0 {
		return nil, fmt.Errorf("building row type %s: no fields declared", qualified)
	}

	seen := set.NewSet[string]()
	for _, field := range b.fields {
		if err := validateColumn(field); err != nil {
			return nil, fmt.Errorf("building row type %s: %w", qualified, err)
		}
		if seen.Has(field.Name) {
			return nil, fmt.Errorf("building row type %s: field %q: %w", qualified, field.Name, ErrDuplicateColumn)
		}
		seen.Add(field.Name)
	}

	rt := &RowType{
		object: newObject(b.schema, b.name, KindRowType, b.version),
		Fields: append([]Column(nil), b.fields...),
	}
	return rt, nil
}
