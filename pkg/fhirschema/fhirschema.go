// Package fhirschema assembles the physical data model of the FHIR
// relational store: reference tables, per-resource-type table groups,
// structured parameter types, stored procedures, and the dependency edges
// that make the whole thing deployable in order.
package fhirschema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fhirstack/fhir-schema-deploy/internal/identifier"
	"github.com/fhirstack/fhir-schema-deploy/pkg/model"
)

// ErrNoSessionVariable is returned when the build needs the tenant session
// variable (reference tables and resource groups are access-control bound)
// but the generator was configured without one
var ErrNoSessionVariable = errors.New("no tenant session variable configured")

const (
	// DefaultGrantGroup receives the application-role grants
	DefaultGrantGroup = "fhir_user"
	// DefaultSessionVariable holds the active tenant id for a session
	DefaultSessionVariable = "sv_tenant_id"
	// DefaultTablespace places every table of the store
	DefaultTablespace = "fhir_ts"

	// TenantColumn is the tenant discriminator carried by every
	// multi-tenant table
	TenantColumn = "mt_id"

	// SequenceName allocates surrogate keys across the whole store
	SequenceName = "fhir_sequence"
	// BarrierName is the marker everything table- or type-creating feeds
	// into and every procedure waits on
	BarrierName = "all_tables_complete"

	tablespaceExtentSizeKB = 128
	sequenceStartWith      = 1
	sequenceCacheSize      = 1000

	parameterNamesTable = "parameter_names"
	codeSystemsTable    = "code_systems"
	resourceTypesTable  = "resource_types"

	addCodeSystemProcedure    = "add_code_system"
	addParameterNameProcedure = "add_parameter_name"
	addResourceTypeProcedure  = "add_resource_type"
	addAnyResourceProcedure   = "add_any_resource"
)

type options struct {
	resourceTypes   []string
	sessionVariable string
	tablespace      string
	grantGroup      string
	templates       *TemplateSet
	groupFactory    GroupFactory
	concurrentTypes bool
}

type Option func(*options)

// WithResourceTypes replaces the built-in resource type catalog
func WithResourceTypes(types ...string) Option {
	return func(o *options) {
		o.resourceTypes = types
	}
}

// WithSessionVariable renames the tenant session variable. An empty name
// means no session variable exists; builds that need one fail with
// ErrNoSessionVariable
func WithSessionVariable(name string) Option {
	return func(o *options) {
		o.sessionVariable = name
	}
}

// WithTablespace renames the tablespace every table is placed in
func WithTablespace(name string) Option {
	return func(o *options) {
		o.tablespace = name
	}
}

// WithGrantGroup renames the grant group that receives table, sequence, and
// procedure privileges
func WithGrantGroup(name string) Option {
	return func(o *options) {
		o.grantGroup = name
	}
}

// WithProcedureTemplates replaces the embedded procedure body templates
func WithProcedureTemplates(ts *TemplateSet) Option {
	return func(o *options) {
		o.templates = ts
	}
}

// WithGroupFactory replaces the built-in resource table-group factory
func WithGroupFactory(f GroupFactory) Option {
	return func(o *options) {
		o.groupFactory = f
	}
}

// WithConcurrentTypeCreation drops the serialized chain between the six
// structured type pairs, leaving them mutually independent. The chain only
// exists because some stores deadlock under concurrent type creation; a store
// without that limitation can apply the types in one wave
func WithConcurrentTypeCreation() Option {
	return func(o *options) {
		o.concurrentTypes = true
	}
}

// Generator builds the full schema model. Configuration is fixed at
// construction; every Build starts from an empty model, so one generator can
// be reused
type Generator struct {
	adminSchema string
	dataSchema  string
	opts        options
}

func New(adminSchema, dataSchema string, opts ...Option) (*Generator, error) {
	resolved := options{
		resourceTypes:   AllResourceTypes(),
		sessionVariable: DefaultSessionVariable,
		tablespace:      DefaultTablespace,
		grantGroup:      DefaultGrantGroup,
	}
	for _, opt := range opts {
		opt(&resolved)
	}

	for _, name := range []string{adminSchema, dataSchema, resolved.tablespace, resolved.grantGroup} {
		if err := identifier.Validate(name); err != nil {
			return nil, fmt.Errorf("configuring generator: %w", err)
		}
	}
	if resolved.sessionVariable != "" {
		if err := identifier.Validate(resolved.sessionVariable); err != nil {
			return nil, fmt.Errorf("configuring generator: %w", err)
		}
	}
	if len(resolved.resourceTypes) == 0 {
		return nil, fmt.Errorf("configuring generator: at least one resource type is required")
	}

	if resolved.templates == nil {
		resolved.templates = DefaultTemplates(nil)
	}
	if resolved.groupFactory == nil {
		resolved.groupFactory = NewResourceGroupFactory()
	}

	return &Generator{
		adminSchema: adminSchema,
		dataSchema:  dataSchema,
		opts:        resolved,
	}, nil
}

// buildContext is the state threaded through the build phases. Each phase is
// a pure function from the prior context to a new one; nothing accumulates on
// the generator itself
type buildContext struct {
	model *model.PhysicalDataModel

	tablespace      *model.Tablespace
	sessionVariable *model.SessionVariable
	sequence        *model.Sequence

	parameterNames *model.Table
	codeSystems    *model.Table
	resourceTypes  *model.Table

	// procedureDeps accumulates every table- and type-creating object; the
	// barrier's dependency set is exactly this, computed, never curated
	procedureDeps []model.Object

	barrier *model.Marker
}

// Build assembles a fresh model. On error nothing is returned: the model is
// either fully built or the run has failed
func (g *Generator) Build() (*model.PhysicalDataModel, error) {
	ctx := buildContext{model: model.NewPhysicalDataModel()}

	phases := []struct {
		name string
		fn   func(buildContext) (buildContext, error)
	}{
		{"admin objects", g.addProvidedAdminObjects},
		{"sequence", g.addSequence},
		{"reference tables", g.addReferenceTables},
		{"resource table groups", g.addResourceTableGroups},
		{"parameter types", g.addParameterTypes},
		{"barrier", g.addBarrier},
		{"procedures", g.addProcedures},
	}
	for _, phase := range phases {
		next, err := phase.fn(ctx)
		if err != nil {
			return nil, fmt.Errorf("building schema, %s phase: %w", phase.name, err)
		}
		ctx = next
	}

	return ctx.model, nil
}

// addProvidedAdminObjects declares the objects the admin deployment already
// created: the tablespace and the tenant session variable. They are legal
// dependency targets but are not applied by this model
func (g *Generator) addProvidedAdminObjects(ctx buildContext) (buildContext, error) {
	ctx.tablespace = model.NewTablespace(g.opts.tablespace, model.InitialVersion, tablespaceExtentSizeKB)
	provided := []model.Object{ctx.tablespace}

	if g.opts.sessionVariable != "" {
		ctx.sessionVariable = model.NewSessionVariable(g.adminSchema, g.opts.sessionVariable, model.InitialVersion)
		provided = append(provided, ctx.sessionVariable)
	}

	if err := ctx.model.MarkProvided(provided...); err != nil {
		return ctx, err
	}
	return ctx, nil
}

func (g *Generator) addSequence(ctx buildContext) (buildContext, error) {
	seq := model.NewSequence(g.dataSchema, SequenceName, model.InitialVersion,
		sequenceStartWith, sequenceCacheSize, false)
	if err := seq.AddPrivileges(model.GroupPrivileges(g.opts.grantGroup, model.PrivilegeUsage)...); err != nil {
		return ctx, err
	}
	if err := ctx.model.AddObject(seq); err != nil {
		return ctx, err
	}
	ctx.sequence = seq
	return ctx, nil
}

// addReferenceTables creates the three lookup tables every resource group and
// procedure leans on. They are mutually independent but all precede the
// per-resource tables
func (g *Generator) addReferenceTables(ctx buildContext) (buildContext, error) {
	if ctx.sessionVariable == nil {
		return ctx, fmt.Errorf("reference tables are access-control bound: %w", ErrNoSessionVariable)
	}

	parameterNames, err := g.referenceTableBuilder(ctx, parameterNamesTable).
		AddIntColumn("parameter_name_id", false).
		AddVarcharColumn("parameter_name", 255, false).
		AddUniqueIndex("idx_parameter_name_rtnm", []string{TenantColumn, "parameter_name"}, "parameter_name_id").
		AddPrimaryKey(TenantColumn, "parameter_name_id").
		Build(ctx.model)
	if err != nil {
		return ctx, err
	}

	codeSystems, err := g.referenceTableBuilder(ctx, codeSystemsTable).
		AddIntColumn("code_system_id", false).
		AddVarcharColumn("code_system_name", 255, false).
		AddUniqueIndex("idx_code_system_cinm", []string{TenantColumn, "code_system_name"}, "code_system_id").
		AddPrimaryKey(TenantColumn, "code_system_id").
		Build(ctx.model)
	if err != nil {
		return ctx, err
	}

	resourceTypes, err := g.referenceTableBuilder(ctx, resourceTypesTable).
		AddIntColumn("resource_type_id", false).
		AddVarcharColumn("resource_type", 64, false).
		AddUniqueIndex("idx_unq_resource_types_rt", []string{TenantColumn, "resource_type"}, "resource_type_id").
		AddPrimaryKey(TenantColumn, "resource_type_id").
		Build(ctx.model)
	if err != nil {
		return ctx, err
	}

	ctx.parameterNames = parameterNames
	ctx.codeSystems = codeSystems
	ctx.resourceTypes = resourceTypes
	ctx.procedureDeps = append(ctx.procedureDeps, parameterNames, codeSystems, resourceTypes)
	return ctx, nil
}

func (g *Generator) referenceTableBuilder(ctx buildContext, name string) *model.TableBuilder {
	return model.NewTableBuilder(g.dataSchema, name, model.InitialVersion).
		SetTenantColumn(TenantColumn).
		SetTablespace(ctx.tablespace).
		EnableAccessControl(ctx.sessionVariable).
		AddPrivileges(g.opts.grantGroup,
			model.PrivilegeSelect, model.PrivilegeInsert, model.PrivilegeUpdate, model.PrivilegeDelete)
}

// addResourceTableGroups delegates the physical storage of each resource type
// to the group factory, then attaches the cross-cutting dependencies the
// factory does not know about
func (g *Generator) addResourceTableGroups(ctx buildContext) (buildContext, error) {
	if ctx.sessionVariable == nil {
		return ctx, fmt.Errorf("resource tables are access-control bound: %w", ErrNoSessionVariable)
	}

	for _, resourceType := range g.opts.resourceTypes {
		group, err := g.opts.groupFactory.Group(GroupRequest{
			Schema:         g.dataSchema,
			ResourceType:   resourceType,
			Version:        model.InitialVersion,
			Tablespace:     ctx.tablespace,
			AccessVariable: ctx.sessionVariable,
			GrantGroup:     g.opts.grantGroup,
		})
		if err != nil {
			return ctx, fmt.Errorf("resource type %s: %w", resourceType, err)
		}

		if err := group.AddDependencies(ctx.tablespace, ctx.sessionVariable,
			ctx.parameterNames, ctx.codeSystems, ctx.resourceTypes); err != nil {
			return ctx, err
		}
		if err := ctx.model.AddObject(group); err != nil {
			return ctx, err
		}
		ctx.procedureDeps = append(ctx.procedureDeps, group)
	}
	return ctx, nil
}

// parameterTypeDef describes one structured row/array type pair
type parameterTypeDef struct {
	name   string
	fields func(*model.RowTypeBuilder) *model.RowTypeBuilder
}

// parameterTypes are the six value-kind pairs, in chain order. The chain
// order itself carries no meaning beyond serializing type creation
var parameterTypes = []parameterTypeDef{
	{"t_str_values", func(b *model.RowTypeBuilder) *model.RowTypeBuilder {
		return b.
			AddBigIntField("parameter_name_id", false).
			AddVarcharField("str_value", 511, true).
			AddVarcharField("str_value_lcase", 511, true)
	}},
	{"t_token_values", func(b *model.RowTypeBuilder) *model.RowTypeBuilder {
		return b.
			AddBigIntField("parameter_name_id", false).
			AddIntField("code_system_id", true).
			AddVarcharField("token_value", 255, true)
	}},
	{"t_date_values", func(b *model.RowTypeBuilder) *model.RowTypeBuilder {
		return b.
			AddBigIntField("parameter_name_id", false).
			AddTimestampField("date_value", true).
			AddTimestampField("date_start", true).
			AddTimestampField("date_end", true)
	}},
	{"t_latlng_values", func(b *model.RowTypeBuilder) *model.RowTypeBuilder {
		return b.
			AddBigIntField("parameter_name_id", false).
			AddDoubleField("latitude_value", true).
			AddDoubleField("longitude_value", true)
	}},
	{"t_quantity_values", func(b *model.RowTypeBuilder) *model.RowTypeBuilder {
		return b.
			AddBigIntField("parameter_name_id", false).
			AddVarcharField("code", 255, false).
			AddDoubleField("quantity_value", true).
			AddDoubleField("quantity_value_low", true).
			AddDoubleField("quantity_value_high", true).
			AddIntField("code_system_id", true)
	}},
	{"t_number_values", func(b *model.RowTypeBuilder) *model.RowTypeBuilder {
		return b.
			AddBigIntField("parameter_name_id", false).
			AddDoubleField("number_value", true)
	}},
}

// addParameterTypes builds the row/array type pairs used to batch
// multi-valued parameters into procedure calls. By default each pair depends
// on the previous pair's array type: the store deadlocks when types are
// created concurrently, so the six pairs are forced into one linear chain
func (g *Generator) addParameterTypes(ctx buildContext) (buildContext, error) {
	var previous model.Object
	for _, def := range parameterTypes {
		rt, err := def.fields(model.NewRowTypeBuilder(g.dataSchema, def.name, model.InitialVersion)).Build()
		if err != nil {
			return ctx, err
		}
		if previous != nil && !g.opts.concurrentTypes {
			if err := rt.AddDependencies(previous); err != nil {
				return ctx, err
			}
		}
		if err := ctx.model.AddObject(rt); err != nil {
			return ctx, err
		}

		arr := model.NewRowArrayType(g.dataSchema, def.name+"_arr", model.InitialVersion, rt, model.ArraySize)
		if err := ctx.model.AddObject(arr); err != nil {
			return ctx, err
		}

		ctx.procedureDeps = append(ctx.procedureDeps, rt, arr)
		previous = arr
	}
	return ctx, nil
}

// addBarrier collapses the whole table/type fan-in into one marker
func (g *Generator) addBarrier(ctx buildContext) (buildContext, error) {
	barrier := model.NewMarker(g.dataSchema, BarrierName, model.InitialVersion)
	if err := barrier.AddDependencies(ctx.procedureDeps...); err != nil {
		return ctx, err
	}
	if err := ctx.model.AddObject(barrier); err != nil {
		return ctx, err
	}
	ctx.barrier = barrier
	return ctx, nil
}

// addProcedures registers the stored procedures. Each one logically touches a
// single table, but all of them wait on the barrier so no procedure is ever
// scheduled while tables or types are still being created
func (g *Generator) addProcedures(ctx buildContext) (buildContext, error) {
	schemaTokens := map[string]string{
		"SCHEMA_NAME":       g.dataSchema,
		"ADMIN_SCHEMA_NAME": g.adminSchema,
		"SESSION_VARIABLE":  g.opts.sessionVariable,
	}

	for _, proc := range []struct {
		name        string
		targetTable *model.Table
	}{
		{addCodeSystemProcedure, ctx.codeSystems},
		{addParameterNameProcedure, ctx.parameterNames},
		{addResourceTypeProcedure, ctx.resourceTypes},
		{addAnyResourceProcedure, ctx.resourceTypes},
	} {
		_, err := ctx.model.AddProcedure(g.dataSchema, proc.name, model.InitialVersion,
			g.opts.templates.Body(proc.name, schemaTokens),
			[]model.Object{ctx.sequence, proc.targetTable, ctx.barrier},
			model.GroupPrivileges(g.opts.grantGroup, model.PrivilegeExecute))
		if err != nil {
			return ctx, err
		}
	}
	return ctx, nil
}

// lcName lowercases a FHIR resource type name for use in identifiers
func lcName(resourceType string) string {
	return strings.ToLower(resourceType)
}
