package fhirschema

import (
	"fmt"

	"github.com/fhirstack/fhir-schema-deploy/internal/identifier"
	"github.com/fhirstack/fhir-schema-deploy/pkg/model"
)

// GroupRequest carries everything a factory needs to lay out the storage for
// one resource type: where the tables live, how they are placed and access
// controlled, and who gets granted on them
type GroupRequest struct {
	Schema         string
	ResourceType   string
	Version        int
	Tablespace     *model.Tablespace
	AccessVariable *model.SessionVariable
	GrantGroup     string
}

// GroupFactory produces the physical storage for one resource type as a
// single object group. The layout of the members is the factory's own
// business; the generator attaches the cross-cutting dependencies afterwards
type GroupFactory interface {
	Group(req GroupRequest) (*model.ObjectGroup, error)
}

// GroupFactoryFunc adapts a plain function to a GroupFactory
type GroupFactoryFunc func(req GroupRequest) (*model.ObjectGroup, error)

func (f GroupFactoryFunc) Group(req GroupRequest) (*model.ObjectGroup, error) {
	return f(req)
}

// NewResourceGroupFactory returns the built-in layout: a version-history
// table, a logical-resource table, and one search value table per structured
// parameter kind, all named after the lower-cased resource type
func NewResourceGroupFactory() GroupFactory {
	return &resourceGroupFactory{}
}

type resourceGroupFactory struct{}

func (f *resourceGroupFactory) Group(req GroupRequest) (*model.ObjectGroup, error) {
	lc := lcName(req.ResourceType)
	if err := identifier.Validate(lc); err != nil {
		return nil, fmt.Errorf("resource type %q: %w", req.ResourceType, err)
	}

	// Members are built against a private model: registering them in the
	// deployment model as well would apply each table twice. The group alone
	// carries them, and its insertion order is their apply order
	scratch := model.NewPhysicalDataModel()

	resources, err := f.tableBuilder(req, lc+"_resources").
		AddBigIntColumn("resource_id", false).
		AddBigIntColumn("logical_resource_id", false).
		AddIntColumn("version_id", false).
		AddTimestampColumn("last_updated", false).
		AddVarcharColumn("is_deleted", 1, false).
		AddVarcharColumn("data", 32704, true).
		AddPrimaryKey(TenantColumn, "resource_id").
		AddUniqueIndex(fmt.Sprintf("idx_%s_resources_lrid", lc),
			[]string{TenantColumn, "logical_resource_id", "version_id"}).
		Build(scratch)
	if err != nil {
		return nil, err
	}

	logicalResources, err := f.tableBuilder(req, lc+"_logical_resources").
		AddBigIntColumn("logical_resource_id", false).
		AddVarcharColumn("logical_id", 255, false).
		AddBigIntColumn("current_resource_id", true).
		AddPrimaryKey(TenantColumn, "logical_resource_id").
		AddUniqueIndex(fmt.Sprintf("idx_%s_logical_resources_lid", lc),
			[]string{TenantColumn, "logical_id"}).
		Build(scratch)
	if err != nil {
		return nil, err
	}

	members := []model.Object{resources, logicalResources}
	for _, values := range []struct {
		suffix  string
		columns func(*model.TableBuilder) *model.TableBuilder
		keyCols []string
	}{
		{"str_values", func(b *model.TableBuilder) *model.TableBuilder {
			return b.
				AddVarcharColumn("str_value", 511, true).
				AddVarcharColumn("str_value_lcase", 511, true)
		}, []string{"str_value"}},
		{"token_values", func(b *model.TableBuilder) *model.TableBuilder {
			return b.
				AddIntColumn("code_system_id", true).
				AddVarcharColumn("token_value", 255, true)
		}, []string{"code_system_id", "token_value"}},
		{"date_values", func(b *model.TableBuilder) *model.TableBuilder {
			return b.
				AddTimestampColumn("date_value", true).
				AddTimestampColumn("date_start", true).
				AddTimestampColumn("date_end", true)
		}, []string{"date_value"}},
		{"latlng_values", func(b *model.TableBuilder) *model.TableBuilder {
			return b.
				AddDoubleColumn("latitude_value", true).
				AddDoubleColumn("longitude_value", true)
		}, []string{"latitude_value", "longitude_value"}},
		{"quantity_values", func(b *model.TableBuilder) *model.TableBuilder {
			return b.
				AddVarcharColumn("code", 255, false).
				AddDoubleColumn("quantity_value", true).
				AddDoubleColumn("quantity_value_low", true).
				AddDoubleColumn("quantity_value_high", true).
				AddIntColumn("code_system_id", true)
		}, []string{"code", "quantity_value"}},
		{"number_values", func(b *model.TableBuilder) *model.TableBuilder {
			return b.
				AddDoubleColumn("number_value", true)
		}, []string{"number_value"}},
	} {
		name := fmt.Sprintf("%s_%s", lc, values.suffix)

		builder := f.tableBuilder(req, name).
			AddIntColumn("parameter_name_id", false)
		builder = values.columns(builder)

		searchCols := append([]string{TenantColumn, "parameter_name_id"}, values.keyCols...)
		searchCols = append(searchCols, "logical_resource_id")
		table, err := builder.
			AddBigIntColumn("logical_resource_id", false).
			AddIndex(fmt.Sprintf("idx_%s_pnnv", name), searchCols...).
			AddIndex(fmt.Sprintf("idx_%s_rid", name), TenantColumn, "logical_resource_id").
			Build(scratch)
		if err != nil {
			return nil, err
		}
		members = append(members, table)
	}

	return model.NewObjectGroup(req.Schema, lc, req.Version, members...), nil
}

func (f *resourceGroupFactory) tableBuilder(req GroupRequest, name string) *model.TableBuilder {
	return model.NewTableBuilder(req.Schema, name, req.Version).
		SetTenantColumn(TenantColumn).
		SetTablespace(req.Tablespace).
		EnableAccessControl(req.AccessVariable).
		AddPrivileges(req.GrantGroup,
			model.PrivilegeSelect, model.PrivilegeInsert, model.PrivilegeUpdate, model.PrivilegeDelete)
}
