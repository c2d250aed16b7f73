package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhirstack/fhir-schema-deploy/pkg/model"
)

func TestTableBuilder_Build(t *testing.T) {
	tablespace := model.NewTablespace("fhir_ts", 1, 128)
	variable := model.NewSessionVariable("fhiradmin", "sv_tenant_id", 1)

	m := model.NewPhysicalDataModel()
	require.NoError(t, m.MarkProvided(tablespace, variable))

	table, err := model.NewTableBuilder("fhirdata", "parameter_names", 1).
		SetTenantColumn("mt_id").
		AddIntColumn("parameter_name_id", false).
		AddVarcharColumn("parameter_name", 255, false).
		AddUniqueIndex("idx_parameter_name_rtnm", []string{"mt_id", "parameter_name"}, "parameter_name_id").
		AddPrimaryKey("mt_id", "parameter_name_id").
		SetTablespace(tablespace).
		EnableAccessControl(variable).
		AddPrivileges("fhir_user", model.PrivilegeSelect, model.PrivilegeInsert, model.PrivilegeUpdate, model.PrivilegeDelete).
		Build(m)
	require.NoError(t, err)

	// the tenant column leads the column list
	require.Len(t, table.Columns, 3)
	assert.Equal(t, model.Column{Name: "mt_id", Type: model.ColumnTypeInt}, table.Columns[0])
	assert.Equal(t, "mt_id", table.TenantColumn)

	assert.Equal(t, []string{"mt_id", "parameter_name_id"}, table.PrimaryKey)
	require.Len(t, table.Indexes, 1)
	assert.True(t, table.Indexes[0].Unique)
	assert.Equal(t, []string{"parameter_name_id"}, table.Indexes[0].IncludeColumns)

	// tablespace and access variable become dependencies
	depIds := make([]string, 0, 2)
	for _, dep := range table.DependsOn() {
		depIds = append(depIds, dep.GetId())
	}
	assert.Contains(t, depIds, tablespace.GetId())
	assert.Contains(t, depIds, variable.GetId())

	assert.Len(t, table.Privileges(), 4)
	assert.Equal(t, []*model.Table{table}, m.Tables())
}

func TestTableBuilder_BuildErrors(t *testing.T) {
	for _, tc := range []struct {
		name                string
		builder             *model.TableBuilder
		expectedErr         error
		expectedErrContains string
	}{
		{
			name:                "no columns",
			builder:             model.NewTableBuilder("s", "t", 1),
			expectedErrContains: "no columns",
		},
		{
			name: "duplicate column",
			builder: model.NewTableBuilder("s", "t", 1).
				AddIntColumn("id", false).
				AddIntColumn("id", false),
			expectedErr: model.ErrDuplicateColumn,
		},
		{
			name: "tenant column collides with declared column",
			builder: model.NewTableBuilder("s", "t", 1).
				SetTenantColumn("mt_id").
				AddIntColumn("mt_id", false),
			expectedErr: model.ErrDuplicateColumn,
		},
		{
			name: "primary key references unknown column",
			builder: model.NewTableBuilder("s", "t", 1).
				AddIntColumn("id", false).
				AddPrimaryKey("missing"),
			expectedErr: model.ErrUnknownColumn,
		},
		{
			name: "index references unknown column",
			builder: model.NewTableBuilder("s", "t", 1).
				AddIntColumn("id", false).
				AddIndex("idx_t_missing", "missing"),
			expectedErr: model.ErrUnknownColumn,
		},
		{
			name: "unique index include references unknown column",
			builder: model.NewTableBuilder("s", "t", 1).
				AddIntColumn("id", false).
				AddUniqueIndex("idx_unq_t_id", []string{"id"}, "missing"),
			expectedErr: model.ErrUnknownColumn,
		},
		{
			name: "index without key columns",
			builder: model.NewTableBuilder("s", "t", 1).
				AddIntColumn("id", false).
				AddIndex("idx_empty"),
			expectedErrContains: "no key columns",
		},
		{
			name: "varchar without size",
			builder: model.NewTableBuilder("s", "t", 1).
				AddVarcharColumn("val", 0, false),
			expectedErrContains: "positive size",
		},
		{
			name: "table name is not a legal identifier",
			builder: model.NewTableBuilder("s", "Bad Name", 1).
				AddIntColumn("id", false),
			expectedErrContains: "invalid identifier",
		},
		{
			name: "column name is not a legal identifier",
			builder: model.NewTableBuilder("s", "t", 1).
				AddIntColumn("BadColumn", false),
			expectedErrContains: "invalid identifier",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := model.NewPhysicalDataModel()
			table, err := tc.builder.Build(m)
			require.Error(t, err)
			assert.Nil(t, table)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			}
			if tc.expectedErrContains != "" {
				assert.ErrorContains(t, err, tc.expectedErrContains)
			}
			// a failed build must not register anything
			assert.Empty(t, m.Objects())
		})
	}
}

func TestTableBuilder_DuplicateRegistration(t *testing.T) {
	m := model.NewPhysicalDataModel()

	_, err := model.NewTableBuilder("s", "t", 1).AddIntColumn("id", false).Build(m)
	require.NoError(t, err)

	_, err = model.NewTableBuilder("s", "t", 2).AddIntColumn("id", false).Build(m)
	assert.ErrorIs(t, err, model.ErrDuplicateObject)
}
