package deploy_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhirstack/fhir-schema-deploy/pkg/deploy"
	"github.com/fhirstack/fhir-schema-deploy/pkg/model"
)

func TestScriptTarget_RendersDeploymentScript(t *testing.T) {
	m := buildReferenceModel(t)
	order, err := m.ApplyOrder()
	require.NoError(t, err)

	var script strings.Builder
	target := deploy.NewScriptTarget(&script)
	for _, o := range order {
		require.NoError(t, o.Apply(context.Background(), target), "applying %s", o.GetId())
	}

	expected := `-- SEQUENCE:fhirdata.fhir_sequence version 1
CREATE SEQUENCE "fhirdata"."fhir_sequence" AS BIGINT START WITH 1 CACHE 1000 NO CYCLE;
GRANT USAGE ON SEQUENCE "fhirdata"."fhir_sequence" TO "fhir_user";

-- TABLE:fhirdata.code_systems version 1
CREATE TABLE "fhirdata"."code_systems" (
    "mt_id" INT NOT NULL,
    "code_system_id" INT NOT NULL,
    "code_system_name" VARCHAR(255) NOT NULL,
    PRIMARY KEY ("mt_id", "code_system_id")
) IN "fhir_ts";
CREATE UNIQUE INDEX "fhirdata"."idx_code_system_cinm" ON "fhirdata"."code_systems" ("mt_id", "code_system_name") INCLUDE ("code_system_id");
GRANT SELECT ON TABLE "fhirdata"."code_systems" TO "fhir_user";

-- ROW TYPE:fhirdata.t_str_values version 1
CREATE TYPE "fhirdata"."t_str_values" AS ROW (
    "parameter_name_id" BIGINT,
    "str_value" VARCHAR(511)
);

-- ROW ARRAY TYPE:fhirdata.t_str_values_arr version 1
CREATE TYPE "fhirdata"."t_str_values_arr" AS "fhirdata"."t_str_values" ARRAY[256];

-- PROCEDURE:fhirdata.add_code_system version 1
CREATE OR REPLACE PROCEDURE fhirdata.add_code_system()
BEGIN
END;
GRANT EXECUTE ON PROCEDURE "fhirdata"."add_code_system" TO "fhir_user";
`
	assert.Empty(t, cmp.Diff(expected, script.String()))
}

func TestScriptTarget_AdminObjects(t *testing.T) {
	var script strings.Builder
	target := deploy.NewScriptTarget(&script)
	ctx := context.Background()

	ts := model.NewTablespace("fhir_ts", model.InitialVersion, 128)
	require.NoError(t, target.CreateTablespace(ctx, ts))

	v := model.NewSessionVariable("fhiradmin", "sv_tenant_id", model.InitialVersion)
	require.NoError(t, target.CreateSessionVariable(ctx, v))
	require.NoError(t, target.Grant(ctx, v, model.GroupPrivilege{Group: "fhir_user", Privilege: model.PrivilegeRead}))

	rendered := script.String()
	assert.Contains(t, rendered,
		`CREATE TABLESPACE "fhir_ts" MANAGED BY AUTOMATIC STORAGE EXTENTSIZE 128;`)
	assert.Contains(t, rendered,
		`CREATE VARIABLE "fhiradmin"."sv_tenant_id" INT DEFAULT NULL;`)
	assert.Contains(t, rendered,
		`GRANT READ ON VARIABLE "fhiradmin"."sv_tenant_id" TO "fhir_user";`)
}

func TestScriptTarget_GrantOnMarkerFails(t *testing.T) {
	target := deploy.NewScriptTarget(&strings.Builder{})
	marker := model.NewMarker("fhirdata", "all_tables_complete", model.InitialVersion)

	err := target.Grant(context.Background(), marker,
		model.GroupPrivilege{Group: "fhir_user", Privilege: model.PrivilegeSelect})
	require.ErrorContains(t, err, "not grantable")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestScriptTarget_WriteFailure(t *testing.T) {
	target := deploy.NewScriptTarget(failingWriter{})
	seq := model.NewSequence("fhirdata", "fhir_sequence", model.InitialVersion, 1, 1000, false)

	err := target.CreateSequence(context.Background(), seq)
	require.ErrorContains(t, err, "writing script")
}
