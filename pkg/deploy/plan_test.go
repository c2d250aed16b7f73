package deploy_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhirstack/fhir-schema-deploy/pkg/deploy"
	"github.com/fhirstack/fhir-schema-deploy/pkg/model"
)

func TestBuildPlan(t *testing.T) {
	m := buildReferenceModel(t)

	plan, err := deploy.BuildPlan(m)
	require.NoError(t, err)

	assert.Len(t, plan.Fingerprint, 16)
	assert.Equal(t, 6, plan.StepCount())

	expected := [][]deploy.Step{
		{
			{Kind: model.KindSequence, Name: "fhirdata.fhir_sequence", Version: 1},
			{Kind: model.KindTable, Name: "fhirdata.code_systems", Version: 1},
			{Kind: model.KindRowType, Name: "fhirdata.t_str_values", Version: 1},
		},
		{
			{Kind: model.KindRowArrayType, Name: "fhirdata.t_str_values_arr", Version: 1},
		},
		{
			{Kind: model.KindMarker, Name: "fhirdata.all_tables_complete", Version: 1},
		},
		{
			{Kind: model.KindProcedure, Name: "fhirdata.add_code_system", Version: 1},
		},
	}
	assert.Empty(t, cmp.Diff(expected, plan.Waves))
}

func TestBuildPlan_SameModelSamePlan(t *testing.T) {
	first, err := deploy.BuildPlan(buildReferenceModel(t))
	require.NoError(t, err)
	second, err := deploy.BuildPlan(buildReferenceModel(t))
	require.NoError(t, err)

	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Empty(t, cmp.Diff(first.Waves, second.Waves))
}

func TestBuildPlan_Cycle(t *testing.T) {
	m := model.NewPhysicalDataModel()
	a := model.NewMarker("fhirdata", "a", model.InitialVersion)
	b := model.NewMarker("fhirdata", "b", model.InitialVersion)
	require.NoError(t, a.AddDependencies(b))
	require.NoError(t, b.AddDependencies(a))
	require.NoError(t, m.AddObject(a))
	require.NoError(t, m.AddObject(b))

	_, err := deploy.BuildPlan(m)
	require.ErrorIs(t, err, model.ErrCycle)
}
