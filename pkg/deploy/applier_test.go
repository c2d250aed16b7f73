package deploy_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhirstack/fhir-schema-deploy/pkg/deploy"
	"github.com/fhirstack/fhir-schema-deploy/pkg/model"
)

// fakeTarget records the id of every applied object, and fails a configured
// call on demand. Safe for concurrent use, like any real target must be
type fakeTarget struct {
	mu     sync.Mutex
	calls  []string
	failOn map[string]error
}

func (f *fakeTarget) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.failOn[call]
}

func (f *fakeTarget) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	calls := make([]string, len(f.calls))
	copy(calls, f.calls)
	return calls
}

func (f *fakeTarget) CreateSequence(_ context.Context, s *model.Sequence) error {
	return f.record(s.GetId())
}

func (f *fakeTarget) CreateSessionVariable(_ context.Context, v *model.SessionVariable) error {
	return f.record(v.GetId())
}

func (f *fakeTarget) CreateTablespace(_ context.Context, ts *model.Tablespace) error {
	return f.record(ts.GetId())
}

func (f *fakeTarget) CreateTable(_ context.Context, t *model.Table) error {
	return f.record(t.GetId())
}

func (f *fakeTarget) CreateRowType(_ context.Context, rt *model.RowType) error {
	return f.record(rt.GetId())
}

func (f *fakeTarget) CreateRowArrayType(_ context.Context, at *model.RowArrayType) error {
	return f.record(at.GetId())
}

func (f *fakeTarget) CreateProcedure(_ context.Context, p *model.Procedure) error {
	return f.record(p.GetId())
}

func (f *fakeTarget) Grant(_ context.Context, o model.Object, priv model.GroupPrivilege) error {
	return f.record(fmt.Sprintf("GRANT %s %s", priv.Privilege, o.GetId()))
}

// buildReferenceModel assembles a small four-wave model: the sequence, a
// table, and a row type are unconstrained; the array type needs its row type;
// a barrier waits on all of them; one procedure waits on the barrier
func buildReferenceModel(t *testing.T) *model.PhysicalDataModel {
	t.Helper()
	m := model.NewPhysicalDataModel()

	ts := model.NewTablespace("fhir_ts", model.InitialVersion, 128)
	require.NoError(t, m.MarkProvided(ts))

	seq := model.NewSequence("fhirdata", "fhir_sequence", model.InitialVersion, 1, 1000, false)
	require.NoError(t, seq.AddPrivileges(model.GroupPrivileges("fhir_user", model.PrivilegeUsage)...))
	require.NoError(t, m.AddObject(seq))

	table, err := model.NewTableBuilder("fhirdata", "code_systems", model.InitialVersion).
		SetTenantColumn("mt_id").
		AddIntColumn("code_system_id", false).
		AddVarcharColumn("code_system_name", 255, false).
		AddPrimaryKey("mt_id", "code_system_id").
		AddUniqueIndex("idx_code_system_cinm", []string{"mt_id", "code_system_name"}, "code_system_id").
		SetTablespace(ts).
		AddPrivileges("fhir_user", model.PrivilegeSelect).
		Build(m)
	require.NoError(t, err)

	rt, err := model.NewRowTypeBuilder("fhirdata", "t_str_values", model.InitialVersion).
		AddBigIntField("parameter_name_id", false).
		AddVarcharField("str_value", 511, true).
		Build()
	require.NoError(t, err)
	require.NoError(t, m.AddObject(rt))

	arr := model.NewRowArrayType("fhirdata", "t_str_values_arr", model.InitialVersion, rt, model.ArraySize)
	require.NoError(t, m.AddObject(arr))

	barrier := model.NewMarker("fhirdata", "all_tables_complete", model.InitialVersion)
	require.NoError(t, barrier.AddDependencies(table, rt, arr))
	require.NoError(t, m.AddObject(barrier))

	_, err = m.AddProcedure("fhirdata", "add_code_system", model.InitialVersion,
		func() (string, error) {
			return "CREATE OR REPLACE PROCEDURE fhirdata.add_code_system()\nBEGIN\nEND\n", nil
		},
		[]model.Object{seq, table, barrier},
		model.GroupPrivileges("fhir_user", model.PrivilegeExecute))
	require.NoError(t, err)

	return m
}

func TestApplier_AppliesWavesInOrder(t *testing.T) {
	m := buildReferenceModel(t)
	target := &fakeTarget{}

	err := deploy.NewApplier(deploy.WithMaxParallel(4)).Apply(context.Background(), m, target)
	require.NoError(t, err)

	waves, err := m.Waves()
	require.NoError(t, err)

	position := make(map[string]int)
	for i, call := range target.recorded() {
		// creation calls only; grants share the object's goroutine and always
		// follow its creation
		if _, seen := position[call]; !seen {
			position[call] = i
		}
	}

	lastOfPreviousWave := -1
	for _, wave := range waves {
		firstOfWave := len(target.recorded())
		lastOfWave := lastOfPreviousWave
		for _, o := range wave {
			pos, applied := position[o.GetId()]
			if o.Kind() == model.KindMarker {
				// markers have no physical artifact and never reach the target
				assert.False(t, applied)
				continue
			}
			require.True(t, applied, "object %s was never applied", o.GetId())
			if pos < firstOfWave {
				firstOfWave = pos
			}
			if pos > lastOfWave {
				lastOfWave = pos
			}
		}
		assert.Greater(t, firstOfWave, lastOfPreviousWave,
			"a wave must not start before the previous one completed")
		lastOfPreviousWave = lastOfWave
	}
}

func TestApplier_SerialApplicationIsDeterministic(t *testing.T) {
	m := buildReferenceModel(t)
	target := &fakeTarget{}

	err := deploy.NewApplier(deploy.WithMaxParallel(1)).Apply(context.Background(), m, target)
	require.NoError(t, err)

	expected := []string{
		"SEQUENCE:fhirdata.fhir_sequence",
		"GRANT USAGE SEQUENCE:fhirdata.fhir_sequence",
		"TABLE:fhirdata.code_systems",
		"GRANT SELECT TABLE:fhirdata.code_systems",
		"ROW TYPE:fhirdata.t_str_values",
		"ROW ARRAY TYPE:fhirdata.t_str_values_arr",
		"PROCEDURE:fhirdata.add_code_system",
		"GRANT EXECUTE PROCEDURE:fhirdata.add_code_system",
	}
	assert.Equal(t, expected, target.recorded())
}

func TestApplier_FirstErrorAbortsTheRun(t *testing.T) {
	m := buildReferenceModel(t)
	boom := errors.New("tablespace full")
	target := &fakeTarget{failOn: map[string]error{
		"TABLE:fhirdata.code_systems": boom,
	}}

	err := deploy.NewApplier(deploy.WithMaxParallel(2)).Apply(context.Background(), m, target)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "applying TABLE:fhirdata.code_systems")

	// nothing from a later wave was applied
	calls := target.recorded()
	assert.NotContains(t, calls, "ROW ARRAY TYPE:fhirdata.t_str_values_arr")
	assert.NotContains(t, calls, "PROCEDURE:fhirdata.add_code_system")
}

func TestApplier_MissingDependencyFailsBeforeAnyApply(t *testing.T) {
	m := model.NewPhysicalDataModel()
	ghost := model.NewMarker("fhirdata", "ghost", model.InitialVersion)
	seq := model.NewSequence("fhirdata", "fhir_sequence", model.InitialVersion, 1, 1000, false)
	require.NoError(t, seq.AddDependencies(ghost))
	require.NoError(t, m.AddObject(seq))

	target := &fakeTarget{}
	err := deploy.NewApplier().Apply(context.Background(), m, target)
	require.ErrorIs(t, err, model.ErrMissingDependency)
	assert.Empty(t, target.recorded())
}
