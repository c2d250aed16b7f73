// Package deploy turns a physical data model into an executable deployment:
// a wave-partitioned plan, an applier that walks the plan against a target,
// and a script target that renders the DDL without touching a database.
package deploy

import (
	"fmt"

	"github.com/fhirstack/fhir-schema-deploy/pkg/model"
)

type (
	// Step is one object application, reduced to what an operator needs to
	// see: what it is, what it is called, and which version is being applied
	Step struct {
		Kind    model.ObjectKind
		Name    string
		Version int
	}

	// Plan is the wave-partitioned deployment: steps within a wave are
	// mutually independent, waves are ordered. The fingerprint identifies the
	// model the plan was computed from
	Plan struct {
		Fingerprint string
		Waves       [][]Step
	}
)

// BuildPlan computes the plan for m. It fails on the defects that make a
// model undeployable: dependency cycles and dangling dependencies
func BuildPlan(m *model.PhysicalDataModel) (Plan, error) {
	waves, err := m.Waves()
	if err != nil {
		return Plan{}, fmt.Errorf("planning deployment: %w", err)
	}
	fingerprint, err := m.Fingerprint()
	if err != nil {
		return Plan{}, fmt.Errorf("planning deployment: %w", err)
	}

	planWaves := make([][]Step, 0, len(waves))
	for _, wave := range waves {
		steps := make([]Step, 0, len(wave))
		for _, o := range wave {
			steps = append(steps, Step{
				Kind:    o.Kind(),
				Name:    o.Name().String(),
				Version: o.Version(),
			})
		}
		planWaves = append(planWaves, steps)
	}

	return Plan{Fingerprint: fingerprint, Waves: planWaves}, nil
}

// StepCount returns the total number of steps across all waves
func (p Plan) StepCount() int {
	count := 0
	for _, wave := range p.Waves {
		count += len(wave)
	}
	return count
}
