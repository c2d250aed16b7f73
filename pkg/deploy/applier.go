package deploy

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fhirstack/fhir-schema-deploy/internal/concurrent"
	"github.com/fhirstack/fhir-schema-deploy/pkg/log"
	"github.com/fhirstack/fhir-schema-deploy/pkg/model"
)

// DefaultMaxParallel bounds concurrent object applications within a wave
const DefaultMaxParallel = 8

// Applier walks a model wave by wave. Objects within a wave are applied
// concurrently; a wave must fully succeed before the next one starts, and the
// first failure aborts the run. There is no resumption: rerun the whole
// deployment after fixing the cause
type Applier struct {
	logger      log.Logger
	maxParallel int64
}

type ApplierOption func(*Applier)

func WithLogger(logger log.Logger) ApplierOption {
	return func(a *Applier) {
		a.logger = logger
	}
}

// WithMaxParallel bounds in-wave concurrency. One means strictly serial
// application in plan order, which is also what makes a scripted run
// deterministic
func WithMaxParallel(n int64) ApplierOption {
	return func(a *Applier) {
		if n < 1 {
			n = 1
		}
		a.maxParallel = n
	}
}

func NewApplier(opts ...ApplierOption) *Applier {
	a := &Applier{
		logger:      log.SimpleLogger(),
		maxParallel: DefaultMaxParallel,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply deploys every registered object of m to target
func (a *Applier) Apply(ctx context.Context, m *model.PhysicalDataModel, target model.Target) error {
	runID := uuid.New()

	waves, err := m.Waves()
	if err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}
	fingerprint, err := m.Fingerprint()
	if err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}

	total := 0
	for _, wave := range waves {
		total += len(wave)
	}
	a.logger.Infof("run %s: applying %d objects in %d waves (model %s)", runID, total, len(waves), fingerprint)

	runner := concurrent.NewGoroutineLimiter(a.maxParallel)
	for i, wave := range waves {
		futures := make([]concurrent.Future[string], 0, len(wave))
		for _, o := range wave {
			future, err := concurrent.SubmitFuture(ctx, runner, func() (string, error) {
				if err := o.Apply(ctx, target); err != nil {
					return "", fmt.Errorf("applying %s: %w", o.GetId(), err)
				}
				return o.GetId(), nil
			})
			if err != nil {
				return fmt.Errorf("run %s: starting wave %d: %w", runID, i+1, err)
			}
			futures = append(futures, future)
		}

		if _, err := concurrent.GetAll(ctx, futures...); err != nil {
			a.logger.Errorf("run %s: wave %d of %d failed: %v", runID, i+1, len(waves), err)
			return fmt.Errorf("run %s: %w", runID, err)
		}
		a.logger.Infof("run %s: wave %d of %d complete (%d objects)", runID, i+1, len(waves), len(wave))
	}

	a.logger.Infof("run %s: deployment complete", runID)
	return nil
}
