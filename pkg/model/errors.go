package model

import (
	"errors"

	"github.com/fhirstack/fhir-schema-deploy/internal/graph"
)

var (
	// ErrDuplicateObject is returned when two objects with the same
	// (schema, name, kind) identity are registered
	ErrDuplicateObject = errors.New("duplicate object definition")

	// ErrDuplicateColumn is returned when a table or row type declares the
	// same column name twice
	ErrDuplicateColumn = errors.New("duplicate column definition")

	// ErrUnknownColumn is returned when an index or primary key references a
	// column that was never declared
	ErrUnknownColumn = errors.New("unknown column")

	// ErrMissingDependency is returned at order-computation time when an
	// object depends on something that was neither registered nor marked
	// provided
	ErrMissingDependency = errors.New("dependency neither registered nor provided")

	// ErrSealed is returned when mutating an object after it has been
	// registered into a model
	ErrSealed = errors.New("object is sealed")

	// ErrCycle is returned when the dependency relation is not acyclic.
	// Cycles are a defect in the schema description, never a runtime
	// condition
	ErrCycle = graph.ErrCycleDetected
)
