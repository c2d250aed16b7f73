// Package model holds the in-memory description of a schema: every object
// kind the deployment understands, the dependency edges between objects, the
// privilege grants they carry, and the registry that computes a
// dependency-respecting application order.
package model

import (
	"context"
	"fmt"

	"github.com/fhirstack/fhir-schema-deploy/internal/set"
)

// InitialVersion is the version every object starts at. Versions only move
// forward from here
const InitialVersion = 1

// ObjectKind identifies the variant of a schema object. The set of kinds is
// closed: Object can only be implemented inside this package
type ObjectKind string

const (
	KindSequence        ObjectKind = "SEQUENCE"
	KindTable           ObjectKind = "TABLE"
	KindRowType         ObjectKind = "ROW TYPE"
	KindRowArrayType    ObjectKind = "ROW ARRAY TYPE"
	KindProcedure       ObjectKind = "PROCEDURE"
	KindSessionVariable ObjectKind = "SESSION VARIABLE"
	KindTablespace      ObjectKind = "TABLESPACE"
	KindMarker          ObjectKind = "MARKER"
	KindObjectGroup     ObjectKind = "OBJECT GROUP"
)

// SchemaQualifiedName identifies an object within a schema. Names are plain
// (unquoted) identifiers; legality is enforced where names enter the system
type SchemaQualifiedName struct {
	Schema string
	Name   string
}

func (s SchemaQualifiedName) String() string {
	if s.Schema == "" {
		// store-wide objects, e.g. tablespaces
		return s.Name
	}
	return s.Schema + "." + s.Name
}

// Object is one named, versioned, dependency-aware unit of the schema.
//
// An object is mutable while the generator assembles it: dependencies and
// privileges may be added, never removed. Registering the object into a
// PhysicalDataModel seals it; mutations afterwards return ErrSealed
type Object interface {
	// GetId returns the kind-qualified identity, e.g. "TABLE:fhirdata.code_systems".
	// Identity is unique within a model
	GetId() string
	Name() SchemaQualifiedName
	Kind() ObjectKind
	Version() int

	// DependsOn returns the objects that must be applied before this one,
	// in the order they were attached
	DependsOn() []Object
	AddDependencies(deps ...Object) error

	Privileges() []GroupPrivilege
	AddPrivileges(privs ...GroupPrivilege) error

	// Apply dispatches to the Target method for this object's kind and then
	// issues the object's grants
	Apply(ctx context.Context, t Target) error

	seal()
}

// object carries the state shared by every Object variant
type object struct {
	name    SchemaQualifiedName
	kind    ObjectKind
	version int

	deps   []Object
	depIds *set.Set[string, Object]
	privs  []GroupPrivilege

	sealed bool
}

func newObject(schema, name string, kind ObjectKind, version int) object {
	return object{
		name:    SchemaQualifiedName{Schema: schema, Name: name},
		kind:    kind,
		version: version,
		depIds: set.NewSetWithCustomKey(func(o Object) string {
			return o.GetId()
		}),
	}
}

func (o *object) GetId() string {
	return fmt.Sprintf("%s:%s", o.kind, o.name)
}

func (o *object) Name() SchemaQualifiedName {
	return o.name
}

func (o *object) Kind() ObjectKind {
	return o.kind
}

func (o *object) Version() int {
	return o.version
}

func (o *object) DependsOn() []Object {
	deps := make([]Object, len(o.deps))
	copy(deps, o.deps)
	return deps
}

// AddDependencies attaches dependencies, skipping any the object already has
func (o *object) AddDependencies(deps ...Object) error {
	if o.sealed {
		return fmt.Errorf("adding dependencies to %s: %w", o.GetId(), ErrSealed)
	}
	for _, dep := range deps {
		if dep == nil {
			return fmt.Errorf("adding dependencies to %s: nil dependency", o.GetId())
		}
		if o.depIds.Has(dep) {
			continue
		}
		o.depIds.Add(dep)
		o.deps = append(o.deps, dep)
	}
	return nil
}

func (o *object) Privileges() []GroupPrivilege {
	privs := make([]GroupPrivilege, len(o.privs))
	copy(privs, o.privs)
	return privs
}

func (o *object) AddPrivileges(privs ...GroupPrivilege) error {
	if o.sealed {
		return fmt.Errorf("adding privileges to %s: %w", o.GetId(), ErrSealed)
	}
	o.privs = append(o.privs, privs...)
	return nil
}

func (o *object) seal() {
	o.sealed = true
}

// applyPrivileges issues one grant per attached (group, privilege) pair
func applyPrivileges(ctx context.Context, o Object, t Target) error {
	for _, priv := range o.Privileges() {
		if err := t.Grant(ctx, o, priv); err != nil {
			return fmt.Errorf("granting %s to %s on %s: %w", priv.Privilege, priv.Group, o.GetId(), err)
		}
	}
	return nil
}
