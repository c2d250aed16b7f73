package model

import (
	"context"
	"fmt"
)

type (
	// Sequence is a shared number generator, used to allocate surrogate keys
	Sequence struct {
		object
		StartWith int64
		Cache     int
		Cycle     bool
	}

	// SessionVariable is a session-scoped variable. Binding one to a table
	// enables row-level access control: the store restricts reads and writes
	// to rows whose tenant column matches the variable's current value
	SessionVariable struct {
		object
	}

	// Tablespace is the physical placement unit tables are created in
	Tablespace struct {
		object
		ExtentSizeKB int
	}

	// Marker is an object with no physical artifact. It exists to collapse a
	// large dependency fan-in into a single node so later objects can wait
	// on one edge instead of many
	Marker struct {
		object
	}

	// ObjectGroup is a composite of objects sharing one version, treated as a
	// single dependency unit: anything depending on the group depends
	// transitively on every member. Members are applied in insertion order
	ObjectGroup struct {
		object
		members []Object
	}

	// BodyProvider returns the DDL text of a procedure. The text is opaque to
	// the model; it is resolved lazily so template loading errors surface at
	// apply time, not at definition time
	BodyProvider func() (string, error)

	// Procedure is a stored procedure identified by name and version with a
	// late-bound body
	Procedure struct {
		object
		Body BodyProvider
	}
)

func NewSequence(schema, name string, version int, startWith int64, cache int, cycle bool) *Sequence {
	return &Sequence{
		object:    newObject(schema, name, KindSequence, version),
		StartWith: startWith,
		Cache:     cache,
		Cycle:     cycle,
	}
}

func (s *Sequence) Apply(ctx context.Context, t Target) error {
	if err := t.CreateSequence(ctx, s); err != nil {
		return fmt.Errorf("creating sequence %s: %w", s.name, err)
	}
	return applyPrivileges(ctx, s, t)
}

func NewSessionVariable(schema, name string, version int) *SessionVariable {
	return &SessionVariable{
		object: newObject(schema, name, KindSessionVariable, version),
	}
}

func (v *SessionVariable) Apply(ctx context.Context, t Target) error {
	if err := t.CreateSessionVariable(ctx, v); err != nil {
		return fmt.Errorf("creating session variable %s: %w", v.name, err)
	}
	return applyPrivileges(ctx, v, t)
}

func NewTablespace(name string, version, extentSizeKB int) *Tablespace {
	// tablespaces are store-wide, the schema half of the identity is empty
	return &Tablespace{
		object:       newObject("", name, KindTablespace, version),
		ExtentSizeKB: extentSizeKB,
	}
}

func (ts *Tablespace) Apply(ctx context.Context, t Target) error {
	if err := t.CreateTablespace(ctx, ts); err != nil {
		return fmt.Errorf("creating tablespace %s: %w", ts.name, err)
	}
	return applyPrivileges(ctx, ts, t)
}

func NewMarker(schema, name string, version int) *Marker {
	return &Marker{
		object: newObject(schema, name, KindMarker, version),
	}
}

// Apply does nothing: a marker has no physical artifact
func (m *Marker) Apply(_ context.Context, _ Target) error {
	return nil
}

func NewObjectGroup(schema, name string, version int, members ...Object) *ObjectGroup {
	return &ObjectGroup{
		object:  newObject(schema, name, KindObjectGroup, version),
		members: members,
	}
}

// Members returns the group's objects in insertion order
func (g *ObjectGroup) Members() []Object {
	members := make([]Object, len(g.members))
	copy(members, g.members)
	return members
}

// Apply applies the members in insertion order. Members may depend on earlier
// members; the group's insertion order is its internal apply order
func (g *ObjectGroup) Apply(ctx context.Context, t Target) error {
	for _, member := range g.members {
		if err := member.Apply(ctx, t); err != nil {
			return fmt.Errorf("applying group %s: %w", g.name, err)
		}
	}
	return nil
}

func (g *ObjectGroup) seal() {
	g.object.seal()
	for _, member := range g.members {
		member.seal()
	}
}

func NewProcedure(schema, name string, version int, body BodyProvider) *Procedure {
	return &Procedure{
		object: newObject(schema, name, KindProcedure, version),
		Body:   body,
	}
}

func (p *Procedure) Apply(ctx context.Context, t Target) error {
	if err := t.CreateProcedure(ctx, p); err != nil {
		return fmt.Errorf("creating procedure %s: %w", p.name, err)
	}
	return applyPrivileges(ctx, p, t)
}
