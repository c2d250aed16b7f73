package model

import (
	"fmt"
	"io"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/fhirstack/fhir-schema-deploy/internal/graph"
	"github.com/fhirstack/fhir-schema-deploy/internal/set"
)

// PhysicalDataModel is the registry of every object one generation run
// produces. It is populated monotonically, rebuilt from scratch each run, and
// queried for a dependency-respecting application order. Construction is
// single-threaded; the model holds no locks
type PhysicalDataModel struct {
	objects     []Object
	objectIds   *set.Set[string, Object]
	providedIds *set.Set[string, Object]

	tables     []*Table
	procedures []*Procedure
}

func NewPhysicalDataModel() *PhysicalDataModel {
	objectKey := func(o Object) string {
		return o.GetId()
	}
	return &PhysicalDataModel{
		objectIds:   set.NewSetWithCustomKey(objectKey),
		providedIds: set.NewSetWithCustomKey(objectKey),
	}
}

// AddObject registers o and seals it. Registering a second object with the
// same (schema, name, kind) identity is a definition defect
func (m *PhysicalDataModel) AddObject(o Object) error {
	if o == nil {
		return fmt.Errorf("adding object: nil object")
	}
	if m.objectIds.HasKey(o.GetId()) || m.providedIds.HasKey(o.GetId()) {
		return fmt.Errorf("adding object %s: %w", o.GetId(), ErrDuplicateObject)
	}
	m.objectIds.Add(o)
	m.objects = append(m.objects, o)
	o.seal()
	return nil
}

// AddTable registers t and tracks it in the table subset
func (m *PhysicalDataModel) AddTable(t *Table) error {
	if err := m.AddObject(t); err != nil {
		return err
	}
	m.tables = append(m.tables, t)
	return nil
}

// AddProcedure constructs a procedure, wires its dependencies and grants,
// registers it, and tracks it in the procedure subset
func (m *PhysicalDataModel) AddProcedure(schema, name string, version int, body BodyProvider, deps []Object, grants []GroupPrivilege) (*Procedure, error) {
	p := NewProcedure(schema, name, version, body)
	if err := p.AddDependencies(deps...); err != nil {
		return nil, fmt.Errorf("adding procedure %s.%s: %w", schema, name, err)
	}
	if err := p.AddPrivileges(grants...); err != nil {
		return nil, fmt.Errorf("adding procedure %s.%s: %w", schema, name, err)
	}
	if err := m.AddObject(p); err != nil {
		return nil, err
	}
	m.procedures = append(m.procedures, p)
	return p, nil
}

// MarkProvided declares objects that an earlier deployment already created
// (e.g. the admin schema's tablespace and session variable). Provided objects
// are legal dependency targets but are excluded from the application order
func (m *PhysicalDataModel) MarkProvided(objs ...Object) error {
	for _, o := range objs {
		if o == nil {
			return fmt.Errorf("marking provided: nil object")
		}
		if m.objectIds.HasKey(o.GetId()) {
			return fmt.Errorf("marking %s provided: %w", o.GetId(), ErrDuplicateObject)
		}
		m.providedIds.Add(o)
		o.seal()
	}
	return nil
}

// Objects returns the registered objects in registration order
func (m *PhysicalDataModel) Objects() []Object {
	objects := make([]Object, len(m.objects))
	copy(objects, m.objects)
	return objects
}

// Tables returns the registered table subset in registration order
func (m *PhysicalDataModel) Tables() []*Table {
	tables := make([]*Table, len(m.tables))
	copy(tables, m.tables)
	return tables
}

// Procedures returns the registered procedure subset in registration order
func (m *PhysicalDataModel) Procedures() []*Procedure {
	procedures := make([]*Procedure, len(m.procedures))
	copy(procedures, m.procedures)
	return procedures
}

// buildGraph translates the registry into a dependency graph. Dependencies on
// provided objects are satisfied by definition and produce no edge; a
// dependency that is neither registered nor provided is a definition defect
func (m *PhysicalDataModel) buildGraph() (*graph.Graph[Object], error) {
	g := graph.NewGraph[Object]()
	for _, o := range m.objects {
		g.AddVertex(o)
	}
	for _, o := range m.objects {
		for _, dep := range o.DependsOn() {
			if m.providedIds.HasKey(dep.GetId()) {
				continue
			}
			if !g.HasVertexWithId(dep.GetId()) {
				return nil, fmt.Errorf("%s depends on %s: %w", o.GetId(), dep.GetId(), ErrMissingDependency)
			}
			if err := g.AddEdge(dep.GetId(), o.GetId()); err != nil {
				return nil, fmt.Errorf("adding dependency edge %s -> %s: %w", dep.GetId(), o.GetId(), err)
			}
		}
	}
	return g, nil
}

// ApplyOrder returns every registered object such that each appears strictly
// after all of its dependencies. Objects with no relative constraint keep
// their registration order
func (m *PhysicalDataModel) ApplyOrder() ([]Object, error) {
	g, err := m.buildGraph()
	if err != nil {
		return nil, fmt.Errorf("computing apply order: %w", err)
	}
	order, err := g.TopologicallySort()
	if err != nil {
		return nil, fmt.Errorf("computing apply order: %w", err)
	}
	return order, nil
}

// EncodeDOT writes the dependency graph of the registered objects in DOT
// format, for inspection with graphviz. Edges point from a dependency to the
// objects that require it
func (m *PhysicalDataModel) EncodeDOT(w io.Writer) error {
	g, err := m.buildGraph()
	if err != nil {
		return fmt.Errorf("encoding dependency graph: %w", err)
	}
	if err := graph.EncodeDOT(g, w); err != nil {
		return fmt.Errorf("encoding dependency graph: %w", err)
	}
	return nil
}

// Waves partitions the registered objects into ordered waves: objects within
// a wave have no dependency relationship with each other and depend only on
// earlier waves, so an executor may apply a wave concurrently but must finish
// it before starting the next
func (m *PhysicalDataModel) Waves() ([][]Object, error) {
	g, err := m.buildGraph()
	if err != nil {
		return nil, fmt.Errorf("computing waves: %w", err)
	}
	waves, err := g.Waves()
	if err != nil {
		return nil, fmt.Errorf("computing waves: %w", err)
	}
	return waves, nil
}

// objectRecord is the hashed shape of one object: exactly the identity and
// version surface an executor compares against previously deployed state
type objectRecord struct {
	Kind    ObjectKind
	Schema  string
	Name    string
	Version int
}

// Fingerprint hashes the (kind, schema, name, version) records of every
// registered object in registration order. Two models with the same
// fingerprint describe the same deployment
func (m *PhysicalDataModel) Fingerprint() (string, error) {
	records := make([]objectRecord, 0, len(m.objects))
	for _, o := range m.objects {
		records = append(records, objectRecord{
			Kind:    o.Kind(),
			Schema:  o.Name().Schema,
			Name:    o.Name().Name,
			Version: o.Version(),
		})
	}
	hash, err := hashstructure.Hash(records, hashstructure.FormatV2, nil)
	if err != nil {
		return "", fmt.Errorf("hashing model: %w", err)
	}
	return fmt.Sprintf("%016x", hash), nil
}
