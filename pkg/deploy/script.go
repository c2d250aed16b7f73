package deploy

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/lib/pq"

	"github.com/fhirstack/fhir-schema-deploy/pkg/model"
)

// ScriptTarget renders each applied object as DDL text instead of executing
// it. Statements are written whole under a lock, so the target is safe for a
// concurrent applier, though only a serial walk produces a deterministic
// script
type ScriptTarget struct {
	mu       sync.Mutex
	w        io.Writer
	wroteAny bool
}

func NewScriptTarget(w io.Writer) *ScriptTarget {
	return &ScriptTarget{w: w}
}

func qualify(name model.SchemaQualifiedName) string {
	if name.Schema == "" {
		return pq.QuoteIdentifier(name.Name)
	}
	return pq.QuoteIdentifier(name.Schema) + "." + pq.QuoteIdentifier(name.Name)
}

func quoteAll(names []string) string {
	quoted := make([]string, 0, len(names))
	for _, name := range names {
		quoted = append(quoted, pq.QuoteIdentifier(name))
	}
	return strings.Join(quoted, ", ")
}

// fieldDDL renders a name/type pair; row type fields carry no null constraint
func fieldDDL(c model.Column) string {
	typeDDL := string(c.Type)
	if c.Type == model.ColumnTypeVarchar {
		typeDDL = fmt.Sprintf("%s(%d)", c.Type, c.Size)
	}
	return pq.QuoteIdentifier(c.Name) + " " + typeDDL
}

func columnDDL(c model.Column) string {
	ddl := fieldDDL(c)
	if !c.Nullable {
		ddl += " NOT NULL"
	}
	return ddl
}

// emit writes one object's statements as a block. A non-empty header becomes
// a comment line announcing the block
func (s *ScriptTarget) emit(header string, stmts ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	if header != "" {
		if s.wroteAny {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "-- %s\n", header)
	}
	for _, stmt := range stmts {
		b.WriteString(stmt)
		b.WriteString(";\n")
	}

	if _, err := io.WriteString(s.w, b.String()); err != nil {
		return fmt.Errorf("writing script: %w", err)
	}
	s.wroteAny = true
	return nil
}

func objectHeader(o model.Object) string {
	return fmt.Sprintf("%s version %d", o.GetId(), o.Version())
}

func (s *ScriptTarget) CreateSequence(_ context.Context, seq *model.Sequence) error {
	cycle := "NO CYCLE"
	if seq.Cycle {
		cycle = "CYCLE"
	}
	return s.emit(objectHeader(seq),
		fmt.Sprintf("CREATE SEQUENCE %s AS BIGINT START WITH %d CACHE %d %s",
			qualify(seq.Name()), seq.StartWith, seq.Cache, cycle))
}

func (s *ScriptTarget) CreateSessionVariable(_ context.Context, v *model.SessionVariable) error {
	return s.emit(objectHeader(v),
		fmt.Sprintf("CREATE VARIABLE %s INT DEFAULT NULL", qualify(v.Name())))
}

func (s *ScriptTarget) CreateTablespace(_ context.Context, ts *model.Tablespace) error {
	return s.emit(objectHeader(ts),
		fmt.Sprintf("CREATE TABLESPACE %s MANAGED BY AUTOMATIC STORAGE EXTENTSIZE %d",
			qualify(ts.Name()), ts.ExtentSizeKB))
}

func (s *ScriptTarget) CreateTable(_ context.Context, t *model.Table) error {
	lines := make([]string, 0, len(t.Columns)+1)
	for _, col := range t.Columns {
		lines = append(lines, "    "+columnDDL(col))
	}
	if len(t.PrimaryKey) > 0 {
		lines = append(lines, fmt.Sprintf("    PRIMARY KEY (%s)", quoteAll(t.PrimaryKey)))
	}

	create := fmt.Sprintf("CREATE TABLE %s (\n%s\n)", qualify(t.Name()), strings.Join(lines, ",\n"))
	if t.Tablespace != nil {
		create += " IN " + qualify(t.Tablespace.Name())
	}

	stmts := []string{create}
	for _, idx := range t.Indexes {
		unique := ""
		if idx.Unique {
			unique = "UNIQUE "
		}
		stmt := fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
			unique,
			qualify(model.SchemaQualifiedName{Schema: t.Name().Schema, Name: idx.Name}),
			qualify(t.Name()),
			quoteAll(idx.Columns))
		if len(idx.IncludeColumns) > 0 {
			stmt += fmt.Sprintf(" INCLUDE (%s)", quoteAll(idx.IncludeColumns))
		}
		stmts = append(stmts, stmt)
	}

	return s.emit(objectHeader(t), stmts...)
}

func (s *ScriptTarget) CreateRowType(_ context.Context, rt *model.RowType) error {
	fields := make([]string, 0, len(rt.Fields))
	for _, field := range rt.Fields {
		fields = append(fields, "    "+fieldDDL(field))
	}
	return s.emit(objectHeader(rt),
		fmt.Sprintf("CREATE TYPE %s AS ROW (\n%s\n)", qualify(rt.Name()), strings.Join(fields, ",\n")))
}

func (s *ScriptTarget) CreateRowArrayType(_ context.Context, at *model.RowArrayType) error {
	return s.emit(objectHeader(at),
		fmt.Sprintf("CREATE TYPE %s AS %s ARRAY[%d]",
			qualify(at.Name()), qualify(at.RowType.Name()), at.Capacity))
}

func (s *ScriptTarget) CreateProcedure(_ context.Context, p *model.Procedure) error {
	body, err := p.Body()
	if err != nil {
		return fmt.Errorf("resolving body of %s: %w", p.GetId(), err)
	}
	return s.emit(objectHeader(p), strings.TrimRight(body, "\n"))
}

// Grant renders the grant for the object that was just created; it carries no
// header so the statement reads as part of the object's block
func (s *ScriptTarget) Grant(_ context.Context, o model.Object, priv model.GroupPrivilege) error {
	var on string
	switch o.Kind() {
	case model.KindTable:
		on = "TABLE " + qualify(o.Name())
	case model.KindSequence:
		on = "SEQUENCE " + qualify(o.Name())
	case model.KindProcedure:
		on = "PROCEDURE " + qualify(o.Name())
	case model.KindSessionVariable:
		on = "VARIABLE " + qualify(o.Name())
	case model.KindRowType, model.KindRowArrayType:
		on = "TYPE " + qualify(o.Name())
	default:
		return fmt.Errorf("granting on %s: kind %s is not grantable", o.GetId(), o.Kind())
	}
	return s.emit("", fmt.Sprintf("GRANT %s ON %s TO %s",
		priv.Privilege, on, pq.QuoteIdentifier(priv.Group)))
}
