package model

import "context"

// Target is the executor contract: the model decides what to apply and in
// what order, a Target decides how. Implementations used with a concurrent
// applier must be safe for concurrent calls.
//
// The one Target in this repo renders DDL text; engines that talk to a live
// database implement this interface elsewhere
type Target interface {
	CreateSequence(ctx context.Context, s *Sequence) error
	CreateSessionVariable(ctx context.Context, v *SessionVariable) error
	CreateTablespace(ctx context.Context, ts *Tablespace) error
	CreateTable(ctx context.Context, t *Table) error
	CreateRowType(ctx context.Context, rt *RowType) error
	CreateRowArrayType(ctx context.Context, at *RowArrayType) error
	CreateProcedure(ctx context.Context, p *Procedure) error
	Grant(ctx context.Context, o Object, priv GroupPrivilege) error
}
