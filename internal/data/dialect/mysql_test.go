package dialect

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"schematune/internal/core/ports"
	"schematune/internal/engine/rank"
)

// scriptedAdapter records statements and answers sql_mode reads with mode.
type scriptedAdapter struct {
	mode   string
	failOn string
	stmts  []string
	args   [][]any
	txs    int
}

func (a *scriptedAdapter) Execute(_ context.Context, q string, args ...any) error {
	a.stmts = append(a.stmts, q)
	a.args = append(a.args, args)
	if a.failOn != "" && strings.HasPrefix(q, a.failOn) {
		return fmt.Errorf("error 1292: incorrect datetime value")
	}
	return nil
}

func (a *scriptedAdapter) QueryRows(_ context.Context, q string, args ...any) ([][]any, error) {
	a.stmts = append(a.stmts, q)
	a.args = append(a.args, args)
	return nil, nil
}

func (a *scriptedAdapter) QueryScalar(_ context.Context, q string, args ...any) (any, error) {
	a.stmts = append(a.stmts, q)
	a.args = append(a.args, args)
	return []byte(a.mode), nil
}

func (a *scriptedAdapter) InTx(_ context.Context, fn func(tx ports.Adapter) error) error {
	a.txs++
	return fn(a)
}

func TestMySQLRetypeForcesStrictMode(t *testing.T) {
	a := &scriptedAdapter{mode: "ONLY_FULL_GROUP_BY"}
	if err := (MySQL{}).Retype(context.Background(), a, "events", "happened", "datetime"); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"SELECT @@SESSION.sql_mode",
		strictMode,
		"ALTER TABLE `events` CHANGE `happened` `happened` datetime",
		"SET SESSION sql_mode = ?",
	}
	if !reflect.DeepEqual(a.stmts, want) {
		t.Fatalf("statements = %q, want %q", a.stmts, want)
	}
	if a.txs != 1 {
		t.Fatalf("expected one transaction, got %d", a.txs)
	}
	if got := a.args[3]; len(got) != 1 || got[0] != "ONLY_FULL_GROUP_BY" {
		t.Fatalf("sql_mode restored with %v", got)
	}
}

func TestMySQLRetypeRestoresModeWhenAlterFails(t *testing.T) {
	a := &scriptedAdapter{failOn: "ALTER"}
	err := (MySQL{}).Retype(context.Background(), a, "events", "happened", "datetime")
	if err == nil || !strings.Contains(err.Error(), "1292") {
		t.Fatalf("expected the ALTER error, got %v", err)
	}
	if last := a.stmts[len(a.stmts)-1]; last != "SET SESSION sql_mode = ?" {
		t.Fatalf("last statement = %q, want sql_mode restore", last)
	}
	if got := a.args[len(a.args)-1]; len(got) != 1 || got[0] != "" {
		t.Fatalf("sql_mode restored with %v", got)
	}
}

func TestMySQLRetypeRejectsBadInputBeforeTouchingDatabase(t *testing.T) {
	a := &scriptedAdapter{}
	if err := (MySQL{}).Retype(context.Background(), a, "events", "happened", "datetime; DROP TABLE x"); err == nil {
		t.Fatal("expected invalid type to be rejected")
	}
	if err := (MySQL{}).Retype(context.Background(), a, "", "happened", "datetime"); err == nil {
		t.Fatal("expected empty table to be rejected")
	}
	if len(a.stmts) != 0 {
		t.Fatalf("unexpected statements %q", a.stmts)
	}
}

func TestMySQLBoolTypeRanksBackToBool(t *testing.T) {
	typ, ok := MySQL{}.ConcreteType(rank.Bool)
	if !ok {
		t.Fatal("no bool type")
	}
	for _, reported := range []string{typ, "TINYINT(1)", "tinyint(1) unsigned"} {
		if got := (MySQL{}).DeclaredRank(reported); got != rank.Bool {
			t.Errorf("DeclaredRank(%q) = %s, want bool", reported, got)
		}
	}
}
