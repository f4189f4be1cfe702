package verifier_test

import (
	"context"
	"database/sql"
	"testing"

	"schematune/internal/core/errors"
	"schematune/internal/data/dialect"
	"schematune/internal/engine/verifier"
	"schematune/internal/test/sqlitetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVerifier(t *testing.T, stmts ...string) (*sql.DB, *verifier.Verifier) {
	t.Helper()
	db, a := sqlitetest.Open(t)
	sqlitetest.Exec(t, db, stmts...)
	return db, verifier.New(a, dialect.SQLite{}, nil, nil)
}

func assertNoReservedColumns(t *testing.T, db *sql.DB, table string) {
	t.Helper()
	cols := sqlitetest.Columns(t, db, table)
	assert.NotContains(t, cols, verifier.ShadowColumn)
	assert.NotContains(t, cols, dialect.SwapColumn)
}

func TestTryNarrow_AppliesWhenLossless(t *testing.T) {
	db, v := newVerifier(t,
		`CREATE TABLE users (id INTEGER PRIMARY KEY, age varchar(255))`,
		`INSERT INTO users (age) VALUES ('5'), ('42'), (NULL), ('255')`,
	)

	applied, err := v.TryNarrow(context.Background(), "users", "age", "tinyint unsigned")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, "tinyint unsigned", sqlitetest.Columns(t, db, "users")["age"])
	assertNoReservedColumns(t, db, "users")

	got := sqlitetest.Texts(t, db, "users", "age")
	require.Len(t, got, 4)
	assert.Equal(t, "5", got[0].String)
	assert.Equal(t, "42", got[1].String)
	assert.False(t, got[2].Valid)
	assert.Equal(t, "255", got[3].String)
}

func TestTryNarrow_RefusesLossyData(t *testing.T) {
	tests := []struct {
		name      string
		values    string
		candidate string
	}{
		{name: "out of range", values: `('5'), ('300')`, candidate: "tinyint unsigned"},
		{name: "not numeric", values: `('5'), ('abc')`, candidate: "tinyint unsigned"},
		{name: "leading zero", values: `('7'), ('007')`, candidate: "int unsigned"},
		{name: "fraction", values: `('1'), ('1.5')`, candidate: "int unsigned"},
		{name: "empty string", values: `('1'), ('')`, candidate: "boolean"},
		{name: "too long", values: `('short'), ('` + longText(300) + `')`, candidate: "varchar(255)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, v := newVerifier(t,
				`CREATE TABLE t (id INTEGER PRIMARY KEY, c text)`,
				`INSERT INTO t (c) VALUES `+tt.values,
			)
			before := sqlitetest.Columns(t, db, "t")

			applied, err := v.TryNarrow(context.Background(), "t", "c", tt.candidate)
			require.NoError(t, err)
			assert.False(t, applied)
			assert.Equal(t, before, sqlitetest.Columns(t, db, "t"))
		})
	}
}

func TestTryNarrow_DoubleToInteger(t *testing.T) {
	db, v := newVerifier(t,
		`CREATE TABLE m (id INTEGER PRIMARY KEY, score double)`,
		`INSERT INTO m (score) VALUES (3.0), (12), (0)`,
	)
	applied, err := v.TryNarrow(context.Background(), "m", "score", "tinyint unsigned")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, "tinyint unsigned", sqlitetest.Columns(t, db, "m")["score"])

	db, v = newVerifier(t,
		`CREATE TABLE m (id INTEGER PRIMARY KEY, score double)`,
		`INSERT INTO m (score) VALUES (3.0), (3.5)`,
	)
	applied, err = v.TryNarrow(context.Background(), "m", "score", "tinyint unsigned")
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, "double", sqlitetest.Columns(t, db, "m")["score"])
}

func TestTryNarrow_RemovesStaleShadowColumn(t *testing.T) {
	db, v := newVerifier(t,
		`CREATE TABLE users (id INTEGER PRIMARY KEY, flag text, __test text)`,
		`INSERT INTO users (flag, __test) VALUES ('1', 'left over'), ('0', NULL)`,
	)

	applied, err := v.TryNarrow(context.Background(), "users", "flag", "boolean")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, "boolean", sqlitetest.Columns(t, db, "users")["flag"])
	assertNoReservedColumns(t, db, "users")
}

func TestTryNarrow_AbortsOnMissingSchema(t *testing.T) {
	db, v := newVerifier(t, `CREATE TABLE users (id INTEGER PRIMARY KEY, age text)`)
	ctx := context.Background()

	_, err := v.TryNarrow(ctx, "nope", "age", "tinyint unsigned")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeAborted))
	step, _ := errors.ContextValue(err, errors.CtxStep)
	assert.Equal(t, verifier.StepAddShadow, step)

	applied, err := v.TryNarrow(ctx, "users", "missing", "tinyint unsigned")
	require.Error(t, err)
	assert.False(t, applied)
	assert.True(t, errors.IsCode(err, errors.CodeAborted))
	step, _ = errors.ContextValue(err, errors.CtxStep)
	assert.Equal(t, verifier.StepCopy, step)
	assertNoReservedColumns(t, db, "users")
}

func TestTryNarrow_AbortsWhenRetypeFails(t *testing.T) {
	db, v := newVerifier(t,
		`CREATE TABLE users (id INTEGER PRIMARY KEY, age text)`,
		`CREATE INDEX users_age ON users (age)`,
		`INSERT INTO users (age) VALUES ('1'), ('2')`,
	)

	applied, err := v.TryNarrow(context.Background(), "users", "age", "tinyint unsigned")
	require.Error(t, err)
	assert.False(t, applied)
	step, _ := errors.ContextValue(err, errors.CtxStep)
	assert.Equal(t, verifier.StepRetype, step)
	assert.Equal(t, "text", sqlitetest.Columns(t, db, "users")["age"])
	assertNoReservedColumns(t, db, "users")
}

func TestTryNarrow_RejectsReservedAndInvalidNames(t *testing.T) {
	_, v := newVerifier(t, `CREATE TABLE users (id INTEGER PRIMARY KEY, age text)`)
	ctx := context.Background()

	_, err := v.TryNarrow(ctx, "users", verifier.ShadowColumn, "tinyint unsigned")
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	_, err = v.TryNarrow(ctx, "users", "age", "int; DROP TABLE users")
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	_, err = v.TryNarrow(ctx, "", "age", "tinyint unsigned")
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func longText(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'x'
	}
	return string(b)
}
