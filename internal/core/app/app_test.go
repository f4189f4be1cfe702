package app

import (
	"context"
	"path/filepath"
	"testing"

	"schematune/internal/core/config"
	"schematune/internal/data/record"
	"schematune/internal/engine/optimizer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DB.Path = filepath.Join(t.TempDir(), "app.db")
	return cfg
}

func TestApp_UpdateTriggersOptimization(t *testing.T) {
	ctx := context.Background()
	var decisions []optimizer.Decision
	hook := WithDecisionHook(func(_ context.Context, d optimizer.Decision) { decisions = append(decisions, d) })
	a, err := New(ctx, testConfig(t), nil, hook)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(ctx) })
	require.NotNil(t, a.Optimizer)

	_, err = a.DB.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, age varchar(255))`)
	require.NoError(t, err)
	_, err = a.DB.Exec(`INSERT INTO users (age) VALUES ('30')`)
	require.NoError(t, err)

	require.NoError(t, a.Store.Update(ctx, &record.Bean{Type: "users", ID: 1, Fields: map[string]any{"age": "31"}}))

	cols, err := a.Inspector.ColumnsOf(ctx, "users")
	require.NoError(t, err)
	age, ok := cols.Lookup("age")
	require.True(t, ok)
	assert.Equal(t, "tinyint unsigned", age.Type)

	require.Len(t, decisions, 1)
	assert.Equal(t, optimizer.KindNarrow, decisions[0].Kind)
	assert.True(t, decisions[0].Applied)
}

func TestApp_DisabledOptimizerLeavesSchema(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	disabled := false
	cfg.Optimizer.Enabled = &disabled

	a, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(ctx) })
	assert.Nil(t, a.Optimizer)

	_, err = a.DB.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, age varchar(255))`)
	require.NoError(t, err)
	_, err = a.DB.Exec(`INSERT INTO users (age) VALUES ('30')`)
	require.NoError(t, err)
	require.NoError(t, a.Store.Update(ctx, &record.Bean{Type: "users", ID: 1, Fields: map[string]any{"age": "31"}}))

	cols, err := a.Inspector.ColumnsOf(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, "varchar(255)", cols.Map()["age"])

	health := NewHealthService(a).Check(ctx)
	assert.Equal(t, "up", health.Status)
	assert.Equal(t, "disabled", health.Components["optimizer"])
}

func TestApp_Health(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), nil)
	require.NoError(t, err)

	status := NewHealthService(a).Check(ctx)
	assert.Equal(t, "up", status.Status)
	assert.Equal(t, "sqlite", status.Components["dialect"])
	assert.Equal(t, "enabled", status.Components["optimizer"])

	require.NoError(t, a.Close(ctx))
	status = NewHealthService(a).Check(ctx)
	assert.Equal(t, "down", status.Status)
}

func TestNew_Errors(t *testing.T) {
	ctx := context.Background()
	_, err := New(ctx, nil, nil)
	assert.Error(t, err)

	cfg := testConfig(t)
	cfg.DB.Driver = "oracle"
	_, err = New(ctx, cfg, nil)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Optimizer.Matchers = []string{"nope"}
	_, err = New(ctx, cfg, nil)
	assert.Error(t, err)
}
