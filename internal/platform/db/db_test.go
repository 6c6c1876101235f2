package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	pgx.Tx
	execs      []string
	failOn     string
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	if f.failOn != "" && sql == f.failOn {
		return pgconn.CommandTag{}, errors.New("syntax error")
	}
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	if !f.committed {
		f.rolledBack = true
	}
	return nil
}

type fakeBeginner struct {
	tx   *fakeTx
	opts pgx.TxOptions
	err  error
}

func (f *fakeBeginner) BeginTx(_ context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.tx, nil
}

func TestMigrateLocksThenApplies(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	require.NoError(t, Migrate(context.Background(), b, "CREATE A", "CREATE B"))

	assert.Equal(t, []string{`SELECT pg_advisory_xact_lock($1)`, "CREATE A", "CREATE B"}, b.tx.execs)
	assert.Equal(t, pgx.ReadCommitted, b.opts.IsoLevel)
	assert.True(t, b.tx.committed)
	assert.False(t, b.tx.rolledBack)
}

func TestMigrateRollsBackOnFailure(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{failOn: "CREATE B"}}
	err := Migrate(context.Background(), b, "CREATE A", "CREATE B", "CREATE C")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 1")
	assert.NotContains(t, b.tx.execs, "CREATE C")
	assert.False(t, b.tx.committed)
	assert.True(t, b.tx.rolledBack)
}

func TestWithTxBeginFailure(t *testing.T) {
	boom := errors.New("no connection")
	err := WithTx(context.Background(), &fakeBeginner{err: boom}, pgx.TxOptions{}, func(pgx.Tx) error {
		t.Fatal("fn must not run")
		return nil
	})
	require.ErrorIs(t, err, boom)
}

func TestPoolConfig(t *testing.T) {
	cfg, err := poolConfig("postgres://u:p@localhost:5432/khadamat", PoolOptions{MaxConns: 4, ConnectTimeout: 3 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, int32(4), cfg.MaxConns)
	assert.Equal(t, 3*time.Second, cfg.ConnConfig.ConnectTimeout)
	assert.Equal(t, "khadamat", cfg.ConnConfig.RuntimeParams["application_name"])

	cfg, err = poolConfig("postgres://u:p@localhost:5432/khadamat?application_name=ops", PoolOptions{ApplicationName: "seed"})
	require.NoError(t, err)
	assert.Equal(t, "ops", cfg.ConnConfig.RuntimeParams["application_name"])

	_, err = poolConfig("postgres://u:p@localhost:notaport/x", PoolOptions{})
	require.Error(t, err)
}
