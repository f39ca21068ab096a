package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	pgx.Tx
	committed   bool
	rolledBack  bool
	rollbackErr error
}

func (t *fakeTx) Commit(context.Context) error { t.committed = true; return nil }

func (t *fakeTx) Rollback(context.Context) error {
	t.rolledBack = true
	return t.rollbackErr
}

type fakeStarter struct {
	tx   *fakeTx
	opts pgx.TxOptions
	err  error
}

func (s *fakeStarter) BeginTx(_ context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	s.opts = opts
	if s.err != nil {
		return nil, s.err
	}
	return s.tx, nil
}

func TestWithTxCommits(t *testing.T) {
	starter := &fakeStarter{tx: &fakeTx{}}

	require.NoError(t, WithTx(context.Background(), starter, func(pgx.Tx) error { return nil }))
	assert.True(t, starter.tx.committed)
	assert.False(t, starter.tx.rolledBack)
	assert.Equal(t, pgx.ReadCommitted, starter.opts.IsoLevel)
}

func TestWithTxRollsBack(t *testing.T) {
	boom := errors.New("duplicate email")
	starter := &fakeStarter{tx: &fakeTx{rollbackErr: errors.New("conn closed")}}

	err := WithTx(context.Background(), starter, func(pgx.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "rollback: conn closed")
	assert.True(t, starter.tx.rolledBack)
	assert.False(t, starter.tx.committed)
}

func TestWithTxBeginFailure(t *testing.T) {
	starter := &fakeStarter{err: errors.New("pool exhausted")}
	called := false

	err := WithTx(context.Background(), starter, func(pgx.Tx) error { called = true; return nil })
	assert.ErrorContains(t, err, "begin tx")
	assert.False(t, called)
}
