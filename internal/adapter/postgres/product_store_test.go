package postgres

import (
	"context"
	"testing"

	"github.com/lacasadepastel/pdv/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTag int64

func (t fakeTag) RowsAffected() int64 { return int64(t) }

type fakeTx struct {
	existing   map[string]bool
	execIDs    []string
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	id := args[0].(string)
	t.execIDs = append(t.execIDs, id)
	if !t.existing[id] {
		return fakeTag(0), nil
	}
	return fakeTag(1), nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.rolledBack = true
	return nil
}

type fakeDB struct {
	tx *fakeTx
}

func (db *fakeDB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return nil, nil
}

func (db *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return nil
}

func (db *fakeDB) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return fakeTag(1), nil
}

func (db *fakeDB) Begin(ctx context.Context) (Tx, error) {
	return db.tx, nil
}

func (db *fakeDB) Close() {}

func TestSetActiveCommitsBatch(t *testing.T) {
	tx := &fakeTx{existing: map[string]bool{"p1": true, "p2": true}}
	store := NewProductStore(&fakeDB{tx: tx})

	err := store.SetActive(context.Background(), []string{"p1", "p2"}, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p2"}, tx.execIDs)
	assert.True(t, tx.committed)
}

func TestSetActiveRollsBackOnUnknownID(t *testing.T) {
	tx := &fakeTx{existing: map[string]bool{"p1": true}}
	store := NewProductStore(&fakeDB{tx: tx})

	err := store.SetActive(context.Background(), []string{"p1", "ghost"}, true)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.False(t, tx.committed, "an unknown id aborts the whole batch")
	assert.True(t, tx.rolledBack)
}
