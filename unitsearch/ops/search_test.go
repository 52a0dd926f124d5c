package ops

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonibytes/unitsearch/unitsearch/planner"
	"github.com/nonibytes/unitsearch/unitsearch/storage"
	"github.com/nonibytes/unitsearch/unitsearch/storage/mock"
)

func matchAll() planner.Compiled {
	return planner.Compiled{
		Predicate: planner.MatchAll{},
		Order:     []planner.SortKey{{Field: planner.Accessor{Field: "id", Column: planner.ColID}}},
	}
}

func TestExecutePassesPageToStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockRecordStore(ctrl)
	store.EXPECT().Backend().Return(storage.BackendMemory).AnyTimes()

	compiled := matchAll()
	store.EXPECT().Search(gomock.Any(), storage.Query{
		Predicate: compiled.Predicate,
		Order:     compiled.Order,
		Offset:    20,
		Limit:     10,
	}).Return(storage.Result{IDs: []int64{21, 22, 23, 24, 25, 26, 27, 28, 29, 30}, Total: 45}, nil)

	res, err := Execute(context.Background(), store, compiled, PageRequest{Offset: 20, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 45, res.Total)
	assert.Len(t, res.IDs, 10)
	assert.True(t, res.HasMore)
	assert.Equal(t, 30, res.NextOffset)
}

func TestExecuteLastPage(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockRecordStore(ctrl)
	store.EXPECT().Backend().Return(storage.BackendMemory).AnyTimes()
	store.EXPECT().Search(gomock.Any(), gomock.Any()).Return(storage.Result{Total: 3}, nil)

	res, err := Execute(context.Background(), store, matchAll(), PageRequest{Offset: 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{}, res.IDs)
	assert.False(t, res.HasMore)
}

func TestExecuteClampsPage(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockRecordStore(ctrl)
	store.EXPECT().Backend().Return(storage.BackendMemory).AnyTimes()
	store.EXPECT().Search(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, q storage.Query) (storage.Result, error) {
		assert.Equal(t, 0, q.Offset)
		assert.Equal(t, MaxLimit, q.Limit)
		return storage.Result{}, nil
	})

	_, err := Execute(context.Background(), store, matchAll(), PageRequest{Offset: -5, Limit: MaxLimit + 1})
	require.NoError(t, err)
}

func TestExecuteWrapsStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockRecordStore(ctrl)
	store.EXPECT().Backend().Return(storage.BackendPostgres).AnyTimes()

	cause := errors.New("connection reset")
	store.EXPECT().Search(gomock.Any(), gomock.Any()).Return(storage.Result{}, cause).Times(1)

	_, err := Execute(context.Background(), store, matchAll(), PageRequest{})
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, storage.BackendPostgres, execErr.Store)
	assert.ErrorIs(t, err, cause)
}

func TestExecuteTimeoutIsExecutionError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockRecordStore(ctrl)
	store.EXPECT().Backend().Return(storage.BackendSQLite).AnyTimes()
	store.EXPECT().Search(gomock.Any(), gomock.Any()).Return(storage.Result{}, context.DeadlineExceeded)

	_, err := Execute(context.Background(), store, matchAll(), PageRequest{})
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecuteCanceledBeforeSearch(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockRecordStore(ctrl)
	store.EXPECT().Backend().Return(storage.BackendMemory).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Execute(ctx, store, matchAll(), PageRequest{})
	assert.ErrorIs(t, err, context.Canceled)
}
