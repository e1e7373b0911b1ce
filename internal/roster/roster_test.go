package roster

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	values map[string]string
	getErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: make(map[string]string)}
}

func (f *fakeStore) GetState(_ context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeStore) SetState(_ context.Context, key, value string) error {
	f.values[key] = value
	return nil
}

func newTestRoster(t *testing.T, store *fakeStore) *Roster {
	t.Helper()
	return New(store, slog.New(slog.NewTextHandler(testWriter{t}, nil)))
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestUpdateAppendsWhenHome(t *testing.T) {
	store := newFakeStore()
	r := newTestRoster(t, store)

	require.NoError(t, r.Update(context.Background(), "alice", true))

	require.Equal(t, `["alice"]`, store.values[KeyPersonsAtHome])
	require.Equal(t, "1", store.values[KeyNumberAtHome])
	require.Equal(t, "true", store.values[KeyAnybodyAtHome])
}

func TestUpdateIsIdempotent(t *testing.T) {
	store := newFakeStore()
	r := newTestRoster(t, store)

	require.NoError(t, r.Update(context.Background(), "alice", true))
	require.NoError(t, r.Update(context.Background(), "alice", true))

	require.Equal(t, `["alice"]`, store.values[KeyPersonsAtHome])
}

func TestUpdateRemovesPreservingOrder(t *testing.T) {
	store := newFakeStore()
	r := newTestRoster(t, store)

	for _, u := range []string{"alice", "bob", "carol"} {
		require.NoError(t, r.Update(context.Background(), u, true))
	}

	require.NoError(t, r.Update(context.Background(), "bob", false))

	require.Equal(t, `["alice","carol"]`, store.values[KeyPersonsAtHome])
	require.Equal(t, "2", store.values[KeyNumberAtHome])
}

func TestUpdateNoWriteWhenConsistent(t *testing.T) {
	store := newFakeStore()
	r := newTestRoster(t, store)

	require.NoError(t, r.Update(context.Background(), "alice", false))

	_, written := store.values[KeyPersonsAtHome]
	require.False(t, written, "an already-consistent roster must not be rewritten")
}

func TestCorruptRosterTreatedAsEmpty(t *testing.T) {
	store := newFakeStore()
	store.values[KeyPersonsAtHome] = `{"not":"an array"`
	r := newTestRoster(t, store)

	require.NoError(t, r.Update(context.Background(), "alice", true))
	require.Equal(t, `["alice"]`, store.values[KeyPersonsAtHome])
}

func TestUnreadableRosterTreatedAsEmpty(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("backend down")
	r := newTestRoster(t, store)

	require.NoError(t, r.Update(context.Background(), "alice", true))
	require.Equal(t, `["alice"]`, store.values[KeyPersonsAtHome])
}

func TestClear(t *testing.T) {
	store := newFakeStore()
	r := newTestRoster(t, store)

	require.NoError(t, r.Update(context.Background(), "alice", true))
	require.NoError(t, r.Clear(context.Background()))

	require.Equal(t, `[]`, store.values[KeyPersonsAtHome])
	require.Equal(t, "0", store.values[KeyNumberAtHome])
	require.Equal(t, "false", store.values[KeyAnybodyAtHome])
}

func TestReplaceRecomputesScalars(t *testing.T) {
	store := newFakeStore()
	r := newTestRoster(t, store)

	require.NoError(t, r.Replace(context.Background(), []string{"alice", "bob"}))

	require.Equal(t, `["alice","bob"]`, store.values[KeyPersonsAtHome])
	require.Equal(t, "2", store.values[KeyNumberAtHome])
	require.Equal(t, "true", store.values[KeyAnybodyAtHome])

	require.NoError(t, r.Replace(context.Background(), nil))
	require.Equal(t, `[]`, store.values[KeyPersonsAtHome])
	require.Equal(t, "false", store.values[KeyAnybodyAtHome])
}

func TestSnapshot(t *testing.T) {
	store := newFakeStore()
	r := newTestRoster(t, store)

	require.NoError(t, r.Update(context.Background(), "alice", true))

	status, err := r.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"alice"}, status.PersonsAtHome)
	require.Equal(t, 1, status.NumberAtHome)
	require.True(t, status.AnybodyAtHome)
}
