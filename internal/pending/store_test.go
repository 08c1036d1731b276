package pending

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PratikDhanave/creation-sync/internal/events"
)

type failingStorage struct {
	loadErr error
	saveErr error
	saves   int
}

func (f *failingStorage) Load() ([]Entry, error) { return nil, f.loadErr }

func (f *failingStorage) Save([]Entry) error {
	f.saves++
	return f.saveErr
}

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) Printf(format string, args ...any) {
	r.lines = append(r.lines, format)
}

func entry(token string) Entry {
	return Entry{ID: "pe_" + token, Token: token, CreatedAt: time.Unix(1_700_000_000, 0)}
}

func tokens(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Token)
	}
	return out
}

func countChanges(bus *events.Bus) *int {
	n := 0
	bus.Subscribe(func(e events.Event) {
		if e.Kind == events.PendingListChanged {
			n++
		}
	})
	return &n
}

func TestStoreAddPrependsNewestFirst(t *testing.T) {
	s := NewStore(nil, nil, nil)

	s.Add(entry("crt_a"))
	s.Add(entry("crt_b"))
	s.Add(entry("crt_c"))

	assert.Equal(t, []string{"crt_c", "crt_b", "crt_a"}, tokens(s.List()))
	assert.Equal(t, StatusPending, s.List()[0].Status)
}

func TestStoreAddReplacesSameToken(t *testing.T) {
	s := NewStore(nil, nil, nil)

	s.Add(entry("crt_a"))
	s.Add(entry("crt_b"))
	replacement := entry("crt_a")
	replacement.Method = "retry"
	s.Add(replacement)

	list := s.List()
	assert.Equal(t, []string{"crt_a", "crt_b"}, tokens(list))
	assert.Equal(t, "retry", list[0].Method)
}

func TestStoreRemove(t *testing.T) {
	testCases := []struct {
		name   string
		seed   []string
		remove []string
		want   []string
	}{
		{name: "head", seed: []string{"crt_a", "crt_b", "crt_c"}, remove: []string{"crt_c"}, want: []string{"crt_b", "crt_a"}},
		{name: "middle", seed: []string{"crt_a", "crt_b", "crt_c"}, remove: []string{"crt_b"}, want: []string{"crt_c", "crt_a"}},
		{name: "tail", seed: []string{"crt_a", "crt_b", "crt_c"}, remove: []string{"crt_a"}, want: []string{"crt_c", "crt_b"}},
		{name: "twice", seed: []string{"crt_a", "crt_b"}, remove: []string{"crt_a", "crt_a"}, want: []string{"crt_b"}},
		{name: "never_added", seed: []string{"crt_a"}, remove: []string{"crt_zzz"}, want: []string{"crt_a"}},
		{name: "empty_store", remove: []string{"crt_a"}, want: []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStore(nil, nil, nil)
			for _, tok := range tc.seed {
				s.Add(entry(tok))
			}

			assert.NotPanics(t, func() {
				for _, tok := range tc.remove {
					s.Remove(tok)
				}
			})

			assert.Equal(t, tc.want, tokens(s.List()))
		})
	}
}

func TestStoreNotifiesOnEveryMutation(t *testing.T) {
	bus := events.NewBus()
	changes := countChanges(bus)
	s := NewStore(nil, bus, nil)

	s.Add(entry("crt_a"))
	s.Add(entry("crt_b"))
	s.Remove("crt_a")
	s.Remove("crt_a")
	s.Remove("crt_missing")

	assert.Equal(t, 3, *changes, "no-op removals must not notify")
}

func TestStoreRemoveWhere(t *testing.T) {
	bus := events.NewBus()
	changes := countChanges(bus)
	s := NewStore(nil, bus, nil)
	for _, tok := range []string{"crt_a", "crt_b", "crt_c"} {
		s.Add(entry(tok))
	}
	*changes = 0

	n := s.RemoveWhere(func(e Entry) bool { return e.Token != "crt_b" })

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"crt_b"}, tokens(s.List()))
	assert.Equal(t, 1, *changes)
}

func TestStoreListIsACopy(t *testing.T) {
	s := NewStore(nil, nil, nil)
	s.Add(entry("crt_a"))

	list := s.List()
	list[0].Token = "mutated"

	_, ok := s.Get("crt_a")
	assert.True(t, ok)
}

func TestStoreSwallowsStorageFailures(t *testing.T) {
	storage := &failingStorage{loadErr: errors.New("quota"), saveErr: errors.New("quota exceeded")}
	logger := &recordingLogger{}
	bus := events.NewBus()
	changes := countChanges(bus)

	s := NewStore(storage, bus, logger)
	assert.NotPanics(t, func() {
		s.Add(entry("crt_a"))
		s.Remove("crt_a")
	})

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 2, storage.saves)
	assert.Equal(t, 2, *changes)
	assert.Len(t, logger.lines, 3)
}

func TestStoreLoadsFromStorage(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, storage.Save([]Entry{entry("crt_b"), entry("crt_a"), entry("crt_b")}))

	s := NewStore(storage, nil, nil)

	assert.Equal(t, []string{"crt_b", "crt_a"}, tokens(s.List()))
}

func TestFileStorageRoundTripAndClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session", "pending.json")
	fs, err := NewFileStorage(path)
	require.NoError(t, err)

	loaded, err := fs.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)

	s := NewStore(fs, nil, nil)
	s.Add(entry("crt_a"))
	s.Add(entry("crt_b"))

	reopened := NewStore(fs, nil, nil)
	assert.Equal(t, []string{"crt_b", "crt_a"}, tokens(reopened.List()))

	assert.FileExists(t, fs.Path()+".lock")

	require.NoError(t, fs.Clear())
	require.NoError(t, fs.Clear())
	assert.NoFileExists(t, fs.Path())
	assert.NoFileExists(t, fs.Path()+".lock")
	assert.Equal(t, 0, NewStore(fs, nil, nil).Len())
}

func TestStoresSharingSessionFileKeepEachOthersEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	storageA, err := NewFileStorage(path)
	require.NoError(t, err)
	storageB, err := NewFileStorage(path)
	require.NoError(t, err)

	a := NewStore(storageA, nil, nil)
	a.Add(entry("crt_old"))

	b := NewStore(storageB, nil, nil)
	require.Equal(t, []string{"crt_old"}, tokens(b.List()))
	b.Add(entry("crt_new"))

	assert.Equal(t, 1, a.RemoveWhere(func(e Entry) bool { return e.Token == "crt_old" }))

	assert.Equal(t, []string{"crt_new"}, tokens(a.List()))
	assert.Equal(t, []string{"crt_new"}, tokens(b.List()))
	stored, err := storageA.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"crt_new"}, tokens(stored))

	assert.Equal(t, 0, b.RemoveWhere(func(e Entry) bool { return e.Token == "crt_old" }), "already removed by the other store")
}

func TestStoreDropsMalformedStoredEntries(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, storage.Save([]Entry{entry("crt_a"), entry(""), entry("not-a-token"), entry("crt_Bad")}))

	s := NewStore(storage, nil, nil)

	assert.Equal(t, []string{"crt_a"}, tokens(s.List()))
}

func TestNewFileStorageRequiresPath(t *testing.T) {
	_, err := NewFileStorage("  ")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestEntryAge(t *testing.T) {
	e := entry("crt_a")
	assert.Equal(t, 90*time.Second, e.Age(e.CreatedAt.Add(90*time.Second)))
}
