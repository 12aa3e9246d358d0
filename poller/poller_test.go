package poller

import (
	"sync"
	"testing"
	"time"

	"github.com/KOMKZ/go-dashsync/cache"
	"github.com/KOMKZ/go-dashsync/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore 固定返回预置记录，统计刷新次数
type fakeStore struct {
	mu        sync.Mutex
	entries   map[cache.Key]cache.Entry
	refetches map[cache.Key]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entries:   make(map[cache.Key]cache.Entry),
		refetches: make(map[cache.Key]int),
	}
}

func (s *fakeStore) put(key cache.Key, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = cache.Entry{Key: key, Data: data, Status: cache.StatusSuccess}
}

func (s *fakeStore) Read(key cache.Key) (cache.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return e, ok
}

func (s *fakeStore) Refetch(key cache.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refetches[key]++
	return nil
}

func (s *fakeStore) refetchCount(key cache.Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refetches[key]
}

func newTestPoller(t *testing.T, store Store) *Poller {
	t.Helper()
	p, err := NewPoller(store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Stop() })
	return p
}

// processing 判断会议是否仍在处理中
func processing(e cache.Entry) bool {
	item, ok := e.Data.(entity.Item)
	return ok && item["status"] == entity.MeetingStatusProcessing
}

func TestWatch_RefetchesWhileConditionHolds(t *testing.T) {
	store := newFakeStore()
	key := cache.DetailKey(entity.KindMeeting, "m-1")
	store.put(key, entity.Item{"status": entity.MeetingStatusProcessing})

	p := newTestPoller(t, store)
	require.NoError(t, p.Watch(key, 5*time.Millisecond, processing))

	require.Eventually(t, func() bool {
		return store.refetchCount(key) >= 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, p.Watching())
}

func TestWatch_StopsWhenConditionBreaks(t *testing.T) {
	store := newFakeStore()
	key := cache.DetailKey(entity.KindMeeting, "m-2")
	store.put(key, entity.Item{"status": entity.MeetingStatusProcessing})

	p := newTestPoller(t, store)
	require.NoError(t, p.Watch(key, 5*time.Millisecond, processing))

	require.Eventually(t, func() bool {
		return store.refetchCount(key) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	// 处理完成后条件失效，轮询自动解除
	store.put(key, entity.Item{"status": entity.MeetingStatusDone})

	require.Eventually(t, func() bool {
		return p.Watching() == 0
	}, 2*time.Second, 5*time.Millisecond)

	// 解除后不再刷新
	settled := store.refetchCount(key)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, store.refetchCount(key))
}

func TestWatch_MissingEntryUnwatches(t *testing.T) {
	store := newFakeStore()
	key := cache.DetailKey(entity.KindMeeting, "m-3")

	p := newTestPoller(t, store)
	require.NoError(t, p.Watch(key, 5*time.Millisecond, processing))

	require.Eventually(t, func() bool {
		return p.Watching() == 0
	}, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, store.refetchCount(key))
}

func TestWatch_Idempotent(t *testing.T) {
	store := newFakeStore()
	key := cache.DetailKey(entity.KindMeeting, "m-4")
	store.put(key, entity.Item{"status": entity.MeetingStatusProcessing})

	p := newTestPoller(t, store)
	require.NoError(t, p.Watch(key, time.Hour, processing))
	require.NoError(t, p.Watch(key, time.Hour, processing))

	assert.Equal(t, 1, p.Watching())
}

func TestUnwatch(t *testing.T) {
	store := newFakeStore()
	key := cache.DetailKey(entity.KindMeeting, "m-5")
	store.put(key, entity.Item{"status": entity.MeetingStatusProcessing})

	p := newTestPoller(t, store)
	require.NoError(t, p.Watch(key, time.Hour, processing))

	p.Unwatch(key)
	assert.Equal(t, 0, p.Watching())

	// 未注册的键解除是 no-op
	p.Unwatch(cache.DetailKey(entity.KindMeeting, "absent"))
}

func TestStop_RejectsNewWatches(t *testing.T) {
	store := newFakeStore()
	p, err := NewPoller(store)
	require.NoError(t, err)

	require.NoError(t, p.Stop())
	require.NoError(t, p.Stop()) // 幂等

	err = p.Watch(cache.DetailKey(entity.KindMeeting, "m-6"), time.Second, processing)
	assert.ErrorIs(t, err, ErrPollerClosed)
}
