// internal/debounce/scheduler.go
package debounce

import (
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/user/metareply/internal/types"
)

// CallbackFactory builds the deferred-response callback for a conversation.
// The snapshot is captured at schedule time and owned by the callback.
type CallbackFactory func(key types.ConversationKey, snapshot types.Snapshot, accountID string) types.TaskCallback

// Delays holds the scheduling windows for conversation response tasks.
type Delays struct {
	// InitialMin/InitialMax bound the uniformly random delay for a
	// conversation's first message.
	InitialMin time.Duration
	InitialMax time.Duration
	// Reschedule is the fixed short delay applied when a new message lands
	// on an already-buffered conversation.
	Reschedule time.Duration
	// Expiry is added to the delay to form the task's drop-dead deadline.
	Expiry time.Duration
}

// DefaultDelays returns the production windows: 60–120s initial, 30s
// reschedule, 1h expiry.
func DefaultDelays() Delays {
	return Delays{
		InitialMin: 60 * time.Second,
		InitialMax: 120 * time.Second,
		Reschedule: 30 * time.Second,
		Expiry:     3600 * time.Second,
	}
}

// ScheduleEntry records the single pending response task for a conversation.
type ScheduleEntry struct {
	Key       types.ConversationKey
	Handle    types.TaskHandle
	Delay     time.Duration
	FireAt    time.Time
	AccountID string
}

// Scheduler owns per-conversation message buffers and their pending response
// tasks. It enforces the core invariant: at most one schedule entry per
// conversation key at any time. Mutations on the same key are serialized by
// a per-key lock; different keys proceed in parallel. The scheduler-wide
// mutex guards only map membership.
type Scheduler struct {
	backend types.TaskBackend
	factory CallbackFactory
	delays  Delays

	mu      sync.Mutex
	locks   map[types.ConversationKey]*sync.Mutex
	buffers map[types.ConversationKey][]types.DirectMessage
	entries map[types.ConversationKey]*ScheduleEntry
}

// New creates a Scheduler submitting tasks to the given backend. The factory
// is called once per (re)schedule to bind a callback to a fresh snapshot.
func New(backend types.TaskBackend, factory CallbackFactory, delays Delays) *Scheduler {
	return &Scheduler{
		backend: backend,
		factory: factory,
		delays:  delays,
		locks:   make(map[types.ConversationKey]*sync.Mutex),
		buffers: make(map[types.ConversationKey][]types.DirectMessage),
		entries: make(map[types.ConversationKey]*ScheduleEntry),
	}
}

// getLock returns the per-key mutex, creating one if it doesn't exist.
func (s *Scheduler) getLock(key types.ConversationKey) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lock, ok := s.locks[key]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	s.locks[key] = lock
	return lock
}

func (s *Scheduler) getBuffer(key types.ConversationKey) ([]types.DirectMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.buffers[key]
	return buf, ok
}

func (s *Scheduler) setBuffer(key types.ConversationKey, buf []types.DirectMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffers[key] = buf
}

func (s *Scheduler) getEntry(key types.ConversationKey) (*ScheduleEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	return entry, ok
}

func (s *Scheduler) setEntry(key types.ConversationKey, entry *ScheduleEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
}

func (s *Scheduler) remove(key types.ConversationKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buffers, key)
	delete(s.entries, key)
}

// OnNewMessage buffers the message and (re)schedules the conversation's
// response task. A first message opens the buffer and schedules with a
// random initial delay; a follow-up appends, cancels the pending task, and
// schedules a replacement with the short reschedule delay. Echo events must
// be filtered by the caller.
func (s *Scheduler) OnNewMessage(key types.ConversationKey, msg types.DirectMessage, accountID string) {
	lock := s.getLock(key)
	lock.Lock()
	defer lock.Unlock()

	buf, exists := s.getBuffer(key)
	if !exists {
		s.setBuffer(key, []types.DirectMessage{msg})
		delay := s.initialDelay()
		s.schedule(key, accountID, delay)
		slog.Info("scheduled initial response task",
			"conversation", key,
			"delay", delay,
			"account_id", accountID,
		)
		return
	}

	s.setBuffer(key, append(buf, msg))

	// Cancel-and-reschedule: the old entry is removed before the new one is
	// recorded, so at most one non-cancelled task ever observes the final
	// buffer state.
	if entry, ok := s.getEntry(key); ok {
		entry.Handle.Cancel()
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
	}
	s.schedule(key, accountID, s.delays.Reschedule)
	slog.Info("rescheduled response task",
		"conversation", key,
		"delay", s.delays.Reschedule,
		"account_id", accountID,
	)
}

// schedule submits a task bound to a snapshot of the current buffer and
// records the schedule entry. Caller must hold the key's lock.
func (s *Scheduler) schedule(key types.ConversationKey, accountID string, delay time.Duration) {
	snapshot := s.snapshot(key)
	fn := s.factory(key, snapshot, accountID)
	handle := s.backend.Schedule("send_dm", delay, s.delays.Expiry, fn)
	s.setEntry(key, &ScheduleEntry{
		Key:       key,
		Handle:    handle,
		Delay:     delay,
		FireAt:    time.Now().Add(delay),
		AccountID: accountID,
	})
}

// snapshot deep-copies the key's buffer so the deferred task never observes
// later mutation.
func (s *Scheduler) snapshot(key types.ConversationKey) types.Snapshot {
	snap := types.Snapshot{}
	if buf, ok := s.getBuffer(key); ok {
		snap[key] = append([]types.DirectMessage(nil), buf...)
	}
	return snap
}

func (s *Scheduler) initialDelay() time.Duration {
	min, max := s.delays.InitialMin, s.delays.InitialMax
	if max <= min {
		return min
	}
	return min + rand.N(max-min)
}

// Clear removes the buffer and schedule entry for the key, cancelling any
// pending task. Clearing an unknown key is a no-op; the fired task that
// calls this may race an explicit clear, and absence is success.
func (s *Scheduler) Clear(key types.ConversationKey) {
	lock := s.getLock(key)
	lock.Lock()
	defer lock.Unlock()

	if entry, ok := s.getEntry(key); ok {
		entry.Handle.Cancel()
	}
	s.remove(key)
}

// Entry returns the pending schedule entry for the key, if any.
func (s *Scheduler) Entry(key types.ConversationKey) (*ScheduleEntry, bool) {
	return s.getEntry(key)
}

// BufferLen returns the number of buffered messages for the key.
func (s *Scheduler) BufferLen(key types.ConversationKey) int {
	buf, _ := s.getBuffer(key)
	return len(buf)
}
