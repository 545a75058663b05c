package device

import (
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Store.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// EventKind identifies what changed in the store.
type EventKind string

// Event kinds raised by the store.
const (
	// EventLoaded is raised once per ReplaceAll with the full device list.
	EventLoaded EventKind = "loaded"

	// EventAdded is raised when an upsert inserts a previously unseen id.
	EventAdded EventKind = "added"

	// EventUpdated is raised when an upsert updates an existing record.
	EventUpdated EventKind = "updated"
)

// Event describes one store mutation. Device is set for added/updated
// events; Devices carries the full snapshot for loaded events.
type Event struct {
	Kind    EventKind
	Device  Record
	Devices []Record
}

// eventQueueSize bounds the handoff queue between the writer and the
// dispatch goroutine. The writer blocks when the queue is full so no
// event is ever dropped and receipt order is preserved.
const eventQueueSize = 256

// Store is the in-memory device state cache.
//
// It mirrors the server's authoritative device registry: contents change
// only when the protocol handler applies an inbound message (ReplaceAll
// for DEVICES_LIST, Upsert for DEVICE_UPDATED / DEVICE_CHANGED). Records
// are never deleted locally except by a full-list replacement that omits
// them.
//
// The id index and the room index form one logical resource: they are
// always updated together under the same lock and every record appears in
// exactly one room bucket.
//
// Events fan out through a bounded queue drained by a single dispatch
// goroutine, so handlers observe mutations in apply order. Close stops
// the dispatch loop.
//
// Thread Safety:
//   - All methods are safe for concurrent use. The intended discipline is
//     a single writer (the protocol handler) with any number of readers.
type Store struct {
	mu     sync.RWMutex
	byID   map[string]Record
	byRoom map[string]map[string]struct{}

	handlers   []func(Event)
	handlersMu sync.RWMutex

	events   chan Event
	eventsMu sync.Mutex // guards closed + send ordering
	closed   bool
	done     chan struct{}

	logger Logger
}

// NewStore creates an empty device store and starts its event dispatch loop.
func NewStore() *Store {
	s := &Store{
		byID:   make(map[string]Record),
		byRoom: make(map[string]map[string]struct{}),
		events: make(chan Event, eventQueueSize),
		done:   make(chan struct{}),
		logger: noopLogger{},
	}
	go s.dispatchLoop()
	return s
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// OnEvent registers a handler invoked for every store event.
//
// Handlers run on the dispatch goroutine in apply order and should not
// block for extended periods.
func (s *Store) OnEvent(handler func(Event)) {
	s.handlersMu.Lock()
	s.handlers = append(s.handlers, handler)
	s.handlersMu.Unlock()
}

// Close stops the event dispatch loop. Pending events are delivered
// before the loop exits. The store remains readable after Close; further
// mutations no longer raise events.
func (s *Store) Close() {
	s.eventsMu.Lock()
	if s.closed {
		s.eventsMu.Unlock()
		return
	}
	s.closed = true
	close(s.events)
	s.eventsMu.Unlock()

	<-s.done
}

// dispatchLoop drains the event queue and fires handlers until the queue
// is closed.
func (s *Store) dispatchLoop() {
	defer close(s.done)

	for ev := range s.events {
		s.handlersMu.RLock()
		handlers := s.handlers
		s.handlersMu.RUnlock()

		for _, h := range handlers {
			h(ev)
		}
	}
}

// emit queues an event for dispatch. Blocks when the queue is full to
// preserve ordering; no-op after Close.
func (s *Store) emit(ev Event) {
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()
	if s.closed {
		return
	}
	s.events <- ev
}

// ReplaceAll atomically swaps the cache contents with the given records.
//
// The id index and room index are rebuilt together, then a single
// EventLoaded is raised with the full list. Records with a duplicate id
// keep the last occurrence (last-write-wins, matching receipt order).
func (s *Store) ReplaceAll(records []Record) {
	byID := make(map[string]Record, len(records))
	byRoom := make(map[string]map[string]struct{})

	for _, r := range records {
		r.Room = NormalizeRoom(r.Room)
		if prev, ok := byID[r.ID]; ok {
			removeFromRoom(byRoom, prev.Room, prev.ID)
		}
		byID[r.ID] = r
		addToRoom(byRoom, r.Room, r.ID)
	}

	s.mu.Lock()
	s.byID = byID
	s.byRoom = byRoom
	s.mu.Unlock()

	s.logger.Info("device cache replaced", "count", len(byID))
	s.emit(Event{Kind: EventLoaded, Devices: s.All()})
}

// Upsert inserts or updates one record by id.
//
// An unseen id is an insert (EventAdded); an existing id is an
// update-in-place (EventUpdated). Stale room membership is removed before
// the new membership is added so the record is never in two buckets.
func (s *Store) Upsert(record Record) {
	record.Room = NormalizeRoom(record.Room)

	s.mu.Lock()
	prev, existed := s.byID[record.ID]
	if existed && prev.Room != record.Room {
		removeFromRoom(s.byRoom, prev.Room, prev.ID)
	}
	s.byID[record.ID] = record
	addToRoom(s.byRoom, record.Room, record.ID)
	s.mu.Unlock()

	if existed {
		s.logger.Debug("device updated", "id", record.ID)
		s.emit(Event{Kind: EventUpdated, Device: record})
		return
	}
	s.logger.Debug("device added", "id", record.ID)
	s.emit(Event{Kind: EventAdded, Device: record})
}

// Get retrieves a device by id.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	return r, ok
}

// All returns every cached record, sorted by id for stable output.
func (s *Store) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]Record, 0, len(s.byID))
	for _, r := range s.byID {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

// ByRoom returns all devices in the given room, sorted by id.
func (s *Store) ByRoom(room string) []Record {
	room = NormalizeRoom(room)

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, ok := s.byRoom[room]
	if !ok {
		return nil
	}
	records := make([]Record, 0, len(ids))
	for id := range ids {
		records = append(records, s.byID[id])
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

// ByType returns all devices of the given type, sorted by id.
func (s *Store) ByType(t DeviceType) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []Record
	for _, r := range s.byID {
		if r.Type == t {
			records = append(records, r)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

// Rooms returns the distinct room names, sorted.
func (s *Store) Rooms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]string, 0, len(s.byRoom))
	for room := range s.byRoom {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

// Count returns the number of cached devices.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// ActiveCount returns the number of devices whose raw wire status is
// true. Polarity is deliberately not applied here; use Record.Active for
// presentation.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, r := range s.byID {
		if r.Status {
			n++
		}
	}
	return n
}

// addToRoom inserts id into the room bucket, creating the bucket if needed.
func addToRoom(byRoom map[string]map[string]struct{}, room, id string) {
	bucket, ok := byRoom[room]
	if !ok {
		bucket = make(map[string]struct{})
		byRoom[room] = bucket
	}
	bucket[id] = struct{}{}
}

// removeFromRoom removes id from the room bucket, deleting the bucket
// when it becomes empty so Rooms() never reports a stale room.
func removeFromRoom(byRoom map[string]map[string]struct{}, room, id string) {
	bucket, ok := byRoom[room]
	if !ok {
		return
	}
	delete(bucket, id)
	if len(bucket) == 0 {
		delete(byRoom, room)
	}
}
