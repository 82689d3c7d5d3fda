package pixel

import (
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store holds pixel records. Update and Each run their callbacks with the record
// locked, so every mutation of a record and its sessions is atomic.
type Store interface {
	Create(metadata json.RawMessage, createdAt time.Time) *Record
	Get(id string) (*Record, error)
	List() []*Record
	Update(id string, fn func(rec *Record) error) (*Record, error)
	Each(fn func(rec *Record))
	Len() int
}

type storedRecord struct {
	mu  sync.Mutex
	seq uint64
	rec *Record
}

type memoryStore struct {
	mu      sync.RWMutex
	records map[string]*storedRecord
	order   []*storedRecord
	nextSeq uint64
	logger  *zap.Logger
}

func NewMemoryStore(logger *zap.Logger) Store {
	return &memoryStore{
		records: make(map[string]*storedRecord),
		logger:  logger,
	}
}

func (s *memoryStore) Create(metadata json.RawMessage, createdAt time.Time) *Record {
	rec := &Record{
		ID:          uuid.NewString(),
		CreatedAt:   createdAt,
		IPAddresses: []string{},
		UserAgents:  []string{},
		SessionData: make(map[string]*SessionState),
		Metadata:    slices.Clone(metadata),
	}

	s.mu.Lock()
	s.nextSeq++
	sr := &storedRecord{seq: s.nextSeq, rec: rec}
	s.records[rec.ID] = sr
	s.order = append(s.order, sr)
	s.mu.Unlock()

	s.logger.Debug("Pixel created", zap.String("pixel_id", rec.ID))

	return snapshot(rec)
}

func (s *memoryStore) Get(id string) (*Record, error) {
	sr, ok := s.lookup(id)
	if !ok {
		return nil, ErrPixelNotFound
	}

	sr.mu.Lock()
	defer sr.mu.Unlock()
	return snapshot(sr.rec), nil
}

// List returns every record, newest first. Records created at the same instant
// are ordered by reverse insertion.
func (s *memoryStore) List() []*Record {
	entries := s.entries()
	slices.SortStableFunc(entries, func(a, b *storedRecord) int {
		if c := b.rec.CreatedAt.Compare(a.rec.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.seq > b.seq:
			return -1
		case a.seq < b.seq:
			return 1
		}
		return 0
	})

	out := make([]*Record, 0, len(entries))
	for _, sr := range entries {
		sr.mu.Lock()
		out = append(out, snapshot(sr.rec))
		sr.mu.Unlock()
	}
	return out
}

func (s *memoryStore) Update(id string, fn func(rec *Record) error) (*Record, error) {
	sr, ok := s.lookup(id)
	if !ok {
		return nil, ErrPixelNotFound
	}

	sr.mu.Lock()
	defer sr.mu.Unlock()

	if err := fn(sr.rec); err != nil {
		return nil, err
	}
	return snapshot(sr.rec), nil
}

// Each visits records one at a time; different records may be observed at
// slightly different moments.
func (s *memoryStore) Each(fn func(rec *Record)) {
	for _, sr := range s.entries() {
		sr.mu.Lock()
		fn(sr.rec)
		sr.mu.Unlock()
	}
}

func (s *memoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *memoryStore) lookup(id string) (*storedRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sr, ok := s.records[id]
	return sr, ok
}

func (s *memoryStore) entries() []*storedRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

func snapshot(rec *Record) *Record {
	cp := *rec
	cp.IPAddresses = slices.Clone(rec.IPAddresses)
	cp.UserAgents = slices.Clone(rec.UserAgents)
	cp.SessionData = make(map[string]*SessionState, len(rec.SessionData))
	for id, sess := range rec.SessionData {
		sc := *sess
		cp.SessionData[id] = &sc
	}
	if rec.OpenedAt != nil {
		t := *rec.OpenedAt
		cp.OpenedAt = &t
	}
	if rec.LastSeenAt != nil {
		t := *rec.LastSeenAt
		cp.LastSeenAt = &t
	}
	return &cp
}
