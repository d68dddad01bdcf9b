/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package logtest provides a log.FieldLogger that records entries for assertions in tests.
package logtest

import (
	"sync"
	"time"

	"github.com/ssgreg/logf"

	"github.com/acronis/go-lrucache/log"
)

// RecordedEntry is a single logged entry.
type RecordedEntry struct {
	LoggerName string
	Fields     []log.Field
	Level      log.Level
	Time       time.Time
	Text       string
}

// FindField returns the first field with the given key.
func (re *RecordedEntry) FindField(key string) (*log.Field, bool) {
	for i := range re.Fields {
		if re.Fields[i].Key == key {
			return &re.Fields[i], true
		}
	}
	return nil, false
}

var logfLevels = map[logf.Level]log.Level{
	logf.LevelError: log.LevelError,
	logf.LevelWarn:  log.LevelWarn,
	logf.LevelInfo:  log.LevelInfo,
	logf.LevelDebug: log.LevelDebug,
}

// entryStore is a logf.EntryWriter shared by a recorder and all loggers derived from it.
type entryStore struct {
	mu      sync.RWMutex
	entries []RecordedEntry
}

//nolint:gocritic // logf.EntryWriter passes entries by value
func (s *entryStore) WriteEntry(e logf.Entry) {
	rec := RecordedEntry{
		LoggerName: e.LoggerName,
		Fields:     append(append(make([]log.Field, 0, len(e.DerivedFields)+len(e.Fields)), e.DerivedFields...), e.Fields...),
		Level:      logfLevels[e.Level],
		Time:       e.Time,
		Text:       e.Text,
	}
	s.mu.Lock()
	s.entries = append(s.entries, rec)
	s.mu.Unlock()
}

func (s *entryStore) snapshot() []RecordedEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]RecordedEntry(nil), s.entries...)
}

// Recorder is a log.FieldLogger which keeps every entry in memory.
type Recorder struct {
	*log.LogfAdapter
	store *entryStore
}

// NewRecorder creates a Recorder that accepts all levels.
func NewRecorder() *Recorder {
	store := &entryStore{}
	return &Recorder{LogfAdapter: &log.LogfAdapter{Logger: logf.NewLogger(logf.LevelDebug, store)}, store: store}
}

// With returns a derived Recorder with additional fields. Its entries are recorded by the parent too.
func (r *Recorder) With(fs ...log.Field) log.FieldLogger {
	return &Recorder{LogfAdapter: r.LogfAdapter.With(fs...).(*log.LogfAdapter), store: r.store}
}

// WithLevel returns a derived Recorder that drops entries below level.
func (r *Recorder) WithLevel(level log.Level) log.FieldLogger {
	return &Recorder{LogfAdapter: r.LogfAdapter.WithLevel(level).(*log.LogfAdapter), store: r.store}
}

// Entries returns a copy of the recorded entries in logging order.
func (r *Recorder) Entries() []RecordedEntry {
	return r.store.snapshot()
}

// FindEntry returns the first entry with the given message.
func (r *Recorder) FindEntry(msg string) (RecordedEntry, bool) {
	return r.FindEntryByFilter(func(e RecordedEntry) bool { return e.Text == msg })
}

// FindEntries returns all entries with the given message.
func (r *Recorder) FindEntries(msg string) []RecordedEntry {
	var found []RecordedEntry
	for _, e := range r.store.snapshot() {
		if e.Text == msg {
			found = append(found, e)
		}
	}
	return found
}

// FindEntryByFilter returns the first entry matching filter.
func (r *Recorder) FindEntryByFilter(filter func(entry RecordedEntry) bool) (RecordedEntry, bool) {
	for _, e := range r.store.snapshot() {
		if filter(e) {
			return e, true
		}
	}
	return RecordedEntry{}, false
}

// Reset drops all recorded entries.
func (r *Recorder) Reset() {
	r.store.mu.Lock()
	r.store.entries = nil
	r.store.mu.Unlock()
}
