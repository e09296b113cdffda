// Package store keeps the authoritative table of annotation records for a
// document session.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wudi/pdfmarkup/annot"
	"github.com/wudi/pdfmarkup/observability"
)

// ErrNotFound is returned for ids the store does not hold.
var ErrNotFound = errors.New("store: record not found")

// Store holds records by id and by page. Every method is one atomic step.
// Records handed out are copies; mutate through Update.
type Store struct {
	mu        sync.RWMutex
	records   map[string]*annot.Record
	pages     map[int][]string
	originals map[string]*annot.Record
	log       observability.Logger
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

func WithLogger(l observability.Logger) Option {
	return func(s *Store) { s.log = observability.OrNop(l) }
}

// WithClock sets the time source used to stamp modifications.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		records:   make(map[string]*annot.Record),
		pages:     make(map[int][]string),
		originals: make(map[string]*annot.Record),
		log:       observability.NopLogger{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save inserts or replaces rec. Records that came from the host document
// are saved with isOriginal so RestoreOriginal can bring them back.
func (s *Store) Save(rec *annot.Record, isOriginal bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := rec.Clone()
	if c.LastModified.IsZero() {
		c.LastModified = s.now()
	}
	if c.Created.IsZero() {
		c.Created = c.LastModified
	}
	if old, ok := s.records[c.ID]; ok && old.Page != c.Page {
		s.unindex(old.Page, c.ID)
	}
	if _, ok := s.records[c.ID]; !ok || s.indexOf(c.Page, c.ID) < 0 {
		s.pages[c.Page] = append(s.pages[c.Page], c.ID)
	}
	s.records[c.ID] = c
	if isOriginal {
		s.originals[c.ID] = c.Clone()
	}
}

// Update merges p into the record and stamps LastModified. An unknown id is
// logged and ignored.
func (s *Store) Update(id string, p annot.Patch) (*annot.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		s.log.Warn("update of unknown record", observability.String("id", id))
		return nil, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	oldPage := rec.Page
	p.Apply(rec)
	if rec.Page != oldPage {
		s.unindex(oldPage, id)
		s.pages[rec.Page] = append(s.pages[rec.Page], id)
	}
	rec.LastModified = s.now()
	return rec.Clone(), nil
}

// Get returns a copy of the record with id.
func (s *Store) Get(id string) (*annot.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// GetByPage returns the records of a 1-based page in insertion order.
func (s *Store) GetByPage(page int) []*annot.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.pages[page]
	out := make([]*annot.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.records[id].Clone())
	}
	return out
}

// Delete removes the record. It reports whether one existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return false
	}
	s.unindex(rec.Page, id)
	delete(s.records, id)
	return true
}

// All returns every record, page ascending, insertion order within a page.
func (s *Store) All() []*annot.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pages := make([]int, 0, len(s.pages))
	for p := range s.pages {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	out := make([]*annot.Record, 0, len(s.records))
	for _, p := range pages {
		for _, id := range s.pages[p] {
			out = append(out, s.records[id].Clone())
		}
	}
	return out
}

// Len returns the number of live records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// IsOriginal reports whether id was loaded from the host document.
func (s *Store) IsOriginal(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.originals[id]
	return ok
}

// Originals returns the records as they were loaded, deleted ones included.
func (s *Store) Originals() []*annot.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*annot.Record, 0, len(s.originals))
	for _, rec := range s.originals {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Page != out[j].Page {
			return out[i].Page < out[j].Page
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// RestoreOriginal puts back the loaded version of id, undoing edits and
// deletion.
func (s *Store) RestoreOriginal(id string) (*annot.Record, error) {
	s.mu.Lock()
	orig, ok := s.originals[id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("restore %s: %w", id, ErrNotFound)
	}
	s.Save(orig, false)
	return orig.Clone(), nil
}

// AddComment appends c to the record's thread. A missing id or date is
// filled in.
func (s *Store) AddComment(id string, c annot.Comment) (annot.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return annot.Comment{}, fmt.Errorf("comment on %s: %w", id, ErrNotFound)
	}
	if c.ID == "" {
		c.ID = annot.NewID()
	}
	if c.Date.IsZero() {
		c.Date = s.now()
	}
	rec.Comments = append(rec.Comments, c)
	rec.LastModified = s.now()
	return c, nil
}

// UpdateComment replaces the text and status of one comment.
func (s *Store) UpdateComment(id, commentID, text, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("comment on %s: %w", id, ErrNotFound)
	}
	for i := range rec.Comments {
		if rec.Comments[i].ID == commentID {
			rec.Comments[i].Text = text
			rec.Comments[i].Status = status
			rec.Comments[i].Date = s.now()
			rec.LastModified = rec.Comments[i].Date
			return nil
		}
	}
	return fmt.Errorf("comment %s on %s: %w", commentID, id, ErrNotFound)
}

// DeleteComment removes one comment from the thread.
func (s *Store) DeleteComment(id, commentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("comment on %s: %w", id, ErrNotFound)
	}
	for i := range rec.Comments {
		if rec.Comments[i].ID == commentID {
			rec.Comments = append(rec.Comments[:i], rec.Comments[i+1:]...)
			rec.LastModified = s.now()
			return nil
		}
	}
	return fmt.Errorf("comment %s on %s: %w", commentID, id, ErrNotFound)
}

func (s *Store) indexOf(page int, id string) int {
	for i, x := range s.pages[page] {
		if x == id {
			return i
		}
	}
	return -1
}

func (s *Store) unindex(page int, id string) {
	i := s.indexOf(page, id)
	if i < 0 {
		return
	}
	ids := append(s.pages[page][:i], s.pages[page][i+1:]...)
	if len(ids) == 0 {
		delete(s.pages, page)
		return
	}
	s.pages[page] = ids
}
