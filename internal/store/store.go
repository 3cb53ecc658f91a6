package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/hilayankonsky/movemix/internal/calories"
	"github.com/hilayankonsky/movemix/internal/storage"
	"github.com/hilayankonsky/movemix/internal/telemetry/tracing"
	"github.com/hilayankonsky/movemix/internal/workouts"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultKey is the storage key the whole document lives under.
const DefaultKey = "movemix:v1"

var ErrInvalidSnapshot = errors.New("snapshot is not valid JSON")

// IDFunc generates ids for sessions added without one.
type IDFunc func() string

func NewSessionID() string {
	return "sess_" + uuid.NewString()
}

// Store owns the persisted document. Every mutation is a full read-modify-write
// of the document, serialized by the store's mutex.
type Store struct {
	persistence storage.Persistence
	key         string
	newID       IDFunc
	mutex       sync.Mutex
}

type Option func(*Store)

func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

func WithIDFunc(f IDFunc) Option {
	return func(s *Store) {
		if f != nil {
			s.newID = f
		}
	}
}

func New(persistence storage.Persistence, opts ...Option) *Store {
	s := &Store{
		persistence: persistence,
		key:         DefaultKey,
		newID:       NewSessionID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read returns the stored document. A missing, empty or corrupt value yields
// the first run defaults; only backend failures are returned as errors.
func (s *Store) Read(ctx context.Context) (_ workouts.Document, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.read")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	raw, err := s.persistence.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return workouts.NewDocument(), nil
		}
		return workouts.NewDocument(), fmt.Errorf("read document: %w", err)
	}
	if len(raw) == 0 {
		return workouts.NewDocument(), nil
	}

	doc, err := workouts.DecodeDocument(raw)
	if err != nil {
		log.Warnf("store: stored document under [%s] is corrupt, using defaults: %s", s.key, err)
		return workouts.NewDocument(), nil
	}

	span.SetAttributes(attribute.Int("sessions.count", len(doc.Sessions)))
	return doc, nil
}

// Write persists the whole document.
func (s *Store) Write(ctx context.Context, doc workouts.Document) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.write")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if doc.Sessions == nil {
		doc.Sessions = []workouts.Session{}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := s.persistence.Set(ctx, s.key, raw); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// mutate runs fn on a fresh copy of the document and persists it when fn asks to.
func (s *Store) mutate(ctx context.Context, fn func(doc *workouts.Document) (persist bool)) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	doc, err := s.Read(ctx)
	if err != nil {
		return err
	}
	if !fn(&doc) {
		return nil
	}
	return s.Write(ctx, doc)
}

// AddSession snapshots the current weight and MET onto the new session,
// fixes its calories unless a manual value was given, and appends it.
func (s *Store) AddSession(ctx context.Context, in workouts.SessionInput) (_ workouts.Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.addSession")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var added workouts.Session
	err = s.mutate(ctx, func(doc *workouts.Document) bool {
		session := in.Session()
		// ids are unique within the document; a taken or missing one is replaced
		for session.ID == "" || doc.IndexOf(session.ID) >= 0 {
			session.ID = s.newID()
		}
		calories.SnapshotNew(&session, doc.Settings)
		doc.Sessions = append(doc.Sessions, session)
		added = session.Clone()
		return true
	})
	if err != nil {
		return workouts.Session{}, err
	}

	span.SetAttributes(attribute.String("session.id", added.ID))
	log.Debugf("store: session [%s] added", added.ID)
	return added, nil
}

// UpdateSession merges the patch onto the session with the given id and re-derives
// its calorie snapshot. found is false, and nothing is written, when no session has that id.
func (s *Store) UpdateSession(ctx context.Context, id string, patch workouts.SessionPatch) (_ workouts.Session, found bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.updateSession")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", id))

	var updated workouts.Session
	err = s.mutate(ctx, func(doc *workouts.Document) bool {
		i := doc.IndexOf(id)
		if i < 0 {
			return false
		}
		session := doc.Sessions[i]
		patch.Apply(&session)
		calories.SnapshotUpdate(&session, doc.Settings)
		doc.Sessions[i] = session
		updated = session.Clone()
		found = true
		return true
	})
	if err != nil {
		return workouts.Session{}, false, err
	}
	if !found {
		log.Debugf("store: update of unknown session [%s] ignored", id)
	}
	return updated, found, nil
}

// RemoveSession drops the session with the given id. The document is written
// even when no session matched.
func (s *Store) RemoveSession(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.removeSession")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", id))

	return s.mutate(ctx, func(doc *workouts.Document) bool {
		kept := doc.Sessions[:0]
		for _, session := range doc.Sessions {
			if session.ID != id {
				kept = append(kept, session)
			}
		}
		doc.Sessions = kept
		return true
	})
}

func (s *Store) GetSession(ctx context.Context, id string) (workouts.Session, bool, error) {
	doc, err := s.Read(ctx)
	if err != nil {
		return workouts.Session{}, false, err
	}
	i := doc.IndexOf(id)
	if i < 0 {
		return workouts.Session{}, false, nil
	}
	return doc.Sessions[i], true, nil
}

func (s *Store) Settings(ctx context.Context) (workouts.Settings, error) {
	doc, err := s.Read(ctx)
	if err != nil {
		return workouts.DefaultSettings(), err
	}
	return doc.Settings, nil
}

func (s *Store) SetSettings(ctx context.Context, patch workouts.SettingsPatch) (_ workouts.Settings, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.setSettings")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var settings workouts.Settings
	err = s.mutate(ctx, func(doc *workouts.Document) bool {
		patch.ApplyTo(&doc.Settings)
		settings = doc.Settings.Clone()
		return true
	})
	if err != nil {
		return workouts.DefaultSettings(), err
	}
	return settings, nil
}

// ResetSettingsToDefault forgets the weight and restores the default MET table.
// Sessions are kept.
func (s *Store) ResetSettingsToDefault(ctx context.Context) (workouts.Settings, error) {
	err := s.mutate(ctx, func(doc *workouts.Document) bool {
		doc.Settings = workouts.DefaultSettings()
		return true
	})
	if err != nil {
		return workouts.DefaultSettings(), err
	}
	return workouts.DefaultSettings(), nil
}

// ExportSnapshot returns the full sanitized document.
func (s *Store) ExportSnapshot(ctx context.Context) (workouts.Document, error) {
	return s.Read(ctx)
}

// ImportSnapshot replaces the whole document with the given JSON text.
// Any JSON value is accepted and degrades field by field to defaults;
// text that is not JSON returns ErrInvalidSnapshot and writes nothing.
func (s *Store) ImportSnapshot(ctx context.Context, raw []byte) (_ workouts.Document, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.importSnapshot")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	doc, err := workouts.DecodeDocument(raw)
	if err != nil {
		return workouts.Document{}, fmt.Errorf("%w: %s", ErrInvalidSnapshot, err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.Write(ctx, doc); err != nil {
		return workouts.Document{}, err
	}

	span.SetAttributes(attribute.Int("sessions.count", len(doc.Sessions)))
	log.Infof("store: imported snapshot with %d sessions", len(doc.Sessions))
	return doc, nil
}

// ClearAll deletes the stored document. The next read returns defaults.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.persistence.Remove(ctx, s.key); err != nil {
		return fmt.Errorf("clear document: %w", err)
	}
	log.Warnf("store: all data under [%s] cleared", s.key)
	return nil
}
