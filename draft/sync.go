package draft

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	pdr "github.com/usnistgov/oar-pdr-sub001"
)

// SubsetName identifies a tracked set of edits. Field is the real record
// property; Qualifier distinguishes multiple independent edits to the same
// property and is never sent to the server.
type SubsetName struct {
	Field     string
	Qualifier string
}

func (n SubsetName) String() string {
	if n.Qualifier == "" {
		return n.Field
	}
	return n.Field + "#" + n.Qualifier
}

// Messenger routes operation outcomes to the user. System errors and user
// errors travel on distinct channels with distinct tones.
type Messenger interface {
	// UserMessage reports a condition the user can act on.
	UserMessage(text string)
	// SystemError reports an internal failure.
	SystemError(text string)
}

// NopMessenger discards all messages.
type NopMessenger struct{}

func (NopMessenger) UserMessage(string) {}
func (NopMessenger) SystemError(string) {}

// Subscriber receives the full record after every successful change. The
// received record is a fresh snapshot and must be treated as read-only.
type Subscriber func(record pdr.ResourceRecord)

// Synchronizer coordinates field-level edits between editing widgets and the
// remote draft store. It keeps the original snapshot, the undo ledger, and
// the last-update stamp, and republishes the merged record to subscribers
// after every accepted change.
//
// Update, Undo, DiscardAll and Finish serialize on one mutex held across
// their network round trip, so the undo ledger can never be observed or
// resized mid-decision by a concurrent request.
type Synchronizer struct {
	mu       sync.Mutex
	store    Store
	record   pdr.ResourceRecord
	original pdr.ResourceRecord
	ledger   map[SubsetName]any
	stamp    *pdr.UpdateStamp
	userID   string
	subs     []Subscriber
	msg      Messenger
	log      *zap.Logger
	now      func() time.Time
}

// NewSynchronizer starts with the record currently displayed, which becomes
// the original snapshot for undo purposes. A nil record defers the snapshot
// to the first successful draft load.
func NewSynchronizer(displayed pdr.ResourceRecord, msg Messenger, log *zap.Logger) *Synchronizer {
	if msg == nil {
		msg = NopMessenger{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Synchronizer{
		record:   displayed.Clone(),
		original: displayed.Clone(),
		ledger:   map[SubsetName]any{},
		msg:      msg,
		log:      log,
		now:      time.Now,
	}
}

// SetUser sets the identity stamped onto successful updates.
func (s *Synchronizer) SetUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
}

// Bind attaches the remote store. Until a store is bound, every edit
// operation fails without attempting network I/O.
func (s *Synchronizer) Bind(store Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = store
}

// Bound reports whether a remote store is attached.
func (s *Synchronizer) Bound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store != nil
}

// Subscribe registers a callback for republished records.
func (s *Synchronizer) Subscribe(fn Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Record returns a snapshot of the current merged record.
func (s *Synchronizer) Record() pdr.ResourceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Clone()
}

// Original returns a snapshot of the original record.
func (s *Synchronizer) Original() pdr.ResourceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.original.Clone()
}

// LastUpdate returns the stamp of the most recent successful update, or nil
// when no edits are outstanding.
func (s *Synchronizer) LastUpdate() *pdr.UpdateStamp {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stamp == nil {
		return nil
	}
	out := *s.stamp
	return &out
}

// FieldUpdated reports whether the subset currently differs from the
// original, i.e. has a ledger entry that an undo would clear.
func (s *Synchronizer) FieldUpdated(name SubsetName) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ledger[name]
	return ok
}

// Update sends a field-level patch to the remote draft. The first edit to a
// subset captures the pre-edit value into the undo ledger. Editing a field
// back to its captured original value is redirected to Undo rather than
// re-committed. Returns whether the draft was changed.
func (s *Synchronizer) Update(ctx context.Context, name SubsetName, patch pdr.ResourceRecord) bool {
	s.mu.Lock()

	if s.store == nil {
		s.mu.Unlock()
		s.log.Warn("update requested with no draft store bound",
			zap.String("subset", name.String()))
		return false
	}

	if prev, ok := s.ledger[name]; ok {
		if v, present := patch[name.Field]; present && reflect.DeepEqual(v, prev) {
			// back to the original value: this is an undo, not an update
			s.mu.Unlock()
			return s.Undo(ctx, name)
		}
	}

	created := false
	if _, ok := s.ledger[name]; !ok {
		var orig any // explicit null when absent in the original
		if v, present := s.record[name.Field]; present {
			orig = v
		}
		s.ledger[name] = orig
		created = true
	}

	record, err := s.store.UpdateMetadata(ctx, patch)
	if err != nil {
		if created {
			delete(s.ledger, name)
		}
		s.mu.Unlock()
		s.routeError("update failed", err)
		return false
	}

	s.record = record
	s.stamp = &pdr.UpdateStamp{UserID: s.userID, When: s.now()}
	s.publishLocked()
	return true
}

// Undo restores a subset to its captured original value. When the subset is
// the last outstanding edit the whole server draft is discarded instead.
// An explicit value, when given, overrides the captured one for the restore.
// Returns false when there is nothing to undo.
func (s *Synchronizer) Undo(ctx context.Context, name SubsetName, explicit ...any) bool {
	s.mu.Lock()

	prev, ok := s.ledger[name]
	if !ok {
		s.mu.Unlock()
		return false
	}
	if s.store == nil {
		s.mu.Unlock()
		s.log.Warn("undo requested with no draft store bound",
			zap.String("subset", name.String()))
		return false
	}

	restore := prev
	if len(explicit) > 0 {
		restore = explicit[0]
	}

	if len(s.ledger) == 1 {
		// sole outstanding edit: revert the whole draft
		if _, err := s.store.DiscardDraft(ctx); err != nil {
			s.mu.Unlock()
			s.routeError("undo failed", err)
			return false
		}
		s.ledger = map[SubsetName]any{}
		s.stamp = nil
		s.record = s.original.Clone()
		s.publishLocked()
		return true
	}

	record, err := s.store.UpdateMetadata(ctx, pdr.ResourceRecord{name.Field: restore})
	if err != nil {
		s.mu.Unlock()
		s.routeError("undo failed", err)
		return false
	}

	delete(s.ledger, name)
	if record == nil {
		record = s.record
	}
	// the server may echo a differently-shaped response; force the
	// restored property locally for consistency
	record[name.Field] = restore
	s.record = record
	s.publishLocked()
	return true
}

// CheckUpdatedFields seeds ledger entries for every top-level property of
// the incoming record that differs from the original snapshot, and adopts
// the record's update history as the current stamp. Used when resuming a
// session whose server draft already holds edits from an earlier visit.
// Bookkeeping properties (leading underscore) are not tracked.
func (s *Synchronizer) CheckUpdatedFields(record pdr.ResourceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, v := range record {
		if strings.HasPrefix(key, "_") {
			continue
		}
		orig, present := s.original[key]
		if present && reflect.DeepEqual(v, orig) {
			continue
		}
		name := SubsetName{Field: key}
		if _, ok := s.ledger[name]; ok {
			continue
		}
		if present {
			s.ledger[name] = orig
		} else {
			s.ledger[name] = nil
		}
	}

	s.stamp = record.LastUpdate()
}

// LoadDraft fetches the server draft and republishes it. A not-found result
// is returned to the caller untouched: it signals that the backend tracks no
// draft for this resource, which is an expected condition and raises no user
// message. On first successful load with no prior snapshot, the loaded draft
// becomes the original.
func (s *Synchronizer) LoadDraft(ctx context.Context) (pdr.ResourceRecord, error) {
	s.mu.Lock()

	if s.store == nil {
		s.mu.Unlock()
		return nil, systemError("LoadDraft", errNoStore)
	}

	record, err := s.store.GetDraftMetadata(ctx)
	if err != nil {
		s.mu.Unlock()
		if !IsNotFound(err) {
			s.routeError("loading draft failed", err)
		}
		return nil, err
	}

	if s.original == nil {
		s.original = record.Clone()
	}
	s.record = record
	out := record.Clone()
	s.publishLocked()
	return out, nil
}

// DiscardAll reverts the server draft to its committed baseline, clears the
// ledger and stamp, and republishes the returned record.
func (s *Synchronizer) DiscardAll(ctx context.Context) error {
	s.mu.Lock()

	if s.store == nil {
		s.mu.Unlock()
		return systemError("DiscardAll", errNoStore)
	}

	record, err := s.store.DiscardDraft(ctx)
	if err != nil {
		s.mu.Unlock()
		s.routeError("discard failed", err)
		return err
	}

	s.ledger = map[SubsetName]any{}
	s.stamp = nil
	if record != nil {
		s.record = record
	}
	s.publishLocked()
	return nil
}

// Finish closes the editing session server-side and clears local edit state.
func (s *Synchronizer) Finish(ctx context.Context) error {
	s.mu.Lock()

	if s.store == nil {
		s.mu.Unlock()
		return systemError("Finish", errNoStore)
	}

	record, err := s.store.DoneEditing(ctx)
	if err != nil {
		s.mu.Unlock()
		s.routeError("closing the session failed", err)
		return err
	}

	s.ledger = map[SubsetName]any{}
	s.stamp = nil
	if record != nil {
		s.record = record
	}
	s.publishLocked()
	return nil
}

// publishLocked snapshots the record and subscriber list, releases the lock,
// and delivers the snapshot. Callers must hold s.mu; it is released on
// return.
func (s *Synchronizer) publishLocked() {
	record := s.record.Clone()
	subs := make([]Subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(record)
	}
}

// routeError sends a classified failure to the channel its kind calls for.
func (s *Synchronizer) routeError(context string, err error) {
	switch KindOf(err) {
	case KindUserInput:
		s.msg.UserMessage(context + ": " + err.Error())
	case KindAuth:
		s.msg.UserMessage(context + ": your editing credential has expired; please sign in again")
		s.log.Warn(context, zap.Error(err))
	default:
		s.msg.SystemError(context + ": " + err.Error())
		s.log.Error(context, zap.Error(err))
	}
}
