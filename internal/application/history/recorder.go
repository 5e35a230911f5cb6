package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/complaint-hub/complaint-hub/internal/domain/complaint"
)

const (
	FieldStatus = "status"
	FieldLocked = "locked"
)

// Entry is the content of one history record before sequencing.
type Entry struct {
	Action   complaint.Action
	Field    string
	Old      *string
	New      *string
	Metadata map[string]any
}

// Recorder builds history entries for a command. It never writes: entries
// ride in the command's complaint.Change and persist atomically with it.
type Recorder struct {
	signingKey []byte
	logger     zerolog.Logger
}

// NewRecorder creates a recorder; a nil key leaves entries unsigned.
func NewRecorder(signingKey []byte, logger zerolog.Logger) *Recorder {
	return &Recorder{
		signingKey: signingKey,
		logger:     logger.With().Str("service", "history").Logger(),
	}
}

// Append sequences e after the complaint's last entry and advances
// c.HistorySeq. Entries appended in one command share a timestamp and are
// ordered by sequence.
func (r *Recorder) Append(c *complaint.Complaint, actor complaint.Actor, at time.Time, e Entry) (*complaint.HistoryEntry, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	h := &complaint.HistoryEntry{
		ID:          uuid.New(),
		ComplaintID: c.ID,
		Sequence:    c.HistorySeq + 1,
		Action:      e.Action,
		OldValue:    e.Old,
		NewValue:    e.New,
		Actor:       actor,
		CreatedAt:   at,
	}
	if e.Field != "" {
		f := e.Field
		h.FieldName = &f
	}
	if len(e.Metadata) > 0 {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode history metadata: %w", err)
		}
		h.Metadata = raw
	}
	if len(r.signingKey) > 0 {
		sig, err := complaint.SignHistoryEntry(h, r.signingKey)
		if err != nil {
			return nil, fmt.Errorf("sign history entry: %w", err)
		}
		h.Signature = sig
	}
	c.HistorySeq = h.Sequence
	return h, nil
}

// Report summarizes a verification pass over a complaint's history.
type Report struct {
	Total    int     `json:"total"`
	Signed   int     `json:"signed"`
	Invalid  []int64 `json:"invalid,omitempty"`
	Gaps     []int64 `json:"gaps,omitempty"`
	Verified bool    `json:"verified"`
}

// Verify checks that sequences are contiguous from 1 and, when a key is
// configured, that every signature matches.
func (r *Recorder) Verify(entries []*complaint.HistoryEntry) (*Report, error) {
	rep := &Report{Total: len(entries)}
	var expect int64 = 1
	for _, e := range entries {
		if e.Sequence != expect {
			rep.Gaps = append(rep.Gaps, expect)
		}
		expect = e.Sequence + 1
		if len(e.Signature) > 0 {
			rep.Signed++
		}
		if len(r.signingKey) == 0 {
			continue
		}
		ok, err := complaint.VerifyHistorySignature(e, r.signingKey)
		if err != nil {
			return nil, fmt.Errorf("verify entry %d: %w", e.Sequence, err)
		}
		if !ok {
			rep.Invalid = append(rep.Invalid, e.Sequence)
		}
	}
	rep.Verified = len(rep.Gaps) == 0 && len(rep.Invalid) == 0 &&
		(len(r.signingKey) == 0 || rep.Signed == rep.Total)
	if !rep.Verified {
		r.logger.Warn().
			Int("total", rep.Total).
			Ints64("invalid", rep.Invalid).
			Ints64("gaps", rep.Gaps).
			Msg("history verification failed")
	}
	return rep, nil
}

func strPtr(s string) *string { return &s }

// Deleted builds the tombstone that closes a complaint's history.
func Deleted(status complaint.Status, attachments int) Entry {
	return Entry{
		Action:   complaint.ActionDeleted,
		Field:    FieldStatus,
		Old:      strPtr(string(status)),
		Metadata: map[string]any{"attachments": attachments},
	}
}

// Status builds a status-changed entry.
func Status(from, to complaint.Status, metadata map[string]any) Entry {
	return Entry{
		Action:   complaint.ActionStatusChanged,
		Field:    FieldStatus,
		Old:      strPtr(string(from)),
		New:      strPtr(string(to)),
		Metadata: metadata,
	}
}

// Lock builds the locked or unlocked entry matching a lock change.
func Lock(change complaint.LockChange, owner string) (Entry, bool) {
	switch change {
	case complaint.LockAcquired:
		return Entry{
			Action:   complaint.ActionLocked,
			Field:    FieldLocked,
			Old:      strPtr("false"),
			New:      strPtr("true"),
			Metadata: map[string]any{"owner": owner},
		}, true
	case complaint.LockReleased:
		return Entry{
			Action:   complaint.ActionUnlocked,
			Field:    FieldLocked,
			Old:      strPtr("true"),
			New:      strPtr("false"),
			Metadata: map[string]any{"previousOwner": owner},
		}, true
	}
	return Entry{}, false
}

// Fields builds a fields-updated entry; a single change is also flattened
// into field/old/new.
func Fields(changes []complaint.FieldChange) Entry {
	e := Entry{
		Action:   complaint.ActionFieldsUpdated,
		Metadata: map[string]any{"changes": changes},
	}
	if len(changes) == 1 {
		e.Field = changes[0].Field
		e.Old = strPtr(changes[0].Old)
		e.New = strPtr(changes[0].New)
	}
	return e
}
