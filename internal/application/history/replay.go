package history

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/complaint-hub/complaint-hub/internal/domain/complaint"
)

// Metadata keys shared by command entries and replay.
const (
	MetaTrackingNumber = "trackingNumber"
	MetaType           = "type"
	MetaGovernorate    = "governorate"
	MetaAgency         = "agency"
	MetaDescription    = "description"
	MetaResponse       = "response"
	MetaAttachmentID   = "attachmentId"
	MetaOriginalName   = "originalName"
	MetaStoredName     = "storedName"
	MetaChecksum       = "checksum"
	MetaSize           = "size"
	MetaRequestID      = "requestId"
	MetaQuestion       = "question"
	MetaAnswer         = "answer"
	MetaReason         = "reason"
)

// Snapshot is the complaint state reconstructed after one entry.
type Snapshot struct {
	Sequence       int64             `json:"sequence"`
	Action         complaint.Action  `json:"action"`
	Status         complaint.Status  `json:"status"`
	Locked         bool              `json:"locked"`
	Fields         map[string]string `json:"fields"`
	Attachments    []string          `json:"attachments"`
	PendingRequest string            `json:"pendingRequest,omitempty"`
	Response       string            `json:"response,omitempty"`
	Deleted        bool              `json:"deleted,omitempty"`
}

type replayState struct {
	status      complaint.Status
	locked      bool
	deleted     bool
	fields      map[string]string
	attachments map[string]struct{}
	pending     string
	response    string
}

func (s *replayState) snapshot(e *complaint.HistoryEntry) Snapshot {
	fields := make(map[string]string, len(s.fields))
	for k, v := range s.fields {
		fields[k] = v
	}
	atts := make([]string, 0, len(s.attachments))
	for id := range s.attachments {
		atts = append(atts, id)
	}
	sort.Strings(atts)
	return Snapshot{
		Sequence:       e.Sequence,
		Action:         e.Action,
		Status:         s.status,
		Locked:         s.locked,
		Fields:         fields,
		Attachments:    atts,
		PendingRequest: s.pending,
		Response:       s.response,
		Deleted:        s.deleted,
	}
}

// Replay folds a complaint's history, in sequence order, into the state
// after each entry. It fails when the log does not start with a created
// entry or when an entry contradicts the state before it.
func Replay(entries []*complaint.HistoryEntry) ([]Snapshot, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	ordered := append([]*complaint.HistoryEntry(nil), entries...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Sequence < ordered[j].Sequence })
	if ordered[0].Action != complaint.ActionCreated {
		return nil, fmt.Errorf("history starts with %s, want %s", ordered[0].Action, complaint.ActionCreated)
	}

	st := &replayState{fields: map[string]string{}, attachments: map[string]struct{}{}}
	out := make([]Snapshot, 0, len(ordered))
	for _, e := range ordered {
		if st.deleted {
			return nil, fmt.Errorf("entry %d follows the deletion", e.Sequence)
		}
		meta, err := e.MetadataMap()
		if err != nil {
			return nil, fmt.Errorf("entry %d metadata: %w", e.Sequence, err)
		}
		if err := st.apply(e, meta); err != nil {
			return nil, fmt.Errorf("entry %d: %w", e.Sequence, err)
		}
		out = append(out, st.snapshot(e))
	}
	return out, nil
}

func (s *replayState) apply(e *complaint.HistoryEntry, meta map[string]any) error {
	switch e.Action {
	case complaint.ActionCreated:
		s.status = complaint.StatusPending
		for _, k := range []string{MetaTrackingNumber, MetaType, MetaGovernorate, MetaAgency, MetaDescription} {
			if v, ok := meta[k].(string); ok {
				s.fields[k] = v
			}
		}
	case complaint.ActionStatusChanged:
		if e.OldValue == nil || e.NewValue == nil {
			return fmt.Errorf("status change without values")
		}
		if complaint.Status(*e.OldValue) != s.status {
			return fmt.Errorf("status change from %s but state is %s", *e.OldValue, s.status)
		}
		s.status = complaint.Status(*e.NewValue)
		if r, ok := meta[MetaResponse].(string); ok {
			s.response = r
		}
	case complaint.ActionLocked:
		s.locked = true
	case complaint.ActionUnlocked:
		s.locked = false
	case complaint.ActionFieldsUpdated:
		raw, err := json.Marshal(meta["changes"])
		if err != nil {
			return err
		}
		var changes []complaint.FieldChange
		if err := json.Unmarshal(raw, &changes); err != nil {
			return fmt.Errorf("decode field changes: %w", err)
		}
		for _, c := range changes {
			s.fields[c.Field] = c.New
		}
	case complaint.ActionAttachmentAdded:
		if id, ok := meta[MetaAttachmentID].(string); ok {
			s.attachments[id] = struct{}{}
		}
	case complaint.ActionAttachmentRemoved:
		if id, ok := meta[MetaAttachmentID].(string); ok {
			delete(s.attachments, id)
		}
	case complaint.ActionInfoRequested:
		id, _ := meta[MetaRequestID].(string)
		s.pending = id
	case complaint.ActionInfoProvided, complaint.ActionInfoRequestCancelled:
		s.pending = ""
	case complaint.ActionDeleted:
		s.deleted = true
		s.locked = false
		s.pending = ""
		s.attachments = map[string]struct{}{}
	default:
		return fmt.Errorf("unknown action %s", e.Action)
	}
	return nil
}
