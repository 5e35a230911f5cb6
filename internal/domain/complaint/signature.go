package complaint

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"time"
)

type signaturePayload struct {
	ID          string `json:"id"`
	ComplaintID string `json:"complaintId"`
	Sequence    int64  `json:"sequence"`
	Action      string `json:"action"`
	FieldName   string `json:"fieldName,omitempty"`
	OldValue    string `json:"oldValue,omitempty"`
	NewValue    string `json:"newValue,omitempty"`
	Metadata    string `json:"metadata,omitempty"`
	Actor       string `json:"actor"`
	CreatedAt   string `json:"createdAt"`
}

func buildSignaturePayload(h *HistoryEntry) signaturePayload {
	p := signaturePayload{
		ID:          h.ID.String(),
		ComplaintID: h.ComplaintID.String(),
		Sequence:    h.Sequence,
		Action:      string(h.Action),
		Actor:       h.Actor.String(),
		CreatedAt:   h.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if h.FieldName != nil {
		p.FieldName = *h.FieldName
	}
	if h.OldValue != nil {
		p.OldValue = *h.OldValue
	}
	if h.NewValue != nil {
		p.NewValue = *h.NewValue
	}
	if len(h.Metadata) > 0 {
		p.Metadata = base64.StdEncoding.EncodeToString(h.Metadata)
	}
	return p
}

// SignHistoryEntry generates an HMAC signature over the entry's canonical form.
func SignHistoryEntry(h *HistoryEntry, key []byte) ([]byte, error) {
	data, err := json.Marshal(buildSignaturePayload(h))
	if err != nil {
		return nil, err
	}
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write(data)
	return mac.Sum(nil), nil
}

// VerifyHistorySignature verifies the HMAC signature of an entry.
func VerifyHistorySignature(h *HistoryEntry, key []byte) (bool, error) {
	if len(h.Signature) == 0 {
		return false, nil
	}
	expected, err := SignHistoryEntry(h, key)
	if err != nil {
		return false, err
	}
	return hmac.Equal(expected, h.Signature), nil
}
