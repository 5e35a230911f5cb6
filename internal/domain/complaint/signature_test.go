package complaint

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistorySignature(t *testing.T) {
	key := []byte("history-key")
	field := "status"
	oldV, newV := "PENDING", "IN_PROGRESS"
	entry := &HistoryEntry{
		ID:          uuid.New(),
		ComplaintID: uuid.New(),
		Sequence:    2,
		Action:      ActionStatusChanged,
		FieldName:   &field,
		OldValue:    &oldV,
		NewValue:    &newV,
		Metadata:    json.RawMessage(`{"note":"x"}`),
		Actor:       employee,
		CreatedAt:   time.Now().UTC(),
	}

	ok, err := VerifyHistorySignature(entry, key)
	require.NoError(t, err)
	assert.False(t, ok, "unsigned entries never verify")

	sig, err := SignHistoryEntry(entry, key)
	require.NoError(t, err)
	entry.Signature = sig

	ok, err = VerifyHistorySignature(entry, key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyHistorySignature(entry, []byte("other-key"))
	require.NoError(t, err)
	assert.False(t, ok)

	entry.Sequence = 3
	ok, err = VerifyHistorySignature(entry, key)
	require.NoError(t, err)
	assert.False(t, ok, "tampered sequence must fail")
}
