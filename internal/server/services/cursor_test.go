package services

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/dmitrijs2005/clouddrive/internal/common"
	"github.com/dmitrijs2005/clouddrive/internal/server/repositories/nodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_RoundTrip(t *testing.T) {
	pos := nodes.Position{CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 123456789, time.UTC), ID: 42}

	token := EncodeCursor(pos)
	got, err := DecodeCursor(token)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, pos.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, pos.ID, got.ID)
}

func TestCursor_WireShape(t *testing.T) {
	token := EncodeCursor(nodes.Position{CreatedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), ID: 9})
	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)
	assert.JSONEq(t, `{"createdAt":"2025-01-02T00:00:00Z","id":"9"}`, string(raw))
}

func TestDecodeCursor_Empty(t *testing.T) {
	got, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDecodeCursor_AcceptsPadding(t *testing.T) {
	token := base64.URLEncoding.EncodeToString([]byte(`{"createdAt":"2025-01-02T00:00:00Z","id":"9"}`))
	got, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.ID)
}

func TestDecodeCursor_Rejects(t *testing.T) {
	enc := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

	tests := map[string]string{
		"not base64":     "***",
		"not json":       enc("hello"),
		"array":          enc(`[1,2]`),
		"missing id":     enc(`{"createdAt":"2025-01-02T00:00:00Z"}`),
		"numeric id":     enc(`{"createdAt":"2025-01-02T00:00:00Z","id":9}`),
		"non decimal id": enc(`{"createdAt":"2025-01-02T00:00:00Z","id":"9a"}`),
		"negative id":    enc(`{"createdAt":"2025-01-02T00:00:00Z","id":"-9"}`),
		"zero id":        enc(`{"createdAt":"2025-01-02T00:00:00Z","id":"0"}`),
		"bad time":       enc(`{"createdAt":"yesterday","id":"9"}`),
		"extra field":    enc(`{"createdAt":"2025-01-02T00:00:00Z","id":"9","x":1}`),
		"trailing data":  enc(`{"createdAt":"2025-01-02T00:00:00Z","id":"9"}{}`),
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCursor(token)
			assert.ErrorIs(t, err, common.ErrInvalidArgument)
		})
	}
}
