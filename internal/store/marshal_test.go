package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sortie/internal/ir"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	record := sampleRecord()

	data, err := EncodeProgress(record)
	require.NoError(t, err)

	got, err := DecodeProgress(data)
	require.NoError(t, err)
	assert.Equal(t, record, got)
}

func TestEncodeProgress_NoHTMLEscaping(t *testing.T) {
	record := sampleRecord()
	record.CurrentMissionID = "<boss>&co"

	data, err := EncodeProgress(record)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"currentMissionId":"<boss>&co"`)
	assert.NotContains(t, string(data), "\n")
}

func TestEncodeProgress_EmptySlicesNotNull(t *testing.T) {
	data, err := EncodeProgress(ir.PersistedProgress{RunState: ir.RunState{CurrentMissionID: "1"}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"completedPath":[]`)
	assert.Contains(t, string(data), `"selectedSquad":[]`)
	assert.Contains(t, string(data), `"schemaVersion":1`)
}

func TestDecodeProgress_Defaults(t *testing.T) {
	got, err := DecodeProgress([]byte(`{}`))
	require.NoError(t, err)

	assert.Equal(t, ir.SchemaVersion, got.SchemaVersion)
	assert.Equal(t, ir.DefaultOptions(), got.Options)
	assert.Equal(t, []string{}, got.CompletedPath)
	assert.Equal(t, []string{}, got.SelectedSquad)
	assert.Equal(t, "", got.CurrentMissionID)
	assert.Zero(t, got.CompletedRuns)
	assert.Nil(t, got.LastOutcome)
}

func TestDecodeProgress_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ``},
		{"not json", `nope`},
		{"wrong type", `{"cumulativeScore":"lots"}`},
		{"negative score", `{"cumulativeScore":-1}`},
		{"negative runs", `{"completedRuns":-3}`},
		{"duplicate path", `{"completedPath":["1","1"]}`},
		{"duplicate squad", `{"selectedSquad":["a","a"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeProgress([]byte(tt.body))
			assert.ErrorIs(t, err, ErrInvalidRecord)
		})
	}
}
