package conversation

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"roleplay-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(i int) models.Message {
	return models.Message{
		Content:   fmt.Sprintf("message %d", i),
		Sender:    "Thorin",
		Avatar:    "T",
		Kind:      models.KindPlayer,
		Timestamp: time.Date(2024, 5, 1, 10, 0, i, 123456789, time.UTC),
	}
}

func TestAppend_EvictsOldestFirst(t *testing.T) {
	for _, tc := range []struct{ n, cap int }{{5, 3}, {100, 100}, {101, 100}, {250, 100}, {7, 1}} {
		t.Run(fmt.Sprintf("n=%d,cap=%d", tc.n, tc.cap), func(t *testing.T) {
			l := NewLog(tc.cap)
			for i := 0; i < tc.n; i++ {
				l.Append(msg(i))
			}

			want := tc.n
			if want > tc.cap {
				want = tc.cap
			}
			all := l.All()
			require.Len(t, all, want)
			for j, m := range all {
				assert.Equal(t, fmt.Sprintf("message %d", tc.n-want+j), m.Content)
			}
		})
	}
}

func TestNewLog_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, NewLog(0).Capacity())
	assert.Equal(t, DefaultCapacity, NewLog(-5).Capacity())
}

func TestRecent(t *testing.T) {
	l := NewLog(10)
	for i := 0; i < 6; i++ {
		l.Append(msg(i))
	}

	recent := l.Recent(3)
	require.Len(t, recent, 3)
	assert.Equal(t, "message 3", recent[0].Content)
	assert.Equal(t, "message 5", recent[2].Content)

	assert.Len(t, l.Recent(50), 6)
	assert.Empty(t, l.Recent(0))
	assert.Empty(t, l.Recent(-1))
}

func TestRecent_ReturnsCopy(t *testing.T) {
	l := NewLog(10)
	l.Append(msg(0))

	recent := l.Recent(1)
	recent[0].Content = "mutated"
	assert.Equal(t, "message 0", l.All()[0].Content)
}

func TestMarshalRoundTrip(t *testing.T) {
	l := NewLog(10)
	l.Append(msg(1))
	l.Append(models.Message{Content: "The gate opens.", Sender: "Game Master", Avatar: "G", Kind: models.KindGM,
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 1, time.FixedZone("CEST", 2*3600))})
	l.Append(models.Message{Content: "Thorin rolled", Sender: "System", Avatar: "S", Kind: models.KindSystem,
		Timestamp: time.Now()})

	data, err := l.Marshal()
	require.NoError(t, err)

	restored := NewLog(10)
	require.NoError(t, restored.Unmarshal(data))

	orig, got := l.All(), restored.All()
	require.Len(t, got, len(orig))
	for i := range orig {
		assert.Equal(t, orig[i].Content, got[i].Content)
		assert.Equal(t, orig[i].Sender, got[i].Sender)
		assert.Equal(t, orig[i].Kind, got[i].Kind)
		assert.True(t, orig[i].Timestamp.Equal(got[i].Timestamp), "timestamp %d", i)
	}
}

func TestUnmarshal_AppliesCapacity(t *testing.T) {
	src := NewLog(10)
	for i := 0; i < 10; i++ {
		src.Append(msg(i))
	}
	data, err := src.Marshal()
	require.NoError(t, err)

	dst := NewLog(4)
	require.NoError(t, dst.Unmarshal(data))
	all := dst.All()
	require.Len(t, all, 4)
	assert.Equal(t, "message 6", all[0].Content)
}

func TestUnmarshal_LegacyKindAndBadTimestamp(t *testing.T) {
	l := NewLog(10)
	require.NoError(t, l.Unmarshal([]byte(`[{"content":"Bienvenue","sender":"Maître du Jeu","avatar":"M","type":"dm","timestamp":"2024-05-01T10:00:00.000Z"}]`)))
	assert.Equal(t, models.KindGM, l.All()[0].Kind)

	err := l.Unmarshal([]byte(`[{"content":"x","type":"player","timestamp":"yesterday"}]`))
	assert.Error(t, err)
	assert.Equal(t, 1, l.Len(), "failed decode must keep previous content")
}

func TestJSONInterfaces(t *testing.T) {
	l := NewLog(5)
	l.Append(msg(1))

	data, err := json.Marshal(l)
	require.NoError(t, err)

	var restored Log
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, 1, restored.Len())
	assert.Equal(t, DefaultCapacity, restored.Capacity())
}
