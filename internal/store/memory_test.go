package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/attribution-etl/internal/models"
)

func row(date, hour string, ch models.Channel) models.GranularRow {
	return models.GranularRow{GranularKey: models.GranularKey{Date: date, HourLabel: hour}, Channel: ch}
}

func TestMemoryStore_SaveLatestGet(t *testing.T) {
	s := NewMemoryStore()
	_, ok := s.Latest()
	assert.False(t, ok)

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	r1 := NewRun(from, from.AddDate(0, 0, 6))
	r2 := NewRun(from, from.AddDate(0, 0, 6))
	require.NotEqual(t, r1.ID, r2.ID)
	s.Save(r1)
	s.Save(r2)

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, r2.ID, latest.ID)

	got, err := s.Get(r1.ID)
	require.NoError(t, err)
	assert.Equal(t, r1, got)

	_, err = s.Get("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)

	// saving again moves a run to the front
	s.Save(r1)
	latest, _ = s.Latest()
	assert.Equal(t, r1.ID, latest.ID)
	assert.Len(t, s.Runs(), 2)
}

func TestMemoryStore_Evicts(t *testing.T) {
	s := NewMemoryStore()
	s.keep = 3
	var ids []string
	for i := 0; i < 5; i++ {
		r := NewRun(time.Time{}, time.Time{})
		r.ID = fmt.Sprintf("run-%d", i)
		ids = append(ids, r.ID)
		s.Save(r)
	}
	runs := s.Runs()
	require.Len(t, runs, 3)
	assert.Equal(t, "run-4", runs[0].ID)
	_, err := s.Get(ids[0])
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestMemoryStore_Query(t *testing.T) {
	s := NewMemoryStore()
	assert.Empty(t, s.Query(time.Time{}, time.Time{}, nil))

	r := NewRun(time.Time{}, time.Time{})
	r.Granular = []models.GranularRow{
		row("2024-05-03", "01", models.ChannelMeta),
		row("2024-05-01", "02", models.ChannelGoogle),
		row("2024-05-01", "01", models.ChannelMeta),
		row("2024-05-05", "01", models.ChannelMeta),
	}
	s.Save(r)

	all := s.Query(time.Time{}, time.Time{}, nil)
	require.Len(t, all, 4)
	assert.Equal(t, "01", all[0].HourLabel)

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	got := s.Query(from, to, func(g models.GranularRow) bool { return g.Channel == models.ChannelMeta })
	require.Len(t, got, 2)
	assert.Equal(t, "2024-05-01", got[0].Date)
	assert.Equal(t, "2024-05-03", got[1].Date)
}
