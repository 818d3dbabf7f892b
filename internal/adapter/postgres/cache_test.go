package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/snowpack-etl/internal/domain"
)

func station(id string) domain.Station {
	return domain.Station{StationID: id, Name: "Station " + id, State: "CA"}
}

func TestKnownStations_Lookup(t *testing.T) {
	k := newKnownStations(10)
	k.remember(station("1051"))

	got, ok := k.lookup("1051")
	require.True(t, ok)
	assert.Equal(t, "Station 1051", got.Name)

	_, ok = k.lookup("615")
	assert.False(t, ok)
}

func TestKnownStations_ForgetsLeastRecentlySeen(t *testing.T) {
	k := newKnownStations(2)
	k.remember(station("1051"))
	k.remember(station("615"))

	// Seeing 1051 again leaves 615 as the oldest.
	_, ok := k.lookup("1051")
	require.True(t, ok)

	k.remember(station("848"))
	assert.Equal(t, 2, k.size())

	_, ok = k.lookup("615")
	assert.False(t, ok)
	_, ok = k.lookup("1051")
	assert.True(t, ok)
	_, ok = k.lookup("848")
	assert.True(t, ok)
}

func TestKnownStations_FirstRecordWins(t *testing.T) {
	k := newKnownStations(2)
	k.remember(station("1051"))

	renamed := station("1051")
	renamed.Name = "Echo Peak"
	k.remember(renamed)

	got, ok := k.lookup("1051")
	require.True(t, ok)
	assert.Equal(t, "Station 1051", got.Name)
	assert.Equal(t, 1, k.size())
}

func TestKnownStations_MinimumCapacity(t *testing.T) {
	k := newKnownStations(0)
	k.remember(station("1051"))
	k.remember(station("615"))

	assert.Equal(t, 1, k.size())
	_, ok := k.lookup("1051")
	assert.False(t, ok)
	_, ok = k.lookup("615")
	assert.True(t, ok)
}
