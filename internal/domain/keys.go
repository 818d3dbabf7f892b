package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ObservationKey derives a deterministic document key from station and month,
// so reloading the same report yields the same key.
func ObservationKey(stationID string, date time.Time) string {
	input := stationID + "|" + date.UTC().Format(DateLayout)
	hash := sha256.Sum256([]byte(input))
	return "obs-" + hex.EncodeToString(hash[:8])
}

// EdgeKey is the edge document key for an observation key.
func EdgeKey(observationKey string) string {
	return "edge-" + observationKey
}

// StationHandle is the collection-qualified station reference used in edges.
func StationHandle(stationID string) string {
	return StationCollection + "/" + stationID
}

// ObservationHandle is the collection-qualified observation reference.
func ObservationHandle(key string) string {
	return ObservationCollection + "/" + key
}
