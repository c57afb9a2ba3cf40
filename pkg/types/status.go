package types

import "time"

// Status is a point-in-time view of the daemon's level state.
// This struct is shared between the daemon and client packages.
type Status struct {
	// Level is the last emitted level, meaningful only when LevelSet.
	Level    int  `json:"level"`
	LevelSet bool `json:"levelSet"`

	MinValue int `json:"minValue"`
	MaxValue int `json:"maxValue"`

	DistanceCm   float64   `json:"distanceCm"`
	LastSampleAt time.Time `json:"lastSampleAt,omitempty"`
	LastError    string    `json:"lastError,omitempty"`

	Samples   uint64 `json:"samples"`
	Emissions uint64 `json:"emissions"`

	// Telemetry is "disabled" or the connection state.
	Telemetry   string `json:"telemetry"`
	PushClients int    `json:"pushClients"`
}
