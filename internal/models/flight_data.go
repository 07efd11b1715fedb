// Package models contains domain types for the tlog flight-data service.
package models

// Sample is one decoded, normalized position observation.
// Heading is nil when the autopilot reported it as unknown.
type Sample struct {
	MsgID     uint32   `json:"msgId"`
	Latitude  float64  `json:"lat"`
	Longitude float64  `json:"lon"`
	Altitude  float64  `json:"alt"`
	Heading   *float64 `json:"heading"`
}

// FlightDataPoint is a persisted sample tagged with its source file.
type FlightDataPoint struct {
	ID        int64    `json:"id" db:"id" msgpack:"id"`
	FileName  string   `json:"file_name" db:"file_name" msgpack:"file_name"`
	Latitude  float64  `json:"lat" db:"lat" msgpack:"lat"`
	Longitude float64  `json:"lon" db:"lon" msgpack:"lon"`
	Altitude  float64  `json:"alt" db:"alt" msgpack:"alt"`
	Heading   *float64 `json:"heading" db:"heading" msgpack:"heading"`
}

// FlightDataQuery filters flight data retrieval. Zero values mean "no filter".
type FlightDataQuery struct {
	FileName string
	Limit    int
	Offset   int
}

// Paged reports whether the query asks for a window rather than the full result.
func (q FlightDataQuery) Paged() bool {
	return q.Limit > 0 || q.Offset > 0
}

// FileSummary describes the rows stored for one source file.
type FileSummary struct {
	FileName   string `json:"file_name" db:"file_name" msgpack:"file_name"`
	DataPoints int64  `json:"data_points" db:"data_points" msgpack:"data_points"`
	FirstID    int64  `json:"first_id" db:"first_id" msgpack:"first_id"`
	LastID     int64  `json:"last_id" db:"last_id" msgpack:"last_id"`
}
