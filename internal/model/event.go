package model

import (
	"encoding/json"
	"fmt"
	"time"
)

type ChangeKind string

const (
	ChangeInsert ChangeKind = "INSERT"
	ChangeUpdate ChangeKind = "UPDATE"
	ChangeDelete ChangeKind = "DELETE"
)

// ChangeEvent is published for every row change of a watched collection.
type ChangeEvent struct {
	Collection      string          `json:"collection"`
	Event           ChangeKind      `json:"event"`
	New             json.RawMessage `json:"new,omitempty"`
	Old             json.RawMessage `json:"old,omitempty"`
	CommitTimestamp time.Time       `json:"commit_timestamp"`
}

// ChangeChannel is the broker channel carrying kind events of collection,
// e.g. "bookings:INSERT".
func ChangeChannel(collection string, kind ChangeKind) string {
	return fmt.Sprintf("%s:%s", collection, kind)
}
