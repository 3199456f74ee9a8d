package amqp

import (
	"encoding/json"
	"time"
)

// RowMappedEvent is the lightweight event published after a row gains
// a category. It carries only the row address and the assigned name;
// consumers fetch the full row from the database.
type RowMappedEvent struct {
	SourceFile string    `json:"source_file"`
	RowIndex   int       `json:"row_index"`
	Category   string    `json:"category"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewRowMappedEvent creates an event for one mapped row.
func NewRowMappedEvent(sourceFile string, rowIndex int, category string) *RowMappedEvent {
	return &RowMappedEvent{
		SourceFile: sourceFile,
		RowIndex:   rowIndex,
		Category:   category,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (m *RowMappedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RowMappedEventFromJSON creates an event from JSON bytes
func RowMappedEventFromJSON(data []byte) (*RowMappedEvent, error) {
	var msg RowMappedEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
