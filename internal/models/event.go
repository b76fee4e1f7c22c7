package models

// EventRecord is a single raw log entry fetched from the log store.
// Fields carries the source document's attributes; nested objects stay
// nested so category rules can unwrap them (e.g. suricata alert blocks).
type EventRecord struct {
	Category  string         `json:"category"`
	Timestamp string         `json:"timestamp"`
	Fields    map[string]any `json:"fields"`
}
