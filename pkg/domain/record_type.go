package domain

// RecordType is the direction of a punch event.
type RecordType string

const (
	RecordIn  RecordType = "IN"
	RecordOut RecordType = "OUT"
)

func (t RecordType) IsValid() bool {
	return t == RecordIn || t == RecordOut
}

// Opposite returns the counterpart direction; corrective records synthesized
// by incident resolution always close in the opposite direction.
func (t RecordType) Opposite() RecordType {
	if t == RecordIn {
		return RecordOut
	}
	return RecordIn
}
