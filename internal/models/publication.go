package models

import (
	"encoding/gob"
	"time"
)

func init() {
	gob.Register(&ResultPublication{})
}

// Publication processing states.
const (
	PublicationDetected  = "detected"
	PublicationProcessed = "processed"
	PublicationFailed    = "failed"
)

// ResultPublication tracks one detected results announcement through its
// processing lifecycle. Re-detection of an announcement already present is
// a no-op; a failed publication is never retried automatically.
type ResultPublication struct {
	ID          string `badgerhold:"key"` // Upstream announcement identifier
	Symbol      string
	Headline    string
	AnnouncedAt time.Time
	DocumentURL string

	Status     string
	FailReason string

	// Classified fiscal quarter, set when the headline label was recognized.
	Quarter int
	FYStart int

	DetectedAt  time.Time
	ProcessedAt *time.Time
}
