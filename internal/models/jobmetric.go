package models

import (
	"encoding/gob"
	"time"
)

func init() {
	gob.Register(&JobMetric{})
}

// JobMetric is one durable row per job run, written by the health registry.
type JobMetric struct {
	ID        string `badgerhold:"key"`
	JobName   string
	StartedAt time.Time
	Duration  time.Duration
	Success   bool
	Rows      int
	Error     string
}
