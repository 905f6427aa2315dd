package models

import "time"

// OutboxBacklog summarizes notification delivery for one company.
type OutboxBacklog struct {
	CompanyId    string           `json:"company_id"`
	Counts       map[string]int64 `json:"counts"`
	OldestQueued *time.Time       `json:"oldest_queued"`
}

// Stuck reports rows that will not be published without intervention.
func (b OutboxBacklog) Stuck() int64 {
	return b.Counts[OutboxPublishStatusDead]
}
