package model

import "time"

// Service is the persisted mirror of a service observed on a host.
// Name is unique within a host, not globally.
type Service struct {
	ID        int64
	HostID    int64
	Name      string
	Status    string // Remote vocabulary, e.g. "Running", "Stopped".
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ObservedService is a single (name, status) pair as reported by a host's
// service-control subsystem during a list operation. Not persisted directly.
type ObservedService struct {
	Name   string
	Status string
}
