package ports

import "go.trai.ch/trowel/internal/core/domain"

// ReloadPublisher forwards reload events to connected browsers.
//
//go:generate mockgen -source=reload.go -destination=mocks/mock_reload.go -package=mocks
type ReloadPublisher interface {
	// Publish never blocks; events are dropped when nobody is listening.
	Publish(ev domain.ReloadEvent)
}
