package ports

import "go.trai.ch/kiln/internal/core/domain"

// Notifier pushes reload events to connected browser clients.
// Delivery is best effort.
//
//go:generate mockgen -source=notifier.go -destination=mocks/mock_notifier.go -package=mocks
type Notifier interface {
	Notify(event domain.ReloadEvent)
}
