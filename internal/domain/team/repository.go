package team

import "context"

// Repository describes team persistence needs from use cases.
type Repository interface {
	// GetOrCreateByName resolves a canonical name to a stable id, creating
	// the row on first sight. Insert-or-fetch is atomic: two concurrent
	// resolutions of the same name must return the same id.
	GetOrCreateByName(ctx context.Context, name string) (Team, error)
	List(ctx context.Context) ([]Team, error)
}
