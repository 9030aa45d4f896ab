package competition

import "context"

// Repository describes competition persistence needs from use cases.
type Repository interface {
	GetOrCreateByName(ctx context.Context, name string) (Competition, error)
	List(ctx context.Context) ([]Competition, error)
}
