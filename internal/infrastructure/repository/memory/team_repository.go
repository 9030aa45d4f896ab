package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Bandi86/2025-sub012/internal/domain/team"
)

type TeamRepository struct {
	mu     sync.Mutex
	byName map[string]team.Team
	nextID int64
}

func NewTeamRepository() *TeamRepository {
	return &TeamRepository{byName: make(map[string]team.Team), nextID: 1}
}

func (r *TeamRepository) GetOrCreateByName(_ context.Context, name string) (team.Team, error) {
	name = team.NormalizeName(name)
	if err := (team.Team{Name: name}).Validate(); err != nil {
		return team.Team{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[name]; ok {
		return existing, nil
	}

	created := team.Team{ID: r.nextID, Name: name}
	r.nextID++
	r.byName[name] = created

	return created, nil
}

func (r *TeamRepository) List(_ context.Context) ([]team.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]team.Team, 0, len(r.byName))
	for _, item := range r.byName {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}
