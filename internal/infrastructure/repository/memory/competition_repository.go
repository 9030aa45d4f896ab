package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Bandi86/2025-sub012/internal/domain/competition"
)

type CompetitionRepository struct {
	mu     sync.Mutex
	byName map[string]competition.Competition
	nextID int64
}

func NewCompetitionRepository() *CompetitionRepository {
	return &CompetitionRepository{byName: make(map[string]competition.Competition), nextID: 1}
}

func (r *CompetitionRepository) GetOrCreateByName(_ context.Context, name string) (competition.Competition, error) {
	name = strings.TrimSpace(name)
	if err := (competition.Competition{Name: name}).Validate(); err != nil {
		return competition.Competition{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[name]; ok {
		return existing, nil
	}

	created := competition.Competition{ID: r.nextID, Name: name}
	r.nextID++
	r.byName[name] = created

	return created, nil
}

func (r *CompetitionRepository) List(_ context.Context) ([]competition.Competition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]competition.Competition, 0, len(r.byName))
	for _, item := range r.byName {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}
