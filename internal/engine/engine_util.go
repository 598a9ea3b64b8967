package engine

import (
	"slices"
	"time"
)

// NewGame builds an empty game. A nil task list selects the default deck.
func NewGame(id string, tasks []string, now time.Time) *Game {
	if tasks == nil {
		tasks = DefaultTasks()
	}
	return &Game{
		ID:        id,
		Tasks:     slices.Clone(tasks),
		Teams:     []*Team{},
		Chat:      []ChatEntry{},
		CreatedAt: now,
	}
}

// Clone deep-copies g so the copy can be handed to other goroutines.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	c := &Game{
		ID:        g.ID,
		Tasks:     slices.Clone(g.Tasks),
		Teams:     make([]*Team, 0, len(g.Teams)),
		Chat:      slices.Clone(g.Chat),
		CreatedAt: g.CreatedAt,
	}
	for _, t := range g.Teams {
		tc := *t
		tc.Images = make(map[int][]Image, len(t.Images))
		for idx, imgs := range t.Images {
			tc.Images[idx] = slices.Clone(imgs)
		}
		c.Teams = append(c.Teams, &tc)
	}
	return c
}

func ContainsTeam(g *Game, color string) bool {
	_, ok := g.Team(color)
	return ok
}
