package importer

import (
	"github.com/mcoot/dotareg/internal/model"
)

// batchIndex tracks players written earlier in the same batch, so each row
// is matched against the batch's latest version of a player.
type batchIndex struct {
	byID     map[model.PlayerID]*model.Player
	byName   map[string]model.PlayerID
	byDotaID map[string]model.PlayerID
}

func newBatchIndex() *batchIndex {
	return &batchIndex{
		byID:     make(map[model.PlayerID]*model.Player),
		byName:   make(map[string]model.PlayerID),
		byDotaID: make(map[string]model.PlayerID),
	}
}

func (b *batchIndex) put(p *model.Player) {
	if old, ok := b.byID[p.ID]; ok {
		delete(b.byName, model.NameKey(old.Name))
		delete(b.byDotaID, old.Dota2ID)
	}
	b.byID[p.ID] = p
	b.byName[model.NameKey(p.Name)] = p.ID
	b.byDotaID[p.Dota2ID] = p.ID
}

// resolve merges stored matches with batch writes, preferring the batch
// version of a player and dropping stale matches.
func (b *batchIndex) resolve(stored []*model.Player, details model.PlayerDetails) []*model.Player {
	var out []*model.Player
	seen := make(map[model.PlayerID]bool)
	add := func(p *model.Player) {
		if seen[p.ID] {
			return
		}
		seen[p.ID] = true
		if p.SameIdentity(details.Name, details.Dota2ID) {
			out = append(out, p)
		}
	}

	for _, id := range []model.PlayerID{b.byName[model.NameKey(details.Name)], b.byDotaID[details.Dota2ID]} {
		if p, ok := b.byID[id]; ok {
			add(p)
		}
	}
	for _, p := range stored {
		if newer, ok := b.byID[p.ID]; ok {
			add(newer)
			continue
		}
		add(p)
	}
	return out
}
