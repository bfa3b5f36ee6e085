package api

import (
	"context"
	"net/http"
	"time"

	"github.com/erazemk/turtlealbum/internal/model"
	"github.com/erazemk/turtlealbum/internal/store"
)

type familyNode struct {
	ID           string       `json:"id"`
	Code         string       `json:"code"`
	Sex          string       `json:"sex"`
	ThumbnailURL *string      `json:"thumbnailUrl"`
	Generation   int          `json:"generation"`
	Relationship string       `json:"relationship"`
	SireCode     string       `json:"sireCode,omitempty"`
	DamCode      string       `json:"damCode,omitempty"`
	Siblings     []familyNode `json:"siblings,omitempty"`
}

type familyMating struct {
	ID         string    `json:"id"`
	MaleID     string    `json:"maleId,omitempty"`
	MaleCode   *string   `json:"maleCode,omitempty"`
	FemaleID   string    `json:"femaleId,omitempty"`
	FemaleCode *string   `json:"femaleCode,omitempty"`
	MatedAt    time.Time `json:"matedAt"`
	Notes      string    `json:"notes"`
}

type familyTree struct {
	Current       familyNode             `json:"current"`
	CurrentMate   *model.BreederRef      `json:"currentMate"`
	Ancestors     map[string]*familyNode `json:"ancestors"`
	Offspring     []familyNode           `json:"offspring"`
	Siblings      []familyNode           `json:"siblings"`
	MatingRecords []familyMating         `json:"matingRecords"`
	EggRecords    []model.EggRecord      `json:"eggRecords"`
}

func newFamilyNode(b *model.Breeder, generation int, relationship string) familyNode {
	n := familyNode{
		ID:           b.ID,
		Code:         b.Code,
		Sex:          b.Sex,
		Generation:   generation,
		Relationship: relationship,
		SireCode:     b.SireCode,
		DamCode:      b.DamCode,
	}
	if img := b.MainImage(); img != nil {
		url := img.URL
		n.ThumbnailURL = &url
	}
	return n
}

func familyNodes(bs []model.Breeder, generation int, relationship string) []familyNode {
	out := make([]familyNode, 0, len(bs))
	for i := range bs {
		out = append(out, newFamilyNode(&bs[i], generation, relationship))
	}
	return out
}

// FamilyTree handles GET /api/breeders/{id}/family-tree.
func (h *BreedersHandler) FamilyTree(w http.ResponseWriter, r *http.Request) {
	b, ok := h.albumBreeder(w, r)
	if !ok {
		return
	}

	tree, err := h.buildFamilyTree(r.Context(), b)
	if err != nil {
		storeError(w, h.Logger, err, "failed to build family tree")
		return
	}
	jsonResponse(w, http.StatusOK, tree)
}

func (h *BreedersHandler) buildFamilyTree(ctx context.Context, b *model.Breeder) (*familyTree, error) {
	tree := &familyTree{
		Current:       newFamilyNode(b, 0, "current"),
		MatingRecords: []familyMating{},
		EggRecords:    []model.EggRecord{},
	}

	var err error
	if tree.CurrentMate, err = h.resolveMate(ctx, b); err != nil {
		return nil, err
	}
	if tree.Ancestors, err = h.ancestors(ctx, b); err != nil {
		return nil, err
	}

	var children []model.Breeder
	switch b.Sex {
	case model.SexMale:
		children, err = store.ListRelatives(ctx, h.DB, store.Relatives{SireCode: b.Code})
	case model.SexFemale:
		children, err = store.ListRelatives(ctx, h.DB, store.Relatives{DamCode: b.Code})
	}
	if err != nil {
		return nil, err
	}
	tree.Offspring = familyNodes(children, 1, "offspring")

	var siblings []model.Breeder
	if b.DamCode != "" {
		siblings, err = store.ListRelatives(ctx, h.DB, store.Relatives{
			SireCode:  b.SireCode,
			DamCode:   b.DamCode,
			ExcludeID: b.ID,
		})
		if err != nil {
			return nil, err
		}
	}
	tree.Siblings = familyNodes(siblings, 0, "sibling")

	switch b.Sex {
	case model.SexFemale:
		records, err := store.ListMatingRecords(ctx, h.DB, b.ID, true)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			m := familyMating{ID: rec.ID, MaleID: rec.MaleID, MatedAt: rec.MatedAt, Notes: rec.Notes}
			if rec.Male != nil {
				m.MaleCode = &rec.Male.Code
			}
			tree.MatingRecords = append(tree.MatingRecords, m)
		}
		if tree.EggRecords, err = store.ListEggRecords(ctx, h.DB, b.ID); err != nil {
			return nil, err
		}
	case model.SexMale:
		records, err := store.ListMatingRecords(ctx, h.DB, b.ID, false)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			m := familyMating{ID: rec.ID, FemaleID: rec.FemaleID, MatedAt: rec.MatedAt, Notes: rec.Notes}
			if rec.Female != nil {
				m.FemaleCode = &rec.Female.Code
			}
			tree.MatingRecords = append(tree.MatingRecords, m)
		}
	}
	return tree, nil
}

// ancestors walks three generations up through sire and dam codes. Keys
// follow the path from the breeder, e.g. paternalMaternalGreatGrandfather is
// the father of the father's mother.
func (h *BreedersHandler) ancestors(ctx context.Context, b *model.Breeder) (map[string]*familyNode, error) {
	out := map[string]*familyNode{}

	parents := []struct{ key, side, code string }{
		{"father", "paternal", b.SireCode},
		{"mother", "maternal", b.DamCode},
	}
	for _, p := range parents {
		parent, err := store.GetAlbumBreederByCode(ctx, h.DB, p.code)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			continue
		}

		node := newFamilyNode(parent, -1, p.key)
		if parent.DamCode != "" {
			sibs, err := store.ListRelatives(ctx, h.DB, store.Relatives{DamCode: parent.DamCode, ExcludeID: parent.ID})
			if err != nil {
				return nil, err
			}
			node.Siblings = familyNodes(sibs, -1, p.key+"_sibling")
		}
		out[p.key] = &node

		grandparents := []struct{ key, rel, line, code string }{
			{p.side + "Grandfather", p.side + "_grandfather", "Paternal", parent.SireCode},
			{p.side + "Grandmother", p.side + "_grandmother", "Maternal", parent.DamCode},
		}
		for _, g := range grandparents {
			gp, err := store.GetAlbumBreederByCode(ctx, h.DB, g.code)
			if err != nil {
				return nil, err
			}
			if gp == nil {
				continue
			}
			gn := newFamilyNode(gp, -2, g.rel)
			out[g.key] = &gn

			great := []struct{ suffix, rel, code string }{
				{"GreatGrandfather", "great_grandfather", gp.SireCode},
				{"GreatGrandmother", "great_grandmother", gp.DamCode},
			}
			for _, gg := range great {
				ggp, err := store.GetAlbumBreederByCode(ctx, h.DB, gg.code)
				if err != nil {
					return nil, err
				}
				if ggp == nil {
					continue
				}
				ggn := newFamilyNode(ggp, -3, gg.rel)
				out[p.side+g.line+gg.suffix] = &ggn
			}
		}
	}
	return out, nil
}
