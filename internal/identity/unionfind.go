package identity

import (
	"wavecli/pkg/contracts/domain"
)

// unionFind is a disjoint-set structure over subject ids with one extra
// invariant: each class carries at most one anchor, the id whose mapping
// row established the class. Merging two classes with different anchors
// is a data contradiction and is refused.
type unionFind struct {
	parent map[domain.SubjectID]domain.SubjectID
	anchor map[domain.SubjectID]domain.SubjectID // root -> anchor id
}

func newUnionFind() *unionFind {
	return &unionFind{
		parent: make(map[domain.SubjectID]domain.SubjectID),
		anchor: make(map[domain.SubjectID]domain.SubjectID),
	}
}

func (u *unionFind) find(id domain.SubjectID) domain.SubjectID {
	p, ok := u.parent[id]
	if !ok {
		u.parent[id] = id
		return id
	}
	if p == id {
		return id
	}
	root := u.find(p)
	u.parent[id] = root // path compression
	return root
}

// anchorOf returns the anchor of id's class, or nil when the class is
// unanchored (untouched by any mapping row).
func (u *unionFind) anchorOf(id domain.SubjectID) *domain.SubjectID {
	root := u.find(id)
	if a, ok := u.anchor[root]; ok {
		return &a
	}
	return nil
}

// claim unions link into the class anchored at anchor. A nil link is a
// filtered mapping cell and a no-op. Claiming an id whose class already
// carries a different anchor is a ContradictionError.
func (u *unionFind) claim(anchor domain.SubjectID, link *domain.SubjectID) error {
	anchorRoot := u.find(anchor)
	if existing, ok := u.anchor[anchorRoot]; ok && existing != anchor {
		return &ContradictionError{ID: anchor, AnchorA: anchor, AnchorB: existing}
	}
	u.anchor[anchorRoot] = anchor

	if link == nil {
		return nil
	}

	linkRoot := u.find(*link)
	if linkRoot == anchorRoot {
		return nil
	}
	if existing, ok := u.anchor[linkRoot]; ok && existing != anchor {
		return &ContradictionError{ID: *link, AnchorA: anchor, AnchorB: existing}
	}

	u.parent[linkRoot] = anchorRoot
	delete(u.anchor, linkRoot)
	return nil
}

// classes groups every id ever touched by a claim into its equivalence
// class, keyed by root.
func (u *unionFind) classes() map[domain.SubjectID][]domain.SubjectID {
	out := make(map[domain.SubjectID][]domain.SubjectID)
	for id := range u.parent {
		root := u.find(id)
		out[root] = append(out[root], id)
	}
	return out
}
