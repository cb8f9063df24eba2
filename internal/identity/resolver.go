package identity

import (
	"fmt"
	"log/slog"
	"sort"

	"wavecli/pkg/contracts/domain"
)

// ContradictionError reports that the mapping table links two ids the
// resolver has already placed in different, independently-anchored
// classes. Which class should win is ambiguous, so the resolver fails
// loudly instead of guessing.
type ContradictionError struct {
	ID      domain.SubjectID
	AnchorA domain.SubjectID
	AnchorB domain.SubjectID
}

// Error implements the error interface
func (e *ContradictionError) Error() string {
	return fmt.Sprintf("identity contradiction: id %d is claimed by anchor %d but already belongs to anchor %d",
		e.ID, e.AnchorA, e.AnchorB)
}

// Resolution is the frozen outcome of identity resolution: a total
// function from observed pseudonymous id to canonical subject id. It is
// built in one pass to completion and never mutated afterwards, so
// lookups are safe from any goroutine.
type Resolution struct {
	canonical map[domain.SubjectID]domain.SubjectID
}

// Canonical returns the canonical subject id for an observed id. Ids the
// resolver never saw map to themselves, keeping the function total.
func (r *Resolution) Canonical(id domain.SubjectID) domain.SubjectID {
	if c, ok := r.canonical[id]; ok {
		return c
	}
	return id
}

// Classes returns the equivalence classes keyed by canonical id, each
// class sorted ascending. Singleton classes are included.
func (r *Resolution) Classes() map[domain.SubjectID][]domain.SubjectID {
	classes := make(map[domain.SubjectID][]domain.SubjectID)
	for id, canon := range r.canonical {
		classes[canon] = append(classes[canon], id)
	}
	for canon := range classes {
		ids := classes[canon]
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		classes[canon] = ids
	}
	return classes
}

// Size returns the number of observed ids covered by the resolution.
func (r *Resolution) Size() int {
	return len(r.canonical)
}

// Resolve collapses wave-scoped pseudonymous ids into stable cross-wave
// identities using the externally supplied mapping table.
//
// Mapping cells referencing ids that never occur in observed are
// discarded before use. Wave-2-anchored rows claim their wave-3 and
// wave-4 links first; wave-3-anchored rows (no wave-2 link) then claim
// their wave-4 links, but never override an identity a wave-2 anchor
// already established. Everything untouched stays a singleton. The
// processing order of the id ranges is a correctness requirement: the
// broader rule must run before the narrower one.
func Resolve(observed []domain.SubjectID, mapping []domain.MappingRow, ranges Ranges, logger *slog.Logger) (*Resolution, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := ranges.Validate(); err != nil {
		return nil, fmt.Errorf("validate id ranges: %w", err)
	}

	seen := make(map[domain.SubjectID]bool, len(observed))
	ids := make([]domain.SubjectID, 0, len(observed))
	for _, id := range observed {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	// Restrict the mapping to observed ids, cell by cell.
	rows := make([]domain.MappingRow, 0, len(mapping))
	for _, row := range mapping {
		rows = append(rows, domain.MappingRow{
			Wave2: observedCell(row.Wave2, seen),
			Wave3: observedCell(row.Wave3, seen),
			Wave4: observedCell(row.Wave4, seen),
		})
	}

	u := newUnionFind()

	// Rows indexed by their wave-2 anchor, and the anchorless wave-3
	// rows indexed by their wave-3 id.
	byWave2 := make(map[domain.SubjectID][]domain.MappingRow)
	byWave3 := make(map[domain.SubjectID][]domain.MappingRow)
	for _, row := range rows {
		switch {
		case row.Wave2 != nil:
			byWave2[*row.Wave2] = append(byWave2[*row.Wave2], row)
		case row.Wave3 != nil:
			byWave3[*row.Wave3] = append(byWave3[*row.Wave3], row)
		}
	}

	// Pass 1: wave-2 anchors claim their linked ids.
	for _, id := range ids {
		if w, ok := ranges.WaveOf(id); !ok || w != domain.Wave2 {
			continue
		}
		for _, row := range byWave2[id] {
			if err := u.claim(id, row.Wave3); err != nil {
				return nil, err
			}
			if err := u.claim(id, row.Wave4); err != nil {
				return nil, err
			}
		}
	}

	// Pass 2: wave-3 ids no wave-2 anchor claimed, with a wave-4 link.
	for _, id := range ids {
		if w, ok := ranges.WaveOf(id); !ok || w != domain.Wave3 {
			continue
		}
		if u.anchorOf(id) != nil {
			continue // already resolved by a wave-2 anchor
		}
		for _, row := range byWave3[id] {
			if row.Wave4 == nil {
				continue
			}
			if err := u.claim(id, row.Wave4); err != nil {
				return nil, err
			}
		}
	}

	res := &Resolution{canonical: make(map[domain.SubjectID]domain.SubjectID, len(ids))}
	for _, class := range u.classes() {
		canon := canonicalOf(class, ranges)
		for _, id := range class {
			res.canonical[id] = canon
		}
	}
	for _, id := range ids {
		if _, ok := res.canonical[id]; !ok {
			res.canonical[id] = id // singleton identity
		}
	}

	logger.Info("identity resolution complete",
		slog.Int("observed_ids", len(ids)),
		slog.Int("classes", len(res.Classes())),
		slog.Int("mapping_rows", len(rows)),
	)

	return res, nil
}

// canonicalOf picks the canonical id of a class: its wave-2 member when
// one exists, otherwise the earliest-wave (then lowest) member.
func canonicalOf(class []domain.SubjectID, ranges Ranges) domain.SubjectID {
	best := class[0]
	bestWave := waveOrder(best, ranges)
	for _, id := range class[1:] {
		w := waveOrder(id, ranges)
		if w < bestWave || (w == bestWave && id < best) {
			best = id
			bestWave = w
		}
	}
	return best
}

// waveOrder sorts ids by wave for canonical selection; ids outside every
// known range sort last.
func waveOrder(id domain.SubjectID, ranges Ranges) int {
	if w, ok := ranges.WaveOf(id); ok {
		return int(w)
	}
	return int(domain.Wave4) + 1
}

func observedCell(id *domain.SubjectID, seen map[domain.SubjectID]bool) *domain.SubjectID {
	if id == nil || !seen[*id] {
		return nil
	}
	return id
}
