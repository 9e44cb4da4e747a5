package factstore

import "github.com/roach88/factlog/internal/fact"

// CurrentFacts returns the triples currently in effect.
//
// The projection is rebuilt from the full log on every call:
//  1. Partition the log into asserted (live) and tombstoned rows.
//  2. For each attribute in schema order, collect its asserted rows.
//     Cardinality one keeps only the highest-Seq row per entity, with
//     entities in order of first appearance. Cardinality many keeps every
//     row in log order.
//  3. Drop every collected row whose triple equals the triple of any
//     tombstone, wherever that tombstone sits in the log.
//
// A tombstoned winner is not replaced by an older value: for cardinality
// one, if the latest assertion is retracted the entity has no current value.
func (s *Store) CurrentFacts() []fact.Triple {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.currentLocked(fact.Filter{})
}

// Filter returns the current facts matching filter, in CurrentFacts order.
func (s *Store) Filter(filter fact.Filter) []fact.Triple {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.currentLocked(filter)
}

// currentLocked computes the projection. Caller must hold the lock.
func (s *Store) currentLocked(filter fact.Filter) []fact.Triple {
	asserted := make([]fact.Fact, 0, len(s.facts))
	tombstones := make(map[fact.Triple]struct{})
	for _, f := range s.facts {
		if f.Live {
			asserted = append(asserted, f)
		} else {
			tombstones[f.Triple()] = struct{}{}
		}
	}

	working := make([]fact.Fact, 0, len(asserted))
	for _, attr := range s.schema {
		if filter.Attribute != "" && attr.Name != filter.Attribute {
			continue
		}
		switch attr.Cardinality {
		case fact.One:
			working = append(working, latestPerEntity(asserted, attr.Name)...)
		default:
			for _, f := range asserted {
				if f.Attribute == attr.Name {
					working = append(working, f)
				}
			}
		}
	}

	current := make([]fact.Triple, 0, len(working))
	for _, f := range working {
		t := f.Triple()
		if _, dead := tombstones[t]; dead {
			continue
		}
		if !filter.Match(t) {
			continue
		}
		current = append(current, t)
	}
	return current
}

// latestPerEntity returns, for each entity with an asserted row for
// attribute, the row with the highest Seq. Entities keep the order in which
// they first appear.
func latestPerEntity(asserted []fact.Fact, attribute string) []fact.Fact {
	var picked []fact.Fact
	index := make(map[string]int)
	for _, f := range asserted {
		if f.Attribute != attribute {
			continue
		}
		i, seen := index[f.Entity]
		if !seen {
			index[f.Entity] = len(picked)
			picked = append(picked, f)
			continue
		}
		if f.Seq >= picked[i].Seq {
			picked[i] = f
		}
	}
	return picked
}
