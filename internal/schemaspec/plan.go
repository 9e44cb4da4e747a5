package schemaspec

import "github.com/roach88/factlog/internal/fact"

// ChangeKind is the schema operation a Change calls for.
type ChangeKind string

const (
	ChangeAdd    ChangeKind = "add"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// Change is one planned schema operation.
type Change struct {
	Kind      ChangeKind     `json:"kind"`
	Attribute fact.Attribute `json:"attribute"`
}

// Plan lists the operations that turn current into declared.
//
// Declared attributes missing from current are added in declaration order;
// ones with a different cardinality are updated. Attributes only in current
// are deleted when prune is set and otherwise left alone.
func Plan(current, declared []fact.Attribute, prune bool) []Change {
	existing := make(map[string]fact.Cardinality, len(current))
	for _, a := range current {
		existing[a.Name] = a.Cardinality
	}
	wanted := make(map[string]bool, len(declared))

	changes := []Change{}
	for _, a := range declared {
		wanted[a.Name] = true
		card, ok := existing[a.Name]
		switch {
		case !ok:
			changes = append(changes, Change{Kind: ChangeAdd, Attribute: a})
		case card != a.Cardinality:
			changes = append(changes, Change{Kind: ChangeUpdate, Attribute: a})
		}
	}

	if prune {
		for _, a := range current {
			if !wanted[a.Name] {
				changes = append(changes, Change{Kind: ChangeDelete, Attribute: a})
			}
		}
	}
	return changes
}
