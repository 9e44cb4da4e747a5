package fact

import (
	"fmt"
	"strings"
)

// Cardinality controls how many facts per entity an attribute keeps current.
type Cardinality int

const (
	// One keeps at most one current value per entity (last write wins).
	One Cardinality = iota + 1

	// Many keeps every asserted value per entity until it is tombstoned.
	Many
)

// Textual cardinality forms used by every persistence format.
const (
	CardinalityOne  = "one"
	CardinalityMany = "many"
)

// ParseCardinality converts "one" or "many" (case-insensitive, surrounding
// whitespace ignored) into a Cardinality.
func ParseCardinality(s string) (Cardinality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case CardinalityOne:
		return One, nil
	case CardinalityMany:
		return Many, nil
	default:
		return 0, NewInvalidCardinalityError(s)
	}
}

// String returns the persisted form of the cardinality.
func (c Cardinality) String() string {
	switch c {
	case One:
		return CardinalityOne
	case Many:
		return CardinalityMany
	default:
		return fmt.Sprintf("cardinality(%d)", int(c))
	}
}

// Valid reports whether c is One or Many.
func (c Cardinality) Valid() bool {
	return c == One || c == Many
}

// MarshalText implements encoding.TextMarshaler.
func (c Cardinality) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, NewInvalidCardinalityError(c.String())
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Cardinality) UnmarshalText(text []byte) error {
	parsed, err := ParseCardinality(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Attribute is a schema entry. Name is unique within a schema.
type Attribute struct {
	Name        string      `json:"name" yaml:"name"`
	Cardinality Cardinality `json:"cardinality" yaml:"cardinality"`
}

// NewAttribute builds an Attribute from its textual cardinality.
func NewAttribute(name, cardinality string) (Attribute, error) {
	c, err := ParseCardinality(cardinality)
	if err != nil {
		return Attribute{}, err
	}
	return Attribute{Name: name, Cardinality: c}, nil
}

// Triple is the (entity, attribute, value) key of a fact.
type Triple struct {
	Entity    string `json:"entity" yaml:"entity"`
	Attribute string `json:"attribute" yaml:"attribute"`
	Value     string `json:"value" yaml:"value"`
}

// String renders the triple for logs and text output.
func (t Triple) String() string {
	return fmt.Sprintf("%s %s %q", t.Entity, t.Attribute, t.Value)
}

// Fact is a single row of the append-only log.
//
// Live=false marks a tombstone. Seq is the logical append position; the
// highest Seq among a set of facts is the most recent write.
type Fact struct {
	Entity    string `json:"entity"`
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
	Live      bool   `json:"live"`
	Seq       int64  `json:"seq"`
}

// Triple returns the equality key of the fact.
func (f Fact) Triple() Triple {
	return Triple{Entity: f.Entity, Attribute: f.Attribute, Value: f.Value}
}

// Filter restricts a fact listing by exact entity and/or attribute.
// Empty fields match everything.
type Filter struct {
	Entity    string
	Attribute string
}

// Match reports whether t passes the filter.
func (f Filter) Match(t Triple) bool {
	if f.Entity != "" && t.Entity != f.Entity {
		return false
	}
	if f.Attribute != "" && t.Attribute != f.Attribute {
		return false
	}
	return true
}
