package xmlstore

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/roach88/factlog/internal/fact"
)

const (
	currentYes = "yes"
	currentNo  = "no"
)

type dataDocument struct {
	XMLName xml.Name  `xml:"data"`
	Schema  xmlSchema `xml:"schema"`
	Facts   xmlFacts  `xml:"facts"`
}

type xmlSchema struct {
	Attributes []xmlAttribute `xml:"attribute"`
}

type xmlFacts struct {
	Facts []xmlFact `xml:"fact"`
}

type xmlAttribute struct {
	Name        string `xml:"name,attr"`
	Cardinality string `xml:"cardinality"`
}

type xmlFact struct {
	Current   string `xml:"current,attr"`
	Entity    string `xml:"entity"`
	Attribute string `xml:"attribute"`
	Value     string `xml:"value"`
}

// DataFile persists the schema and fact log as one XML document.
//
// The document carries no sequence numbers; restored facts have Seq 0 and are
// numbered by log position when loaded into a factstore.Store.
type DataFile struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewDataFile creates a DataFile for the document at path.
func NewDataFile(path string, opts ...Option) *DataFile {
	o := buildOptions(opts)
	return &DataFile{path: path, logger: o.logger}
}

// Path returns the document path.
func (d *DataFile) Path() string { return d.path }

// Restore loads the schema and facts. A missing document yields empty
// collections. An unreadable document or an unknown cardinality is
// PERSISTENCE_UNAVAILABLE.
func (d *DataFile) Restore(ctx context.Context) ([]fact.Attribute, []fact.Fact, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	var doc dataDocument
	if err := readDocument(d.path, &doc); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			d.logger.Info("data document not found, starting empty", "path", d.path)
			return []fact.Attribute{}, []fact.Fact{}, nil
		}
		return nil, nil, fact.NewPersistenceError("restore data", err)
	}

	schema := make([]fact.Attribute, 0, len(doc.Schema.Attributes))
	for _, a := range doc.Schema.Attributes {
		attr, err := fact.NewAttribute(a.Name, a.Cardinality)
		if err != nil {
			return nil, nil, fact.NewPersistenceError(fmt.Sprintf("restore data: attribute %q", a.Name), err)
		}
		schema = append(schema, attr)
	}

	facts := make([]fact.Fact, 0, len(doc.Facts.Facts))
	for _, f := range doc.Facts.Facts {
		facts = append(facts, fact.Fact{
			Entity:    f.Entity,
			Attribute: f.Attribute,
			Value:     f.Value,
			Live:      f.Current == currentYes,
		})
	}

	d.logger.Debug("data restored", "path", d.path, "attributes", len(schema), "facts", len(facts))
	return schema, facts, nil
}

// Save rewrites the whole document from schema and facts.
func (d *DataFile) Save(ctx context.Context, schema []fact.Attribute, facts []fact.Fact) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var doc dataDocument
	for _, a := range schema {
		if err := checkText("attribute", a.Name); err != nil {
			return err
		}
		doc.Schema.Attributes = append(doc.Schema.Attributes, xmlAttribute{Name: a.Name, Cardinality: a.Cardinality.String()})
	}
	for _, f := range facts {
		if err := checkTriple(f.Entity, f.Attribute, f.Value); err != nil {
			return err
		}
		current := currentNo
		if f.Live {
			current = currentYes
		}
		doc.Facts.Facts = append(doc.Facts.Facts, xmlFact{
			Current:   current,
			Entity:    f.Entity,
			Attribute: f.Attribute,
			Value:     f.Value,
		})
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := writeDocument(d.path, doc); err != nil {
		return fact.NewPersistenceError("save data", err)
	}
	d.logger.Debug("data saved", "path", d.path, "attributes", len(schema), "facts", len(facts))
	return nil
}
