package xmlstore

import (
	"context"
	"encoding/xml"
	"errors"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/roach88/factlog/internal/fact"
	"github.com/roach88/factlog/internal/history"
)

type historyDocument struct {
	XMLName       xml.Name          `xml:"modifications"`
	Modifications []xmlModification `xml:"modification"`
}

type xmlModification struct {
	Action    string `xml:"action,attr"`
	ID        string `xml:"id,attr,omitempty"`
	Entity    string `xml:"entity"`
	Attribute string `xml:"attribute"`
	Value     string `xml:"value"`
	DateTime  string `xml:"date_time"`
}

// HistoryFile is a history.Log backed by an XML document.
//
// Timestamps are written in local time with second precision. Record IDs are
// kept in an optional id attribute; documents without it restore records with
// an empty ID.
type HistoryFile struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

var _ history.Log = (*HistoryFile)(nil)

// NewHistoryFile creates a HistoryFile for the document at path.
func NewHistoryFile(path string, opts ...Option) *HistoryFile {
	o := buildOptions(opts)
	return &HistoryFile{path: path, logger: o.logger}
}

// Register appends rec by rewriting the document with all previous records
// plus the new one. A missing document starts a new one. A document that
// cannot be parsed is PERSISTENCE_UNAVAILABLE and is left untouched.
func (h *HistoryFile) Register(ctx context.Context, rec history.ChangeRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkTriple(rec.Entity, rec.Attribute, rec.Value); err != nil {
		return err
	}
	if err := checkText("id", rec.ID); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	var doc historyDocument
	if err := readDocument(h.path, &doc); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fact.NewPersistenceError("register change", err)
		}
		doc = historyDocument{}
	}

	doc.Modifications = append(doc.Modifications, xmlModification{
		Action:    string(rec.Action),
		ID:        rec.ID,
		Entity:    rec.Entity,
		Attribute: rec.Attribute,
		Value:     rec.Value,
		DateTime:  history.FormatTimestamp(rec.Timestamp.Local()),
	})

	if err := writeDocument(h.path, doc); err != nil {
		return fact.NewPersistenceError("register change", err)
	}
	return nil
}

// Retrieve returns the records for entity, oldest first.
func (h *HistoryFile) Retrieve(ctx context.Context, entity string) ([]history.ChangeRecord, error) {
	return h.retrieve(ctx, func(m xmlModification) bool { return m.Entity == entity })
}

// RetrieveAll returns every record, oldest first.
func (h *HistoryFile) RetrieveAll(ctx context.Context) ([]history.ChangeRecord, error) {
	return h.retrieve(ctx, func(xmlModification) bool { return true })
}

// retrieve treats a missing or unparsable document as an empty log.
// Entries with an unknown action or malformed timestamp are skipped.
func (h *HistoryFile) retrieve(ctx context.Context, keep func(xmlModification) bool) ([]history.ChangeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	out := []history.ChangeRecord{}

	var doc historyDocument
	if err := readDocument(h.path, &doc); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			h.logger.Warn("history document unreadable, returning empty history", "path", h.path, "error", err)
		}
		return out, nil
	}

	for i, m := range doc.Modifications {
		if !keep(m) {
			continue
		}
		action, err := history.ParseAction(m.Action)
		if err != nil {
			h.logger.Warn("skipping history entry", "path", h.path, "index", i, "error", err)
			continue
		}
		ts, err := history.ParseTimestamp(m.DateTime)
		if err != nil {
			h.logger.Warn("skipping history entry", "path", h.path, "index", i, "error", err)
			continue
		}
		out = append(out, history.ChangeRecord{
			ID:        m.ID,
			Action:    action,
			Entity:    m.Entity,
			Attribute: m.Attribute,
			Value:     m.Value,
			Timestamp: ts,
		})
	}
	return out, nil
}
