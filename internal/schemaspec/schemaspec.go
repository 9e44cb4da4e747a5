// Package schemaspec loads attribute declarations from CUE and plans the
// schema changes needed to bring a store in line with them.
//
// A declaration file looks like:
//
//	attribute: {
//		name:  cardinality: "one"
//		phone: cardinality: "many"
//	}
//
// Attributes are taken in declaration order.
package schemaspec

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/factlog/internal/fact"
)

// CompileError reports a problem in a declaration, with its CUE position
// when known.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Compile extracts the attribute declarations from a built CUE value.
// A value with no attribute field declares nothing.
func Compile(v cue.Value) ([]fact.Attribute, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	attrsVal := v.LookupPath(cue.ParsePath("attribute"))
	if !attrsVal.Exists() {
		return []fact.Attribute{}, nil
	}

	iter, err := attrsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	attrs := []fact.Attribute{}
	for iter.Next() {
		name := iter.Selector().Unquoted()
		field := "attribute." + name

		cardVal := iter.Value().LookupPath(cue.ParsePath("cardinality"))
		if !cardVal.Exists() {
			return nil, &CompileError{Field: field, Message: "cardinality is required", Pos: iter.Value().Pos()}
		}
		card, err := cardVal.String()
		if err != nil {
			return nil, &CompileError{Field: field + ".cardinality", Message: "must be a string", Pos: cardVal.Pos()}
		}
		attr, err := fact.NewAttribute(name, card)
		if err != nil {
			return nil, &CompileError{Field: field + ".cardinality", Message: err.Error(), Pos: cardVal.Pos()}
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

// LoadResult is the outcome of loading a declaration directory.
type LoadResult struct {
	Attributes []fact.Attribute
	FileCount  int
}

// LoadDir loads every .cue file in dir as one CUE instance and compiles its
// attribute declarations.
func LoadDir(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("schema directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("schema directory: not a directory: %s", dir)
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := cuecontext.New().BuildInstance(inst)
	attrs, err := Compile(value)
	if err != nil {
		return nil, err
	}
	return &LoadResult{Attributes: attrs, FileCount: len(files)}, nil
}

// FindCUEFiles returns the .cue files directly inside dir.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &CompileError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
