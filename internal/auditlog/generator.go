package auditlog

import (
	"fmt"
	"sort"
)

// Generator turns table descriptions into a Script for one dialect.
type Generator struct {
	dialect Dialect
	opts    Options
}

// NewGenerator returns a Generator. An empty UpdateImage defaults to NEW.
func NewGenerator(d Dialect, opts Options) *Generator {
	if opts.UpdateImage == "" {
		opts.UpdateImage = ImageNew
	}
	return &Generator{dialect: d, opts: opts}
}

// Generate emits, for every table sorted by name, the log table followed by
// its INSERT, UPDATE and DELETE triggers. Any invalid table aborts the whole
// generation and no statements are returned.
func (g *Generator) Generate(tables []TableSchema) (Script, error) {
	sorted := make([]TableSchema, len(tables))
	copy(sorted, tables)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	script := Script{Dialect: g.dialect.Name()}
	for i, t := range sorted {
		if err := t.Validate(); err != nil {
			return Script{}, fmt.Errorf("describe %s: %w", t.Name, err)
		}
		if i > 0 && sorted[i-1].Name == t.Name {
			return Script{}, fmt.Errorf("table %q is registered twice", t.Name)
		}
		stmts := g.forTable(t)
		if err := g.checkNameLengths(t, stmts); err != nil {
			return Script{}, err
		}
		script.Statements = append(script.Statements, stmts...)
	}
	return script, nil
}

// checkNameLengths rejects a table when the dialect cannot hold one of its
// column names or one of the derived log table, trigger or function names.
func (g *Generator) checkNameLengths(t TableSchema, stmts []Statement) error {
	limit := g.dialect.MaxIdentifierLength()
	if limit <= 0 {
		return nil
	}
	for _, c := range t.Columns {
		if len(c.Name) > limit {
			return fmt.Errorf("%w: column %s.%s is longer than %d bytes", ErrInvalidIdentifier, t.Name, c.Name, limit)
		}
	}
	for _, st := range stmts {
		if len(st.Name) > limit {
			return fmt.Errorf("%w: %s name %s for table %s is %d bytes, %s allows %d",
				ErrInvalidIdentifier, st.Kind, st.Name, t.Name, len(st.Name), g.dialect.Name(), limit)
		}
	}
	return nil
}

func (g *Generator) forTable(t TableSchema) []Statement {
	stmts := []Statement{g.dialect.CreateLogTable(NewLogTable(t))}
	for _, a := range Actions {
		stmts = append(stmts, g.dialect.CreateTrigger(NewTrigger(t, a, g.opts))...)
	}
	return stmts
}
