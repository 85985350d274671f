package auditlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// FilePrefix and FileTimeLayout define generated file names:
// migrate_controller_20060102_150405.sql.
const (
	FilePrefix     = "migrate_controller_"
	FileTimeLayout = "20060102_150405"
)

// Script is an ordered list of generated statements.
type Script struct {
	Dialect    string
	Statements []Statement
}

// Empty reports whether the script has nothing to execute.
func (s Script) Empty() bool { return len(s.Statements) == 0 }

// Count returns how many statements of kind the script holds.
func (s Script) Count(kind StatementKind) int {
	n := 0
	for _, st := range s.Statements {
		if st.Kind == kind {
			n++
		}
	}
	return n
}

// String renders the file contents. Every statement is preceded by a marker
// line so that ParseScript can split the file without parsing SQL. An empty
// script renders as an empty string.
func (s Script) String() string {
	if s.Empty() {
		return ""
	}
	var b strings.Builder
	b.WriteString("-- Audit log tables and triggers\n")
	fmt.Fprintf(&b, "-- dialect: %s\n", s.Dialect)
	for _, st := range s.Statements {
		b.WriteString("\n")
		b.WriteString(marker(st))
		b.WriteString("\n")
		b.WriteString(st.SQL)
		b.WriteString("\n")
	}
	return b.String()
}

func marker(st Statement) string {
	m := fmt.Sprintf("-- statement: %s %s", st.Kind, st.Name)
	if st.Table != "" {
		m += " on " + st.Table
	}
	return m
}

var (
	markerRE  = regexp.MustCompile(`^-- statement: (\w+) ([A-Za-z0-9_]+)(?: on ([A-Za-z0-9_]+))?\s*$`)
	dialectRE = regexp.MustCompile(`^-- dialect: (\w+)\s*$`)
)

// ParseScript reads a file produced by Script.String.
func ParseScript(r io.Reader) (Script, error) {
	sc := bufio.NewScanner(r)
	// Trigger bodies of wide tables can be long.
	const maxLine = 1 << 20
	sc.Buffer(make([]byte, 64*1024), maxLine)

	var (
		script Script
		cur    *Statement
		body   []string
		lineNo int
	)
	flush := func() error {
		if cur == nil {
			return nil
		}
		cur.SQL = strings.TrimSpace(strings.Join(body, "\n"))
		if cur.SQL == "" {
			return fmt.Errorf("statement %s %s has no sql", cur.Kind, cur.Name)
		}
		script.Statements = append(script.Statements, *cur)
		cur, body = nil, nil
		return nil
	}

	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if m := markerRE.FindStringSubmatch(line); m != nil {
			if err := flush(); err != nil {
				return Script{}, err
			}
			kind := StatementKind(m[1])
			if !kind.valid() {
				return Script{}, fmt.Errorf("line %d: unknown statement kind %q", lineNo, m[1])
			}
			cur = &Statement{Kind: kind, Name: m[2], Table: m[3]}
			continue
		}
		if cur == nil {
			if m := dialectRE.FindStringSubmatch(line); m != nil {
				script.Dialect = m[1]
				continue
			}
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "--") {
				continue
			}
			return Script{}, fmt.Errorf("line %d: sql outside of a statement marker", lineNo)
		}
		body = append(body, line)
	}
	if err := sc.Err(); err != nil {
		return Script{}, fmt.Errorf("scan: %w", err)
	}
	if err := flush(); err != nil {
		return Script{}, err
	}
	return script, nil
}

// FileName returns the generated file name for a run started at now.
func FileName(now time.Time) string {
	return FilePrefix + now.Format(FileTimeLayout) + ".sql"
}

// WriteScript writes s into dir under a timestamped name and returns the
// path. The whole text is rendered before the file is created.
func WriteScript(dir string, now time.Time, s Script) (string, error) {
	text := s.String()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, FileName(now))
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write script: %w", err)
	}
	return path, nil
}

// ReadScript reads and parses a generated file.
func ReadScript(path string) (Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return Script{}, fmt.Errorf("open script: %w", err)
	}
	defer f.Close()

	s, err := ParseScript(f)
	if err != nil {
		return Script{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return s, nil
}
