package schema

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mickamy/dieselgen/internal/config"
	"github.com/mickamy/dieselgen/internal/errs"
	"github.com/mickamy/dieselgen/internal/naming"
)

// Generator renders the source file for one parsed table.
type Generator interface {
	Generate(t *Table, cfg *config.GenerationConfig) (string, error)
}

// Parse reads diesel schema source and returns every table! declaration
// that is not ignored by cfg, in declaration order, with joinable!
// relations attached. When g is non-nil each table's GeneratedCode is
// filled in.
func Parse(src string, cfg *config.GenerationConfig, g Generator) ([]*Table, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}

	var tables []*Table
	var joins []Join
	declared := make(map[string]bool)

	for _, m := range macros(tokens) {
		switch m.name {
		case "table":
			t, err := parseTable(m.body, cfg)
			if err != nil {
				return nil, err
			}
			if declared[t.Name] {
				return nil, errs.NewSchemaError(position(m.body.Pos), t.Name, "table is declared more than once")
			}
			declared[t.Name] = true
			if cfg.Table(t.Name).Ignore {
				continue
			}
			tables = append(tables, t)
		case "joinable":
			j, err := parseJoin(m.body)
			if err != nil {
				return nil, err
			}
			joins = append(joins, j)
		}
	}

	attachJoins(tables, joins)

	if g != nil {
		for _, t := range tables {
			code, err := g.Generate(t, cfg)
			if err != nil {
				return nil, fmt.Errorf("generate %s: %w", t.Name, err)
			}
			t.GeneratedCode = code
		}
	}
	return tables, nil
}

// attachJoins runs after every table is known, so a joinable! may appear
// before the tables it mentions. Joins with an unknown or ignored side
// are dropped.
func attachJoins(tables []*Table, joins []Join) {
	byName := make(map[string]*Table, len(tables))
	for _, t := range tables {
		byName[t.Name] = t
	}
	for _, j := range joins {
		owner, ok := byName[j.Table]
		if !ok {
			slog.Debug("dropping join: owning table not generated", "table", j.Table, "references", j.References)
			continue
		}
		if _, ok := byName[j.References]; !ok {
			slog.Debug("dropping join: referenced table not generated", "table", j.Table, "references", j.References)
			continue
		}
		owner.addForeignKey(ForeignKey{Table: j.References, Column: j.Column})
	}
}

type macroCall struct {
	name string // last path segment, e.g. "table" for diesel::table!
	body Token
}

// macros returns the top-level `path::name! group` invocations. Every
// other item (use statements, modules, attributes) is skipped.
func macros(tokens []Token) []macroCall {
	var calls []macroCall
	last := ""
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch {
		case tok.Kind == TokenIdent:
			last = tok.Text
		case tok.is(TokenPunct, ":"):
			// path separator, keep the last segment
		case tok.is(TokenPunct, "!") && last != "" && i+1 < len(tokens) && tokens[i+1].Kind == TokenGroup:
			calls = append(calls, macroCall{name: last, body: tokens[i+1]})
			last = ""
			i++
		default:
			last = ""
		}
	}
	return calls
}

// tableState is the scanner state inside a table! body.
type tableState int

const (
	// stateNormal interprets the table name, key group and column group.
	stateNormal tableState = iota
	// stateSkipUntilSemicolon ignores an embedded `use ...;` statement.
	stateSkipUntilSemicolon
	// stateSkipBracketGroup ignores one table-level `#[...]` attribute.
	stateSkipBracketGroup
)

func parseTable(body Token, cfg *config.GenerationConfig) (*Table, error) {
	t := &Table{}
	state := stateNormal
	qualified := false
	havePK, haveColumns := false, false

	fail := func(tok Token, msg string) error {
		return errs.NewSchemaError(position(tok.Pos), t.Name, msg)
	}

	for _, tok := range body.Children {
		switch state {
		case stateSkipUntilSemicolon:
			if tok.is(TokenPunct, ";") {
				state = stateNormal
			}
			continue
		case stateSkipBracketGroup:
			switch {
			case tok.isGroup(DelimBracket):
				state = stateNormal
			case tok.is(TokenPunct, "!"):
				// inner attribute #![...]
			default:
				return nil, fail(tok, fmt.Sprintf("expected attribute group after '#', found %s", tok.describe()))
			}
			continue
		}

		afterDot := qualified
		qualified = false

		switch tok.Kind {
		case TokenPunct:
			switch tok.Text {
			case "#":
				state = stateSkipBracketGroup
			case ".":
				qualified = t.Name != ""
			}
		case TokenIdent:
			switch {
			case tok.Text == "use":
				state = stateSkipUntilSemicolon
			case t.Name == "" || (afterDot && !havePK && !haveColumns):
				// schema.table keeps the table segment
				t.Name = tok.Text
			default:
				return nil, fail(tok, fmt.Sprintf("unexpected identifier %q", tok.Text))
			}
		case TokenGroup:
			if t.Name == "" {
				return nil, fail(tok, "could not extract table name before "+tok.describe())
			}
			switch tok.Delim {
			case DelimParen:
				if havePK {
					return nil, fail(tok, "primary key group declared twice")
				}
				keys, err := parsePrimaryKeys(tok, t.Name)
				if err != nil {
					return nil, err
				}
				t.PrimaryKeys = keys
				havePK = true
			case DelimBrace:
				if haveColumns {
					return nil, fail(tok, "column group declared twice")
				}
				cols, err := parseColumns(tok, t.Name, cfg)
				if err != nil {
					return nil, err
				}
				t.Columns = cols
				haveColumns = true
			default:
				return nil, fail(tok, "invalid delimiter "+tok.describe()+" in table declaration")
			}
		default:
			return nil, fail(tok, fmt.Sprintf("invalid token %s in table declaration", tok.describe()))
		}
	}

	switch {
	case t.Name == "":
		return nil, errs.NewSchemaError(position(body.Pos), "", "could not extract table name")
	case state != stateNormal:
		return nil, errs.NewSchemaError(position(body.Pos), t.Name, "table declaration ends inside a skipped statement")
	case !haveColumns:
		return nil, errs.NewSchemaError(position(body.Pos), t.Name, "missing column group")
	}

	if !havePK {
		// diesel's default primary key
		if _, ok := t.Column("id"); ok {
			t.PrimaryKeys = []string{"id"}
		}
	}
	if len(t.PrimaryKeys) == 0 {
		return nil, errs.NewSchemaError(position(body.Pos), t.Name, "table has no primary key")
	}
	for _, pk := range t.PrimaryKeys {
		if _, ok := t.Column(pk); !ok {
			return nil, errs.NewSchemaError(position(body.Pos), t.Name,
				fmt.Sprintf("primary key %q is not a declared column", pk))
		}
	}

	t.StructName = naming.StructName(t.Name, cfg.SingularStructNames)
	return t, nil
}

func parsePrimaryKeys(group Token, table string) ([]string, error) {
	var keys []string
	for _, tok := range group.Children {
		switch {
		case tok.Kind == TokenIdent:
			keys = append(keys, tok.Text)
		case tok.is(TokenPunct, ","):
		default:
			return nil, errs.NewSchemaError(position(tok.Pos), table,
				fmt.Sprintf("invalid token %s in primary key group", tok.describe()))
		}
	}
	return keys, nil
}

// pendingColumn collects the slots of the column being scanned.
type pendingColumn struct {
	name     string
	typ      string
	sqlName  string
	nullable bool
	unsigned bool
}

func (p pendingColumn) empty() bool {
	return p == pendingColumn{}
}

func (p pendingColumn) complete() bool {
	return p.name != "" && p.typ != ""
}

// columnScanner is the state machine for a `{ name -> Type, ... }` group.
type columnScanner struct {
	table     string
	cfg       *config.GenerationConfig
	pending   pendingColumn
	afterHash bool
	columns   []Column
	seen      map[string]bool
}

func parseColumns(group Token, table string, cfg *config.GenerationConfig) ([]Column, error) {
	s := &columnScanner{table: table, cfg: cfg, seen: make(map[string]bool)}
	for _, tok := range group.Children {
		if err := s.step(tok); err != nil {
			return nil, err
		}
	}
	switch {
	case s.pending.complete():
		if err := s.flush(group); err != nil {
			return nil, err
		}
	case !s.pending.empty():
		return nil, errs.NewSchemaError(position(group.Pos), table, "it seems a column was partially defined")
	}
	return s.columns, nil
}

func (s *columnScanner) step(tok Token) error {
	hash := s.afterHash
	s.afterHash = false

	switch tok.Kind {
	case TokenGroup:
		if hash {
			if key, value, ok := parseAttribute(tok); ok && key == "sql_name" {
				s.pending.sqlName = value
			}
		}
		// other groups, e.g. generic arguments in parentheses, carry no slots
	case TokenIdent:
		switch {
		case s.pending.name == "":
			s.pending.name = tok.Text
		case strings.EqualFold(tok.Text, "Nullable"):
			s.pending.nullable = true
		case strings.EqualFold(tok.Text, "Unsigned"):
			s.pending.unsigned = true
		default:
			// path segments: the last one is the type
			s.pending.typ = tok.Text
		}
	case TokenPunct:
		switch tok.Text {
		case "#":
			s.afterHash = true
		case ",":
			if s.pending.complete() {
				return s.flush(tok)
			}
			if !s.pending.empty() {
				return errs.NewSchemaError(position(tok.Pos), s.table, "it seems a column was partially defined")
			}
		}
	default:
		return errs.NewSchemaError(position(tok.Pos), s.table,
			fmt.Sprintf("invalid column definition token %s", tok.describe()))
	}
	return nil
}

func (s *columnScanner) flush(at Token) error {
	p := s.pending
	s.pending = pendingColumn{}

	if s.seen[p.name] {
		return errs.NewSchemaError(position(at.Pos), s.table, fmt.Sprintf("column %q is declared more than once", p.name))
	}
	s.seen[p.name] = true

	typ, err := MapType(p.typ, s.cfg)
	if err != nil {
		return fmt.Errorf("table %s column %s: %w", s.table, p.name, err)
	}
	sqlName := p.sqlName
	if sqlName == "" {
		sqlName = p.name
	}
	s.columns = append(s.columns, Column{
		Name:     p.name,
		Type:     typ,
		Nullable: p.nullable,
		Unsigned: p.unsigned,
		SQLName:  sqlName,
	})
	return nil
}

// parseAttribute reads `[key = "value"]`. Only literal values are
// supported; surrounding quotes are removed.
func parseAttribute(group Token) (key, value string, ok bool) {
	if !group.isGroup(DelimBracket) || len(group.Children) < 3 {
		return "", "", false
	}
	k, eq, v := group.Children[0], group.Children[1], group.Children[2]
	if k.Kind != TokenIdent || !eq.is(TokenPunct, "=") || v.Kind != TokenLiteral {
		return "", "", false
	}
	value = v.Text
	if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
		value = value[1 : len(value)-1]
	}
	return k.Text, value, true
}

func parseJoin(body Token) (Join, error) {
	var j Join
	haveColumn := false

	for _, tok := range body.Children {
		switch tok.Kind {
		case TokenIdent:
			switch {
			case j.Table == "":
				j.Table = tok.Text
			case j.References == "":
				j.References = tok.Text
			default:
				return Join{}, errs.NewSchemaError(position(tok.Pos), j.Table,
					fmt.Sprintf("unexpected identifier %q in join declaration", tok.Text))
			}
		case TokenGroup:
			if j.Table == "" || j.References == "" {
				return Join{}, errs.NewSchemaError(position(tok.Pos), j.Table, "encountered join column group too early")
			}
			if haveColumn {
				return Join{}, errs.NewSchemaError(position(tok.Pos), j.Table, "join declares more than one column group")
			}
			haveColumn = true
			for _, inner := range tok.Children {
				if inner.Kind == TokenIdent {
					j.Column = inner.Text
					break
				}
			}
		case TokenPunct:
			// "->"
		default:
			return Join{}, errs.NewSchemaError(position(tok.Pos), j.Table,
				fmt.Sprintf("invalid token %s in join declaration", tok.describe()))
		}
	}

	pos := position(body.Pos)
	switch {
	case j.Table == "":
		return Join{}, errs.NewSchemaError(pos, "", "could not determine first join table name")
	case j.References == "":
		return Join{}, errs.NewSchemaError(pos, j.Table, "could not determine second join table name")
	case j.Column == "":
		return Join{}, errs.NewSchemaError(pos, j.Table, "could not determine join column name")
	}
	return j, nil
}
