package querysql

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/sift/internal/ir"
	"github.com/roach88/sift/internal/queryir"
	"github.com/roach88/sift/internal/schema"
)

// Column is one selected column, returned under its attribute name.
type Column struct {
	Attribute string
	Name      string
}

// Source describes the table a Select reads and the tables it may join.
type Source struct {
	Table   string
	Columns []Column
	Key     string            // Tiebreaker column (optional)
	Joins   map[string]string // Joinable table → ON condition
}

// SourceOf derives a Source from an entity declaration.
func SourceOf(e *schema.Entity) Source {
	src := Source{
		Table:   e.Table,
		Columns: make([]Column, len(e.Attributes)),
		Joins:   make(map[string]string, len(e.Joins)),
	}
	for i, a := range e.Attributes {
		src.Columns[i] = Column{Attribute: a.Name, Name: a.Column}
	}
	if key, ok := e.KeyColumn(); ok {
		src.Key = key.Name
	}
	for _, j := range e.Joins {
		src.Joins[j.Table] = j.On
	}
	return src
}

// Select is an immutable SELECT statement that implements queryir.Query.
//
// Every query carries an ORDER BY: requested keys first, then the source
// key ascending as a tiebreaker when it is not already among them.
// Values are always bound, never interpolated.
type Select struct {
	dialect Dialect
	src     Source
	where   []queryir.Predicate
	order   []queryir.OrderKey
	limit   int
}

// NewSelect starts an unfiltered, unordered SELECT over src.
func NewSelect(d Dialect, src Source) Select {
	return Select{dialect: d, src: src}
}

// Filter returns a copy with p added to the WHERE conjunction.
func (s Select) Filter(p queryir.Predicate) queryir.Query {
	s.where = append(slices.Clip(s.where), p)
	return s
}

// OrderBy returns a copy with k appended to the ORDER BY list.
func (s Select) OrderBy(k queryir.OrderKey) queryir.Query {
	s.order = append(slices.Clip(s.order), k)
	return s
}

// Limit returns a copy capped at n rows. Zero means no limit.
func (s Select) Limit(n int) Select {
	s.limit = n
	return s
}

// Dialect reports the dialect the statement renders for.
func (s Select) Dialect() Dialect { return s.dialect }

// Compile renders the statement. Returns (sql, args, error).
func (s Select) Compile() (string, []any, error) {
	if s.src.Table == "" {
		return "", nil, fmt.Errorf("select has no source table")
	}
	for i, p := range s.where {
		if err := queryir.Validate(p); err != nil {
			return "", nil, fmt.Errorf("predicate %d: %w", i, err)
		}
	}

	b := &builder{dialect: s.dialect, src: s.src}

	var where []string
	for _, p := range s.where {
		frag, err := b.predicate(p)
		if err != nil {
			return "", nil, err
		}
		where = append(where, frag)
	}

	var order []string
	keyed := false
	for _, k := range s.order {
		col, err := b.column(k.Column)
		if err != nil {
			return "", nil, err
		}
		dir := "ASC"
		if k.Direction == queryir.Desc {
			dir = "DESC"
		}
		order = append(order, col+" "+dir)
		if s.src.Key != "" && b.table(k.Column) == s.src.Table && k.Column.Name == s.src.Key {
			keyed = true
		}
	}
	if s.src.Key != "" && !keyed {
		order = append(order, Quote(s.src.Table)+"."+Quote(s.src.Key)+" ASC")
	}

	var sql strings.Builder
	sql.WriteString("SELECT ")
	sql.WriteString(s.selectList())
	sql.WriteString(" FROM ")
	sql.WriteString(Quote(s.src.Table))
	for _, t := range b.joined {
		fmt.Fprintf(&sql, " JOIN %s ON %s", Quote(t), s.src.Joins[t])
	}
	if len(where) > 0 {
		sql.WriteString(" WHERE ")
		sql.WriteString(strings.Join(where, " AND "))
	}
	if len(order) > 0 {
		sql.WriteString(" ORDER BY ")
		sql.WriteString(strings.Join(order, ", "))
	}
	if s.limit > 0 {
		sql.WriteString(" LIMIT ")
		sql.WriteString(strconv.Itoa(s.limit))
	}
	return sql.String(), b.args, nil
}

func (s Select) selectList() string {
	table := Quote(s.src.Table)
	if len(s.src.Columns) == 0 {
		return table + ".*"
	}
	parts := make([]string, len(s.src.Columns))
	for i, c := range s.src.Columns {
		parts[i] = table + "." + Quote(c.Name)
		if c.Attribute != "" && c.Attribute != c.Name {
			parts[i] += " AS " + Quote(c.Attribute)
		}
	}
	return strings.Join(parts, ", ")
}

// builder accumulates bound arguments and the joins referenced so far.
type builder struct {
	dialect Dialect
	src     Source
	args    []any
	joined  []string
}

func (b *builder) bind(v ir.Value) string {
	b.args = append(b.args, ir.Native(v))
	return b.dialect.placeholder(len(b.args))
}

func (b *builder) table(c queryir.Column) string {
	if c.Table == "" {
		return b.src.Table
	}
	return c.Table
}

// column quotes c and records the join it needs.
func (b *builder) column(c queryir.Column) (string, error) {
	t := b.table(c)
	if t != b.src.Table && !slices.Contains(b.joined, t) {
		if _, ok := b.src.Joins[t]; !ok {
			return "", fmt.Errorf("no join from %q to %q", b.src.Table, t)
		}
		b.joined = append(b.joined, t)
	}
	return Quote(t) + "." + Quote(c.Name), nil
}

func (b *builder) predicate(p queryir.Predicate) (string, error) {
	switch pred := p.(type) {
	case queryir.Compare:
		return b.compare(pred)
	case queryir.AnyOf:
		if len(pred.Predicates) == 0 {
			return "1 = 0", nil
		}
		parts := make([]string, len(pred.Predicates))
		for i, sub := range pred.Predicates {
			frag, err := b.predicate(sub)
			if err != nil {
				return "", err
			}
			parts[i] = frag
		}
		return "(" + strings.Join(parts, " OR ") + ")", nil
	default:
		return "", fmt.Errorf("unsupported predicate type: %T", p)
	}
}

var binaryOps = map[queryir.Comparison]string{
	queryir.Eq:   "=",
	queryir.Ne:   "<>",
	queryir.Gt:   ">",
	queryir.Gte:  ">=",
	queryir.Lt:   "<",
	queryir.Lte:  "<=",
	queryir.Like: "LIKE",
}

func (b *builder) compare(c queryir.Compare) (string, error) {
	col, err := b.column(c.Column)
	if err != nil {
		return "", err
	}

	if op, ok := binaryOps[c.Op]; ok {
		return col + " " + op + " " + b.bind(c.Value), nil
	}

	switch c.Op {
	case queryir.In, queryir.NotIn:
		list, _ := c.Value.(ir.List)
		if len(list) == 0 {
			if c.Op == queryir.In {
				return "1 = 0", nil
			}
			return "1 = 1", nil
		}
		marks := make([]string, len(list))
		for i, v := range list {
			marks[i] = b.bind(v)
		}
		op := " IN ("
		if c.Op == queryir.NotIn {
			op = " NOT IN ("
		}
		return col + op + strings.Join(marks, ", ") + ")", nil
	case queryir.IsNull:
		return col + " IS NULL", nil
	case queryir.IsNotNull:
		return col + " IS NOT NULL", nil
	case queryir.ILike:
		if b.dialect == Postgres {
			return col + " ILIKE " + b.bind(c.Value), nil
		}
		return "LOWER(" + col + ") LIKE LOWER(" + b.bind(c.Value) + ")", nil
	case queryir.IsNot:
		if b.dialect == Postgres {
			return col + " IS DISTINCT FROM " + b.bind(c.Value), nil
		}
		return col + " IS NOT " + b.bind(c.Value), nil
	default:
		return "", fmt.Errorf("unsupported comparison %s", c.Op)
	}
}
