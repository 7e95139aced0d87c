// Package storage provides row sources for the table: a SQL query builder
// shared by the SQL loaders, a SQLite loader and an in-memory loader.
package storage

import (
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/artpar/searchtable/core/defaults"
	"github.com/artpar/searchtable/core/field"
	"github.com/artpar/searchtable/core/table"
)

// Placeholder is the bind parameter style of a SQL dialect.
type Placeholder int

const (
	// Question is "?" (SQLite, MySQL).
	Question Placeholder = iota
	// Dollar is "$1", "$2", ... (PostgreSQL).
	Dollar
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Query builds the SELECT and COUNT statements for one load. Only listed
// columns may be filtered, searched or sorted on; other keys are ignored.
type Query struct {
	Table       string
	Columns     []string
	Key         string
	Placeholder Placeholder
}

// Statement is SQL text and its arguments.
type Statement struct {
	SQL  string
	Args []any
}

// NewQuery validates the identifiers of a query. key is the row key column
// used as the final sort tie-break; it may be empty.
func NewQuery(tableName string, columns []string, key string, ph Placeholder) (Query, error) {
	if !identRe.MatchString(tableName) {
		return Query{}, fmt.Errorf("invalid table name %q", tableName)
	}
	if len(columns) == 0 {
		return Query{}, fmt.Errorf("table %s: no columns", tableName)
	}
	cols := make([]string, 0, len(columns))
	for _, c := range columns {
		if !identRe.MatchString(c) {
			return Query{}, fmt.Errorf("invalid column name %q", c)
		}
		if !slices.Contains(cols, c) {
			cols = append(cols, c)
		}
	}
	if key != "" && !slices.Contains(cols, key) {
		return Query{}, fmt.Errorf("row key %q is not a column of %s", key, tableName)
	}
	return Query{Table: tableName, Columns: cols, Key: key, Placeholder: ph}, nil
}

// Columns returns the column keys of a table schema, row key first when it
// is not already listed.
func Columns(t []field.TableField, key string) []string {
	cols := make([]string, 0, len(t)+1)
	if key != "" {
		cols = append(cols, key)
	}
	for _, f := range t {
		if f.Key != "" && !slices.Contains(cols, f.Key) {
			cols = append(cols, f.Key)
		}
	}
	return cols
}

// Build returns the page query and the matching count query.
func (q Query) Build(p table.LoadParams) (rows, count Statement) {
	b := &builder{ph: q.Placeholder}
	where := q.where(b, p)

	var sb strings.Builder
	sb.WriteString("SELECT ")
	for i, c := range q.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(quote(c))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(quote(q.Table))
	sb.WriteString(where)
	sb.WriteString(q.orderBy(p.Sorts))
	if size := p.Pagination.PageSize; size > 0 {
		fmt.Fprintf(&sb, " LIMIT %d OFFSET %d", size, p.Pagination.Offset())
	}

	rows = Statement{SQL: sb.String(), Args: b.args}
	count = Statement{
		SQL:  "SELECT COUNT(*) FROM " + quote(q.Table) + where,
		Args: slices.Clone(b.args),
	}
	return rows, count
}

func (q Query) where(b *builder, p table.LoadParams) string {
	var conds []string

	for _, k := range sortedKeys(p.Filters) {
		if c := q.cond(b, k, p.Filters[k], false); c != "" {
			conds = append(conds, c)
		}
	}
	for _, k := range sortedKeys(p.Search) {
		if c := q.cond(b, k, p.Search[k], true); c != "" {
			conds = append(conds, c)
		}
	}

	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// cond renders one condition. Slices become IN lists; search strings match
// as substrings.
func (q Query) cond(b *builder, key string, v any, search bool) string {
	if !slices.Contains(q.Columns, key) || defaults.IsEmpty(v) {
		return ""
	}
	col := quote(key)

	if list, ok := asList(v); ok {
		if len(list) == 0 {
			return ""
		}
		ph := make([]string, len(list))
		for i, item := range list {
			ph[i] = b.arg(item)
		}
		return col + " IN (" + strings.Join(ph, ", ") + ")"
	}

	if s, ok := v.(string); ok && search {
		pattern := b.arg("%" + escapeLike(s) + "%")
		if q.Placeholder == Dollar {
			// LIKE is case-sensitive and text-only in PostgreSQL.
			return "CAST(" + col + " AS TEXT) ILIKE " + pattern + ` ESCAPE '\'`
		}
		return col + " LIKE " + pattern + ` ESCAPE '\'`
	}
	return col + " = " + b.arg(v)
}

func (q Query) orderBy(sorts []defaults.SortItem) string {
	var parts []string
	seen := map[string]bool{}
	for _, s := range sorts {
		if !slices.Contains(q.Columns, s.Key) || seen[s.Key] {
			continue
		}
		seen[s.Key] = true
		dir := "ASC"
		if s.Order == field.Descend {
			dir = "DESC"
		}
		parts = append(parts, quote(s.Key)+" "+dir)
	}
	if q.Key != "" && !seen[q.Key] {
		parts = append(parts, quote(q.Key)+" ASC")
	}
	if len(parts) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

type builder struct {
	ph   Placeholder
	args []any
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	if b.ph == Dollar {
		return "$" + strconv.Itoa(len(b.args))
	}
	return "?"
}

func quote(ident string) string {
	return `"` + ident + `"`
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// asList returns the elements of a slice or array value.
func asList(v any) ([]any, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func sortedKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
