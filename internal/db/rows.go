package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the storage type of a column
type Kind int

const (
	Text Kind = iota
	Int
	Float
	Bool
)

type Column struct {
	Name string
	Kind Kind
}

// Table describes a collection exposed by the data service
type Table struct {
	Name    string
	Key     []string
	Columns []Column
}

// Row is one record keyed by column name
type Row map[string]any

var (
	ErrUnknownTable  = errors.New("unknown collection")
	ErrUnknownColumn = errors.New("unknown column")
)

// Tables lists every collection the data service serves
var Tables = map[string]Table{
	"folders": {Name: "folders", Key: []string{"id"}, Columns: []Column{
		{"id", Text}, {"user_id", Text}, {"name", Text}, {"order_index", Int}, {"created_at", Text},
	}},
	"lists": {Name: "lists", Key: []string{"id"}, Columns: []Column{
		{"id", Text}, {"user_id", Text}, {"name", Text}, {"folder_id", Text}, {"order_index", Int}, {"created_at", Text},
	}},
	"tags": {Name: "tags", Key: []string{"id"}, Columns: []Column{
		{"id", Text}, {"user_id", Text}, {"name", Text}, {"color", Text}, {"created_at", Text},
	}},
	"tasks": {Name: "tasks", Key: []string{"id"}, Columns: []Column{
		{"id", Text}, {"user_id", Text}, {"title", Text}, {"description", Text}, {"status", Text},
		{"priority", Text}, {"due_date", Text}, {"due_time", Text}, {"end_date", Text}, {"end_time", Text},
		{"list_id", Text}, {"parent_id", Text}, {"order_index", Int}, {"is_project", Bool},
		{"created_at", Text}, {"updated_at", Text},
	}},
	"task_tags": {Name: "task_tags", Key: []string{"task_id", "tag_id"}, Columns: []Column{
		{"task_id", Text}, {"tag_id", Text}, {"user_id", Text},
	}},
	"user_settings": {Name: "user_settings", Key: []string{"user_id"}, Columns: []Column{
		{"user_id", Text}, {"pixels_per_hour", Float}, {"work_start_hour", Int}, {"work_end_hour", Int},
		{"hide_night_hours", Bool}, {"updated_at", Text},
	}},
}

// LookupTable returns the collection named name
func LookupTable(name string) (Table, error) {
	t, ok := Tables[name]
	if !ok {
		return Table{}, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	return t, nil
}

// Column returns the column named name
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Has reports whether the table has a column named name
func (t Table) Has(name string) bool {
	_, ok := t.Column(name)
	return ok
}

func (t Table) isKey(name string) bool {
	for _, k := range t.Key {
		if k == name {
			return true
		}
	}
	return false
}

// Cond is a WHERE condition: Op is "eq", "is" (null only) or "in"
type Cond struct {
	Column string
	Op     string
	Values []string
}

// OrderBy sorts a select
type OrderBy struct {
	Column string
	Desc   bool
}

type builder struct {
	db   *DB
	args []any
}

func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	return b.db.placeholder(len(b.args))
}

func (b *builder) where(t Table, conds []Cond) (string, error) {
	if len(conds) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		col, ok := t.Column(c.Column)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownColumn, c.Column)
		}
		switch c.Op {
		case "eq":
			if len(c.Values) != 1 {
				return "", fmt.Errorf("eq on %s needs one value", c.Column)
			}
			v, err := parseValue(col.Kind, c.Values[0])
			if err != nil {
				return "", err
			}
			parts = append(parts, col.Name+" = "+b.bind(v))
		case "is":
			parts = append(parts, col.Name+" IS NULL")
		case "in":
			if len(c.Values) == 0 {
				parts = append(parts, "1 = 0")
				continue
			}
			holders := make([]string, len(c.Values))
			for i, raw := range c.Values {
				v, err := parseValue(col.Kind, raw)
				if err != nil {
					return "", err
				}
				holders[i] = b.bind(v)
			}
			parts = append(parts, col.Name+" IN ("+strings.Join(holders, ", ")+")")
		default:
			return "", fmt.Errorf("unsupported operator %q", c.Op)
		}
	}
	return " WHERE " + strings.Join(parts, " AND "), nil
}

func parseValue(k Kind, raw string) (any, error) {
	switch k {
	case Int:
		return strconv.ParseInt(raw, 10, 64)
	case Float:
		return strconv.ParseFloat(raw, 64)
	case Bool:
		return strconv.ParseBool(raw)
	}
	return raw, nil
}

// SelectRows returns the rows of t matching conds
func (db *DB) SelectRows(ctx context.Context, t Table, conds []Cond, order []OrderBy, limit int) ([]Row, error) {
	b := &builder{db: db}
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	query := "SELECT " + strings.Join(names, ", ") + " FROM " + t.Name
	where, err := b.where(t, conds)
	if err != nil {
		return nil, err
	}
	query += where

	if len(order) > 0 {
		parts := make([]string, len(order))
		for i, o := range order {
			if !t.Has(o.Column) {
				return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, o.Column)
			}
			parts[i] = o.Column
			if o.Desc {
				parts[i] += " DESC"
			}
		}
		query += " ORDER BY " + strings.Join(parts, ", ")
	}
	if limit > 0 {
		query += " LIMIT " + strconv.Itoa(limit)
	}

	rows, err := db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		dest := make([]any, len(t.Columns))
		for i := range dest {
			dest[i] = new(any)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		r := make(Row, len(t.Columns))
		for i, c := range t.Columns {
			r[c.Name] = normalize(c.Kind, *(dest[i].(*any)))
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// normalize converts driver values into JSON friendly Go values
func normalize(k Kind, v any) any {
	if v == nil {
		return nil
	}
	switch k {
	case Bool:
		switch b := v.(type) {
		case bool:
			return b
		case int64:
			return b != 0
		}
	case Int:
		switch n := v.(type) {
		case int64:
			return n
		case int32:
			return int64(n)
		case float64:
			return int64(n)
		}
	case Float:
		switch n := v.(type) {
		case float64:
			return n
		case float32:
			return float64(n)
		case int64:
			return float64(n)
		}
	case Text:
		if raw, ok := v.([]byte); ok {
			return string(raw)
		}
	}
	return v
}

// coerce converts a decoded JSON value into the column's storage type
func coerce(c Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch c.Kind {
	case Int:
		switch n := v.(type) {
		case float64:
			if n != float64(int64(n)) {
				return nil, fmt.Errorf("column %s: %v is not an integer", c.Name, n)
			}
			return int64(n), nil
		case int:
			return int64(n), nil
		case int64:
			return n, nil
		}
	case Float:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
	case Bool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case Text:
		if s, ok := v.(string); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("column %s: unexpected value %v (%T)", c.Name, v, v)
}

// InsertRows inserts rows into t in one transaction. With upsert, rows
// conflicting on the table key are merged instead.
func (db *DB) InsertRows(ctx context.Context, t Table, rows []Row, upsert bool) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range rows {
		b := &builder{db: db}
		var cols, holders, updates []string
		for _, c := range t.Columns {
			v, ok := r[c.Name]
			if !ok {
				continue
			}
			v, err := coerce(c, v)
			if err != nil {
				return err
			}
			cols = append(cols, c.Name)
			holders = append(holders, b.bind(v))
			if !t.isKey(c.Name) {
				updates = append(updates, c.Name+" = excluded."+c.Name)
			}
		}
		if len(cols) == 0 {
			return errors.New("insert without columns")
		}
		query := "INSERT INTO " + t.Name + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(holders, ", ") + ")"
		if upsert {
			query += " ON CONFLICT (" + strings.Join(t.Key, ", ") + ")"
			if len(updates) > 0 {
				query += " DO UPDATE SET " + strings.Join(updates, ", ")
			} else {
				query += " DO NOTHING"
			}
		}
		if _, err := tx.ExecContext(ctx, query, b.args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpdateRows applies patch to the rows of t matching conds
func (db *DB) UpdateRows(ctx context.Context, t Table, patch Row, conds []Cond) (int64, error) {
	b := &builder{db: db}
	var sets []string
	for _, c := range t.Columns {
		v, ok := patch[c.Name]
		if !ok {
			continue
		}
		v, err := coerce(c, v)
		if err != nil {
			return 0, err
		}
		sets = append(sets, c.Name+" = "+b.bind(v))
	}
	if len(sets) == 0 {
		return 0, nil
	}
	where, err := b.where(t, conds)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, "UPDATE "+t.Name+" SET "+strings.Join(sets, ", ")+where, b.args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteRows removes the rows of t matching conds
func (db *DB) DeleteRows(ctx context.Context, t Table, conds []Cond) (int64, error) {
	b := &builder{db: db}
	where, err := b.where(t, conds)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, "DELETE FROM "+t.Name+where, b.args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// IsConstraint reports whether err is a uniqueness or foreign key violation
func IsConstraint(err error) bool {
	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "constraint") || strings.Contains(msg, "duplicate key") || strings.Contains(msg, "violates")
}
