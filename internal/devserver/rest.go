package devserver

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/tgienger/pulse/internal/db"
)

const ownerColumn = "user_id"

// reserved query parameters that are not filters
var reserved = map[string]bool{"order": true, "limit": true, "select": true, "offset": true, "on_conflict": true, "columns": true}

// request is the parsed, owner-scoped form of a collection call
type request struct {
	table  db.Table
	owner  string
	conds  []db.Cond
	order  []db.OrderBy
	limit  int
	prefer map[string]string
}

func (s *Server) parse(c echo.Context) (*request, error) {
	cl, err := s.authenticate(c)
	if err != nil {
		return nil, fail(c, http.StatusUnauthorized, "PGRST301", err.Error())
	}
	t, err := db.LookupTable(c.Param("collection"))
	if err != nil {
		return nil, fail(c, http.StatusNotFound, "PGRST205", err.Error())
	}
	conds, order, limit, err := parseQuery(c.Request().URL.Query())
	if err != nil {
		return nil, fail(c, http.StatusBadRequest, "PGRST100", err.Error())
	}
	return &request{
		table:  t,
		owner:  cl.UserID,
		conds:  append(conds, db.Cond{Column: ownerColumn, Op: "eq", Values: []string{cl.UserID}}),
		order:  order,
		limit:  limit,
		prefer: parsePrefer(c.Request().Header.Values("Prefer")),
	}, nil
}

func (s *Server) selectRows(c echo.Context) error {
	r, err := s.parse(c)
	if r == nil {
		return err
	}
	rows, err := s.db.SelectRows(c.Request().Context(), r.table, r.conds, r.order, r.limit)
	if err != nil {
		return s.storageError(c, err)
	}
	if rows == nil {
		rows = []db.Row{}
	}
	return c.JSON(http.StatusOK, rows)
}

func (s *Server) insertRows(c echo.Context) error {
	r, err := s.parse(c)
	if r == nil {
		return err
	}
	rows, err := decodeRows(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "PGRST102", err.Error())
	}
	ctx := c.Request().Context()
	upsert := r.prefer["resolution"] == "merge-duplicates"
	stamp := s.now().UTC().Format(time.RFC3339Nano)

	for _, row := range rows {
		for name := range row {
			if !r.table.Has(name) {
				return fail(c, http.StatusBadRequest, "PGRST204", fmt.Sprintf("Could not find the '%s' column of '%s'", name, r.table.Name))
			}
		}
		row[ownerColumn] = r.owner
		for _, col := range []string{"created_at", "updated_at"} {
			if r.table.Has(col) && (row[col] == nil || row[col] == "") {
				row[col] = stamp
			}
		}
		if upsert {
			owned, err := s.ownsKey(c, r, row)
			if err != nil {
				return s.storageError(c, err)
			}
			if !owned {
				return fail(c, http.StatusForbidden, "42501", "new row violates row-level security policy")
			}
		}
	}

	if err := s.db.InsertRows(ctx, r.table, rows, upsert); err != nil {
		return s.storageError(c, err)
	}
	s.log.WithFields(log.Fields{"collection": r.table.Name, "rows": len(rows), "upsert": upsert}).Debug("rest.insert")

	if r.prefer["return"] != "representation" {
		return c.NoContent(http.StatusCreated)
	}
	out := make([]db.Row, 0, len(rows))
	for _, row := range rows {
		got, err := s.db.SelectRows(ctx, r.table, keyConds(r.table, row, r.owner), nil, 1)
		if err != nil {
			return s.storageError(c, err)
		}
		out = append(out, got...)
	}
	return c.JSON(http.StatusCreated, out)
}

func (s *Server) updateRows(c echo.Context) error {
	r, err := s.parse(c)
	if r == nil {
		return err
	}
	var patch db.Row
	if err := decode(c, &patch); err != nil {
		return fail(c, http.StatusBadRequest, "PGRST102", "invalid body")
	}
	for name := range patch {
		if !r.table.Has(name) {
			return fail(c, http.StatusBadRequest, "PGRST204", fmt.Sprintf("Could not find the '%s' column of '%s'", name, r.table.Name))
		}
	}
	// ownership never moves
	delete(patch, ownerColumn)
	if r.table.Has("updated_at") {
		if _, ok := patch["updated_at"]; !ok {
			patch["updated_at"] = s.now().UTC().Format(time.RFC3339Nano)
		}
	}

	n, err := s.db.UpdateRows(c.Request().Context(), r.table, patch, r.conds)
	if err != nil {
		return s.storageError(c, err)
	}
	s.log.WithFields(log.Fields{"collection": r.table.Name, "rows": n}).Debug("rest.update")
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) deleteRows(c echo.Context) error {
	r, err := s.parse(c)
	if r == nil {
		return err
	}
	// a bare DELETE would wipe the collection
	if len(r.conds) == 1 {
		return fail(c, http.StatusBadRequest, "21000", "DELETE requires a WHERE clause")
	}
	n, err := s.db.DeleteRows(c.Request().Context(), r.table, r.conds)
	if err != nil {
		return s.storageError(c, err)
	}
	s.log.WithFields(log.Fields{"collection": r.table.Name, "rows": n}).Debug("rest.delete")
	return c.NoContent(http.StatusNoContent)
}

// ownsKey reports whether the row's key is free or already owned by the caller
func (s *Server) ownsKey(c echo.Context, r *request, row db.Row) (bool, error) {
	conds := make([]db.Cond, 0, len(r.table.Key))
	for _, k := range r.table.Key {
		v, ok := row[k].(string)
		if !ok {
			return true, nil
		}
		conds = append(conds, db.Cond{Column: k, Op: "eq", Values: []string{v}})
	}
	existing, err := s.db.SelectRows(c.Request().Context(), r.table, conds, nil, 1)
	if err != nil {
		return false, err
	}
	return len(existing) == 0 || existing[0][ownerColumn] == r.owner, nil
}

func keyConds(t db.Table, row db.Row, owner string) []db.Cond {
	conds := []db.Cond{{Column: ownerColumn, Op: "eq", Values: []string{owner}}}
	for _, k := range t.Key {
		if k == ownerColumn {
			continue
		}
		conds = append(conds, db.Cond{Column: k, Op: "eq", Values: []string{fmt.Sprint(row[k])}})
	}
	return conds
}

func (s *Server) storageError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, db.ErrUnknownColumn):
		return fail(c, http.StatusBadRequest, "PGRST204", err.Error())
	case db.IsConstraint(err):
		return fail(c, http.StatusConflict, "23505", err.Error())
	}
	s.log.WithError(err).Error("rest.storage")
	return fail(c, http.StatusInternalServerError, "XX000", "storage error")
}

// decodeRows accepts a single object or an array of objects
func decodeRows(c echo.Context) ([]db.Row, error) {
	var body any
	if err := decode(c, &body); err != nil {
		return nil, errors.New("invalid body")
	}
	switch v := body.(type) {
	case map[string]any:
		return []db.Row{v}, nil
	case []any:
		rows := make([]db.Row, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, errors.New("array items must be objects")
			}
			rows = append(rows, m)
		}
		if len(rows) == 0 {
			return nil, errors.New("empty insert")
		}
		return rows, nil
	}
	return nil, errors.New("body must be an object or an array")
}

// parseQuery turns filter, order and limit params into storage conditions
func parseQuery(q url.Values) ([]db.Cond, []db.OrderBy, int, error) {
	var conds []db.Cond
	for col, values := range q {
		if reserved[col] {
			continue
		}
		for _, raw := range values {
			cond, err := parseFilter(col, raw)
			if err != nil {
				return nil, nil, 0, err
			}
			conds = append(conds, cond)
		}
	}

	var order []db.OrderBy
	if raw := q.Get("order"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			fields := strings.Split(part, ".")
			o := db.OrderBy{Column: fields[0]}
			for _, mod := range fields[1:] {
				switch mod {
				case "asc", "nullsfirst", "nullslast":
				case "desc":
					o.Desc = true
				default:
					return nil, nil, 0, fmt.Errorf("invalid order modifier %q", mod)
				}
			}
			order = append(order, o)
		}
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, nil, 0, fmt.Errorf("invalid limit %q", raw)
		}
		limit = n
	}
	return conds, order, limit, nil
}

func parseFilter(col, raw string) (db.Cond, error) {
	op, value, ok := strings.Cut(raw, ".")
	if !ok {
		return db.Cond{}, fmt.Errorf("invalid filter %s=%s", col, raw)
	}
	switch op {
	case "eq":
		return db.Cond{Column: col, Op: "eq", Values: []string{value}}, nil
	case "is":
		if value != "null" {
			return db.Cond{}, fmt.Errorf("only is.null is supported, got is.%s", value)
		}
		return db.Cond{Column: col, Op: "is"}, nil
	case "in":
		values, err := parseList(value)
		if err != nil {
			return db.Cond{}, err
		}
		return db.Cond{Column: col, Op: "in", Values: values}, nil
	}
	return db.Cond{}, fmt.Errorf("unsupported operator %q", op)
}

// parseList splits an in.(a,"b,c") list honoring double quotes
func parseList(raw string) ([]string, error) {
	if len(raw) < 2 || raw[0] != '(' || raw[len(raw)-1] != ')' {
		return nil, fmt.Errorf("invalid list %q", raw)
	}
	body := raw[1 : len(raw)-1]
	if body == "" {
		return nil, nil
	}
	var (
		out    []string
		cur    strings.Builder
		quoted bool
	)
	for i := 0; i < len(body); i++ {
		ch := body[i]
		switch {
		case ch == '\\' && quoted && i+1 < len(body):
			i++
			cur.WriteByte(body[i])
		case ch == '"':
			quoted = !quoted
		case ch == ',' && !quoted:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quote in %q", raw)
	}
	return append(out, cur.String()), nil
}

func parsePrefer(headers []string) map[string]string {
	out := map[string]string{}
	for _, h := range headers {
		for _, part := range strings.Split(h, ",") {
			k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
			if ok {
				out[k] = v
			}
		}
	}
	return out
}
