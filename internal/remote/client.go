package remote

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// Collections consumed by the client
const (
	Tasks        = "tasks"
	Tags         = "tags"
	Lists        = "lists"
	Folders      = "folders"
	TaskTags     = "task_tags"
	UserSettings = "user_settings"
)

// Filter restricts a query to matching rows
type Filter struct {
	Column string
	Op     string
	Value  string
}

// Eq matches rows whose column equals value
func Eq(column, value string) Filter {
	return Filter{Column: column, Op: "eq", Value: value}
}

// IsNull matches rows whose column is null
func IsNull(column string) Filter {
	return Filter{Column: column, Op: "is", Value: "null"}
}

// In matches rows whose column is one of values
func In(column string, values ...string) Filter {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quote(v)
	}
	return Filter{Column: column, Op: "in", Value: "(" + strings.Join(quoted, ",") + ")"}
}

func (f Filter) encode() string {
	return f.Op + "." + f.Value
}

func quote(v string) string {
	if strings.ContainsAny(v, ",()\"") {
		return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	return v
}

// Order sorts query results
type Order struct {
	Column string
	Desc   bool
}

// Query describes a select
type Query struct {
	Filters []Filter
	Order   []Order
	Limit   int
}

func (q Query) values() url.Values {
	v := filterValues(q.Filters)
	if len(q.Order) > 0 {
		parts := make([]string, len(q.Order))
		for i, o := range q.Order {
			dir := "asc"
			if o.Desc {
				dir = "desc"
			}
			parts[i] = o.Column + "." + dir
		}
		v.Set("order", strings.Join(parts, ","))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

func filterValues(filters []Filter) url.Values {
	v := url.Values{}
	for _, f := range filters {
		v.Add(f.Column, f.encode())
	}
	return v
}

// TokenSource supplies the bearer token for data requests
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client talks to the hosted data service's collection API
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client

	tokens TokenSource
	log    log.FieldLogger
}

// NewClient creates a collection client
func NewClient(baseURL, apiKey string, tokens TokenSource, logger log.FieldLogger) *Client {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{},
		tokens:  tokens,
		log:     logger,
	}
}

// Select loads rows of collection into out (a pointer to a slice)
func (c *Client) Select(ctx context.Context, collection string, q Query, out any) error {
	return c.do(ctx, http.MethodGet, "select", collection, q.values(), nil, "", out)
}

// Insert adds rows and decodes the inserted representation into out when non-nil
func (c *Client) Insert(ctx context.Context, collection string, rows any, out any) error {
	prefer := "return=minimal"
	if out != nil {
		prefer = "return=representation"
	}
	return c.do(ctx, http.MethodPost, "insert", collection, nil, rows, prefer, out)
}

// Upsert inserts rows, merging into existing rows on primary key conflicts
func (c *Client) Upsert(ctx context.Context, collection string, rows any) error {
	return c.do(ctx, http.MethodPost, "upsert", collection, nil, rows, "resolution=merge-duplicates,return=minimal", nil)
}

// Update applies patch to every row matching filters
func (c *Client) Update(ctx context.Context, collection string, patch any, filters ...Filter) error {
	return c.do(ctx, http.MethodPatch, "update", collection, filterValues(filters), patch, "return=minimal", nil)
}

// Delete removes every row matching filters
func (c *Client) Delete(ctx context.Context, collection string, filters ...Filter) error {
	return c.do(ctx, http.MethodDelete, "delete", collection, filterValues(filters), nil, "", nil)
}

func (c *Client) do(ctx context.Context, method, verb, collection string, params url.Values, body any, prefer string, out any) error {
	token := ""
	if c.tokens != nil {
		var err error
		token, err = c.tokens.AccessToken(ctx)
		if err != nil {
			return err
		}
	}
	if token == "" {
		token = c.APIKey
	}

	u := c.BaseURL + "/rest/v1/" + url.PathEscape(collection)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	headers := map[string]string{
		"apikey":        c.APIKey,
		"Authorization": "Bearer " + token,
	}
	if prefer != "" {
		headers["Prefer"] = prefer
	}

	err := send(ctx, c.HTTP, request{
		method:  method,
		url:     u,
		span:    "remote." + verb,
		headers: headers,
		body:    body,
		out:     out,
		attrs:   []attribute.KeyValue{attribute.String("db.collection.name", collection)},
	})
	if err != nil {
		c.log.WithFields(log.Fields{"collection": collection, "verb": verb}).WithError(err).Debug("remote.request.failed")
	}
	return err
}
