// Package share turns a connection, a query and its column renames into a
// URL-safe token and back.
package share

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/sqlpeek/sqlpeek/internal/observability"
	"github.com/sqlpeek/sqlpeek/internal/query"
	"github.com/sqlpeek/sqlpeek/internal/view"
)

// Param is the URL query parameter that carries a token.
const Param = "shared"

type ShareableQuery struct {
	Config        query.ConnectionConfig `json:"config"`
	Query         string                 `json:"query"`
	Timestamp     int64                  `json:"timestamp"`
	ColumnRenames view.Renames           `json:"columnRenames"`
}

func New(cfg query.ConnectionConfig, sql string, renames view.Renames, now time.Time) ShareableQuery {
	copied := make(view.Renames, len(renames))
	for column, alias := range renames {
		copied[column] = alias
	}
	return ShareableQuery{
		Config:        cfg,
		Query:         sql,
		Timestamp:     now.UnixMilli(),
		ColumnRenames: copied,
	}
}

func (q ShareableQuery) CreatedAt() time.Time {
	return time.UnixMilli(q.Timestamp).UTC()
}

// DecodeError reports which step of the decode chain rejected a token.
type DecodeError struct {
	Stage string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode share token: %s: %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Encode serializes q as JSON, percent-escapes it and applies unpadded
// URL-safe base64.
func Encode(q ShareableQuery) (string, error) {
	if q.ColumnRenames == nil {
		q.ColumnRenames = view.Renames{}
	}
	payload, err := json.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("encode share token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString([]byte(url.QueryEscape(string(payload)))), nil
}

// Parse inverts Encode. Tokens in the padded or standard base64 alphabet are
// accepted as well.
func Parse(token string) (ShareableQuery, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return ShareableQuery{}, &DecodeError{Stage: "token", Err: errors.New("empty token")}
	}
	raw, err := decodeBase64(token)
	if err != nil {
		return ShareableQuery{}, &DecodeError{Stage: "base64", Err: err}
	}
	text, err := url.QueryUnescape(string(raw))
	if err != nil {
		return ShareableQuery{}, &DecodeError{Stage: "unescape", Err: err}
	}
	var q ShareableQuery
	if err := json.Unmarshal([]byte(text), &q); err != nil {
		return ShareableQuery{}, &DecodeError{Stage: "json", Err: err}
	}
	if q.ColumnRenames == nil {
		q.ColumnRenames = view.Renames{}
	}
	return q, nil
}

func decodeBase64(token string) ([]byte, error) {
	// A "+" that went through a query string unescaped arrives as a space.
	token = strings.ReplaceAll(token, " ", "+")
	normalized := strings.TrimRight(token, "=")
	normalized = strings.NewReplacer("+", "-", "/", "_").Replace(normalized)
	return base64.RawURLEncoding.DecodeString(normalized)
}

// Codec decodes tokens without ever returning an error: malformed input is
// logged and reported as absent.
type Codec struct {
	Logger *slog.Logger
}

func (c Codec) Decode(token string) (ShareableQuery, bool) {
	q, err := Parse(token)
	if err != nil {
		observability.IncrementShareDecodeFailure()
		logger := c.Logger
		if logger == nil {
			logger = slog.Default()
		}
		stage := ""
		var decodeErr *DecodeError
		if errors.As(err, &decodeErr) {
			stage = decodeErr.Stage
		}
		logger.Warn("failed to decode share token",
			slog.String("stage", stage),
			slog.Int("token_length", len(token)),
			slog.String("error", err.Error()),
		)
		return ShareableQuery{}, false
	}
	return q, true
}

// Link appends the token to baseURL as the shared parameter, replacing any
// existing value.
func Link(baseURL, token string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("parse share base url: %w", err)
	}
	values := parsed.Query()
	values.Set(Param, token)
	parsed.RawQuery = values.Encode()
	return parsed.String(), nil
}

// FromURL extracts the token from a share link. ok is false when the link has
// no shared parameter.
func FromURL(raw string) (string, bool, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false, fmt.Errorf("parse share link: %w", err)
	}
	token := parsed.Query().Get(Param)
	return token, token != "", nil
}
