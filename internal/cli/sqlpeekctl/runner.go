package sqlpeekctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sqlpeek/sqlpeek/internal/export"
	"github.com/sqlpeek/sqlpeek/internal/query"
	"github.com/sqlpeek/sqlpeek/internal/share"
	"github.com/sqlpeek/sqlpeek/internal/view"
)

type Options struct {
	BaseURL          string
	EngineType       string
	ConnectionString string
	Timeout          time.Duration
	HTTPClient       *http.Client
	Stdout           io.Writer
	Stderr           io.Writer
}

type envelope struct {
	Success       bool            `json:"success"`
	Error         string          `json:"error"`
	Message       string          `json:"message"`
	Data          json.RawMessage `json:"data"`
	ColumnRenames view.Renames    `json:"columnRenames"`
}

type filterList []view.Filter

func (f *filterList) String() string {
	parts := make([]string, 0, len(*f))
	for _, filter := range *f {
		parts = append(parts, filter.Column+":"+string(filter.Operator)+":"+filter.Value)
	}
	return strings.Join(parts, ",")
}

// Set parses column:operator:value. The value may itself contain colons.
// A column whose name contains a colon needs the JSON form
// {"column":"a:b","operator":"equals","value":"x"}.
func (f *filterList) Set(raw string) error {
	if strings.HasPrefix(strings.TrimSpace(raw), "{") {
		var filter view.Filter
		if err := json.Unmarshal([]byte(raw), &filter); err != nil {
			return fmt.Errorf("parse json filter: %w", err)
		}
		if strings.TrimSpace(filter.Column) == "" {
			return fmt.Errorf("filter column is required, got %q", raw)
		}
		if !filter.Operator.Valid() {
			return fmt.Errorf("unknown filter operator %q", filter.Operator)
		}
		*f = append(*f, filter)
		return nil
	}
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 || strings.TrimSpace(parts[0]) == "" {
		return fmt.Errorf("filter must be column:operator:value, got %q", raw)
	}
	op := view.Operator(strings.TrimSpace(parts[1]))
	if !op.Valid() {
		return fmt.Errorf("unknown filter operator %q", parts[1])
	}
	*f = append(*f, view.Filter{Column: strings.TrimSpace(parts[0]), Operator: op, Value: parts[2]})
	return nil
}

type renameFlag view.Renames

func (r renameFlag) String() string {
	parts := make([]string, 0, len(r))
	for column, alias := range r {
		parts = append(parts, column+"="+alias)
	}
	return strings.Join(parts, ",")
}

func (r renameFlag) Set(raw string) error {
	column, alias, ok := strings.Cut(raw, "=")
	if !ok || strings.TrimSpace(column) == "" {
		return fmt.Errorf("rename must be column=alias, got %q", raw)
	}
	r[strings.TrimSpace(column)] = alias
	return nil
}

type runner struct {
	client  *http.Client
	baseURL string
	stdout  io.Writer
	stderr  io.Writer
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("sqlpeekctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:3001"), "sqlpeek API base URL")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 30*time.Second), "HTTP timeout (e.g. 10s)")
	engineType := fs.String("type", defaults.EngineType, "database type (mysql, postgresql, sqlserver, oracle, duckdb, sqlite)")
	connectionString := fs.String("conn", defaults.ConnectionString, "connection string")
	connectionID := fs.String("id", "", "saved connection id to record the query against")
	search := fs.String("search", "", "search text applied to every cell")
	sortColumn := fs.String("sort", "", "column to sort by")
	desc := fs.Bool("desc", false, "sort descending")
	page := fs.Int("page", 1, "page number, starting at 1")
	pageSize := fs.Int("page-size", view.DefaultPageSize, "rows per page")
	exportPath := fs.String("export", "", "write the filtered, sorted rows to a .xlsx, .csv or .parquet file")
	filters := filterList{}
	fs.Var(&filters, "filter", `column:operator:value or {"column":..,"operator":..,"value":..} (repeatable)`)
	renames := view.Renames{}
	fs.Var(renameFlag(renames), "rename", "column=alias (repeatable)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}
	r := &runner{client: client, baseURL: strings.TrimRight(*baseURL, "/"), stdout: stdout, stderr: stderr}

	spec := view.Spec{
		SearchText: *search,
		Filters:    filters,
		SortColumn: *sortColumn,
		PageIndex:  *page,
		PageSize:   *pageSize,
	}
	if *desc {
		spec.SortDirection = view.Desc
	}
	cfg := query.ConnectionConfig{
		ID:               strings.TrimSpace(*connectionID),
		Type:             query.EngineKind(strings.ToLower(strings.TrimSpace(*engineType))),
		ConnectionString: *connectionString,
	}
	rest := strings.TrimSpace(strings.Join(fs.Args()[1:], " "))

	var err error
	switch command := strings.TrimSpace(fs.Arg(0)); command {
	case "health":
		err = r.printRaw(ctx, http.MethodGet, "/api/health", nil)
	case "connections":
		err = r.printRaw(ctx, http.MethodGet, "/api/connections", nil)
	case "test-connection":
		err = r.printRaw(ctx, http.MethodPost, "/api/test-connection", map[string]any{"config": cfg})
	case "query":
		if rest == "" {
			return usageError(stderr, "query requires SQL text")
		}
		err = r.runQuery(ctx, "/api/execute-query", map[string]any{"config": cfg, "query": rest}, spec, renames, *exportPath)
	case "share":
		if rest == "" {
			return usageError(stderr, "share requires SQL text")
		}
		err = r.printRaw(ctx, http.MethodPost, "/api/share", map[string]any{"config": cfg, "query": rest, "columnRenames": renames})
	case "open-share":
		token, tokenErr := tokenArg(rest)
		if tokenErr != nil {
			return usageError(stderr, tokenErr.Error())
		}
		err = r.runQuery(ctx, "/api/share/execute", map[string]any{"token": token}, spec, renames, *exportPath)
	case "decode-share":
		token, tokenErr := tokenArg(rest)
		if tokenErr != nil {
			return usageError(stderr, tokenErr.Error())
		}
		err = r.decodeShare(token)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func (r *runner) printRaw(ctx context.Context, method, path string, body any) error {
	code, responseBody, err := r.doRequest(ctx, method, path, body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if code >= 400 {
		return fmt.Errorf("http %d: %s", code, failureMessage(responseBody))
	}
	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(r.stdout, pretty)
		return nil
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(r.stdout, string(responseBody))
	}
	return nil
}

// runQuery executes remotely and then filters, sorts and pages the result
// locally, printing one page as a table.
func (r *runner) runQuery(ctx context.Context, path string, body any, spec view.Spec, renames view.Renames, exportPath string) error {
	code, responseBody, err := r.doRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if code >= 400 {
		return fmt.Errorf("http %d: %s", code, failureMessage(responseBody))
	}
	var payload envelope
	if err := json.Unmarshal(responseBody, &payload); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	var result query.Result
	if err := json.Unmarshal(payload.Data, &result); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	merged := view.Renames{}
	for column, alias := range payload.ColumnRenames {
		merged[column] = alias
	}
	for column, alias := range renames {
		merged[column] = alias
	}
	header := merged.Header(result.Columns)

	if exportPath != "" {
		if err := r.exportFile(exportPath, header, view.FilterAndSort(result, spec)); err != nil {
			return err
		}
	}

	pageView := view.Compute(result, spec)
	tw := tabwriter.NewWriter(r.stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range pageView.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if cell.IsNull() {
				cells[i] = "NULL"
				continue
			}
			cells[i] = cell.String()
		}
		_, _ = fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(r.stdout, "page %d/%d, %d of %d rows, %dms\n",
		pageView.PageIndex, pageView.TotalPages, pageView.TotalFilteredRows, result.RowCount(), result.ExecutionTimeMillis())
	return nil
}

func (r *runner) exportFile(path string, header []string, rows [][]query.Cell) error {
	format, err := export.ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, format, header, rows); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	_, _ = fmt.Fprintf(r.stderr, "exported %d rows to %s\n", len(rows), path)
	return nil
}

func (r *runner) decodeShare(token string) error {
	shared, err := share.Parse(token)
	if err != nil {
		return err
	}
	formatted, err := json.MarshalIndent(map[string]any{
		"config":        shared.Config,
		"query":         shared.Query,
		"columnRenames": shared.ColumnRenames,
		"createdAt":     shared.CreatedAt().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(r.stdout, string(formatted))
	return nil
}

func (r *runner) doRequest(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, responseBody, nil
}

// tokenArg accepts either a bare token or a share link.
func tokenArg(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("a share token or link is required")
	}
	if !strings.Contains(raw, "://") {
		return raw, nil
	}
	token, ok, err := share.FromURL(raw)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("link has no %s parameter", share.Param)
	}
	return token, nil
}

func failureMessage(raw []byte) string {
	var payload envelope
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(raw))
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func usageError(w io.Writer, message string) int {
	_, _ = fmt.Fprintf(w, "%s\n\n", message)
	writeUsage(w)
	return 2
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: sqlpeekctl [flags] <command> [args]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health                 GET /api/health")
	_, _ = fmt.Fprintln(w, "  connections            GET /api/connections")
	_, _ = fmt.Fprintln(w, "  test-connection        POST /api/test-connection (-type, -conn)")
	_, _ = fmt.Fprintln(w, "  query <sql>            POST /api/execute-query, then view locally")
	_, _ = fmt.Fprintln(w, "  share <sql>            POST /api/share")
	_, _ = fmt.Fprintln(w, "  open-share <token|url> POST /api/share/execute, then view locally")
	_, _ = fmt.Fprintln(w, "  decode-share <token|url>")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
