// Package sqldb exposes a SQL database as two tools: list_tables (schema
// discovery with sample rows) and query_sql (read-only SELECT execution).
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"github.com/lib/pq"
	"go-askbot/internal/tools"
	"go-askbot/pkg/models"
	_ "modernc.org/sqlite"
	"regexp"
	"strings"
	"time"
)

const (
	ListTablesTool = "list_tables"
	QuerySQLTool   = "query_sql"

	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

var selectRe = regexp.MustCompile(`(?i)^\s*select\b`)

type DB struct {
	db         *sql.DB
	dialect    string
	maxRows    int
	sampleRows int
}

// Open connects with the modernc sqlite driver ("sqlite") or lib/pq ("postgres").
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case DialectSQLite, DialectPostgres:
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	return New(db, driver), nil
}

func New(db *sql.DB, dialect string) *DB {
	return &DB{db: db, dialect: dialect, maxRows: 100, sampleRows: 3}
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Tools() []tools.Tool {
	return []tools.Tool{
		tools.Func{
			Desc: models.ToolDescriptor{
				Name:        ListTablesTool,
				Description: "List all tables in the database with their schema and sample rows.",
				Outputs:     []string{"schema"},
			},
			Fn: func(ctx context.Context, _ map[string]any) (string, error) {
				return d.ListTables(ctx)
			},
		},
		tools.Func{
			Desc: models.ToolDescriptor{
				Name:        QuerySQLTool,
				Description: "Execute SQL SELECT queries to get specific data. Statements are separated by semicolons.",
				Inputs:      []string{"sql"},
				Outputs:     []string{"result"},
			},
			Fn: func(ctx context.Context, args map[string]any) (string, error) {
				q, err := tools.StringArg(args, "sql")
				if err != nil {
					return "", err
				}
				return d.Query(ctx, q)
			},
		},
	}
}

type table struct {
	name   string
	create string
}

func (d *DB) ListTables(ctx context.Context) (string, error) {
	var (
		tables []table
		err    error
	)
	if d.dialect == DialectPostgres {
		tables, err = d.postgresTables(ctx)
	} else {
		tables, err = d.sqliteTables(ctx)
	}
	if err != nil {
		return "", fmt.Errorf("list tables: %w", err)
	}
	if len(tables) == 0 {
		return "No tables found in the database.", nil
	}

	var b strings.Builder
	for _, t := range tables {
		b.WriteString(strings.TrimRight(strings.TrimSpace(t.create), ";"))
		b.WriteString(";\n\n")
		sample, err := d.sample(ctx, t.name)
		if err != nil {
			sample = "sample unavailable: " + err.Error()
		}
		fmt.Fprintf(&b, "/*\n%d rows from %s table:\n%s*/\n\n", d.sampleRows, t.name, sample)
	}
	return strings.TrimSpace(b.String()), nil
}

func (d *DB) sqliteTables(ctx context.Context) ([]table, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT name, sql FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []table
	for rows.Next() {
		var t table
		if err := rows.Scan(&t.name, &t.create); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (d *DB) postgresTables(ctx context.Context) ([]table, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'public'
		ORDER BY table_name, ordinal_position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		res     []table
		columns = map[string][]string{}
	)
	for rows.Next() {
		var name, column, typ string
		if err := rows.Scan(&name, &column, &typ); err != nil {
			return nil, err
		}
		if _, ok := columns[name]; !ok {
			res = append(res, table{name: name})
		}
		columns[name] = append(columns[name], "\t"+pq.QuoteIdentifier(column)+" "+typ)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range res {
		res[i].create = fmt.Sprintf("CREATE TABLE %s (\n%s\n)", res[i].name, strings.Join(columns[res[i].name], ",\n"))
	}
	return res, nil
}

func (d *DB) quote(name string) string {
	if d.dialect == DialectPostgres {
		return pq.QuoteIdentifier(name)
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *DB) sample(ctx context.Context, name string) (string, error) {
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", d.quote(name), d.sampleRows))
	if err != nil {
		return "", err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(strings.Join(cols, "\t"))
	b.WriteString("\n")
	for rows.Next() {
		vals, err := scanRow(rows, len(cols))
		if err != nil {
			return "", err
		}
		cells := make([]string, len(vals))
		for i, v := range vals {
			cells[i] = plain(v)
		}
		b.WriteString(strings.Join(cells, "\t"))
		b.WriteString("\n")
	}
	return b.String(), rows.Err()
}

// Query runs each semicolon-separated SELECT statement and reports results
// per statement. Non-SELECT statements are refused individually.
func (d *DB) Query(ctx context.Context, text string) (string, error) {
	statements := splitStatements(text)
	if len(statements) == 0 {
		return "", fmt.Errorf("%w: no SQL statements", tools.ErrMissingArgument)
	}

	results := make([]string, 0, len(statements))
	refused := 0
	for i, stmt := range statements {
		if !selectRe.MatchString(stmt) {
			refused++
			results = append(results, fmt.Sprintf("Statement %d refused: only SELECT allowed", i+1))
			continue
		}
		out, err := d.run(ctx, stmt)
		if err != nil {
			results = append(results, fmt.Sprintf("Query %d failed: %v", i+1, err))
			continue
		}
		results = append(results, fmt.Sprintf("Query %d: %s\nResult: %s", i+1, stmt, out))
	}
	if refused == len(statements) {
		return "", fmt.Errorf("%w: %s", tools.ErrStatementRefused, strings.Join(statements, "; "))
	}
	return strings.Join(results, "\n\n"), nil
}

// splitStatements splits on semicolons outside quoted strings and
// identifiers. Empty statements are dropped.
func splitStatements(text string) []string {
	var (
		statements []string
		cur        strings.Builder
		quote      rune
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			statements = append(statements, s)
		}
		cur.Reset()
	}
	for _, r := range text {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == ';':
			flush()
			continue
		}
		cur.WriteRune(r)
	}
	flush()
	return statements
}

// run executes one statement inside a read-only transaction that is always
// rolled back.
func (d *DB) run(ctx context.Context, stmt string) (string, error) {
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return "", fmt.Errorf("conn: %w", err)
	}
	defer conn.Close()
	if d.dialect == DialectSQLite {
		// sqlite ignores the ReadOnly option; query_only is per connection
		if _, err := conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
			return "", fmt.Errorf("query_only: %w", err)
		}
		defer conn.ExecContext(context.Background(), "PRAGMA query_only = OFF")
	}
	tx, err := conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, stmt)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", err
	}
	var tuples []string
	for rows.Next() {
		if len(tuples) == d.maxRows {
			tuples = append(tuples, "...")
			break
		}
		vals, err := scanRow(rows, len(cols))
		if err != nil {
			return "", err
		}
		cells := make([]string, len(vals))
		for i, v := range vals {
			cells[i] = literal(v)
		}
		tuples = append(tuples, "("+strings.Join(cells, ", ")+")")
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return "[" + strings.Join(tuples, ", ") + "]", nil
}

func scanRow(rows *sql.Rows, n int) ([]any, error) {
	vals := make([]any, n)
	ptrs := make([]any, n)
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return vals, nil
}

func plain(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

func literal(v any) string {
	switch v.(type) {
	case nil:
		return "NULL"
	case string, []byte, time.Time:
		return "'" + strings.ReplaceAll(plain(v), "'", "''") + "'"
	default:
		return plain(v)
	}
}
