// Package database holds the relational data the SQL skill queries and the
// archive of finished chess games.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config holds database configuration
type Config struct {
	Type       string `mapstructure:"type"`       // "postgres" or "sqlite"
	Connection string `mapstructure:"connection"` // DSN or file path
	MaxConns   int    `mapstructure:"max_conns"`
	LogLevel   string `mapstructure:"log_level"`
	// MaxRows caps the rows returned by Query.
	MaxRows int `mapstructure:"max_rows"`
}

// DB wraps the GORM connection
type DB struct {
	*gorm.DB
	maxRows int
}

// New opens the database described by cfg.
func New(cfg *Config) (*DB, error) {
	var dialector gorm.Dialector

	switch cfg.Type {
	case "postgres":
		dialector = postgres.Open(cfg.Connection)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.Connection)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	logLevel := logger.Silent
	switch cfg.LogLevel {
	case "info":
		logLevel = logger.Info
	case "warn":
		logLevel = logger.Warn
	case "error":
		logLevel = logger.Error
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if cfg.MaxConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxConns)
		sqlDB.SetMaxIdleConns(cfg.MaxConns / 2)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	maxRows := cfg.MaxRows
	if maxRows <= 0 {
		maxRows = 100
	}
	return &DB{DB: db, maxRows: maxRows}, nil
}

// AutoMigrate creates or updates the tables.
func (db *DB) AutoMigrate() error {
	return db.DB.AutoMigrate(&Sale{}, &GameRecord{})
}

// Close closes the connection
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks connectivity.
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// DescribeSchema lists every table with its columns, one table per line,
// e.g. "sales(id integer, region text, ...)".
func (db *DB) DescribeSchema(ctx context.Context) (string, error) {
	m := db.WithContext(ctx).Migrator()
	tables, err := m.GetTables()
	if err != nil {
		return "", fmt.Errorf("list tables: %w", err)
	}
	var lines []string
	for _, t := range tables {
		if strings.HasPrefix(t, "sqlite_") {
			continue
		}
		cols, err := m.ColumnTypes(t)
		if err != nil {
			return "", fmt.Errorf("describe %s: %w", t, err)
		}
		parts := make([]string, 0, len(cols))
		for _, c := range cols {
			parts = append(parts, c.Name()+" "+strings.ToLower(c.DatabaseTypeName()))
		}
		lines = append(lines, fmt.Sprintf("%s(%s)", t, strings.Join(parts, ", ")))
	}
	return strings.Join(lines, "\n"), nil
}

// Rows is a query result rendered as text.
type Rows struct {
	Columns []string
	Values  [][]string
	// Truncated is set when more rows existed than were returned.
	Truncated bool
}

// String renders the rows as a pipe-separated table.
func (r *Rows) String() string {
	if len(r.Columns) == 0 {
		return "(no columns)"
	}
	var sb strings.Builder
	sb.WriteString(strings.Join(r.Columns, " | "))
	for _, row := range r.Values {
		sb.WriteByte('\n')
		sb.WriteString(strings.Join(row, " | "))
	}
	if len(r.Values) == 0 {
		sb.WriteString("\n(no rows)")
	}
	if r.Truncated {
		sb.WriteString("\n(truncated)")
	}
	return sb.String()
}

// Query runs a read-only statement and returns at most the configured number
// of rows.
func (db *DB) Query(ctx context.Context, query string) (*Rows, error) {
	query, err := ReadOnly(query)
	if err != nil {
		return nil, err
	}
	rows, err := db.WithContext(ctx).Raw(query).Rows()
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()
	return collect(rows, db.maxRows)
}

func collect(rows *sql.Rows, limit int) (*Rows, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := &Rows{Columns: cols}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if len(out.Values) == limit {
			out.Truncated = true
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			row[i] = format(v)
		}
		out.Values = append(out.Values, row)
	}
	return out, rows.Err()
}

func format(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case time.Time:
		return x.Format("2006-01-02")
	case float64:
		return fmt.Sprintf("%.2f", x)
	default:
		return fmt.Sprint(x)
	}
}

var (
	quotedPattern  = regexp.MustCompile(`'(?:[^']|'')*'|"(?:[^"]|"")*"`)
	wordPattern    = regexp.MustCompile(`[a-z_][a-z0-9_]*`)
	keywordPattern = regexp.MustCompile(`\b(insert|update|delete|drop|alter|create|replace|truncate|attach|detach|pragma|vacuum|grant|revoke)\b(\s*\()?`)
)

// ReadOnly checks that query is a single SELECT (or WITH ... SELECT)
// statement and returns it without a trailing semicolon. Quoted literals
// are ignored and replace(...) is allowed as a function call.
func ReadOnly(query string) (string, error) {
	q := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(query), "; \n\t"))
	if q == "" {
		return "", fmt.Errorf("empty query")
	}
	bare := quotedPattern.ReplaceAllString(strings.ToLower(q), "''")
	if strings.Contains(bare, ";") {
		return "", fmt.Errorf("only a single statement is allowed")
	}
	if first := wordPattern.FindString(bare); first != "select" && first != "with" {
		return "", fmt.Errorf("only SELECT queries are allowed")
	}
	for _, m := range keywordPattern.FindAllStringSubmatch(bare, -1) {
		if m[1] == "replace" && m[2] != "" {
			continue
		}
		return "", fmt.Errorf("statement contains forbidden keyword %s", strings.ToUpper(m[1]))
	}
	return q, nil
}
