package directdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"golang.org/x/time/rate"

	"pharmacy-intelligence-service/internal/models"
	"pharmacy-intelligence-service/internal/sources"
)

// SecretResolver resolves a secret reference to its plaintext value.
// Implemented by the GCP Secret Manager wrapper; nil disables resolution.
type SecretResolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// Reader pulls rows from external pharmacy databases over database/sql.
// Connections are opened per pull and closed before returning: syncs are
// minutes apart and the remote is someone else's production database, so
// holding pools open buys nothing.
type Reader struct {
	limiter *rate.Limiter
	secrets SecretResolver
}

// Ensure Reader implements the sources interface
var _ sources.Reader = (*Reader)(nil)

// NewReader creates a direct-db reader. pullsPerSecond bounds how fast the
// service hits external databases across all connectors.
func NewReader(pullsPerSecond float64, secrets SecretResolver) *Reader {
	if pullsPerSecond <= 0 {
		pullsPerSecond = 1
	}
	return &Reader{
		limiter: rate.NewLimiter(rate.Limit(pullsPerSecond), 1),
		secrets: secrets,
	}
}

// Pull connects to the configured database, runs the configured query and
// returns every row as a dynamic column→value map.
func (r *Reader) Pull(ctx context.Context, source *models.SourceConfig) ([]models.RawRow, error) {
	query := strings.TrimSpace(source.Query)
	if query == "" {
		return nil, fmt.Errorf("connector source.query is missing")
	}

	password, err := r.resolvePassword(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source password: %w", err)
	}

	driver, dsn, err := buildDSN(source, password)
	if err != nil {
		return nil, err
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open source connection: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach source database: %w", err)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("source query failed: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

func (r *Reader) resolvePassword(ctx context.Context, source *models.SourceConfig) (string, error) {
	if source.PasswordSecret != "" && r.secrets != nil {
		return r.secrets.Resolve(ctx, source.PasswordSecret)
	}
	return source.Password, nil
}

func buildDSN(source *models.SourceConfig, password string) (driver, dsn string, err error) {
	kind := strings.ToLower(source.DBKind)
	switch kind {
	case "postgres":
		port := source.Port
		if port == 0 {
			port = 5432
		}
		return "postgres", fmt.Sprintf(
			"host=%s port=%d dbname=%s user=%s password=%s sslmode=require",
			source.Host, port, source.Database, source.Username, password,
		), nil
	case "mysql":
		port := source.Port
		if port == 0 {
			port = 3306
		}
		return "mysql", fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			source.Username, password, source.Host, port, source.Database,
		), nil
	default:
		return "", "", &sources.UnsupportedSourceKindError{Kind: source.DBKind}
	}
}

// scanRows converts a result set of unknown shape into dynamic rows. []byte
// cells become strings; the field mapper handles type coercion from there.
func scanRows(rows *sql.Rows) ([]models.RawRow, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []models.RawRow
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(models.RawRow, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
