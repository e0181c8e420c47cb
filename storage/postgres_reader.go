package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/lib/pq"

	"car-dashboard/models"
	"car-dashboard/utils"
)

// PostgresReader loads listings from a PostgreSQL table. It only ever issues
// SELECT statements.
type PostgresReader struct {
	db    *sql.DB
	dsn   string
	table string
}

// NewPostgresReader opens a connection, waits for the server with retry and
// returns a ready-to-use PostgresReader for table.
func NewPostgresReader(ctx context.Context, dsn, table string, retry *utils.RetryConfig) (*PostgresReader, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, unavailable(redactDSN(dsn), fmt.Errorf("postgres: open: %w", err))
	}

	if err := retry.Do(ctx, "postgres-ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, unavailable(redactDSN(dsn), fmt.Errorf("postgres: ping: %w", err))
	}

	return &PostgresReader{db: db, dsn: redactDSN(dsn), table: pq.QuoteIdentifier(table)}, nil
}

// Load retrieves every row of the table.
func (pr *PostgresReader) Load(ctx context.Context) ([]models.Listing, error) {
	rows, err := pr.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT price, odometer, model_year, model, type
		FROM %s
	`, pr.table))
	if err != nil {
		return nil, unavailable(pr.dsn, fmt.Errorf("postgres: fetch all: %w", err))
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		var (
			l           models.Listing
			year        sql.NullFloat64
			model, kind sql.NullString
		)
		if err := rows.Scan(&l.Price, &l.Odometer, &year, &model, &kind); err != nil {
			return nil, unavailable(pr.dsn, fmt.Errorf("postgres: scan row: %w", err))
		}
		if year.Valid {
			if year.Float64 != math.Trunc(year.Float64) {
				return nil, unavailable(pr.dsn, &SchemaError{
					Column: string(models.FieldModelYear),
					Msg:    "not a whole year: " + strconv.FormatFloat(year.Float64, 'f', -1, 64),
				})
			}
			l.ModelYear = models.Year(int64(year.Float64))
		}
		l.Model = model.String
		l.Type = kind.String
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(pr.dsn, fmt.Errorf("postgres: rows: %w", err))
	}
	return listings, nil
}

// Marker combines the row count with the table's insert, update and delete
// counters from pg_stat_user_tables, so in-place UPDATEs also change it.
// The statistics are flushed asynchronously by the server; a write can take
// up to a second to show, and /api/reload forces a read before that.
func (pr *PostgresReader) Marker(ctx context.Context) (string, error) {
	var rows, changes int64
	if err := pr.db.QueryRowContext(ctx, markerQuery(pr.table), pr.table).Scan(&rows, &changes); err != nil {
		return "", unavailable(pr.dsn, fmt.Errorf("postgres: marker: %w", err))
	}
	return strconv.FormatInt(rows, 10) + "-" + strconv.FormatInt(changes, 10), nil
}

// markerQuery takes the quoted table name as $1 for the regclass lookup.
func markerQuery(table string) string {
	return fmt.Sprintf(`
		SELECT
			(SELECT count(*) FROM %s),
			COALESCE((
				SELECT n_tup_ins + n_tup_upd + n_tup_del
				FROM pg_stat_user_tables
				WHERE relid = $1::regclass
			), 0)
	`, table)
}

func (pr *PostgresReader) Close() error {
	return pr.db.Close()
}

// redactDSN hides the password of a URL-style DSN for logs and errors.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
