// Package reportdb persists validation reports in DuckDB so repeated
// runs can be audited with SQL. Reports are append-only.
package reportdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/inodb/maflift/internal/validate"
)

// Store manages a DuckDB connection for report history.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create report db directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS file_reports (
		run_at TIMESTAMP,
		file VARCHAR,
		build VARCHAR,
		total BIGINT,
		mapped BIGINT,
		unmapped BIGINT,
		schema_invalid BIGINT,
		wrong_build BIGINT,
		chrom_missing BIGINT,
		fetch_errors BIGINT,
		compared BIGINT,
		ref_ok BIGINT,
		ref_mismatch BIGINT,
		snv_mismatch BIGINT,
		indel_mismatch BIGINT,
		mismatch_rate DOUBLE,
		verdict VARCHAR
	)`); err != nil {
		return err
	}

	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS mismatches (
		run_at TIMESTAMP,
		file VARCHAR,
		chromosome VARCHAR,
		position BIGINT,
		expected_allele VARCHAR,
		observed_sequence VARCHAR,
		kind VARCHAR
	)`)
	return err
}

// WriteReport appends one file report and its mismatch sample.
func (s *Store) WriteReport(runAt time.Time, r *validate.FileReport) error {
	c := r.Counts
	if _, err := s.db.Exec(`INSERT INTO file_reports VALUES
		(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runAt, r.File, r.Build,
		c.Total, c.Mapped, c.Unmapped, c.SchemaInvalid, c.WrongBuild,
		c.ChromMissing, c.FetchErrors, c.Compared, c.RefOK,
		c.RefMismatch, c.SNVMismatch, c.IndelMismatch,
		r.MismatchRate, r.Verdict,
	); err != nil {
		return fmt.Errorf("insert file report: %w", err)
	}

	for _, m := range r.Sample {
		if _, err := s.db.Exec(`INSERT INTO mismatches VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runAt, r.File, m.Chromosome, m.Position, m.Expected, m.Observed, m.Kind,
		); err != nil {
			return fmt.Errorf("insert mismatch: %w", err)
		}
	}

	return nil
}

// ReportRow is one persisted file report.
type ReportRow struct {
	RunAt        time.Time
	File         string
	Build        string
	Counts       validate.Counts
	MismatchRate float64
	Verdict      string
}

// FileHistory returns all persisted reports for a file, newest first.
func (s *Store) FileHistory(file string) ([]ReportRow, error) {
	rows, err := s.db.Query(`SELECT
		run_at, file, build,
		total, mapped, unmapped, schema_invalid, wrong_build,
		chrom_missing, fetch_errors, compared, ref_ok,
		ref_mismatch, snv_mismatch, indel_mismatch,
		mismatch_rate, verdict
		FROM file_reports
		WHERE file = ?
		ORDER BY run_at DESC`, file)
	if err != nil {
		return nil, fmt.Errorf("query file history: %w", err)
	}
	defer rows.Close()

	var out []ReportRow
	for rows.Next() {
		var r ReportRow
		c := &r.Counts
		if err := rows.Scan(
			&r.RunAt, &r.File, &r.Build,
			&c.Total, &c.Mapped, &c.Unmapped, &c.SchemaInvalid, &c.WrongBuild,
			&c.ChromMissing, &c.FetchErrors, &c.Compared, &c.RefOK,
			&c.RefMismatch, &c.SNVMismatch, &c.IndelMismatch,
			&r.MismatchRate, &r.Verdict,
		); err != nil {
			return nil, fmt.Errorf("scan file report: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file reports: %w", err)
	}
	return out, nil
}

// MismatchesFor returns all persisted mismatches for a file.
func (s *Store) MismatchesFor(file string) ([]validate.Mismatch, error) {
	rows, err := s.db.Query(`SELECT
		chromosome, position, expected_allele, observed_sequence, kind
		FROM mismatches
		WHERE file = ?
		ORDER BY chromosome, position`, file)
	if err != nil {
		return nil, fmt.Errorf("query mismatches: %w", err)
	}
	defer rows.Close()

	var out []validate.Mismatch
	for rows.Next() {
		var m validate.Mismatch
		if err := rows.Scan(&m.Chromosome, &m.Position, &m.Expected, &m.Observed, &m.Kind); err != nil {
			return nil, fmt.Errorf("scan mismatch: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mismatches: %w", err)
	}
	return out, nil
}
