package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"aocd/internal/components/chrono"
	"aocd/internal/components/telemetry"
	"aocd/internal/outcome"
	"aocd/internal/puzzle"
	"aocd/pkg/migrations"

	_ "embed"
)

//go:embed schema.sql
var Schema string

// SQLStore keeps the same records as FSStore in a sqlite (or libSQL) database.
type SQLStore struct {
	db    *sql.DB
	dsn   string
	tel   telemetry.API
	clock chrono.TimeAPI
}

// OpenSQLStore opens (and migrates) the database at dsn, see migrations.OpenDB.
func OpenSQLStore(ctx context.Context, dsn string, tel telemetry.API) (*SQLStore, error) {
	db, err := migrations.OpenAndMigrateDB(ctx, Schema, dsn)
	if err != nil {
		return nil, &IOError{Op: "open", Path: dsn, Err: err}
	}
	return &SQLStore{
		db:    db,
		dsn:   dsn,
		tel:   telemetry.NewScopedAPI("sql_cache", tel),
		clock: chrono.NewStandardTime(),
	}, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) ioError(op, report string, err error) error {
	s.tel.ReportBroken(report, fmt.Errorf("%s: %w", op, err))
	return &IOError{Op: op, Path: s.dsn, Err: err}
}

func (s *SQLStore) LoadInput(ctx context.Context, key puzzle.Key) (string, bool, error) {
	var text string
	err := s.db.QueryRowContext(
		ctx,
		"select text from inputs where year = ? and day = ?",
		key.Year, key.Day,
	).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, s.ioError("read", report_store_input, err)
	}
	return text, true, nil
}

func (s *SQLStore) StoreInput(ctx context.Context, key puzzle.Key, text string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.ioError("begin", report_store_input, err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(
		ctx,
		"select text from inputs where year = ? and day = ?",
		key.Year, key.Day,
	).Scan(&existing)
	switch {
	case err == nil:
		if existing == text {
			return nil
		}
		s.tel.ReportWarning(report_store_input, ErrConflict, key.String())
		return fmt.Errorf("%w: %s", ErrConflict, key)
	case !errors.Is(err, sql.ErrNoRows):
		return s.ioError("read", report_store_input, err)
	}

	_, err = tx.ExecContext(
		ctx,
		"insert into inputs (year, day, text, created_at) values (?, ?, ?, ?)",
		key.Year, key.Day, text, s.clock.Now().UnixMilli(),
	)
	if err != nil {
		return s.ioError("write", report_store_input, err)
	}
	err = tx.Commit()
	if err != nil {
		return s.ioError("commit", report_store_input, err)
	}
	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadAttempts(ctx context.Context, q queryer, key puzzle.Key, part int) ([]Attempt, error) {
	rows, err := q.QueryContext(
		ctx,
		`select answer, outcome, previous, wait_ms, raw, created_at from attempts
		where year = ? and day = ? and part = ?
		order by id`,
		key.Year, key.Day, part,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var (
			a         Attempt
			tag       string
			waitMs    int64
			createdAt int64
		)
		err := rows.Scan(&a.Answer, &tag, &a.Outcome.Previous, &waitMs, &a.Outcome.Raw, &createdAt)
		if err != nil {
			return nil, err
		}
		a.Outcome.Kind, err = outcome.ParseKind(tag)
		if err != nil {
			return nil, err
		}
		a.Outcome.Wait = time.Duration(waitMs) * time.Millisecond
		a.Time = time.UnixMilli(createdAt).UTC()
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (s *SQLStore) LoadAttempts(ctx context.Context, key puzzle.Key, part int) ([]Attempt, error) {
	attempts, err := loadAttempts(ctx, s.db, key, part)
	if err != nil {
		return nil, s.ioError("read", report_store_attempt, err)
	}
	return attempts, nil
}

func (s *SQLStore) RecordAttempt(ctx context.Context, key puzzle.Key, part int, answer string, result outcome.Outcome) (Attempt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, s.ioError("begin", report_store_attempt, err)
	}
	defer tx.Rollback()

	attempts, err := loadAttempts(ctx, tx, key, part)
	if err != nil {
		return Attempt{}, s.ioError("read", report_store_attempt, err)
	}
	if prior, ok := FindSettled(attempts, answer); ok {
		return prior, nil
	}

	now := s.clock.Now()
	_, err = tx.ExecContext(
		ctx,
		`insert into attempts (year, day, part, answer, outcome, previous, wait_ms, raw, created_at)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key.Year, key.Day, part,
		answer,
		result.Kind.String(),
		result.Previous,
		result.Wait.Milliseconds(),
		result.Raw,
		now.UnixMilli(),
	)
	if err != nil {
		return Attempt{}, s.ioError("append", report_store_attempt, err)
	}
	err = tx.Commit()
	if err != nil {
		return Attempt{}, s.ioError("commit", report_store_attempt, err)
	}

	return Attempt{Answer: answer, Outcome: result, Time: now}, nil
}
