package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/google/uuid"
	"github.com/mistakeknot/roomplan/internal/core"
)

//go:embed schema.sql
var schema string

type Store struct {
	db dbHandle
}

func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("db path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite is single-writer; one connection avoids SQLITE_BUSY storms.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("wal mode: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: &queryLogger{inner: db}}, nil
}

func NewInMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: &queryLogger{inner: db}}, nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateReservation(ctx context.Context, r core.Reservation) (core.Reservation, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = now
	}
	if r.Status == "" {
		r.Status = core.StatusScheduled
	}
	if r.QueueRank == 0 {
		r.QueueRank = 1
	}

	participantsJSON, _ := json.Marshal(r.Participants)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reservations (id, room_id, building_id, owner_id, title, participants_json,
		                           start_at, end_at, status, queue_rank, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.RoomID, r.BuildingID, r.OwnerID, r.Title, string(participantsJSON),
		r.Start.Format(time.RFC3339Nano), r.End.Format(time.RFC3339Nano),
		string(r.Status), r.QueueRank,
		r.CreatedAt.Format(time.RFC3339Nano), r.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return core.Reservation{}, fmt.Errorf("create reservation: %w", err)
	}
	return r, nil
}

func (s *Store) GetReservation(ctx context.Context, id string) (core.Reservation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, room_id, building_id, owner_id, title, participants_json,
		        start_at, end_at, status, queue_rank, created_at, updated_at
		 FROM reservations WHERE id = ?`, id,
	)
	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Reservation{}, core.ErrNotFound
	}
	return r, err
}

func (s *Store) UpdateReservation(ctx context.Context, r core.Reservation) (core.Reservation, error) {
	r.UpdatedAt = time.Now().UTC()
	participantsJSON, _ := json.Marshal(r.Participants)
	res, err := s.db.ExecContext(ctx,
		`UPDATE reservations
		 SET room_id = ?, building_id = ?, owner_id = ?, title = ?, participants_json = ?,
		     start_at = ?, end_at = ?, status = ?, queue_rank = ?, updated_at = ?
		 WHERE id = ?`,
		r.RoomID, r.BuildingID, r.OwnerID, r.Title, string(participantsJSON),
		r.Start.Format(time.RFC3339Nano), r.End.Format(time.RFC3339Nano),
		string(r.Status), r.QueueRank, r.UpdatedAt.Format(time.RFC3339Nano),
		r.ID,
	)
	if err != nil {
		return core.Reservation{}, fmt.Errorf("update reservation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Reservation{}, fmt.Errorf("update reservation: %w", err)
	}
	if affected == 0 {
		return core.Reservation{}, core.ErrNotFound
	}
	return r, nil
}

func (s *Store) DeleteReservation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) RoomContenders(ctx context.Context, roomID string) ([]core.Reservation, error) {
	return s.query(ctx,
		`SELECT id, room_id, building_id, owner_id, title, participants_json,
		        start_at, end_at, status, queue_rank, created_at, updated_at
		 FROM reservations
		 WHERE room_id = ? AND status IN (?, ?)
		 ORDER BY start_at ASC, queue_rank ASC`,
		roomID, string(core.StatusScheduled), string(core.StatusInProgress),
	)
}

func (s *Store) ActiveReservations(ctx context.Context) ([]core.Reservation, error) {
	return s.query(ctx,
		`SELECT id, room_id, building_id, owner_id, title, participants_json,
		        start_at, end_at, status, queue_rank, created_at, updated_at
		 FROM reservations
		 WHERE status IN (?, ?)
		 ORDER BY start_at ASC, queue_rank ASC`,
		string(core.StatusScheduled), string(core.StatusInProgress),
	)
}

func (s *Store) ListReservations(ctx context.Context, roomID, buildingID string) ([]core.Reservation, error) {
	query := `SELECT id, room_id, building_id, owner_id, title, participants_json,
	                 start_at, end_at, status, queue_rank, created_at, updated_at
	          FROM reservations WHERE 1=1`
	var args []any
	if roomID != "" {
		query += " AND room_id = ?"
		args = append(args, roomID)
	}
	if buildingID != "" {
		query += " AND building_id = ?"
		args = append(args, buildingID)
	}
	query += " ORDER BY start_at ASC, queue_rank ASC"
	return s.query(ctx, query, args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]core.Reservation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	defer rows.Close()

	var out []core.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReservation(row scanner) (core.Reservation, error) {
	var r core.Reservation
	var buildingID, title, participantsJSON sql.NullString
	var startAt, endAt, status, createdAt, updatedAt string
	err := row.Scan(&r.ID, &r.RoomID, &buildingID, &r.OwnerID, &title, &participantsJSON,
		&startAt, &endAt, &status, &r.QueueRank, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Reservation{}, err
		}
		return core.Reservation{}, fmt.Errorf("scan reservation: %w", err)
	}
	r.BuildingID = buildingID.String
	r.Title = title.String
	if participantsJSON.Valid {
		_ = json.Unmarshal([]byte(participantsJSON.String), &r.Participants)
	}
	r.Status = core.Status(status)
	r.Start, _ = time.Parse(time.RFC3339Nano, startAt)
	r.End, _ = time.Parse(time.RFC3339Nano, endAt)
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return r, nil
}
