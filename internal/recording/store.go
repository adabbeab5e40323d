package recording

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/depthdust/internal/depth"
	"github.com/banshee-data/depthdust/internal/projection"
	"github.com/banshee-data/depthdust/internal/sensor"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// ErrNoSession is returned when a session id is unknown or no session
	// has been recorded yet.
	ErrNoSession = errors.New("recording: no such session")

	// ErrEndOfRecording is returned by Player.Grab after the last frame of a
	// non-looping replay. It wraps sensor.ErrNotStreaming so a session
	// stops streaming when it sees it.
	ErrEndOfRecording = fmt.Errorf("recording: end of recording: %w", sensor.ErrNotStreaming)
)

// SessionInfo describes one recorded session.
type SessionInfo struct {
	ID          string
	CreatedAt   time.Time
	Width       int
	Height      int
	FPS         int
	Calibration projection.Intrinsics
	Notes       string
	Frames      int
}

// Store is a SQLite database of recorded sessions.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the database at path and applies
// any pending migrations.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}
	return m, nil
}

// MigrateUp applies every pending migration.
func (s *Store) MigrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	// Closing m would close the shared *sql.DB.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the applied schema version and dirty flag.
func (s *Store) MigrateVersion() (uint, bool, error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) { diagf("[migrate] "+format, v...) }
func (migrateLogger) Verbose() bool                          { return false }

// CreateSession starts a new session for frames of the given calibration.
func (s *Store) CreateSession(calib projection.Intrinsics, fps int, notes string, now time.Time) (SessionInfo, error) {
	if err := calib.Validate(); err != nil {
		return SessionInfo{}, err
	}
	calibJSON, err := json.Marshal(calib)
	if err != nil {
		return SessionInfo{}, fmt.Errorf("encode calibration: %w", err)
	}
	info := SessionInfo{
		ID:          uuid.New().String(),
		CreatedAt:   now,
		Width:       calib.Width,
		Height:      calib.Height,
		FPS:         fps,
		Calibration: calib,
		Notes:       notes,
	}
	_, err = s.db.Exec(`INSERT INTO recording_sessions
		(session_id, created_unix_nanos, width, height, fps, intrinsics_json, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		info.ID, now.UnixNano(), info.Width, info.Height, fps, string(calibJSON), notes)
	if err != nil {
		return SessionInfo{}, fmt.Errorf("insert session: %w", err)
	}
	diagf("session %s created (%dx%d)", info.ID, info.Width, info.Height)
	return info, nil
}

const sessionColumns = `s.session_id, s.created_unix_nanos, s.width, s.height, s.fps, s.intrinsics_json, s.notes,
	(SELECT COUNT(*) FROM recording_frames f WHERE f.session_id = s.session_id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (SessionInfo, error) {
	var (
		info      SessionInfo
		created   int64
		calibJSON string
	)
	if err := row.Scan(&info.ID, &created, &info.Width, &info.Height, &info.FPS, &calibJSON, &info.Notes, &info.Frames); err != nil {
		return SessionInfo{}, err
	}
	info.CreatedAt = time.Unix(0, created)
	if err := json.Unmarshal([]byte(calibJSON), &info.Calibration); err != nil {
		return SessionInfo{}, fmt.Errorf("decode calibration of %s: %w", info.ID, err)
	}
	return info, nil
}

// Session returns one session by id.
func (s *Store) Session(id string) (SessionInfo, error) {
	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM recording_sessions s WHERE s.session_id = ?`, id)
	info, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionInfo{}, fmt.Errorf("%w: %s", ErrNoSession, id)
	}
	return info, err
}

// LatestSession returns the most recently created session.
func (s *Store) LatestSession() (SessionInfo, error) {
	row := s.db.QueryRow(`SELECT ` + sessionColumns + ` FROM recording_sessions s
		ORDER BY s.created_unix_nanos DESC LIMIT 1`)
	info, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionInfo{}, ErrNoSession
	}
	return info, err
}

// Sessions lists every session, newest first.
func (s *Store) Sessions() ([]SessionInfo, error) {
	rows, err := s.db.Query(`SELECT ` + sessionColumns + ` FROM recording_sessions s
		ORDER BY s.created_unix_nanos DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		info, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteSession removes a session and its frames.
func (s *Store) DeleteSession(id string) error {
	res, err := s.db.Exec(`DELETE FROM recording_sessions WHERE session_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNoSession, id)
	}
	return nil
}

// AppendFrame stores frame as number seq of the session.
func (s *Store) AppendFrame(sessionID string, seq int, capturedAt time.Time, frame *depth.Frame) error {
	blob, err := EncodeFrame(frame)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO recording_frames
		(session_id, seq, captured_unix_nanos, width, height, samples)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, seq, capturedAt.UnixNano(), frame.Width(), frame.Height(), blob)
	if err != nil {
		return fmt.Errorf("insert frame %d of %s: %w", seq, sessionID, err)
	}
	tracef("frame %d of %s: %d bytes", seq, sessionID, len(blob))
	return nil
}

// SeqEnd returns one past the highest frame seq of a session, or 0 when it
// has no frames. It exceeds the frame count when the sequence has gaps.
func (s *Store) SeqEnd(sessionID string) (int, error) {
	var end int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(seq) + 1, 0) FROM recording_frames WHERE session_id = ?`, sessionID).Scan(&end)
	if err != nil {
		return 0, fmt.Errorf("frame range of %s: %w", sessionID, err)
	}
	return end, nil
}

// ReadFrame decodes frame seq of a session into dst, which must match the
// stored size. It returns sql.ErrNoRows when seq is past the end.
func (s *Store) ReadFrame(sessionID string, seq int, dst *depth.Frame) (time.Time, error) {
	var (
		captured      int64
		width, height int
		blob          []byte
	)
	err := s.db.QueryRow(`SELECT captured_unix_nanos, width, height, samples
		FROM recording_frames WHERE session_id = ? AND seq = ?`, sessionID, seq).
		Scan(&captured, &width, &height, &blob)
	if err != nil {
		return time.Time{}, err
	}
	if width != dst.Width() || height != dst.Height() {
		return time.Time{}, fmt.Errorf("frame %d of %s is %dx%d, buffer is %dx%d",
			seq, sessionID, width, height, dst.Width(), dst.Height())
	}
	if err := DecodeFrameInto(dst, blob); err != nil {
		return time.Time{}, fmt.Errorf("frame %d of %s: %w", seq, sessionID, err)
	}
	return time.Unix(0, captured), nil
}
