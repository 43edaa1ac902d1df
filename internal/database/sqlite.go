package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"astrocat/internal/catalog"
	"astrocat/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the catalog.Store interface using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Compile-time check that SQLiteStore satisfies the interface.
var _ catalog.Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite-backed catalog store.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// NewSQLiteStoreFromDB wraps an existing database connection. The
// caller is responsible for ensuring the connection is properly
// configured.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenConnection opens and configures a SQLite connection with the
// PRAGMAs the catalog relies on. Exported for tools and tests that
// need a properly configured connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite defaults foreign keys to OFF for backward compatibility.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return db, nil
}

// DB exposes the underlying connection for migrations.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Library root operations

func (s *SQLiteStore) CreateLibraryRoot(root *model.LibraryRoot) error {
	_, err := s.db.Exec(
		`INSERT INTO library_roots (id, name, path, created_at) VALUES (?, ?, ?, ?)`,
		root.ID, root.Name, root.Path, root.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting library root: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindLibraryRootByName(name string) (*model.LibraryRoot, error) {
	return s.findLibraryRoot(`SELECT id, name, path, created_at FROM library_roots WHERE name = ?`, name)
}

func (s *SQLiteStore) FindLibraryRootByID(id string) (*model.LibraryRoot, error) {
	return s.findLibraryRoot(`SELECT id, name, path, created_at FROM library_roots WHERE id = ?`, id)
}

func (s *SQLiteStore) findLibraryRoot(query string, arg any) (*model.LibraryRoot, error) {
	var root model.LibraryRoot
	err := s.db.QueryRow(query, arg).Scan(&root.ID, &root.Name, &root.Path, &root.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding library root: %w", err)
	}
	return &root, nil
}

func (s *SQLiteStore) ListLibraryRoots() ([]*model.LibraryRoot, error) {
	rows, err := s.db.Query(`SELECT id, name, path, created_at FROM library_roots ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing library roots: %w", err)
	}
	defer rows.Close()

	var roots []*model.LibraryRoot
	for rows.Next() {
		var root model.LibraryRoot
		if err := rows.Scan(&root.ID, &root.Name, &root.Path, &root.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning library root: %w", err)
		}
		roots = append(roots, &root)
	}
	return roots, rows.Err()
}

func (s *SQLiteStore) DeleteLibraryRoot(id string) error {
	// files and headers cascade.
	_, err := s.db.Exec(`DELETE FROM library_roots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting library root: %w", err)
	}
	return nil
}

// File operations

const fileColumns = `id, root_id, rel_path, size, mtime_millis, compression,
	missing, extract_failed, frame_type, exposure, gain, binning,
	set_temp, ccd_temp, filter, camera, telescope, object, ra, dec,
	date_obs, created_at, updated_at`

func (s *SQLiteStore) InsertFile(f *model.File) error {
	_, err := s.db.Exec(
		`INSERT INTO files (`+fileColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.RootID, f.RelPath, f.Size, f.MtimeMillis, string(f.Compression),
		f.Missing, f.ExtractFailed, string(f.FrameType),
		nullFloat(f.Exposure), nullInt(f.Gain), nullInt(f.Binning),
		nullFloat(f.SetTemp), nullFloat(f.CCDTemp),
		nullString(f.Filter), nullString(f.Camera), nullString(f.Telescope), nullString(f.Object),
		nullFloat(f.RA), nullFloat(f.Dec), nullTime(f.DateObs),
		f.CreatedAt.UTC(), f.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting file: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateFile(f *model.File) error {
	_, err := s.db.Exec(
		`UPDATE files SET
			size = ?, mtime_millis = ?, compression = ?, missing = ?,
			extract_failed = ?, frame_type = ?, exposure = ?, gain = ?,
			binning = ?, set_temp = ?, ccd_temp = ?, filter = ?, camera = ?,
			telescope = ?, object = ?, ra = ?, dec = ?, date_obs = ?,
			updated_at = ?
		 WHERE id = ?`,
		f.Size, f.MtimeMillis, string(f.Compression), f.Missing,
		f.ExtractFailed, string(f.FrameType),
		nullFloat(f.Exposure), nullInt(f.Gain), nullInt(f.Binning),
		nullFloat(f.SetTemp), nullFloat(f.CCDTemp),
		nullString(f.Filter), nullString(f.Camera), nullString(f.Telescope), nullString(f.Object),
		nullFloat(f.RA), nullFloat(f.Dec), nullTime(f.DateObs),
		f.UpdatedAt.UTC(), f.ID,
	)
	if err != nil {
		return fmt.Errorf("updating file: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindFileByPath(rootID, relPath string) (*model.File, error) {
	return s.findFile(`SELECT `+fileColumns+` FROM files WHERE root_id = ? AND rel_path = ?`, rootID, relPath)
}

func (s *SQLiteStore) FindFileByID(id string) (*model.File, error) {
	return s.findFile(`SELECT `+fileColumns+` FROM files WHERE id = ?`, id)
}

func (s *SQLiteStore) findFile(query string, args ...any) (*model.File, error) {
	f, err := scanFile(s.db.QueryRow(query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding file: %w", err)
	}
	return f, nil
}

func (s *SQLiteStore) ListFileStubs(rootID string) ([]catalog.FileStub, error) {
	rows, err := s.db.Query(`SELECT id, rel_path, missing FROM files WHERE root_id = ?`, rootID)
	if err != nil {
		return nil, fmt.Errorf("listing file stubs: %w", err)
	}
	defer rows.Close()

	var stubs []catalog.FileStub
	for rows.Next() {
		var stub catalog.FileStub
		if err := rows.Scan(&stub.ID, &stub.RelPath, &stub.Missing); err != nil {
			return nil, fmt.Errorf("scanning file stub: %w", err)
		}
		stubs = append(stubs, stub)
	}
	return stubs, rows.Err()
}

// markMissingBatchSize stays below SQLite's default 999 variable limit.
const markMissingBatchSize = 500

func (s *SQLiteStore) MarkFilesMissing(ids []string) error {
	for len(ids) > 0 {
		batch := ids
		if len(batch) > markMissingBatchSize {
			batch = batch[:markMissingBatchSize]
		}
		ids = ids[len(batch):]

		placeholders := strings.Repeat("?, ", len(batch)-1) + "?"
		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		_, err := s.db.Exec(`UPDATE files SET missing = 1 WHERE id IN (`+placeholders+`)`, args...)
		if err != nil {
			return fmt.Errorf("marking files missing: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) FindFilesByType(ft model.FrameType) ([]*model.File, error) {
	rows, err := s.db.Query(
		`SELECT `+fileColumns+` FROM files WHERE frame_type = ? ORDER BY rel_path`,
		string(ft),
	)
	if err != nil {
		return nil, fmt.Errorf("finding files by type: %w", err)
	}
	defer rows.Close()
	return collectFiles(rows)
}

// Search builds a WHERE clause from the populated criteria fields.
// Unset fields place no constraint; missing files are excluded unless
// asked for.
func (s *SQLiteStore) Search(c catalog.SearchCriteria) ([]*model.File, error) {
	var conds []string
	var args []any

	if !c.IncludeMissing {
		conds = append(conds, "missing = 0")
	}
	if c.RootID != "" {
		conds = append(conds, "root_id = ?")
		args = append(args, c.RootID)
	}
	if c.FrameType != "" {
		conds = append(conds, "frame_type = ?")
		args = append(args, string(c.FrameType))
	}
	if c.Filter != "" {
		conds = append(conds, "filter = ?")
		args = append(args, c.Filter)
	}
	if c.Camera != "" {
		conds = append(conds, "camera = ?")
		args = append(args, c.Camera)
	}
	// LIKE is case-insensitive for ASCII in SQLite.
	if c.Telescope != "" {
		conds = append(conds, "telescope LIKE ?")
		args = append(args, "%"+c.Telescope+"%")
	}
	if c.Object != "" {
		conds = append(conds, "object LIKE ?")
		args = append(args, "%"+c.Object+"%")
	}
	if c.FileName != "" {
		conds = append(conds, "rel_path LIKE ?")
		args = append(args, "%"+c.FileName+"%")
	}
	if c.Exposure != nil {
		conds = append(conds, "exposure = ?")
		args = append(args, *c.Exposure)
	}
	if c.Gain != nil {
		conds = append(conds, "gain = ?")
		args = append(args, *c.Gain)
	}
	if c.Binning != nil {
		conds = append(conds, "binning = ?")
		args = append(args, *c.Binning)
	}
	if c.SetTemp != nil {
		conds = append(conds, "set_temp = ?")
		args = append(args, *c.SetTemp)
	}
	if c.StartDate != nil {
		conds = append(conds, "date_obs >= ?")
		args = append(args, c.StartDate.UTC())
	}
	if c.EndDate != nil {
		conds = append(conds, "date_obs <= ?")
		args = append(args, c.EndDate.UTC())
	}

	query := `SELECT ` + fileColumns + ` FROM files`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY rel_path"
	if c.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", c.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching files: %w", err)
	}
	defer rows.Close()
	return collectFiles(rows)
}

// Header operations

func (s *SQLiteStore) SaveHeader(fileID, raw string) error {
	_, err := s.db.Exec(
		`INSERT INTO headers (file_id, raw) VALUES (?, ?)
		 ON CONFLICT (file_id) DO UPDATE SET raw = excluded.raw`,
		fileID, raw,
	)
	if err != nil {
		return fmt.Errorf("saving header: %w", err)
	}
	return nil
}

func (s *SQLiteStore) HeaderText(fileID string) (string, error) {
	var raw string
	err := s.db.QueryRow(`SELECT raw FROM headers WHERE file_id = ?`, fileID).Scan(&raw)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading header: %w", err)
	}
	return raw, nil
}

func (s *SQLiteStore) WalkHeaders(fn func(fileID, relPath, raw string) error) error {
	rows, err := s.db.Query(
		`SELECT h.file_id, f.rel_path, h.raw
		 FROM headers h JOIN files f ON f.id = h.file_id`,
	)
	if err != nil {
		return fmt.Errorf("walking headers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fileID, relPath, raw string
		if err := rows.Scan(&fileID, &relPath, &raw); err != nil {
			return fmt.Errorf("scanning header: %w", err)
		}
		if err := fn(fileID, relPath, raw); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Scan helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*model.File, error) {
	var f model.File
	var compression, frameType string
	var exposure, setTemp, ccdTemp, ra, dec sql.NullFloat64
	var gain, binning sql.NullInt64
	var filter, camera, telescope, object sql.NullString
	var dateObs sql.NullTime

	err := row.Scan(
		&f.ID, &f.RootID, &f.RelPath, &f.Size, &f.MtimeMillis, &compression,
		&f.Missing, &f.ExtractFailed, &frameType,
		&exposure, &gain, &binning, &setTemp, &ccdTemp,
		&filter, &camera, &telescope, &object, &ra, &dec,
		&dateObs, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	f.Compression = model.Compression(compression)
	f.FrameType = model.FrameType(frameType)
	f.Exposure = floatPtr(exposure)
	f.Gain = intPtr(gain)
	f.Binning = intPtr(binning)
	f.SetTemp = floatPtr(setTemp)
	f.CCDTemp = floatPtr(ccdTemp)
	f.Filter = stringPtr(filter)
	f.Camera = stringPtr(camera)
	f.Telescope = stringPtr(telescope)
	f.Object = stringPtr(object)
	f.RA = floatPtr(ra)
	f.Dec = floatPtr(dec)
	if dateObs.Valid {
		t := dateObs.Time.UTC()
		f.DateObs = &t
	}
	return &f, nil
}

func collectFiles(rows *sql.Rows) ([]*model.File, error) {
	var files []*model.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: v.UTC(), Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
