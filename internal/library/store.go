package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no game has the requested id.
var ErrNotFound = errors.New("game not found")

const gamesSchema = `
CREATE TABLE IF NOT EXISTS games (
	id TEXT PRIMARY KEY NOT NULL,
	title TEXT NOT NULL,
	platform TEXT NOT NULL DEFAULT '',
	store TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'backlog',
	hours_played REAL NOT NULL DEFAULT 0,
	cover TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '[]',
	rating INTEGER NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT '',
	release_year TEXT NOT NULL DEFAULT '',
	added_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	main_story REAL,
	main_extra REAL,
	completionist REAL,
	playtime_url TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	metacritic INTEGER,
	rawg_id INTEGER NOT NULL DEFAULT 0,
	rawg_playtime INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_games_status ON games(status);
CREATE INDEX IF NOT EXISTS idx_games_updated_at ON games(updated_at);

CREATE TABLE IF NOT EXISTS deleted_games (
	id TEXT PRIMARY KEY NOT NULL,
	deleted_at INTEGER NOT NULL
);
`

const gameColumns = `id, title, platform, store, status, hours_played, cover, tags, rating, notes,
	release_year, added_at, updated_at, main_story, main_extra, completionist, playtime_url,
	description, metacritic, rawg_id, rawg_playtime`

// Store keeps games in a local SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the library database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open library database: %w", err)
	}
	// sqlite allows one writer at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(gamesSchema); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create library tables: %w", err), db.Close())
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Add stores a new game. A missing id is generated and timestamps are set.
func (s *Store) Add(ctx context.Context, g *Game) error {
	g.Title = strings.TrimSpace(g.Title)
	if g.Title == "" {
		return errors.New("game title is required")
	}
	status, err := ParseStatus(string(g.Status))
	if err != nil {
		return err
	}
	g.Status = status

	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	now := s.now()
	if g.AddedAt.IsZero() {
		g.AddedAt = now
	}
	g.UpdatedAt = now

	if err := s.insert(ctx, "INSERT", g); err != nil {
		return fmt.Errorf("failed to add game %q: %w", g.Title, err)
	}
	return nil
}

// Put writes a game exactly as given, replacing any existing row. Used when
// applying records received from another device.
func (s *Store) Put(ctx context.Context, g Game) error {
	if err := s.insert(ctx, "INSERT OR REPLACE", &g); err != nil {
		return fmt.Errorf("failed to store game %s: %w", g.ID, err)
	}
	return nil
}

func (s *Store) insert(ctx context.Context, verb string, g *Game) error {
	tags, err := json.Marshal(nonNilTags(g.Tags))
	if err != nil {
		return err
	}

	query := verb + ` INTO games (` + gameColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		g.ID, g.Title, g.Platform, g.Store, string(g.Status), g.HoursPlayed, g.Cover, string(tags),
		g.Rating, g.Notes, g.ReleaseYear, g.AddedAt.UnixMilli(), g.UpdatedAt.UnixMilli(),
		nullFloat(g.MainStory), nullFloat(g.MainExtra), nullFloat(g.Completionist), g.PlaytimeURL,
		g.Description, nullInt(g.Metacritic), g.RawgID, g.RawgPlaytime,
	)
	return err
}

// Update saves changes to an existing game and bumps UpdatedAt.
func (s *Store) Update(ctx context.Context, g *Game) error {
	status, err := ParseStatus(string(g.Status))
	if err != nil {
		return err
	}
	g.Status = status
	g.UpdatedAt = s.now()

	tags, err := json.Marshal(nonNilTags(g.Tags))
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE games SET title = ?, platform = ?, store = ?, status = ?, hours_played = ?, cover = ?,
			tags = ?, rating = ?, notes = ?, release_year = ?, updated_at = ?, main_story = ?,
			main_extra = ?, completionist = ?, playtime_url = ?, description = ?, metacritic = ?,
			rawg_id = ?, rawg_playtime = ?
		WHERE id = ?`,
		g.Title, g.Platform, g.Store, string(g.Status), g.HoursPlayed, g.Cover,
		string(tags), g.Rating, g.Notes, g.ReleaseYear, g.UpdatedAt.UnixMilli(), nullFloat(g.MainStory),
		nullFloat(g.MainExtra), nullFloat(g.Completionist), g.PlaytimeURL, g.Description, nullInt(g.Metacritic),
		g.RawgID, g.RawgPlaytime,
		g.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update game %s: %w", g.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update %s: %w", g.ID, ErrNotFound)
	}
	return nil
}

// Get returns the game with id.
func (s *Store) Get(ctx context.Context, id string) (*Game, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id = ?`, id)
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read game %s: %w", id, err)
	}
	return g, nil
}

// Delete removes a game and records a tombstone so the deletion can be
// propagated to other devices.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete game %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO deleted_games (id, deleted_at) VALUES (?, ?)`,
		id, s.now().UnixMilli(),
	); err != nil {
		return fmt.Errorf("failed to record deletion of %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Tombstones returns the ids of deleted games not yet cleared.
func (s *Store) Tombstones(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM deleted_games ORDER BY deleted_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list deletions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ClearTombstones forgets deletions once they have been propagated.
func (s *Store) ClearTombstones(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM deleted_games WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to clear deletion of %s: %w", id, err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (*Game, error) {
	var (
		g                                  Game
		status, tags                       string
		addedAt, updatedAt                 int64
		mainStory, mainExtra, completionst sql.NullFloat64
		metacritic                         sql.NullInt64
	)

	err := row.Scan(&g.ID, &g.Title, &g.Platform, &g.Store, &status, &g.HoursPlayed, &g.Cover, &tags,
		&g.Rating, &g.Notes, &g.ReleaseYear, &addedAt, &updatedAt, &mainStory, &mainExtra, &completionst,
		&g.PlaytimeURL, &g.Description, &metacritic, &g.RawgID, &g.RawgPlaytime)
	if err != nil {
		return nil, err
	}

	g.Status = Status(status)
	g.AddedAt = time.UnixMilli(addedAt)
	g.UpdatedAt = time.UnixMilli(updatedAt)
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &g.Tags); err != nil {
			return nil, fmt.Errorf("decoding tags: %w", err)
		}
	}
	if len(g.Tags) == 0 {
		g.Tags = nil
	}
	g.MainStory = floatPtr(mainStory)
	g.MainExtra = floatPtr(mainExtra)
	g.Completionist = floatPtr(completionst)
	if metacritic.Valid {
		v := int(metacritic.Int64)
		g.Metacritic = &v
	}
	return &g, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
