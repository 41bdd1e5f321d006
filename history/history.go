// Package history keeps autosave snapshots of beatmaps in sqlite.
package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	_ "github.com/mattn/go-sqlite3"

	"beatgrid/debug"
)

const schema = `
create table if not exists snapshots
  (
	  id integer not null primary key,
	  name text not null,
	  created_at integer not null,
	  data blob not null
  );
create index if not exists snapshots_name on snapshots(name, created_at);
`

// Snapshot is one saved copy of a beatmap
type Snapshot struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	Data      []byte
}

// Store is a snapshot database
type Store struct {
	db *sql.DB
}

// DefaultPath is the database location when the config leaves it empty
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "beatgrid", "history.db")
}

// Open creates or opens the database at path. ":memory:" works for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fault.Wrap(err, fmsg.WithDesc("create history dir", "Could not create "+filepath.Dir(path)))
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fault.Wrap(err, fmsg.WithDesc("open history", "Could not open history at "+path))
	}
	// a single connection keeps :memory: databases alive between queries
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fault.Wrap(err, fmsg.WithDesc("init history", "History database is unusable"))
	}
	debug.Log("history", "opened %s", path)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores data as the newest snapshot for name
func (s *Store) Record(ctx context.Context, name string, data []byte) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"insert into snapshots(name, created_at, data) values(?, ?, ?)",
		name, time.Now().UnixNano(), data)
	if err != nil {
		return 0, fault.Wrap(err, fmsg.WithDesc("record snapshot", "Autosave failed"))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fault.Wrap(err, fmsg.With("snapshot id"))
	}
	debug.Debug("history", "snapshot %d for %s (%d bytes)", id, name, len(data))
	return id, nil
}

// Latest returns the newest snapshot for name
func (s *Store) Latest(ctx context.Context, name string) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		"select id, name, created_at, data from snapshots where name = ? order by created_at desc, id desc limit 1",
		name)
	snap, err := scan(row)
	if err == sql.ErrNoRows {
		return Snapshot{}, fault.Wrap(err,
			ftag.With(ftag.NotFound),
			fmsg.WithDesc("latest snapshot", "No autosave for "+name))
	}
	if err != nil {
		return Snapshot{}, fault.Wrap(err, fmsg.WithDesc("latest snapshot", "Could not read history"))
	}
	return snap, nil
}

// List returns snapshots for name, newest first, without their data
func (s *Store) List(ctx context.Context, name string) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		"select id, name, created_at, x'' from snapshots where name = ? order by created_at desc, id desc",
		name)
	if err != nil {
		return nil, fault.Wrap(err, fmsg.WithDesc("list snapshots", "Could not read history"))
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scan(rows)
		if err != nil {
			return nil, fault.Wrap(err, fmsg.With("scan snapshot"))
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Prune drops all but the newest keep snapshots for name
func (s *Store) Prune(ctx context.Context, name string, keep int) (int64, error) {
	if keep < 0 {
		return 0, fault.New("negative keep", ftag.With(ftag.InvalidArgument))
	}
	res, err := s.db.ExecContext(ctx, `
		delete from snapshots where name = ? and id not in
		  (select id from snapshots where name = ? order by created_at desc, id desc limit ?)`,
		name, name, keep)
	if err != nil {
		return 0, fault.Wrap(err, fmsg.WithDesc("prune snapshots", "Could not prune history"))
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		debug.Debug("history", "pruned %d snapshots for %s", n, name)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(r scanner) (Snapshot, error) {
	var snap Snapshot
	var created int64
	if err := r.Scan(&snap.ID, &snap.Name, &created, &snap.Data); err != nil {
		return Snapshot{}, err
	}
	snap.CreatedAt = time.Unix(0, created)
	return snap, nil
}
