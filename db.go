package covers

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// CoverDB caches encoded covers keyed by the SHA-1 of the source file
// bytes, so unchanged artwork is never dithered twice across runs.
// Entries are never evicted; delete the file to reset the cache.
type CoverDB struct {
	db *sql.DB
}

// OpenCoverDB opens or creates a cover cache at the given path.
func OpenCoverDB(file string) (*CoverDB, error) {
	db, err := sql.Open("sqlite3", file)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS cover (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL UNIQUE, png BLOB NOT NULL)"); err != nil {
		return nil, err
	}

	return &CoverDB{
		db: db,
	}, nil
}

func (db *CoverDB) Close() error {
	return db.db.Close()
}

// FindCover returns the cached encoded cover for the given source
// hash, or nil if there is no entry.
func (db *CoverDB) FindCover(sha string) ([]byte, error) {
	var blob []byte
	switch err := db.db.QueryRow("SELECT png FROM cover WHERE sha1 = ?", sha).Scan(&blob); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return blob, nil
	default:
		return nil, err
	}
}

// AddCover stores an encoded cover under the given source hash,
// replacing any previous entry.
func (db *CoverDB) AddCover(sha string, blob []byte) error {
	if _, err := db.db.Exec("INSERT OR REPLACE INTO cover (sha1, png) VALUES (?, ?)", sha, blob); err != nil {
		return err
	}
	return nil
}
