package sqlitemigrate

import (
	"database/sql"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func queryInt64(t *testing.T, db *sql.DB, query string, args ...any) int64 {
	t.Helper()
	var value int64
	if err := db.QueryRow(query, args...).Scan(&value); err != nil {
		t.Fatalf("query %q: %v", query, err)
	}
	return value
}

func queryString(t *testing.T, db *sql.DB, query string, args ...any) string {
	t.Helper()
	var value string
	if err := db.QueryRow(query, args...).Scan(&value); err != nil {
		t.Fatalf("query %q: %v", query, err)
	}
	return value
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	count := queryInt64(t, db, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name)
	return count > 0
}

func TestApplyMigrationsRecordsApplied(t *testing.T) {
	db := openInMemoryDB(t)

	migrations := fstest.MapFS{
		"001_cards.sql": &fstest.MapFile{Data: []byte(`-- +migrate Up
CREATE TABLE cards (id INTEGER PRIMARY KEY);
-- +migrate Down
DROP TABLE cards;
`)},
		"002_decks.sql": &fstest.MapFile{Data: []byte(`-- +migrate Up
CREATE TABLE decks (id INTEGER PRIMARY KEY);
-- +migrate Down
DROP TABLE decks;
`)},
	}

	if err := ApplyMigrations(db, migrations, "."); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	if !tableExists(t, db, "cards") {
		t.Fatalf("cards table missing")
	}
	if !tableExists(t, db, "decks") {
		t.Fatalf("decks table missing")
	}
	applied := queryInt64(t, db, "SELECT COUNT(*) FROM schema_migrations")
	if applied != 2 {
		t.Fatalf("applied = %d, want 2", applied)
	}
}

func TestApplyMigrationsSkipsAlreadyApplied(t *testing.T) {
	db := openInMemoryDB(t)

	migrations := fstest.MapFS{
		"001_cards.sql": &fstest.MapFile{Data: []byte(`-- +migrate Up
CREATE TABLE cards (id INTEGER PRIMARY KEY);
INSERT INTO cards (id) VALUES (1);
-- +migrate Down
DROP TABLE cards;
`)},
	}

	if err := ApplyMigrations(db, migrations, "."); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if err := ApplyMigrations(db, migrations, "."); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	rows := queryInt64(t, db, "SELECT COUNT(*) FROM cards")
	if rows != 1 {
		t.Fatalf("cards rows = %d, want 1 after re-apply", rows)
	}
}

func TestApplyMigrationsDoesNotRecordFailedMigration(t *testing.T) {
	db := openInMemoryDB(t)

	broken := fstest.MapFS{
		"001_cards.sql": &fstest.MapFile{Data: []byte(`-- +migrate Up
CREATE TABLE cards (id INTEGER PRIMARY KEY;
-- +migrate Down
`)},
	}
	if err := ApplyMigrations(db, broken, "."); err == nil {
		t.Fatalf("expected error for broken migration")
	}

	applied := queryInt64(t, db, "SELECT COUNT(*) FROM schema_migrations")
	if applied != 0 {
		t.Fatalf("applied = %d, want 0 after failure", applied)
	}

	fixed := fstest.MapFS{
		"001_cards.sql": &fstest.MapFile{Data: []byte(`-- +migrate Up
CREATE TABLE cards (id INTEGER PRIMARY KEY);
-- +migrate Down
DROP TABLE cards;
`)},
	}
	if err := ApplyMigrations(db, fixed, "."); err != nil {
		t.Fatalf("apply fixed migration: %v", err)
	}
	if !tableExists(t, db, "cards") {
		t.Fatalf("cards table missing after fix")
	}
}

func TestApplyMigrationsRespectsMigrationRoot(t *testing.T) {
	db := openInMemoryDB(t)

	migrations := fstest.MapFS{
		"journal/001_journal.sql": &fstest.MapFile{Data: []byte(`-- +migrate Up
CREATE TABLE journal_rows (id INTEGER PRIMARY KEY);
-- +migrate Down
DROP TABLE journal_rows;
`)},
	}

	if err := ApplyMigrations(db, migrations, "journal"); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	if !tableExists(t, db, "journal_rows") {
		t.Fatalf("journal_rows table missing")
	}
	name := queryString(t, db, "SELECT name FROM schema_migrations")
	if name != "journal/001_journal.sql" {
		t.Fatalf("recorded name = %q, want journal/001_journal.sql", name)
	}
}
