package db

import (
	"database/sql"
	"log"
)

const (
	sqlCreateAuthorsTable = `CREATE TABLE IF NOT EXISTS authors (
		id TEXT NOT NULL PRIMARY KEY,
		fqid TEXT UNIQUE NOT NULL,
		host TEXT NOT NULL,
		username TEXT NOT NULL,
		display_name TEXT,
		local INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateAuthorsIndices = `
		CREATE INDEX IF NOT EXISTS idx_authors_fqid ON authors(fqid);
		CREATE INDEX IF NOT EXISTS idx_authors_username ON authors(username);
		CREATE INDEX IF NOT EXISTS idx_authors_host ON authors(host);
	`

	sqlCreateEntriesTable = `CREATE TABLE IF NOT EXISTS entries (
		id TEXT NOT NULL PRIMARY KEY,
		fqid TEXT UNIQUE NOT NULL,
		author_fqid TEXT NOT NULL,
		title TEXT,
		content TEXT,
		content_type TEXT,
		visibility TEXT NOT NULL DEFAULT 'PUBLIC',
		published TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP
	)`

	sqlCreateEntriesIndices = `
		CREATE INDEX IF NOT EXISTS idx_entries_fqid ON entries(fqid);
		CREATE INDEX IF NOT EXISTS idx_entries_author_fqid ON entries(author_fqid);
		CREATE INDEX IF NOT EXISTS idx_entries_visibility ON entries(visibility);
		CREATE INDEX IF NOT EXISTS idx_entries_published ON entries(published DESC);
	`

	sqlCreateCommentsTable = `CREATE TABLE IF NOT EXISTS comments (
		id TEXT NOT NULL PRIMARY KEY,
		fqid TEXT UNIQUE NOT NULL,
		entry_fqid TEXT NOT NULL,
		author_fqid TEXT NOT NULL,
		in_reply_to TEXT,
		content TEXT,
		content_type TEXT,
		published TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateCommentsIndices = `
		CREATE INDEX IF NOT EXISTS idx_comments_fqid ON comments(fqid);
		CREATE INDEX IF NOT EXISTS idx_comments_entry_fqid ON comments(entry_fqid);
		CREATE INDEX IF NOT EXISTS idx_comments_author_fqid ON comments(author_fqid);
	`

	sqlCreateLikesTable = `CREATE TABLE IF NOT EXISTS likes (
		id TEXT NOT NULL PRIMARY KEY,
		fqid TEXT UNIQUE NOT NULL,
		author_fqid TEXT NOT NULL,
		object_fqid TEXT NOT NULL,
		published TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateLikesIndices = `
		CREATE INDEX IF NOT EXISTS idx_likes_fqid ON likes(fqid);
		CREATE INDEX IF NOT EXISTS idx_likes_object_fqid ON likes(object_fqid);
		CREATE INDEX IF NOT EXISTS idx_likes_author_object ON likes(author_fqid, object_fqid);
	`

	sqlCreateFollowsTable = `CREATE TABLE IF NOT EXISTS follows (
		id TEXT NOT NULL PRIMARY KEY,
		fqid TEXT NOT NULL,
		actor_fqid TEXT NOT NULL,
		object_fqid TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT 'REQUESTED',
		summary TEXT,
		published TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(actor_fqid, object_fqid)
	)`

	sqlCreateFollowsIndices = `
		CREATE INDEX IF NOT EXISTS idx_follows_actor_fqid ON follows(actor_fqid);
		CREATE INDEX IF NOT EXISTS idx_follows_object_fqid ON follows(object_fqid);
		CREATE INDEX IF NOT EXISTS idx_follows_state ON follows(state);
	`

	sqlCreateInboxTable = `CREATE TABLE IF NOT EXISTS inbox (
		id TEXT NOT NULL PRIMARY KEY,
		author_fqid TEXT NOT NULL,
		raw_json TEXT NOT NULL,
		processed INTEGER DEFAULT 0,
		received_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateInboxIndices = `
		CREATE INDEX IF NOT EXISTS idx_inbox_author_fqid ON inbox(author_fqid);
		CREATE INDEX IF NOT EXISTS idx_inbox_unprocessed ON inbox(author_fqid, processed, received_at);
	`

	sqlCreateNodesTable = `CREATE TABLE IF NOT EXISTS nodes (
		id TEXT NOT NULL PRIMARY KEY,
		base_url TEXT UNIQUE NOT NULL,
		host TEXT UNIQUE NOT NULL,
		auth_user TEXT,
		auth_pass TEXT,
		shared_user TEXT,
		shared_pass_hash TEXT,
		active INTEGER DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateNodesIndices = `
		CREATE INDEX IF NOT EXISTS idx_nodes_host ON nodes(host);
		CREATE INDEX IF NOT EXISTS idx_nodes_shared_user ON nodes(shared_user);
	`
)

// RunMigrations creates all tables and indices. Every statement is
// idempotent, so running against an existing database is safe.
func (db *DB) RunMigrations() error {
	log.Println("Running database migrations...")

	return db.wrapTransaction(func(tx *sql.Tx) error {
		tables := []struct {
			name      string
			createSQL string
			indexSQL  string
		}{
			{"authors", sqlCreateAuthorsTable, sqlCreateAuthorsIndices},
			{"entries", sqlCreateEntriesTable, sqlCreateEntriesIndices},
			{"comments", sqlCreateCommentsTable, sqlCreateCommentsIndices},
			{"likes", sqlCreateLikesTable, sqlCreateLikesIndices},
			{"follows", sqlCreateFollowsTable, sqlCreateFollowsIndices},
			{"inbox", sqlCreateInboxTable, sqlCreateInboxIndices},
			{"nodes", sqlCreateNodesTable, sqlCreateNodesIndices},
		}

		for _, table := range tables {
			if err := db.createTableIfNotExists(tx, table.createSQL, table.name); err != nil {
				return err
			}
			if _, err := tx.Exec(table.indexSQL); err != nil {
				log.Printf("Warning: failed to create indices for %s: %v", table.name, err)
			}
		}

		log.Println("Database migrations complete")
		return nil
	})
}

func (db *DB) createTableIfNotExists(tx *sql.Tx, createSQL string, tableName string) error {
	if _, err := tx.Exec(createSQL); err != nil {
		log.Printf("Failed to create table %s: %v", tableName, err)
		return err
	}
	return nil
}
