package db

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teamgold/golden/domain"
	"github.com/teamgold/golden/util"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// DB is the database struct.
type DB struct {
	db *sql.DB
}

var (
	dbInstance *DB
	dbOnce     sync.Once
	dbPath     = "golden.db"
)

// Authors
const (
	sqlInsertAuthor = `INSERT INTO authors(id, fqid, host, username, display_name, local, created_at)
						VALUES (?, ?, ?, ?, ?, ?, ?)`
	sqlSelectAuthorColumns    = `SELECT id, fqid, host, username, display_name, local, created_at FROM authors`
	sqlSelectAuthorByFQID     = sqlSelectAuthorColumns + ` WHERE fqid = ?`
	sqlSelectAuthorById       = sqlSelectAuthorColumns + ` WHERE id = ?`
	sqlSelectAuthorByUsername = sqlSelectAuthorColumns + ` WHERE username = ? AND local = 1`
	sqlSelectAllAuthors       = sqlSelectAuthorColumns + ` WHERE local = 1 ORDER BY username ASC LIMIT ? OFFSET ?`
	sqlUpdateAuthorProfile    = `UPDATE authors SET display_name = ? WHERE fqid = ?`
)

// Entries
const (
	sqlUpsertEntry = `INSERT INTO entries(id, fqid, author_fqid, title, content, content_type, visibility, published, updated_at)
						VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
						ON CONFLICT(fqid) DO UPDATE SET
							author_fqid = excluded.author_fqid,
							title = excluded.title,
							content = excluded.content,
							content_type = excluded.content_type,
							visibility = excluded.visibility,
							published = excluded.published,
							updated_at = excluded.updated_at`
	sqlUpdateEntryByFQID = `UPDATE entries SET title = ?, content = ?, content_type = ?, visibility = ?, updated_at = ?
						WHERE fqid = ?`
	sqlSoftDeleteEntry        = `UPDATE entries SET visibility = 'DELETED', updated_at = ? WHERE fqid = ?`
	sqlSelectEntryColumns     = `SELECT id, fqid, author_fqid, title, content, content_type, visibility, published, updated_at FROM entries`
	sqlSelectEntryByFQID      = sqlSelectEntryColumns + ` WHERE fqid = ?`
	sqlSelectEntriesByAuthor  = sqlSelectEntryColumns + ` WHERE author_fqid = ? ORDER BY published DESC LIMIT ? OFFSET ?`
	sqlSelectPublicEntriesByAuthor = sqlSelectEntryColumns + ` WHERE author_fqid = ? AND visibility = 'PUBLIC'
						ORDER BY published DESC LIMIT ? OFFSET ?`
)

// Comments
const (
	sqlUpsertComment = `INSERT INTO comments(id, fqid, entry_fqid, author_fqid, in_reply_to, content, content_type, published)
						VALUES (?, ?, ?, ?, ?, ?, ?, ?)
						ON CONFLICT(fqid) DO UPDATE SET
							entry_fqid = excluded.entry_fqid,
							author_fqid = excluded.author_fqid,
							in_reply_to = excluded.in_reply_to,
							content = excluded.content,
							content_type = excluded.content_type,
							published = excluded.published`
	sqlDeleteCommentByFQID    = `DELETE FROM comments WHERE fqid = ?`
	sqlSelectCommentColumns   = `SELECT id, fqid, entry_fqid, author_fqid, in_reply_to, content, content_type, published FROM comments`
	sqlSelectCommentByFQID    = sqlSelectCommentColumns + ` WHERE fqid = ?`
	sqlSelectCommentsByEntry  = sqlSelectCommentColumns + ` WHERE entry_fqid = ? ORDER BY published ASC LIMIT ? OFFSET ?`
)

// Likes
const (
	sqlInsertLike         = `INSERT INTO likes(id, fqid, author_fqid, object_fqid, published) VALUES (?, ?, ?, ?, ?)`
	sqlDeleteLikeByPair   = `DELETE FROM likes WHERE author_fqid = ? AND object_fqid = ?`
	sqlSelectLikeColumns  = `SELECT id, fqid, author_fqid, object_fqid, published FROM likes`
	sqlSelectLikeByFQID   = sqlSelectLikeColumns + ` WHERE fqid = ?`
	sqlSelectLikeByPair   = sqlSelectLikeColumns + ` WHERE author_fqid = ? AND object_fqid = ?`
	sqlSelectLikesByObject = sqlSelectLikeColumns + ` WHERE object_fqid = ? ORDER BY published ASC LIMIT ? OFFSET ?`
)

// Follows
const (
	sqlInsertFollow       = `INSERT INTO follows(id, fqid, actor_fqid, object_fqid, state, summary, published) VALUES (?, ?, ?, ?, ?, ?, ?)`
	sqlDeleteFollowByPair = `DELETE FROM follows WHERE actor_fqid = ? AND object_fqid = ?`
	sqlSelectFollowColumns = `SELECT id, fqid, actor_fqid, object_fqid, state, summary, published FROM follows`
	sqlSelectFollowByPair  = sqlSelectFollowColumns + ` WHERE actor_fqid = ? AND object_fqid = ?`
	sqlSelectFollowByFQID  = sqlSelectFollowColumns + ` WHERE fqid = ?`
	sqlSelectFollowerFQIDs = `SELECT actor_fqid FROM follows WHERE object_fqid = ? AND state = 'ACCEPTED'`
	sqlSelectFollowingFQIDs = `SELECT object_fqid FROM follows WHERE actor_fqid = ? AND state = 'ACCEPTED'`
	sqlSelectFollowRequests = sqlSelectFollowColumns + ` WHERE object_fqid = ? AND state = 'REQUESTED' ORDER BY published ASC`
)

// Inbox
const (
	sqlInsertInboxItem        = `INSERT INTO inbox(id, author_fqid, raw_json, processed, received_at) VALUES (?, ?, ?, ?, ?)`
	sqlSelectInboxColumns     = `SELECT id, author_fqid, raw_json, processed, received_at FROM inbox`
	sqlSelectUnprocessedInbox = sqlSelectInboxColumns + ` WHERE author_fqid = ? AND processed = 0 ORDER BY received_at ASC`
	sqlMarkInboxProcessed     = `UPDATE inbox SET processed = 1 WHERE id = ? AND processed = 0`
	sqlSelectInboxByAuthor    = sqlSelectInboxColumns + ` WHERE author_fqid = ? ORDER BY received_at DESC LIMIT ? OFFSET ?`
	sqlSelectInboxBacklogAuthors = `SELECT DISTINCT author_fqid FROM inbox WHERE processed = 0`
)

// Nodes
const (
	sqlInsertNode = `INSERT INTO nodes(id, base_url, host, auth_user, auth_pass, shared_user, shared_pass_hash, active, created_at)
						VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	sqlSelectNodeColumns      = `SELECT id, base_url, host, auth_user, auth_pass, shared_user, shared_pass_hash, active, created_at FROM nodes`
	sqlSelectNodeByHost       = sqlSelectNodeColumns + ` WHERE host = ?`
	sqlSelectNodeBySharedUser = sqlSelectNodeColumns + ` WHERE shared_user = ? AND active = 1`
	sqlSelectAllNodes         = sqlSelectNodeColumns + ` ORDER BY created_at ASC`
	sqlUpdateNodeActive       = `UPDATE nodes SET active = ? WHERE id = ?`
	sqlDeleteNode             = `DELETE FROM nodes WHERE id = ?`
)

// SetPath overrides the database file location. Must be called before the
// first GetDB().
func SetPath(path string) {
	dbPath = path
}

func GetDB() *DB {
	dbOnce.Do(func() {
		log.Printf("Using database at: %s", dbPath)

		instance, err := Open(dbPath)
		if err != nil {
			panic(err)
		}
		dbInstance = instance
	})

	return dbInstance
}

// Open opens a database at the given path, tunes it for the concurrent
// federation workload and runs migrations. Tests use this directly with a
// temp file; production goes through the GetDB singleton.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	var journalMode string
	if err := sqlDB.QueryRow("PRAGMA journal_mode=WAL").Scan(&journalMode); err != nil {
		log.Printf("Warning: Failed to enable WAL mode: %v", err)
	} else {
		log.Printf("Database journal mode: %s", journalMode)
	}

	sqlDB.Exec("PRAGMA synchronous = NORMAL")
	sqlDB.Exec("PRAGMA cache_size = -64000")
	sqlDB.Exec("PRAGMA temp_store = MEMORY")
	sqlDB.Exec("PRAGMA busy_timeout = 5000")
	sqlDB.Exec("PRAGMA foreign_keys = ON")

	instance := &DB{db: sqlDB}
	if err := instance.RunMigrations(); err != nil {
		return nil, err
	}
	return instance, nil
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	return db.db.Close()
}

// wrapTransaction runs the given function within a transaction, retrying
// while sqlite reports the database as busy.
func (db *DB) wrapTransaction(f func(tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("error starting transaction: %s", err)
		return err
	}
	for {
		err = f(tx)
		if err != nil {
			serr, ok := err.(*sqlite.Error)
			if ok && serr.Code() == sqlitelib.SQLITE_BUSY {
				continue
			}
			tx.Rollback()
			log.Printf("error in transaction: %s", err)
			return err
		}
		err = tx.Commit()
		if err != nil {
			log.Printf("error committing transaction: %s", err)
			return err
		}
		break
	}
	return nil
}

// Author operations

func (db *DB) CreateAuthor(a *domain.Author) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertAuthor,
			a.Id.String(),
			util.NormalizeFQID(a.FQID),
			a.Host,
			a.Username,
			a.DisplayName,
			boolToInt(a.Local),
			a.CreatedAt,
		)
		return err
	})
}

func (db *DB) ReadAuthorByFQID(fqid string) (error, *domain.Author) {
	row := db.db.QueryRow(sqlSelectAuthorByFQID, util.NormalizeFQID(fqid))
	return scanAuthor(row)
}

func (db *DB) ReadAuthorById(id uuid.UUID) (error, *domain.Author) {
	row := db.db.QueryRow(sqlSelectAuthorById, id.String())
	return scanAuthor(row)
}

func (db *DB) ReadAuthorByUsername(username string) (error, *domain.Author) {
	row := db.db.QueryRow(sqlSelectAuthorByUsername, username)
	return scanAuthor(row)
}

func (db *DB) ReadLocalAuthors(limit, offset int) (error, *[]domain.Author) {
	rows, err := db.db.Query(sqlSelectAllAuthors, limit, offset)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var authors []domain.Author
	for rows.Next() {
		err, a := scanAuthorRows(rows)
		if err != nil {
			return err, nil
		}
		authors = append(authors, *a)
	}
	if err = rows.Err(); err != nil {
		return err, nil
	}
	return nil, &authors
}

func (db *DB) UpdateAuthorProfile(fqid string, displayName string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateAuthorProfile, displayName, util.NormalizeFQID(fqid))
		return err
	})
}

func scanAuthor(row *sql.Row) (error, *domain.Author) {
	var a domain.Author
	var id string
	var displayName sql.NullString
	var local int

	err := row.Scan(&id, &a.FQID, &a.Host, &a.Username, &displayName, &local, &a.CreatedAt)
	if err != nil {
		return err, nil
	}
	a.Id = uuid.MustParse(id)
	a.DisplayName = displayName.String
	a.Local = local == 1
	return nil, &a
}

func scanAuthorRows(rows *sql.Rows) (error, *domain.Author) {
	var a domain.Author
	var id string
	var displayName sql.NullString
	var local int

	err := rows.Scan(&id, &a.FQID, &a.Host, &a.Username, &displayName, &local, &a.CreatedAt)
	if err != nil {
		return err, nil
	}
	a.Id = uuid.MustParse(id)
	a.DisplayName = displayName.String
	a.Local = local == 1
	return nil, &a
}

// Entry operations

// UpsertEntry creates or replaces the entry keyed by fqid. The row id of
// an existing entry is preserved; only the content fields change.
func (db *DB) UpsertEntry(e *domain.Entry) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpsertEntry,
			e.Id.String(),
			util.NormalizeFQID(e.FQID),
			util.NormalizeFQID(e.AuthorFQID),
			e.Title,
			e.Content,
			e.ContentType,
			e.Visibility,
			e.Published,
			nullableTime(e.Updated),
		)
		return err
	})
}

// UpdateEntryByFQID overwrites the mutable fields of an existing entry.
// Silently no-ops when no entry with that fqid exists.
func (db *DB) UpdateEntryByFQID(e *domain.Entry) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateEntryByFQID,
			e.Title,
			e.Content,
			e.ContentType,
			e.Visibility,
			time.Now(),
			util.NormalizeFQID(e.FQID),
		)
		return err
	})
}

// SoftDeleteEntryByFQID sets visibility to DELETED, leaving the row and
// all other fields intact. No-op when the entry does not exist.
func (db *DB) SoftDeleteEntryByFQID(fqid string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlSoftDeleteEntry, time.Now(), util.NormalizeFQID(fqid))
		return err
	})
}

func (db *DB) ReadEntryByFQID(fqid string) (error, *domain.Entry) {
	row := db.db.QueryRow(sqlSelectEntryByFQID, util.NormalizeFQID(fqid))
	var e domain.Entry
	var id string
	var title, content, contentType sql.NullString
	var updated sql.NullTime

	err := row.Scan(&id, &e.FQID, &e.AuthorFQID, &title, &content, &contentType, &e.Visibility, &e.Published, &updated)
	if err != nil {
		return err, nil
	}
	e.Id = uuid.MustParse(id)
	e.Title = title.String
	e.Content = content.String
	e.ContentType = contentType.String
	if updated.Valid {
		e.Updated = &updated.Time
	}
	return nil, &e
}

func (db *DB) ReadEntriesByAuthor(authorFQID string, limit, offset int) (error, *[]domain.Entry) {
	return db.readEntries(sqlSelectEntriesByAuthor, util.NormalizeFQID(authorFQID), limit, offset)
}

func (db *DB) ReadPublicEntriesByAuthor(authorFQID string, limit, offset int) (error, *[]domain.Entry) {
	return db.readEntries(sqlSelectPublicEntriesByAuthor, util.NormalizeFQID(authorFQID), limit, offset)
}

func (db *DB) readEntries(query string, args ...any) (error, *[]domain.Entry) {
	rows, err := db.db.Query(query, args...)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		var e domain.Entry
		var id string
		var title, content, contentType sql.NullString
		var updated sql.NullTime

		err := rows.Scan(&id, &e.FQID, &e.AuthorFQID, &title, &content, &contentType, &e.Visibility, &e.Published, &updated)
		if err != nil {
			return err, nil
		}
		e.Id = uuid.MustParse(id)
		e.Title = title.String
		e.Content = content.String
		e.ContentType = contentType.String
		if updated.Valid {
			e.Updated = &updated.Time
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return err, nil
	}
	return nil, &entries
}

// Comment operations

func (db *DB) UpsertComment(c *domain.Comment) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpsertComment,
			c.Id.String(),
			util.NormalizeFQID(c.FQID),
			util.NormalizeFQID(c.EntryFQID),
			util.NormalizeFQID(c.AuthorFQID),
			c.InReplyTo,
			c.Content,
			c.ContentType,
			c.Published,
		)
		return err
	})
}

func (db *DB) DeleteCommentByFQID(fqid string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteCommentByFQID, util.NormalizeFQID(fqid))
		return err
	})
}

func (db *DB) ReadCommentByFQID(fqid string) (error, *domain.Comment) {
	row := db.db.QueryRow(sqlSelectCommentByFQID, util.NormalizeFQID(fqid))
	var c domain.Comment
	var id string
	var inReplyTo, content, contentType sql.NullString

	err := row.Scan(&id, &c.FQID, &c.EntryFQID, &c.AuthorFQID, &inReplyTo, &content, &contentType, &c.Published)
	if err != nil {
		return err, nil
	}
	c.Id = uuid.MustParse(id)
	c.InReplyTo = inReplyTo.String
	c.Content = content.String
	c.ContentType = contentType.String
	return nil, &c
}

func (db *DB) ReadCommentsByEntry(entryFQID string, limit, offset int) (error, *[]domain.Comment) {
	rows, err := db.db.Query(sqlSelectCommentsByEntry, util.NormalizeFQID(entryFQID), limit, offset)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		var c domain.Comment
		var id string
		var inReplyTo, content, contentType sql.NullString

		err := rows.Scan(&id, &c.FQID, &c.EntryFQID, &c.AuthorFQID, &inReplyTo, &content, &contentType, &c.Published)
		if err != nil {
			return err, nil
		}
		c.Id = uuid.MustParse(id)
		c.InReplyTo = inReplyTo.String
		c.Content = content.String
		c.ContentType = contentType.String
		comments = append(comments, c)
	}
	if err = rows.Err(); err != nil {
		return err, nil
	}
	return nil, &comments
}

// Like operations

// ReplaceLike deletes any prior like by the same (author, object) pair and
// inserts the new one in a single transaction, making repeated likes
// idempotent per pair.
func (db *DB) ReplaceLike(l *domain.Like) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(sqlDeleteLikeByPair, util.NormalizeFQID(l.AuthorFQID), util.NormalizeFQID(l.ObjectFQID)); err != nil {
			return err
		}
		_, err := tx.Exec(sqlInsertLike,
			l.Id.String(),
			util.NormalizeFQID(l.FQID),
			util.NormalizeFQID(l.AuthorFQID),
			util.NormalizeFQID(l.ObjectFQID),
			l.Published,
		)
		return err
	})
}

func (db *DB) DeleteLikeByPair(authorFQID, objectFQID string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteLikeByPair, util.NormalizeFQID(authorFQID), util.NormalizeFQID(objectFQID))
		return err
	})
}

func (db *DB) ReadLikeByFQID(fqid string) (error, *domain.Like) {
	row := db.db.QueryRow(sqlSelectLikeByFQID, util.NormalizeFQID(fqid))
	var l domain.Like
	var id string

	err := row.Scan(&id, &l.FQID, &l.AuthorFQID, &l.ObjectFQID, &l.Published)
	if err != nil {
		return err, nil
	}
	l.Id = uuid.MustParse(id)
	return nil, &l
}

func (db *DB) ReadLikeByPair(authorFQID, objectFQID string) (error, *domain.Like) {
	row := db.db.QueryRow(sqlSelectLikeByPair, util.NormalizeFQID(authorFQID), util.NormalizeFQID(objectFQID))
	var l domain.Like
	var id string

	err := row.Scan(&id, &l.FQID, &l.AuthorFQID, &l.ObjectFQID, &l.Published)
	if err != nil {
		return err, nil
	}
	l.Id = uuid.MustParse(id)
	return nil, &l
}

func (db *DB) ReadLikesByObject(objectFQID string, limit, offset int) (error, *[]domain.Like) {
	rows, err := db.db.Query(sqlSelectLikesByObject, util.NormalizeFQID(objectFQID), limit, offset)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var likes []domain.Like
	for rows.Next() {
		var l domain.Like
		var id string

		err := rows.Scan(&id, &l.FQID, &l.AuthorFQID, &l.ObjectFQID, &l.Published)
		if err != nil {
			return err, nil
		}
		l.Id = uuid.MustParse(id)
		likes = append(likes, l)
	}
	if err = rows.Err(); err != nil {
		return err, nil
	}
	return nil, &likes
}

// Follow operations

// ReplaceFollow deletes any prior follow row for the same ordered
// (actor, object) pair and inserts the new one in a single transaction,
// keeping at most one row per pair.
func (db *DB) ReplaceFollow(f *domain.Follow) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(sqlDeleteFollowByPair, util.NormalizeFQID(f.ActorFQID), util.NormalizeFQID(f.ObjectFQID)); err != nil {
			return err
		}
		_, err := tx.Exec(sqlInsertFollow,
			f.Id.String(),
			util.NormalizeFQID(f.FQID),
			util.NormalizeFQID(f.ActorFQID),
			util.NormalizeFQID(f.ObjectFQID),
			f.State,
			f.Summary,
			f.Published,
		)
		return err
	})
}

func (db *DB) DeleteFollowByPair(actorFQID, objectFQID string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteFollowByPair, util.NormalizeFQID(actorFQID), util.NormalizeFQID(objectFQID))
		return err
	})
}

func (db *DB) ReadFollowByPair(actorFQID, objectFQID string) (error, *domain.Follow) {
	row := db.db.QueryRow(sqlSelectFollowByPair, util.NormalizeFQID(actorFQID), util.NormalizeFQID(objectFQID))
	return scanFollow(row)
}

func (db *DB) ReadFollowByFQID(fqid string) (error, *domain.Follow) {
	row := db.db.QueryRow(sqlSelectFollowByFQID, util.NormalizeFQID(fqid))
	return scanFollow(row)
}

func scanFollow(row *sql.Row) (error, *domain.Follow) {
	var f domain.Follow
	var id string
	var summary sql.NullString

	err := row.Scan(&id, &f.FQID, &f.ActorFQID, &f.ObjectFQID, &f.State, &summary, &f.Published)
	if err != nil {
		return err, nil
	}
	f.Id = uuid.MustParse(id)
	f.Summary = summary.String
	return nil, &f
}

// ReadAcceptedFollowerFQIDs returns the fqids of all authors with an
// ACCEPTED follow row pointing at the given author.
func (db *DB) ReadAcceptedFollowerFQIDs(authorFQID string) (error, []string) {
	return db.readFQIDColumn(sqlSelectFollowerFQIDs, util.NormalizeFQID(authorFQID))
}

// ReadAcceptedFollowingFQIDs returns the fqids of all authors the given
// author follows in ACCEPTED state.
func (db *DB) ReadAcceptedFollowingFQIDs(authorFQID string) (error, []string) {
	return db.readFQIDColumn(sqlSelectFollowingFQIDs, util.NormalizeFQID(authorFQID))
}

func (db *DB) readFQIDColumn(query string, args ...any) (error, []string) {
	rows, err := db.db.Query(query, args...)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var fqids []string
	for rows.Next() {
		var fqid string
		if err := rows.Scan(&fqid); err != nil {
			return err, nil
		}
		fqids = append(fqids, fqid)
	}
	if err = rows.Err(); err != nil {
		return err, nil
	}
	return nil, fqids
}

func (db *DB) ReadFollowRequests(objectFQID string) (error, *[]domain.Follow) {
	rows, err := db.db.Query(sqlSelectFollowRequests, util.NormalizeFQID(objectFQID))
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var follows []domain.Follow
	for rows.Next() {
		var f domain.Follow
		var id string
		var summary sql.NullString

		err := rows.Scan(&id, &f.FQID, &f.ActorFQID, &f.ObjectFQID, &f.State, &summary, &f.Published)
		if err != nil {
			return err, nil
		}
		f.Id = uuid.MustParse(id)
		f.Summary = summary.String
		follows = append(follows, f)
	}
	if err = rows.Err(); err != nil {
		return err, nil
	}
	return nil, &follows
}

// Inbox operations

func (db *DB) CreateInboxItem(item *domain.InboxItem) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertInboxItem,
			item.Id.String(),
			util.NormalizeFQID(item.AuthorFQID),
			item.RawJSON,
			boolToInt(item.Processed),
			item.ReceivedAt,
		)
		return err
	})
}

// ClaimUnprocessedInbox atomically selects and flags every unprocessed
// inbox item for one author, in receipt order. A second concurrent call
// for the same author finds nothing left to claim.
func (db *DB) ClaimUnprocessedInbox(authorFQID string) (error, *[]domain.InboxItem) {
	var items []domain.InboxItem
	err := db.wrapTransaction(func(tx *sql.Tx) error {
		rows, err := tx.Query(sqlSelectUnprocessedInbox, util.NormalizeFQID(authorFQID))
		if err != nil {
			return err
		}

		items = items[:0]
		for rows.Next() {
			err, item := scanInboxRows(rows)
			if err != nil {
				rows.Close()
				return err
			}
			items = append(items, *item)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		for i := range items {
			if _, err := tx.Exec(sqlMarkInboxProcessed, items[i].Id.String()); err != nil {
				return err
			}
			items[i].Processed = true
		}
		return nil
	})
	if err != nil {
		return err, nil
	}
	return nil, &items
}

func (db *DB) ReadInboxByAuthor(authorFQID string, limit, offset int) (error, *[]domain.InboxItem) {
	rows, err := db.db.Query(sqlSelectInboxByAuthor, util.NormalizeFQID(authorFQID), limit, offset)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var items []domain.InboxItem
	for rows.Next() {
		err, item := scanInboxRows(rows)
		if err != nil {
			return err, nil
		}
		items = append(items, *item)
	}
	if err = rows.Err(); err != nil {
		return err, nil
	}
	return nil, &items
}

// ReadInboxBacklogAuthors returns the fqids of all authors that have at
// least one unprocessed inbox item.
func (db *DB) ReadInboxBacklogAuthors() (error, []string) {
	return db.readFQIDColumn(sqlSelectInboxBacklogAuthors)
}

func scanInboxRows(rows *sql.Rows) (error, *domain.InboxItem) {
	var item domain.InboxItem
	var id string
	var processed int

	err := rows.Scan(&id, &item.AuthorFQID, &item.RawJSON, &processed, &item.ReceivedAt)
	if err != nil {
		return err, nil
	}
	item.Id = uuid.MustParse(id)
	item.Processed = processed == 1
	return nil, &item
}

// Statistics

func (db *DB) CountLocalAuthors() (int, error) {
	var count int
	err := db.db.QueryRow(`SELECT COUNT(*) FROM authors WHERE local = 1`).Scan(&count)
	return count, err
}

func (db *DB) CountLocalEntries() (int, error) {
	var count int
	err := db.db.QueryRow(`SELECT COUNT(*) FROM entries e JOIN authors a ON a.fqid = e.author_fqid
		WHERE a.local = 1 AND e.visibility != 'DELETED'`).Scan(&count)
	return count, err
}

// Node operations

func (db *DB) CreateNode(n *domain.Node) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertNode,
			n.Id.String(),
			util.NormalizeFQID(n.BaseURL),
			util.FQIDHost(n.BaseURL),
			n.AuthUser,
			n.AuthPass,
			n.SharedUser,
			n.SharedPassHash,
			boolToInt(n.Active),
			n.CreatedAt,
		)
		return err
	})
}

// ReadNodeByHost looks up a peer node by the exact host component of its
// base url.
func (db *DB) ReadNodeByHost(host string) (error, *domain.Node) {
	row := db.db.QueryRow(sqlSelectNodeByHost, host)
	return scanNode(row)
}

func (db *DB) ReadNodeBySharedUser(user string) (error, *domain.Node) {
	row := db.db.QueryRow(sqlSelectNodeBySharedUser, user)
	return scanNode(row)
}

func (db *DB) ReadAllNodes() (error, *[]domain.Node) {
	rows, err := db.db.Query(sqlSelectAllNodes)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var nodes []domain.Node
	for rows.Next() {
		var n domain.Node
		var id string
		var authUser, authPass, sharedUser, sharedPassHash sql.NullString
		var active int

		err := rows.Scan(&id, &n.BaseURL, &n.Host, &authUser, &authPass, &sharedUser, &sharedPassHash, &active, &n.CreatedAt)
		if err != nil {
			return err, nil
		}
		n.Id = uuid.MustParse(id)
		n.AuthUser = authUser.String
		n.AuthPass = authPass.String
		n.SharedUser = sharedUser.String
		n.SharedPassHash = sharedPassHash.String
		n.Active = active == 1
		nodes = append(nodes, n)
	}
	if err = rows.Err(); err != nil {
		return err, nil
	}
	return nil, &nodes
}

func (db *DB) UpdateNodeActive(id uuid.UUID, active bool) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateNodeActive, boolToInt(active), id.String())
		return err
	})
}

func (db *DB) DeleteNode(id uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteNode, id.String())
		return err
	})
}

func scanNode(row *sql.Row) (error, *domain.Node) {
	var n domain.Node
	var id string
	var authUser, authPass, sharedUser, sharedPassHash sql.NullString
	var active int

	err := row.Scan(&id, &n.BaseURL, &n.Host, &authUser, &authPass, &sharedUser, &sharedPassHash, &active, &n.CreatedAt)
	if err != nil {
		return err, nil
	}
	n.Id = uuid.MustParse(id)
	n.AuthUser = authUser.String
	n.AuthPass = authPass.String
	n.SharedUser = sharedUser.String
	n.SharedPassHash = sharedPassHash.String
	n.Active = active == 1
	return nil, &n
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
