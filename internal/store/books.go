package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"github.com/kwscout/kw-scout/internal/pkg/errors"
)

// AddBook puts a listing under tracking. Adding an existing book ID updates
// its title and ownership flag in place.
func (s *Store) AddBook(ctx context.Context, book *TrackedBook) (*TrackedBook, error) {
	bookID := strings.ToUpper(strings.TrimSpace(book.BookID))
	if bookID == "" {
		return nil, errors.ValidationError("book ID must not be empty")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tracked_books (book_id, title, department, is_own, added_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (book_id) DO UPDATE SET title = excluded.title, is_own = excluded.is_own`,
		bookID, book.Title, book.Department, boolToInt(book.IsOwn), formatTime(time.Now()))
	if err != nil {
		return nil, errors.StorageError("inserting tracked book", err)
	}

	return s.GetBook(ctx, bookID)
}

// GetBook looks up one tracked book by marketplace identifier.
func (s *Store) GetBook(ctx context.Context, bookID string) (*TrackedBook, error) {
	bookID = strings.ToUpper(strings.TrimSpace(bookID))

	row := s.db.QueryRowContext(ctx,
		`SELECT id, book_id, title, department, is_own, added_at
		 FROM tracked_books WHERE book_id = ?`, bookID)

	var book TrackedBook
	var added scanTime
	err := row.Scan(&book.ID, &book.BookID, &book.Title, &book.Department, &book.IsOwn, &added)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFoundError("book " + bookID)
	}
	if err != nil {
		return nil, errors.StorageError("reading tracked book", err)
	}
	book.AddedAt = added.t

	return &book, nil
}

// RemoveBook stops tracking a listing and drops its snapshot history.
func (s *Store) RemoveBook(ctx context.Context, bookID string) error {
	bookID = strings.ToUpper(strings.TrimSpace(bookID))

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tracked_books WHERE book_id = ?`, bookID)
	if err != nil {
		return errors.StorageError("deleting tracked book", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NotFoundError("book " + bookID)
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM book_snapshots WHERE book_id = ?`, bookID); err != nil {
		return errors.StorageError("deleting book snapshots", err)
	}
	return nil
}

// ListBooks returns all tracked books, oldest first. An empty department
// lists every book.
func (s *Store) ListBooks(ctx context.Context, department string) ([]TrackedBook, error) {
	query := `SELECT id, book_id, title, department, is_own, added_at FROM tracked_books`
	args := []any{}
	if department != "" {
		query += ` WHERE department = ?`
		args = append(args, department)
	}
	query += ` ORDER BY added_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.StorageError("listing tracked books", err)
	}
	defer rows.Close()

	var books []TrackedBook
	for rows.Next() {
		var book TrackedBook
		var added scanTime
		if err := rows.Scan(&book.ID, &book.BookID, &book.Title, &book.Department,
			&book.IsOwn, &added); err != nil {
			return nil, errors.StorageError("scanning tracked book", err)
		}
		book.AddedAt = added.t
		books = append(books, book)
	}
	return books, rows.Err()
}

// SaveSnapshot appends one capture for a tracked book.
func (s *Store) SaveSnapshot(ctx context.Context, snap *BookSnapshot) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO book_snapshots
		 (book_id, rank, price, review_count, rating, est_daily_sales, captured_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.BookID, snap.Rank, snap.Price, snap.ReviewCount, snap.Rating,
		snap.EstDailySales, formatTime(snap.CapturedAt))
	if err != nil {
		return errors.StorageError("inserting snapshot", err)
	}

	snap.ID, _ = res.LastInsertId()
	return nil
}

// LatestSnapshot returns the most recent capture for a book, or a not-found
// error when none exists yet.
func (s *Store) LatestSnapshot(ctx context.Context, bookID string) (*BookSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, book_id, rank, price, review_count, rating, est_daily_sales, captured_at
		 FROM book_snapshots WHERE book_id = ?
		 ORDER BY captured_at DESC, id DESC LIMIT 1`,
		strings.ToUpper(strings.TrimSpace(bookID)))

	snap, err := scanSnapshot(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFoundError("snapshot for book " + bookID)
	}
	if err != nil {
		return nil, errors.StorageError("reading snapshot", err)
	}
	return snap, nil
}

// Snapshots returns a book's captures within a window, oldest first.
func (s *Store) Snapshots(ctx context.Context, bookID string, since time.Time) ([]BookSnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, book_id, rank, price, review_count, rating, est_daily_sales, captured_at
		 FROM book_snapshots WHERE book_id = ? AND captured_at >= ?
		 ORDER BY captured_at, id`,
		strings.ToUpper(strings.TrimSpace(bookID)), formatTime(since))
	if err != nil {
		return nil, errors.StorageError("listing snapshots", err)
	}
	defer rows.Close()

	var snaps []BookSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, errors.StorageError("scanning snapshot", err)
		}
		snaps = append(snaps, *snap)
	}
	return snaps, rows.Err()
}

// LatestSnapshots returns the most recent capture of every tracked book in a
// department. Books with no captures yet are omitted.
func (s *Store) LatestSnapshots(ctx context.Context, department string) ([]BookSnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sn.id, sn.book_id, sn.rank, sn.price, sn.review_count, sn.rating,
		        sn.est_daily_sales, sn.captured_at
		 FROM book_snapshots sn
		 JOIN tracked_books b ON b.book_id = sn.book_id
		 WHERE b.department = ?
		   AND sn.id = (SELECT s2.id FROM book_snapshots s2
		                WHERE s2.book_id = sn.book_id
		                ORDER BY s2.captured_at DESC, s2.id DESC LIMIT 1)`,
		department)
	if err != nil {
		return nil, errors.StorageError("listing latest snapshots", err)
	}
	defer rows.Close()

	var snaps []BookSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, errors.StorageError("scanning snapshot", err)
		}
		snaps = append(snaps, *snap)
	}
	return snaps, rows.Err()
}

func scanSnapshot(row rowScanner) (*BookSnapshot, error) {
	var snap BookSnapshot
	var captured scanTime
	err := row.Scan(&snap.ID, &snap.BookID, &snap.Rank, &snap.Price,
		&snap.ReviewCount, &snap.Rating, &snap.EstDailySales, &captured)
	if err != nil {
		return nil, err
	}
	snap.CapturedAt = captured.t
	return &snap, nil
}
