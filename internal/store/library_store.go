package store

import (
	"database/sql"
	"time"

	"github.com/audiarr/audiarr/internal/models"
)

// --- Works ---

const workColumns = `id, asin, title, author, narrator, description, cover_url,
	duration_minutes, release_date, library_item_id, created_at, updated_at`

func scanWork(row interface{ Scan(...any) error }) (*models.Work, error) {
	var w models.Work
	var libraryItemID sql.NullInt64
	err := row.Scan(&w.ID, &w.ASIN, &w.Title, &w.Author, &w.Narrator, &w.Description,
		&w.CoverURL, &w.DurationMinutes, &w.ReleaseDate, &libraryItemID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if libraryItemID.Valid {
		w.LibraryItemID = &libraryItemID.Int64
	}
	return &w, nil
}

// GetOrCreateWork finds a work by ASIN (or title+author when the ASIN is
// empty) or creates it.
func (s *Store) GetOrCreateWork(w *models.Work) (*models.Work, error) {
	var row *sql.Row
	if w.ASIN != "" {
		row = s.db.QueryRow(`SELECT `+workColumns+` FROM works WHERE asin = ?`, w.ASIN)
	} else {
		row = s.db.QueryRow(`SELECT `+workColumns+` FROM works WHERE title = ? AND author = ?`, w.Title, w.Author)
	}
	existing, err := scanWork(row)
	if err == nil {
		return existing, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	now := time.Now()
	res, err := s.db.Exec(`INSERT INTO works
		(asin, title, author, narrator, description, cover_url, duration_minutes, release_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ASIN, w.Title, w.Author, w.Narrator, w.Description, w.CoverURL,
		w.DurationMinutes, w.ReleaseDate, now, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetWork(id)
}

// GetWork fetches a work by id.
func (s *Store) GetWork(id int64) (*models.Work, error) {
	row := s.db.QueryRow(`SELECT `+workColumns+` FROM works WHERE id = ?`, id)
	return scanWork(row)
}

// ListWorks returns every work in the catalog.
func (s *Store) ListWorks() ([]*models.Work, error) {
	rows, err := s.db.Query(`SELECT ` + workColumns + ` FROM works ORDER BY title ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var works []*models.Work
	for rows.Next() {
		w, err := scanWork(rows)
		if err != nil {
			return nil, err
		}
		works = append(works, w)
	}
	return works, rows.Err()
}

// LinkWorkToLibraryItem points a work at the library item that matched it.
// A nil itemID clears the link.
func (s *Store) LinkWorkToLibraryItem(workID int64, itemID *int64) error {
	_, err := s.db.Exec(`UPDATE works SET library_item_id = ?, updated_at = ? WHERE id = ?`,
		itemID, time.Now(), workID)
	return err
}

// WorksLinkedToLibraryItem returns the works pointing at a library item.
func (s *Store) WorksLinkedToLibraryItem(itemID int64) ([]*models.Work, error) {
	rows, err := s.db.Query(`SELECT `+workColumns+` FROM works WHERE library_item_id = ?`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var works []*models.Work
	for rows.Next() {
		w, err := scanWork(rows)
		if err != nil {
			return nil, err
		}
		works = append(works, w)
	}
	return works, rows.Err()
}

// WorksWithDanglingLibraryItem finds works whose library pointer references
// an item row that no longer exists. The stale sweep and this orphan check
// are not transactional with each other, so both passes are needed.
func (s *Store) WorksWithDanglingLibraryItem() ([]*models.Work, error) {
	rows, err := s.db.Query(`SELECT ` + workColumns + ` FROM works
		WHERE library_item_id IS NOT NULL
		AND library_item_id NOT IN (SELECT id FROM library_items)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var works []*models.Work
	for rows.Next() {
		w, err := scanWork(rows)
		if err != nil {
			return nil, err
		}
		works = append(works, w)
	}
	return works, rows.Err()
}

// --- Library items ---

const libraryItemColumns = `id, external_id, title, author, narrator, asin, isbn, cover_url, last_scanned_at`

func scanLibraryItem(row interface{ Scan(...any) error }) (*models.LibraryItem, error) {
	var li models.LibraryItem
	err := row.Scan(&li.ID, &li.ExternalID, &li.Title, &li.Author, &li.Narrator,
		&li.ASIN, &li.ISBN, &li.CoverURL, &li.LastScannedAt)
	if err != nil {
		return nil, err
	}
	return &li, nil
}

// UpsertLibraryItem records an item seen in the external library, keyed by
// its opaque external id, and stamps it with the scan time.
func (s *Store) UpsertLibraryItem(li *models.LibraryItem, scannedAt time.Time) (int64, error) {
	_, err := s.db.Exec(`INSERT INTO library_items
		(external_id, title, author, narrator, asin, isbn, cover_url, last_scanned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			narrator = excluded.narrator,
			asin = excluded.asin,
			isbn = excluded.isbn,
			cover_url = excluded.cover_url,
			last_scanned_at = excluded.last_scanned_at`,
		li.ExternalID, li.Title, li.Author, li.Narrator, li.ASIN, li.ISBN, li.CoverURL, scannedAt)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.db.QueryRow(`SELECT id FROM library_items WHERE external_id = ?`, li.ExternalID).Scan(&id)
	return id, err
}

// GetLibraryItem fetches a library item by id.
func (s *Store) GetLibraryItem(id int64) (*models.LibraryItem, bool, error) {
	row := s.db.QueryRow(`SELECT `+libraryItemColumns+` FROM library_items WHERE id = ?`, id)
	li, err := scanLibraryItem(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return li, true, nil
}

// ListLibraryItems returns every recorded library item.
func (s *Store) ListLibraryItems() ([]*models.LibraryItem, error) {
	rows, err := s.db.Query(`SELECT ` + libraryItemColumns + ` FROM library_items`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.LibraryItem
	for rows.Next() {
		li, err := scanLibraryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

// StaleLibraryItems returns items not seen by the scan that ran at or
// after the given time.
func (s *Store) StaleLibraryItems(scannedAt time.Time) ([]*models.LibraryItem, error) {
	rows, err := s.db.Query(`SELECT `+libraryItemColumns+` FROM library_items WHERE last_scanned_at < ?`, scannedAt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.LibraryItem
	for rows.Next() {
		li, err := scanLibraryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

// DeleteLibraryItem removes a library item row.
func (s *Store) DeleteLibraryItem(id int64) error {
	_, err := s.db.Exec(`DELETE FROM library_items WHERE id = ?`, id)
	return err
}
