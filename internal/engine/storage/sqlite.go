// Package storage persists records incrementally to sqlite. Deduplication
// is completeness-aware: a record replaces an existing row for the same
// business only when it knows more.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"mapharvest/internal/model"
)

type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	// Optimize for write throughput
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createSchema(db); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS businesses (
		id TEXT PRIMARY KEY,
		place_id TEXT,
		name TEXT NOT NULL,
		name_en TEXT,
		name_he TEXT,
		business_type TEXT,
		categories TEXT,
		description TEXT,
		address TEXT,
		city TEXT,
		country TEXT,
		lat REAL,
		lng REAL,
		phone TEXT,
		phone_alt TEXT,
		website TEXT,
		has_website INTEGER NOT NULL DEFAULT 0,
		email TEXT NOT NULL DEFAULT '',
		whatsapp TEXT,
		social TEXT,
		rating REAL,
		review_count INTEGER,
		price_range TEXT,
		attributes TEXT,
		hours TEXT,
		open_24_hours INTEGER NOT NULL DEFAULT 0,
		temporarily_closed INTEGER NOT NULL DEFAULT 0,
		permanently_closed INTEGER NOT NULL DEFAULT 0,
		images TEXT,
		logo_url TEXT,
		cover_url TEXT,
		source_url TEXT,
		scraped_at DATETIME,
		last_updated DATETIME,
		completeness INTEGER NOT NULL DEFAULT 0,
		UNIQUE(source_url)
	);
	CREATE INDEX IF NOT EXISTS idx_businesses_city ON businesses(city);
	CREATE INDEX IF NOT EXISTS idx_businesses_phone ON businesses(phone);
	CREATE INDEX IF NOT EXISTS idx_businesses_rating ON businesses(rating);
	CREATE INDEX IF NOT EXISTS idx_businesses_has_website ON businesses(has_website);
	`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// InsertBatch upserts records in one transaction. A record sharing its
// source URL with an existing row wins only if its completeness is higher;
// last_updated refreshes either way. Returns how many rows were written.
// Records that individually fail do not stop the batch; their errors come
// back joined so the caller can log them.
func (s *Store) InsertBatch(records []model.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning tx: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO businesses
		(id, place_id, name, name_en, name_he, business_type, categories, description,
		 address, city, country, lat, lng,
		 phone, phone_alt, website, has_website, email, whatsapp, social,
		 rating, review_count, price_range, attributes,
		 hours, open_24_hours, temporarily_closed, permanently_closed,
		 images, logo_url, cover_url, source_url, scraped_at, last_updated, completeness)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(source_url) DO UPDATE SET
			name=excluded.name, name_en=excluded.name_en, name_he=excluded.name_he,
			business_type=excluded.business_type, categories=excluded.categories,
			description=excluded.description, address=excluded.address,
			city=excluded.city, country=excluded.country,
			lat=excluded.lat, lng=excluded.lng,
			phone=excluded.phone, phone_alt=excluded.phone_alt,
			website=excluded.website, has_website=excluded.has_website,
			whatsapp=excluded.whatsapp, social=excluded.social,
			rating=excluded.rating, review_count=excluded.review_count,
			price_range=excluded.price_range, attributes=excluded.attributes,
			hours=excluded.hours, open_24_hours=excluded.open_24_hours,
			temporarily_closed=excluded.temporarily_closed,
			permanently_closed=excluded.permanently_closed,
			images=excluded.images, logo_url=excluded.logo_url,
			cover_url=excluded.cover_url,
			scraped_at=excluded.scraped_at, last_updated=excluded.last_updated,
			completeness=excluded.completeness
		WHERE excluded.completeness > businesses.completeness
	`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("preparing stmt: %w", err)
	}
	defer stmt.Close()

	touch, err := tx.Prepare(`UPDATE businesses SET last_updated=? WHERE source_url=?`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("preparing touch stmt: %w", err)
	}
	defer touch.Close()

	written := 0
	var rowErrs []error
	for _, r := range records {
		res, err := stmt.Exec(
			r.ID, r.PlaceID, r.Name, r.NameEN, r.NameHE,
			r.BusinessType, asJSON(r.Categories), r.Description,
			r.Address, r.City, r.Country, r.Lat, r.Lng,
			r.Phone, r.PhoneAlt, r.Website, r.HasWebsite, r.Email, r.WhatsApp, asJSON(r.Social),
			r.Rating, r.ReviewCount, r.PriceRange, asJSON(r.Attributes),
			asJSON(r.Hours), r.Open24Hours, r.TemporarilyClosed, r.PermanentlyClosed,
			asJSON(r.Images), r.LogoURL, r.CoverURL, r.SourceURL,
			r.ScrapedAt, r.LastUpdated, r.Completeness,
		)
		if err != nil {
			rowErrs = append(rowErrs, fmt.Errorf("inserting %q (%s): %w", r.Name, r.SourceURL, err))
			continue
		}
		n, _ := res.RowsAffected()
		if n > 0 {
			written += int(n)
		} else if r.SourceURL != "" {
			// Lost the completeness contest; still mark the business as seen.
			touch.Exec(r.LastUpdated, r.SourceURL)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing tx: %w", err)
	}

	return written, errors.Join(rowErrs...)
}

// MergeByPhone removes duplicate rows sharing a non-empty phone number,
// keeping the highest-completeness row per phone. Meant as a post-run pass:
// the same physical business can surface under two source URLs.
func (s *Store) MergeByPhone() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		DELETE FROM businesses
		WHERE phone IS NOT NULL AND phone != ''
		AND id NOT IN (
			SELECT keep_id FROM (
				SELECT phone AS p,
				       (SELECT id FROM businesses b2
				        WHERE b2.phone = b.phone
				        ORDER BY b2.completeness DESC, b2.last_updated DESC
				        LIMIT 1) AS keep_id
				FROM businesses b
				WHERE b.phone IS NOT NULL AND b.phone != ''
				GROUP BY phone
			)
		)
	`)
	if err != nil {
		return 0, fmt.Errorf("merging by phone: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// SetContacts stores enrichment output for one record.
func (s *Store) SetContacts(id, email, whatsapp string, social map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`UPDATE businesses SET email=?, whatsapp=?, social=? WHERE id=?`,
		email, whatsapp, asJSON(social), id,
	)
	return err
}

// LoadAll returns every stored record ordered by name, for export.
func (s *Store) LoadAll() ([]model.Record, error) {
	rows, err := s.db.Query(`
		SELECT id, place_id, name, name_en, name_he, business_type, categories, description,
		       address, city, country, lat, lng,
		       phone, phone_alt, website, has_website, email, whatsapp, social,
		       rating, review_count, price_range, attributes,
		       hours, open_24_hours, temporarily_closed, permanently_closed,
		       images, logo_url, cover_url, source_url, scraped_at, last_updated, completeness
		FROM businesses ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		var r model.Record
		var categories, social, attributes, hours, images []byte
		err := rows.Scan(
			&r.ID, &r.PlaceID, &r.Name, &r.NameEN, &r.NameHE,
			&r.BusinessType, &categories, &r.Description,
			&r.Address, &r.City, &r.Country, &r.Lat, &r.Lng,
			&r.Phone, &r.PhoneAlt, &r.Website, &r.HasWebsite, &r.Email, &r.WhatsApp, &social,
			&r.Rating, &r.ReviewCount, &r.PriceRange, &attributes,
			&hours, &r.Open24Hours, &r.TemporarilyClosed, &r.PermanentlyClosed,
			&images, &r.LogoURL, &r.CoverURL, &r.SourceURL,
			&r.ScrapedAt, &r.LastUpdated, &r.Completeness,
		)
		if err != nil {
			continue
		}
		json.Unmarshal(categories, &r.Categories)
		json.Unmarshal(social, &r.Social)
		json.Unmarshal(attributes, &r.Attributes)
		json.Unmarshal(hours, &r.Hours)
		json.Unmarshal(images, &r.Images)
		records = append(records, r)
	}
	return records, rows.Err()
}

// NeedingEnrichment returns records with a website and no email yet.
func (s *Store) NeedingEnrichment(limit int) ([]model.Record, error) {
	q := `SELECT id, name, website FROM businesses WHERE website != '' AND email = ''`
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.Query(q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		var r model.Record
		if err := rows.Scan(&r.ID, &r.Name, &r.Website); err != nil {
			continue
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM businesses").Scan(&count)
	return count, err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func asJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
