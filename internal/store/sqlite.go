package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"FareWatch/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists daily fares and the change log to a SQLite database.
// Single writer; each Upsert is its own transaction, so a failing batch
// leaves earlier rows committed.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data dir: %v", ErrStorage, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %v", ErrStorage, err)
	}

	// WAL mode so dashboard reads don't block the bot's writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: set WAL mode: %v", ErrStorage, err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[INFO] price store opened: %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS daily_prices (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			date        TEXT UNIQUE NOT NULL,
			min_price   INTEGER NOT NULL,
			last_price  INTEGER NOT NULL,
			prices_json TEXT NOT NULL,
			created_at  INTEGER NOT NULL,
			updated_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_daily_date ON daily_prices(date)`,

		`CREATE TABLE IF NOT EXISTS price_changes (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			date              TEXT NOT NULL,
			old_price         INTEGER NOT NULL,
			new_price         INTEGER NOT NULL,
			change_amount     INTEGER NOT NULL,
			change_percentage REAL NOT NULL,
			created_at        INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_changes_created ON price_changes(created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("%w: migrate %q: %v", ErrStorage, stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) Upsert(date string, price int) (*UpsertResult, error) {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: malformed date %q", ErrValidation, date)
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: non-positive fare %d for %s", ErrValidation, price, date)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var minPrice, lastPrice int
	var rawJSON string
	err := s.db.QueryRow(
		`SELECT min_price, last_price, prices_json FROM daily_prices WHERE date = ?`, date,
	).Scan(&minPrice, &lastPrice, &rawJSON)

	now := s.now()
	if err == sql.ErrNoRows {
		raw, _ := json.Marshal([]int{price})
		if _, err := s.db.Exec(
			`INSERT INTO daily_prices (date, min_price, last_price, prices_json, created_at, updated_at)
			 VALUES (?,?,?,?,?,?)`,
			date, price, price, string(raw), now.Unix(), now.Unix(),
		); err != nil {
			return nil, fmt.Errorf("%w: insert %s: %v", ErrStorage, date, err)
		}
		return &UpsertResult{Outcome: OutcomeInserted}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lookup %s: %v", ErrStorage, date, err)
	}

	if price == lastPrice {
		return &UpsertResult{Outcome: OutcomeUnchanged}, nil
	}
	if lastPrice == 0 {
		// Unreachable through Upsert itself, but never divide by it.
		return nil, fmt.Errorf("%w: stored fare for %s is 0, refusing percentage", ErrValidation, date)
	}

	change := &model.PriceChange{
		Date:             date,
		OldPrice:         lastPrice,
		NewPrice:         price,
		ChangeAmount:     price - lastPrice,
		ChangePercentage: float64(price-lastPrice) / float64(lastPrice) * 100,
		CreatedAt:        now,
	}

	// The stored minimum never goes up; a higher re-scrape only moves
	// last_price and the change log.
	newMin := minPrice
	if price < newMin {
		newMin = price
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("%w: begin update %s: %v", ErrStorage, date, err)
	}
	if _, err := tx.Exec(
		`UPDATE daily_prices SET min_price = ?, last_price = ?, prices_json = ?, updated_at = ? WHERE date = ?`,
		newMin, price, appendRawPrice(rawJSON, price), now.Unix(), date,
	); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("%w: update %s: %v", ErrStorage, date, err)
	}
	if _, err := tx.Exec(
		`INSERT INTO price_changes (date, old_price, new_price, change_amount, change_percentage, created_at)
		 VALUES (?,?,?,?,?,?)`,
		date, change.OldPrice, change.NewPrice, change.ChangeAmount, change.ChangePercentage, now.Unix(),
	); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("%w: record change %s: %v", ErrStorage, date, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit update %s: %v", ErrStorage, date, err)
	}

	return &UpsertResult{Outcome: OutcomeUpdated, Change: change}, nil
}

// appendRawPrice grows the audit snapshot with the newly observed fare.
func appendRawPrice(rawJSON string, price int) string {
	var prices []int
	if err := json.Unmarshal([]byte(rawJSON), &prices); err != nil {
		prices = nil
	}
	prices = append(prices, price)
	out, _ := json.Marshal(prices)
	return string(out)
}

func (s *SQLiteStore) GetRecent(n int) ([]model.PricePoint, error) {
	if n <= 0 {
		return nil, nil
	}
	return s.queryPoints(
		`SELECT date, min_price FROM daily_prices ORDER BY date DESC LIMIT ?`, n)
}

func (s *SQLiteStore) GetRange(startDate, endDate string) ([]model.PricePoint, error) {
	return s.queryPoints(
		`SELECT date, min_price FROM daily_prices WHERE date >= ? AND date <= ? ORDER BY date`,
		startDate, endDate)
}

func (s *SQLiteStore) GetAll() ([]model.PricePoint, error) {
	return s.queryPoints(`SELECT date, min_price FROM daily_prices ORDER BY date`)
}

func (s *SQLiteStore) queryPoints(query string, args ...any) ([]model.PricePoint, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query prices: %v", ErrStorage, err)
	}
	defer rows.Close()

	var points []model.PricePoint
	for rows.Next() {
		var p model.PricePoint
		if err := rows.Scan(&p.Date, &p.Price); err != nil {
			return nil, fmt.Errorf("%w: scan price row: %v", ErrStorage, err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate price rows: %v", ErrStorage, err)
	}
	return points, nil
}

func (s *SQLiteStore) GetAllChanges() ([]model.PriceChange, error) {
	return s.queryChanges(
		`SELECT date, old_price, new_price, change_amount, change_percentage, created_at
		 FROM price_changes ORDER BY created_at DESC, id DESC`)
}

func (s *SQLiteStore) GetChangesAboveThreshold(percentage float64) ([]model.PriceChange, error) {
	return s.queryChanges(
		`SELECT date, old_price, new_price, change_amount, change_percentage, created_at
		 FROM price_changes
		 WHERE ABS(change_percentage) >= ?
		 ORDER BY ABS(change_percentage) DESC, created_at DESC, id DESC`,
		percentage)
}

func (s *SQLiteStore) queryChanges(query string, args ...any) ([]model.PriceChange, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query changes: %v", ErrStorage, err)
	}
	defer rows.Close()

	var changes []model.PriceChange
	for rows.Next() {
		var c model.PriceChange
		var createdAt int64
		if err := rows.Scan(&c.Date, &c.OldPrice, &c.NewPrice, &c.ChangeAmount, &c.ChangePercentage, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scan change row: %v", ErrStorage, err)
		}
		c.CreatedAt = time.Unix(createdAt, 0)
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate change rows: %v", ErrStorage, err)
	}
	return changes, nil
}

func (s *SQLiteStore) PruneOlderThan(days int) (deletedPrices, deletedChanges int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().AddDate(0, 0, -days)
	cutoffDate := cutoff.Format(model.DateLayout)

	res, err := s.db.Exec(`DELETE FROM daily_prices WHERE date < ?`, cutoffDate)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: prune prices: %v", ErrStorage, err)
	}
	prices, _ := res.RowsAffected()

	res, err = s.db.Exec(`DELETE FROM price_changes WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return int(prices), 0, fmt.Errorf("%w: prune changes: %v", ErrStorage, err)
	}
	changes, _ := res.RowsAffected()

	log.Printf("[INFO] pruned %d fare rows and %d change rows older than %s", prices, changes, cutoffDate)
	return int(prices), int(changes), nil
}

func (s *SQLiteStore) Close() error {
	log.Println("[INFO] closing price store")
	return s.db.Close()
}
