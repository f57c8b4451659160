package store

import (
	"fmt"

	"skladtrack/models"
)

// === ReceptionStore ===

func (s *SQLiteStore) CreateReception(r models.Reception) (models.Reception, error) {
	if r.Status == "" {
		r.Status = models.ReceptionAccepted
	}
	res, err := s.db.Exec(`
		INSERT INTO receptions (date, order_number, designation, name, quantity, route_card_number, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, formatTime(r.Date), r.OrderNumber, r.Designation, r.Name, r.Quantity,
		r.RouteCardNumber, r.Status, formatTime(r.CreatedAt))
	if err != nil {
		return models.Reception{}, fmt.Errorf("insert reception: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Reception{}, fmt.Errorf("reception id: %w", err)
	}
	r.ID = id
	return r, nil
}

func (s *SQLiteStore) ListReceptions(search, status string) ([]models.Reception, error) {
	query := `
		SELECT id, date, order_number, designation, name, quantity, route_card_number, status, created_at
		FROM receptions WHERE 1=1`
	args := []any{}

	if search != "" {
		query += ` AND (order_number LIKE ? OR designation LIKE ? OR name LIKE ? OR route_card_number LIKE ?)`
		like := "%" + search + "%"
		args = append(args, like, like, like, like)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY date DESC, id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query receptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var receptions []models.Reception
	for rows.Next() {
		var r models.Reception
		var date, createdAt string
		if err := rows.Scan(&r.ID, &date, &r.OrderNumber, &r.Designation, &r.Name,
			&r.Quantity, &r.RouteCardNumber, &r.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan reception: %w", err)
		}
		r.Date = parseTime(date)
		r.CreatedAt = parseTime(createdAt)
		receptions = append(receptions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list receptions: %w", err)
	}
	return receptions, nil
}

// === FilterStore ===

func (s *SQLiteStore) CreateFilter(f models.SavedFilter) (models.SavedFilter, error) {
	res, err := s.db.Exec(`
		INSERT INTO saved_filters (name, query, created_at) VALUES (?, ?, ?)
	`, f.Name, f.Query, formatTime(f.CreatedAt))
	if err != nil {
		return models.SavedFilter{}, fmt.Errorf("insert saved filter: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.SavedFilter{}, fmt.Errorf("saved filter id: %w", err)
	}
	f.ID = id
	return f, nil
}

func (s *SQLiteStore) ListFilters() ([]models.SavedFilter, error) {
	rows, err := s.db.Query(`SELECT id, name, query, created_at FROM saved_filters ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query saved filters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var filters []models.SavedFilter
	for rows.Next() {
		var f models.SavedFilter
		var createdAt string
		if err := rows.Scan(&f.ID, &f.Name, &f.Query, &createdAt); err != nil {
			return nil, fmt.Errorf("scan saved filter: %w", err)
		}
		f.CreatedAt = parseTime(createdAt)
		filters = append(filters, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list saved filters: %w", err)
	}
	return filters, nil
}

func (s *SQLiteStore) DeleteFilter(id int64) error {
	res, err := s.db.Exec(`DELETE FROM saved_filters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete saved filter: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete saved filter rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("saved filter %d: %w", id, ErrNotFound)
	}
	return nil
}
