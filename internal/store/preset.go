package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Preset is a named simulation tuning stored in the database. Params holds
// the JSON encoding of the engine parameters; the store does not interpret
// it beyond validity.
type Preset struct {
	ID        string
	Name      string
	Params    json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PresetRepository provides CRUD operations for presets.
type PresetRepository struct {
	db *sql.DB
}

// Presets returns the preset repository for this store.
func (s *Store) Presets() *PresetRepository {
	return &PresetRepository{db: s.db}
}

// Create inserts a new preset into the database.
func (r *PresetRepository) Create(p *Preset) error {
	if !json.Valid(p.Params) {
		return errors.New("preset params is not valid JSON")
	}

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO presets (id, name, params, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, string(p.Params), p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetByID retrieves a preset by its ID.
func (r *PresetRepository) GetByID(id string) (*Preset, error) {
	return r.getOne(`SELECT id, name, params, created_at, updated_at FROM presets WHERE id = ?`, id)
}

// GetByName retrieves a preset by its unique name.
func (r *PresetRepository) GetByName(name string) (*Preset, error) {
	return r.getOne(`SELECT id, name, params, created_at, updated_at FROM presets WHERE name = ?`, name)
}

func (r *PresetRepository) getOne(query string, arg any) (*Preset, error) {
	p := &Preset{}
	var params string

	err := r.db.QueryRow(query, arg).Scan(&p.ID, &p.Name, &params, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	p.Params = json.RawMessage(params)
	return p, nil
}

// List returns all presets ordered by name.
func (r *PresetRepository) List() ([]*Preset, error) {
	rows, err := r.db.Query(
		`SELECT id, name, params, created_at, updated_at FROM presets ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var presets []*Preset
	for rows.Next() {
		p := &Preset{}
		var params string
		if err := rows.Scan(&p.ID, &p.Name, &params, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Params = json.RawMessage(params)
		presets = append(presets, p)
	}

	return presets, rows.Err()
}

// Update replaces a preset's name and params.
func (r *PresetRepository) Update(p *Preset) error {
	if !json.Valid(p.Params) {
		return errors.New("preset params is not valid JSON")
	}

	p.UpdatedAt = time.Now()

	res, err := r.db.Exec(
		`UPDATE presets SET name = ?, params = ?, updated_at = ? WHERE id = ?`,
		p.Name, string(p.Params), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a preset by its ID.
func (r *PresetRepository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM presets WHERE id = ?`, id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
