package store

import "database/sql"

// GetSetting looks up a settings value by key. Missing keys are not an
// error; the bool reports presence.
func (s *Store) GetSetting(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetSetting upserts a settings value.
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// IncrementStat bumps a named aggregate counter. Counters survive hard
// deletes of the rows they were derived from.
func (s *Store) IncrementStat(name string) error {
	_, err := s.db.Exec(`INSERT INTO stats (name, value) VALUES (?, 1)
		ON CONFLICT(name) DO UPDATE SET value = value + 1`, name)
	return err
}

// GetStats returns all aggregate counters.
func (s *Store) GetStats() (map[string]int64, error) {
	rows, err := s.db.Query(`SELECT name, value FROM stats`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[string]int64)
	for rows.Next() {
		var name string
		var value int64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		stats[name] = value
	}
	return stats, rows.Err()
}
