package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// TypeName returns a cached item type name; ok is false on a cache miss.
func (s *Store) TypeName(ctx context.Context, typeID int64) (name string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT name FROM type_names WHERE type_id = ?`, typeID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading type name %d: %w", typeID, err)
	}
	return name, true, nil
}

// SaveTypeName caches an item type name.
func (s *Store) SaveTypeName(ctx context.Context, typeID int64, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO type_names (type_id, name) VALUES (?, ?)
		ON CONFLICT(type_id) DO UPDATE SET name = excluded.name`,
		typeID, name)
	if err != nil {
		return fmt.Errorf("caching type name %d: %w", typeID, err)
	}
	return nil
}

// CharacterName returns a cached character name; ok is false on a miss.
func (s *Store) CharacterName(ctx context.Context, characterID int64) (name string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT name FROM characters WHERE character_id = ?`, characterID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading character name %d: %w", characterID, err)
	}
	return name, true, nil
}

// SaveCharacterName caches a character name with a freshness stamp.
func (s *Store) SaveCharacterName(ctx context.Context, characterID int64, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO characters (character_id, name, last_updated) VALUES (?, ?, ?)
		ON CONFLICT(character_id) DO UPDATE SET
			name = excluded.name,
			last_updated = excluded.last_updated`,
		characterID, name, timeToDB(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("caching character name %d: %w", characterID, err)
	}
	return nil
}
