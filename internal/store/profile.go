package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hireloop/hireloop/internal/idgen"
)

type Profile struct {
	ID        string         `json:"id"`
	Handle    string         `json:"handle"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

func (p Profile) Expired() bool {
	return !p.ExpiresAt.IsZero() && p.ExpiresAt.Before(time.Now())
}

func (s *Store) ProfileByHandle(ctx context.Context, handle string) (Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, handle, data, created_at, updated_at, expires_at FROM profiles WHERE handle = ?`, handle)
	return scanProfile(row, handle)
}

func (s *Store) ProfileByID(ctx context.Context, id string) (Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, handle, data, created_at, updated_at, expires_at FROM profiles WHERE id = ?`, id)
	return scanProfile(row, id)
}

// CreateProfile inserts a cached profile for the handle. Two requests can
// both miss the cache and both insert; the handle is unique, so the loser
// gets the winner's row back instead of an error.
func (s *Store) CreateProfile(ctx context.Context, handle string, data map[string]any, ttl time.Duration) (Profile, error) {
	id := idgen.New()
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)
	dataJSON, err := encodeJSON(data)
	if err != nil {
		return Profile{}, fmt.Errorf("encode profile data: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO profiles (id, handle, data, created_at, updated_at, expires_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, handle, dataJSON, formatTime(now), formatTime(now), formatTime(expiresAt))
	if err != nil {
		if isUniqueViolation(err) {
			return s.ProfileByHandle(ctx, handle)
		}
		return Profile{}, fmt.Errorf("insert profile: %w", err)
	}
	return Profile{ID: id, Handle: handle, Data: data, CreatedAt: now, UpdatedAt: now, ExpiresAt: expiresAt}, nil
}

// RefreshProfile replaces the cached data and pushes out the expiry.
func (s *Store) RefreshProfile(ctx context.Context, id string, data map[string]any, ttl time.Duration) (Profile, error) {
	now := time.Now().UTC()
	dataJSON, err := encodeJSON(data)
	if err != nil {
		return Profile{}, fmt.Errorf("encode profile data: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `UPDATE profiles SET data = ?, updated_at = ?, expires_at = ? WHERE id = ?`,
		dataJSON, formatTime(now), formatTime(now.Add(ttl)), id)
	if err != nil {
		return Profile{}, fmt.Errorf("update profile: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `SELECT id, handle, data, created_at, updated_at, expires_at FROM profiles WHERE id = ?`, id)
	return scanProfile(row, id)
}

func scanProfile(row *sql.Row, ref string) (Profile, error) {
	var profile Profile
	var dataStr sql.NullString
	var createdAtStr, updatedAtStr, expiresAtStr string
	if err := row.Scan(&profile.ID, &profile.Handle, &dataStr, &createdAtStr, &updatedAtStr, &expiresAtStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, fmt.Errorf("profile %s: %w", ref, ErrNotFound)
		}
		return Profile{}, fmt.Errorf("load profile: %w", err)
	}
	profile.Data = decodeJSONMap(dataStr.String)
	profile.CreatedAt = parseTime(createdAtStr)
	profile.UpdatedAt = parseTime(updatedAtStr)
	profile.ExpiresAt = parseTime(expiresAtStr)
	return profile, nil
}
