package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hireloop/hireloop/internal/idgen"
)

type FieldType string

const (
	FieldBoolean FieldType = "boolean"
	FieldNumber  FieldType = "number"
	FieldDate    FieldType = "date"
	FieldText    FieldType = "text"
)

func (t FieldType) Valid() bool {
	switch t {
	case FieldBoolean, FieldNumber, FieldDate, FieldText:
		return true
	}
	return false
}

type CustomField struct {
	ID          string    `json:"id"`
	JobID       string    `json:"job_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Type        FieldType `json:"type"`
	CreatedAt   time.Time `json:"created_at"`
}

type CustomFieldValue struct {
	ID            string    `json:"id"`
	CustomFieldID string    `json:"custom_field_id"`
	CandidateID   string    `json:"candidate_id"`
	Value         string    `json:"value"`
	Reasoning     string    `json:"reasoning,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (s *Store) CreateCustomField(ctx context.Context, jobID, name, description string, fieldType FieldType) (CustomField, error) {
	if !fieldType.Valid() {
		return CustomField{}, fmt.Errorf("invalid field type %q", fieldType)
	}
	id := idgen.New()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO custom_fields (id, job_id, name, description, type, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, jobID, name, description, string(fieldType), formatTime(now))
	if err != nil {
		return CustomField{}, fmt.Errorf("insert custom field: %w", err)
	}
	return CustomField{ID: id, JobID: jobID, Name: name, Description: description, Type: fieldType, CreatedAt: now}, nil
}

func (s *Store) ListCustomFields(ctx context.Context, jobID string) ([]CustomField, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, job_id, name, description, type, created_at FROM custom_fields WHERE job_id = ? ORDER BY created_at ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list custom fields: %w", err)
	}
	defer rows.Close()

	var out []CustomField
	for rows.Next() {
		var field CustomField
		var typeStr, createdAtStr string
		if err := rows.Scan(&field.ID, &field.JobID, &field.Name, &field.Description, &typeStr, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scan custom field: %w", err)
		}
		field.Type = FieldType(typeStr)
		field.CreatedAt = parseTime(createdAtStr)
		out = append(out, field)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate custom fields: %w", err)
	}
	return out, nil
}

// FieldValue returns the computed value for one (field, candidate) pair.
func (s *Store) FieldValue(ctx context.Context, fieldID, candidateID string) (CustomFieldValue, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, custom_field_id, candidate_id, value, reasoning, created_at
		FROM custom_field_values WHERE custom_field_id = ? AND candidate_id = ?
	`, fieldID, candidateID)
	return scanFieldValue(row)
}

// CreateFieldValue writes one derived value. Values are computed at most once
// per (field, candidate) pair; a concurrent duplicate loses to the existing
// row, which is returned instead.
func (s *Store) CreateFieldValue(ctx context.Context, fieldID, candidateID, value, reasoning string) (CustomFieldValue, error) {
	id := idgen.New()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO custom_field_values (id, custom_field_id, candidate_id, value, reasoning, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, fieldID, candidateID, value, nullString(reasoning), formatTime(now))
	if err != nil {
		if isUniqueViolation(err) {
			return s.FieldValue(ctx, fieldID, candidateID)
		}
		return CustomFieldValue{}, fmt.Errorf("insert field value: %w", err)
	}
	return CustomFieldValue{ID: id, CustomFieldID: fieldID, CandidateID: candidateID, Value: value, Reasoning: reasoning, CreatedAt: now}, nil
}

func (s *Store) ListFieldValues(ctx context.Context, fieldID string) ([]CustomFieldValue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, custom_field_id, candidate_id, value, reasoning, created_at
		FROM custom_field_values WHERE custom_field_id = ? ORDER BY created_at ASC
	`, fieldID)
	if err != nil {
		return nil, fmt.Errorf("list field values: %w", err)
	}
	defer rows.Close()

	var out []CustomFieldValue
	for rows.Next() {
		var fv CustomFieldValue
		var reasoning sql.NullString
		var createdAtStr string
		if err := rows.Scan(&fv.ID, &fv.CustomFieldID, &fv.CandidateID, &fv.Value, &reasoning, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scan field value: %w", err)
		}
		fv.Reasoning = reasoning.String
		fv.CreatedAt = parseTime(createdAtStr)
		out = append(out, fv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate field values: %w", err)
	}
	return out, nil
}

func scanFieldValue(row *sql.Row) (CustomFieldValue, error) {
	var fv CustomFieldValue
	var reasoning sql.NullString
	var createdAtStr string
	if err := row.Scan(&fv.ID, &fv.CustomFieldID, &fv.CandidateID, &fv.Value, &reasoning, &createdAtStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CustomFieldValue{}, fmt.Errorf("field value: %w", ErrNotFound)
		}
		return CustomFieldValue{}, fmt.Errorf("load field value: %w", err)
	}
	fv.Reasoning = reasoning.String
	fv.CreatedAt = parseTime(createdAtStr)
	return fv, nil
}
