package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hireloop/hireloop/internal/idgen"
)

type Organization struct {
	Handle string `json:"handle"`
	Name   string `json:"name,omitempty"`
}

type User struct {
	ID                 string `json:"id"`
	Name               string `json:"name,omitempty"`
	Email              string `json:"email,omitempty"`
	OrganizationHandle string `json:"organization_handle,omitempty"`
}

type Job struct {
	ID                      string    `json:"id"`
	Handle                  string    `json:"handle"`
	OwnerOrganizationHandle string    `json:"owner_organization_handle"`
	Title                   string    `json:"title"`
	Description             string    `json:"description"`
	Department              string    `json:"department,omitempty"`
	Location                string    `json:"location,omitempty"`
	Status                  string    `json:"status,omitempty"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

func (s *Store) CreateOrganization(ctx context.Context, handle, name string) (Organization, error) {
	_, err := s.db.ExecContext(ctx, `INSERT INTO organizations (handle, name) VALUES (?, ?)`, handle, nullString(name))
	if err != nil {
		return Organization{}, fmt.Errorf("insert organization: %w", err)
	}
	return Organization{Handle: handle, Name: name}, nil
}

func (s *Store) CreateUser(ctx context.Context, name, email, orgHandle string) (User, error) {
	id := idgen.New()
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id, name, email, organization_handle) VALUES (?, ?, ?, ?)`,
		id, nullString(name), nullString(email), nullString(orgHandle))
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return User{ID: id, Name: name, Email: email, OrganizationHandle: orgHandle}, nil
}

func (s *Store) CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, userID, formatTime(expiresAt))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *Store) UserBySessionToken(ctx context.Context, token string) (User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.name, u.email, u.organization_handle, s.expires_at
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token = ?
	`, token)

	var user User
	var name, email, org sql.NullString
	var expiresAtStr string
	if err := row.Scan(&user.ID, &name, &email, &org, &expiresAtStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, fmt.Errorf("session: %w", ErrNotFound)
		}
		return User{}, fmt.Errorf("load session: %w", err)
	}
	if parseTime(expiresAtStr).Before(time.Now()) {
		return User{}, fmt.Errorf("session expired: %w", ErrNotFound)
	}
	user.Name = name.String
	user.Email = email.String
	user.OrganizationHandle = org.String
	return user, nil
}

// OrganizationUserIDs returns the ids of every user belonging to the
// organization, the audience for job-scoped broadcasts.
func (s *Store) OrganizationUserIDs(ctx context.Context, handle string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM users WHERE organization_handle = ?`, handle)
	if err != nil {
		return nil, fmt.Errorf("list organization users: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}

type JobInput struct {
	Handle                  string
	OwnerOrganizationHandle string
	Title                   string
	Description             string
	Department              string
	Location                string
	Status                  string
}

func (s *Store) CreateJob(ctx context.Context, input JobInput) (Job, error) {
	id := idgen.New()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, handle, owner_organization_handle, title, description, department, location, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, input.Handle, nullString(input.OwnerOrganizationHandle), input.Title, input.Description,
		nullString(input.Department), nullString(input.Location), nullString(input.Status),
		formatTime(now), formatTime(now))
	if err != nil {
		return Job{}, fmt.Errorf("insert job: %w", err)
	}
	return Job{
		ID:                      id,
		Handle:                  input.Handle,
		OwnerOrganizationHandle: input.OwnerOrganizationHandle,
		Title:                   input.Title,
		Description:             input.Description,
		Department:              input.Department,
		Location:                input.Location,
		Status:                  input.Status,
		CreatedAt:               now,
		UpdatedAt:               now,
	}, nil
}

func (s *Store) GetJob(ctx context.Context, jobID string) (Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, handle, owner_organization_handle, title, description, department, location, status, created_at, updated_at
		FROM jobs WHERE id = ?
	`, jobID)

	var job Job
	var org, department, location, status sql.NullString
	var createdAtStr, updatedAtStr string
	if err := row.Scan(&job.ID, &job.Handle, &org, &job.Title, &job.Description, &department, &location, &status, &createdAtStr, &updatedAtStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
		}
		return Job{}, fmt.Errorf("load job: %w", err)
	}
	job.OwnerOrganizationHandle = org.String
	job.Department = department.String
	job.Location = location.String
	job.Status = status.String
	job.CreatedAt = parseTime(createdAtStr)
	job.UpdatedAt = parseTime(updatedAtStr)
	return job, nil
}

// GetOwnedJob loads a job and checks that it belongs to the caller's
// organization. Unknown job is ErrNotFound; someone else's job is
// ErrForbidden.
func (s *Store) GetOwnedJob(ctx context.Context, jobID, orgHandle string) (Job, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return Job{}, err
	}
	if job.OwnerOrganizationHandle != orgHandle {
		return Job{}, fmt.Errorf("job %s: %w", jobID, ErrForbidden)
	}
	return job, nil
}
