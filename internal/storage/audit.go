package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/icoffio/articleflow/internal/core/domain"
)

const submissionColumns = `id, chat_id, user_id, username, type, content, status,
	job_id, title, urls, error, duration_ms, created_at, updated_at`

func scanSubmission(row pgx.Row) (*domain.Submission, error) {
	var (
		s        domain.Submission
		username pgtype.Text
		jobID    pgtype.Text
		title    pgtype.Text
		errText  pgtype.Text
		urlsRaw  []byte
	)

	if err := row.Scan(&s.ID, &s.ChatID, &s.UserID, &username, &s.Type, &s.Content,
		&s.Status, &jobID, &title, &urlsRaw, &errText, &s.DurationMS,
		&s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}

	s.Username = fromText(username)
	s.JobID = fromText(jobID)
	s.Title = fromText(title)
	s.Error = fromText(errText)

	if len(urlsRaw) > 0 {
		if err := json.Unmarshal(urlsRaw, &s.URLs); err != nil {
			return nil, fmt.Errorf("decode submission urls: %w", err)
		}
	}

	return &s, nil
}

// InsertSubmission records an intake in the audit log.
func (db *DB) InsertSubmission(ctx context.Context, s *domain.Submission) error {
	urlsRaw, err := json.Marshal(s.URLs)
	if err != nil {
		return fmt.Errorf("encode submission urls: %w", err)
	}

	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO submissions (
			id, chat_id, user_id, username, type, content, status,
			job_id, title, urls, error, duration_ms, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, s.ID, s.ChatID, s.UserID, toText(s.Username), s.Type, s.Content, s.Status,
		toText(s.JobID), toText(s.Title), urlsRaw, toText(s.Error), s.DurationMS,
		s.CreatedAt, s.UpdatedAt); err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}

	return nil
}

// UpdateSubmissionOutcome moves an audit row to its terminal status.
func (db *DB) UpdateSubmissionOutcome(ctx context.Context, s *domain.Submission) error {
	urlsRaw, err := json.Marshal(s.URLs)
	if err != nil {
		return fmt.Errorf("encode submission urls: %w", err)
	}

	if _, err := db.Pool.Exec(ctx, `
		UPDATE submissions
		SET status = $1, title = $2, urls = $3, error = $4, duration_ms = $5, updated_at = now()
		WHERE id = $6
	`, s.Status, toText(s.Title), urlsRaw, toText(s.Error), s.DurationMS, s.ID); err != nil {
		return fmt.Errorf("update submission: %w", err)
	}

	return nil
}

// RecentSubmissions returns the newest audit rows, optionally scoped to a chat.
func (db *DB) RecentSubmissions(ctx context.Context, chatID int64, limit int) ([]domain.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions ORDER BY created_at DESC LIMIT $1`
	args := []interface{}{limit}

	if chatID != 0 {
		query = `SELECT ` + submissionColumns + ` FROM submissions WHERE chat_id = $2 ORDER BY created_at DESC LIMIT $1`
		args = append(args, chatID)
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var submissions []domain.Submission

	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}

		submissions = append(submissions, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}

	return submissions, nil
}
