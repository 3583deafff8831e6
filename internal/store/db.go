package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/lib/pq"

	"github.com/eujobs/scraper/internal/model"
)

// Store is the Postgres-backed output sink: validated records in jobs,
// failure placeholders in job_failures.
type Store struct {
	db *sql.DB
}

func NewStore(connStr string) (*Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) RunMigrations(schemaPath string) error {
	content, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// SaveJob upserts one validated record keyed by its page URL, so re-running
// a scrape refreshes rather than duplicates.
func (s *Store) SaveJob(ctx context.Context, rec *model.OutputRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO jobs (
    url, job_id, key, title, description, description_text, description_length,
    salary, salary_from, salary_to, equity, status, role, position_types,
    location, is_remote, is_featured, views, applied_count,
    company_name, company_key, company_website, company_size, company_founded,
    logo_url, social_image_url, intro_video_url, what_we_do, perks, gallery_images,
    link, created_at, approved_at, published_at, expiration_date, scraped_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
        $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
        $31, $32, $33, $34, $35, $36)
ON CONFLICT (url) DO UPDATE SET
    title = EXCLUDED.title,
    description = EXCLUDED.description,
    description_text = EXCLUDED.description_text,
    description_length = EXCLUDED.description_length,
    salary = EXCLUDED.salary,
    salary_from = EXCLUDED.salary_from,
    salary_to = EXCLUDED.salary_to,
    equity = EXCLUDED.equity,
    status = EXCLUDED.status,
    role = EXCLUDED.role,
    position_types = EXCLUDED.position_types,
    location = EXCLUDED.location,
    is_remote = EXCLUDED.is_remote,
    is_featured = EXCLUDED.is_featured,
    views = EXCLUDED.views,
    applied_count = EXCLUDED.applied_count,
    company_name = EXCLUDED.company_name,
    company_key = EXCLUDED.company_key,
    company_website = EXCLUDED.company_website,
    company_size = EXCLUDED.company_size,
    company_founded = EXCLUDED.company_founded,
    logo_url = EXCLUDED.logo_url,
    social_image_url = EXCLUDED.social_image_url,
    intro_video_url = EXCLUDED.intro_video_url,
    what_we_do = EXCLUDED.what_we_do,
    perks = EXCLUDED.perks,
    gallery_images = EXCLUDED.gallery_images,
    link = EXCLUDED.link,
    published_at = EXCLUDED.published_at,
    expiration_date = EXCLUDED.expiration_date,
    scraped_at = EXCLUDED.scraped_at
`,
		rec.URL, rec.ID, rec.Key, rec.Title, rec.Description, rec.DescriptionText, rec.DescriptionLength,
		rec.Salary, rec.SalaryFrom, rec.SalaryTo, rec.Equity, rec.Status, rec.Role, pq.Array(rec.PositionTypes),
		rec.Location, rec.IsRemote, rec.IsFeatured, rec.Views, rec.AppliedCount,
		rec.CompanyName, rec.CompanyKey, rec.CompanyWebsite, rec.CompanySize, rec.CompanyFounded,
		rec.LogoURL, rec.SocialImageURL, rec.IntroVideoURL, rec.WhatWeDo, pq.Array(rec.Perks), pq.Array(rec.GalleryImages),
		rec.Link, rec.CreatedAt, rec.ApprovedAt, rec.PublishedAt, nullIfEmpty(rec.ExpirationDate), rec.ScrapedAt)
	return err
}

func (s *Store) SaveFailure(ctx context.Context, rec *model.FailureRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO job_failures (url, job_id, error, failed_at)
VALUES ($1, $2, $3, $4)
`, rec.URL, rec.JobID, rec.Error, rec.FailedAt)
	return err
}

func (s *Store) GetJobs(ctx context.Context, limit, offset int) ([]model.OutputRecord, error) {
	limit = clampLimit(limit, 20, 200)
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT url, job_id, key, title, description, description_text, description_length,
       salary, salary_from, salary_to, equity, status, role, position_types,
       location, is_remote, is_featured, views, applied_count,
       company_name, company_key, company_website, company_size, company_founded,
       logo_url, social_image_url, intro_video_url, what_we_do, perks, gallery_images,
       link, created_at, approved_at, published_at, COALESCE(expiration_date, ''), scraped_at
FROM jobs
ORDER BY scraped_at DESC
LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []model.OutputRecord
	for rows.Next() {
		var (
			rec  model.OutputRecord
			link sql.NullString
		)
		if err := rows.Scan(
			&rec.URL, &rec.ID, &rec.Key, &rec.Title, &rec.Description, &rec.DescriptionText, &rec.DescriptionLength,
			&rec.Salary, &rec.SalaryFrom, &rec.SalaryTo, &rec.Equity, &rec.Status, &rec.Role, pq.Array(&rec.PositionTypes),
			&rec.Location, &rec.IsRemote, &rec.IsFeatured, &rec.Views, &rec.AppliedCount,
			&rec.CompanyName, &rec.CompanyKey, &rec.CompanyWebsite, &rec.CompanySize, &rec.CompanyFounded,
			&rec.LogoURL, &rec.SocialImageURL, &rec.IntroVideoURL, &rec.WhatWeDo, pq.Array(&rec.Perks), pq.Array(&rec.GalleryImages),
			&link, &rec.CreatedAt, &rec.ApprovedAt, &rec.PublishedAt, &rec.ExpirationDate, &rec.ScrapedAt,
		); err != nil {
			return nil, err
		}
		if link.Valid {
			rec.Link = &link.String
		}
		jobs = append(jobs, rec)
	}
	return jobs, rows.Err()
}

func (s *Store) ListFailures(ctx context.Context, limit, offset int) ([]model.FailureRecord, error) {
	limit = clampLimit(limit, 20, 200)
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT url, COALESCE(job_id, ''), error, failed_at
FROM job_failures
ORDER BY failed_at DESC
LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failures []model.FailureRecord
	for rows.Next() {
		var rec model.FailureRecord
		if err := rows.Scan(&rec.URL, &rec.JobID, &rec.Error, &rec.FailedAt); err != nil {
			return nil, err
		}
		failures = append(failures, rec)
	}
	return failures, rows.Err()
}

func clampLimit(limit, defaultLimit, maxLimit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
