package repository

import (
	"context"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PlatformRepository is the read-only slice of the host platform this core
// consumes: identity/groups, the problem catalog and stored judge records.
// Their schemas are owned elsewhere; only lookups live here.
type PlatformRepository interface {
	// GroupsForUser returns the names of the domain groups the user belongs to.
	GroupsForUser(ctx context.Context, domainID string, userID int64) ([]string, error)
	// ListGroups returns all groups of a domain.
	ListGroups(ctx context.Context, domainID string) ([]model.Group, error)
	// GetUserSummaries resolves user ids for display, skipping unknown ids.
	GetUserSummaries(ctx context.Context, userIDs []int64) ([]model.UserSummary, error)
	// GetProblemSummaries resolves problem ids, dropping hidden problems
	// unless includeHidden is set. Unknown ids are skipped.
	GetProblemSummaries(ctx context.Context, domainID string, problemIDs []int64, includeHidden bool) ([]model.ProblemSummary, error)
	// ListRecords lists judge records for a problem-id set, optionally
	// restricted to one user, newest first.
	ListRecords(ctx context.Context, domainID string, problemIDs []int64, userID *int64, limit, offset int) ([]model.RecordSummary, error)
}

type platformRepo struct {
	pool *pgxpool.Pool
}

// NewPlatformRepo creates a new PlatformRepository
func NewPlatformRepo(pool *pgxpool.Pool) PlatformRepository {
	return &platformRepo{pool: pool}
}

func (r *platformRepo) GroupsForUser(ctx context.Context, domainID string, userID int64) ([]string, error) {
	query := `
		SELECT name
		FROM groups
		WHERE domain_id = $1 AND $2 = ANY(user_ids)
		ORDER BY name ASC
	`
	rows, err := r.pool.Query(ctx, query, domainID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying groups for user %d: %w", userID, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning group name: %w", err)
		}
		names = append(names, name)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating group rows: %w", err)
	}
	return names, nil
}

func (r *platformRepo) ListGroups(ctx context.Context, domainID string) ([]model.Group, error) {
	query := `
		SELECT domain_id, name, user_ids
		FROM groups
		WHERE domain_id = $1
		ORDER BY name ASC
	`
	rows, err := r.pool.Query(ctx, query, domainID)
	if err != nil {
		return nil, fmt.Errorf("querying groups for domain %s: %w", domainID, err)
	}
	defer rows.Close()

	var groups []model.Group
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.DomainID, &g.Name, &g.UserIDs); err != nil {
			return nil, fmt.Errorf("scanning group row: %w", err)
		}
		groups = append(groups, g)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating group rows: %w", err)
	}
	return groups, nil
}

func (r *platformRepo) GetUserSummaries(ctx context.Context, userIDs []int64) ([]model.UserSummary, error) {
	if len(userIDs) == 0 {
		return []model.UserSummary{}, nil
	}
	query := `
		SELECT id, username, display_name
		FROM users
		WHERE id = ANY($1)
	`
	rows, err := r.pool.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("querying user summaries: %w", err)
	}
	defer rows.Close()

	var users []model.UserSummary
	for rows.Next() {
		var u model.UserSummary
		if err := rows.Scan(&u.UserID, &u.Username, &u.DisplayName); err != nil {
			return nil, fmt.Errorf("scanning user summary: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}
	return users, nil
}

func (r *platformRepo) GetProblemSummaries(ctx context.Context, domainID string, problemIDs []int64, includeHidden bool) ([]model.ProblemSummary, error) {
	if len(problemIDs) == 0 {
		return []model.ProblemSummary{}, nil
	}
	query := `
		SELECT id, title, hidden
		FROM problems
		WHERE domain_id = $1 AND id = ANY($2)
	`
	if !includeHidden {
		query += ` AND hidden = FALSE`
	}
	rows, err := r.pool.Query(ctx, query, domainID, problemIDs)
	if err != nil {
		return nil, fmt.Errorf("querying problem summaries: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]model.ProblemSummary, len(problemIDs))
	for rows.Next() {
		var p model.ProblemSummary
		if err := rows.Scan(&p.ProblemID, &p.Title, &p.Hidden); err != nil {
			return nil, fmt.Errorf("scanning problem summary: %w", err)
		}
		byID[p.ProblemID] = p
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating problem rows: %w", err)
	}

	// Preserve the caller's (course problem list) order.
	problems := make([]model.ProblemSummary, 0, len(byID))
	for _, pid := range problemIDs {
		if p, ok := byID[pid]; ok {
			problems = append(problems, p)
		}
	}
	return problems, nil
}

func (r *platformRepo) ListRecords(ctx context.Context, domainID string, problemIDs []int64, userID *int64, limit, offset int) ([]model.RecordSummary, error) {
	if len(problemIDs) == 0 {
		return []model.RecordSummary{}, nil
	}
	query := `
		SELECT id, user_id, problem_id, score, status, judged_at
		FROM records
		WHERE domain_id = $1 AND problem_id = ANY($2)
	`
	args := []any{domainID, problemIDs}
	if userID != nil {
		args = append(args, *userID)
		query += fmt.Sprintf(` AND user_id = $%d`, len(args))
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY judged_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []model.RecordSummary
	for rows.Next() {
		var rec model.RecordSummary
		if err := rows.Scan(&rec.RecordID, &rec.UserID, &rec.ProblemID, &rec.Score, &rec.Status, &rec.JudgedAt); err != nil {
			return nil, fmt.Errorf("scanning record row: %w", err)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating record rows: %w", err)
	}

	if len(records) == 0 {
		return []model.RecordSummary{}, nil
	}
	return records, nil
}
