package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opinahq/opina/internal/domain"
	"github.com/opinahq/opina/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.AccountRepository = (*Repository)(nil)
	_ repository.VoteRepository    = (*Repository)(nil)
)

// CreateAccount inserts an account.
func (r *Repository) CreateAccount(ctx context.Context, account *domain.Account) error {
	const query = `INSERT INTO accounts (id, username, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query, account.ID, account.Username, account.PasswordHash, account.Role, account.CreatedAt)
	return err
}

// GetAccountByUsername fetches an account by username.
func (r *Repository) GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	const query = `SELECT id, username, password_hash, role, created_at FROM accounts WHERE username = $1`
	row := r.pool.QueryRow(ctx, query, username)
	var a domain.Account
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Role, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// GetAccountByID retrieves an account by identifier.
func (r *Repository) GetAccountByID(ctx context.Context, id string) (*domain.Account, error) {
	const query = `SELECT id, username, password_hash, role, created_at FROM accounts WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var a domain.Account
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Role, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// CreateVote inserts a vote record and returns it with the generated
// identifier and server-assigned creation timestamp. The unique index on
// interviewee_email decides the winner between concurrent duplicates.
func (r *Repository) CreateVote(ctx context.Context, vote *domain.Vote) (*domain.Vote, error) {
	const query = `INSERT INTO votes
		(interviewer_name, interviewee_name, interviewee_email, age, profession, case_example, vote_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	row := r.pool.QueryRow(ctx, query,
		vote.InterviewerName, vote.IntervieweeName, vote.IntervieweeEmail,
		vote.Age, vote.Profession, vote.CaseExample, vote.Direction)
	stored := *vote
	if err := row.Scan(&stored.ID, &stored.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, repository.ErrDuplicateEmail
		}
		return nil, err
	}
	return &stored, nil
}

// GetVoteByEmail fetches the vote registered for a contact e-mail.
func (r *Repository) GetVoteByEmail(ctx context.Context, email string) (*domain.Vote, error) {
	const query = voteColumns + ` WHERE interviewee_email = $1`
	row := r.pool.QueryRow(ctx, query, email)
	var v domain.Vote
	if err := scanVote(row, &v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// ListVotes returns votes matching the filter in ascending creation order.
// Filter fields combine with AND; empty or "all" values apply no constraint.
func (r *Repository) ListVotes(ctx context.Context, filter domain.VoteFilter) ([]domain.Vote, error) {
	query := voteColumns
	conditions := make([]string, 0, 3)
	args := make([]any, 0, 4)

	if filter.Direction != "" && filter.Direction != domain.FilterAll {
		args = append(args, filter.Direction)
		conditions = append(conditions, fmt.Sprintf("vote_type = $%d", len(args)))
	}
	if filter.Profession != "" && filter.Profession != domain.FilterAll {
		args = append(args, professionPattern(filter.Profession))
		conditions = append(conditions, fmt.Sprintf(`profession LIKE $%d ESCAPE '\'`, len(args)))
	}
	if filter.AgeBracket != "" && filter.AgeBracket != domain.FilterAll {
		if rng, ok := domain.ParseAgeBracket(filter.AgeBracket); ok {
			if rng.Open {
				args = append(args, rng.Min)
				conditions = append(conditions, fmt.Sprintf("age >= $%d", len(args)))
			} else {
				args = append(args, rng.Min, rng.Max)
				conditions = append(conditions, fmt.Sprintf("age BETWEEN $%d AND $%d", len(args)-1, len(args)))
			}
		}
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	votes := make([]domain.Vote, 0)
	for rows.Next() {
		var v domain.Vote
		if err := scanVote(rows, &v); err != nil {
			return nil, err
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// ListProfessions returns the distinct profession values in alphabetical order.
func (r *Repository) ListProfessions(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT profession FROM votes ORDER BY profession`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	professions := make([]string, 0)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		professions = append(professions, p)
	}
	return professions, rows.Err()
}

const voteColumns = `SELECT id, interviewer_name, interviewee_name, interviewee_email,
	age, profession, COALESCE(case_example, ''), vote_type, created_at FROM votes`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// professionPattern builds the substring LIKE pattern, escaping metacharacters
// so % and _ in the filter match literally.
func professionPattern(profession string) string {
	return "%" + likeEscaper.Replace(profession) + "%"
}

func scanVote(row pgx.Row, v *domain.Vote) error {
	return row.Scan(&v.ID, &v.InterviewerName, &v.IntervieweeName, &v.IntervieweeEmail,
		&v.Age, &v.Profession, &v.CaseExample, &v.Direction, &v.CreatedAt)
}
