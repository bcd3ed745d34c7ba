package repository

import (
	"context"

	"github.com/opinahq/opina/internal/domain"
)

// AccountRepository persists accounts. Accounts are created on first
// successful allow-list login and never mutated afterwards.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *domain.Account) error
	GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetAccountByID(ctx context.Context, id string) (*domain.Account, error)
}

// VoteRepository persists vote records. The store enforces uniqueness of the
// interviewee e-mail; CreateVote returns ErrDuplicateEmail when a record with
// the same contact already exists.
type VoteRepository interface {
	CreateVote(ctx context.Context, vote *domain.Vote) (*domain.Vote, error)
	ListVotes(ctx context.Context, filter domain.VoteFilter) ([]domain.Vote, error)
	GetVoteByEmail(ctx context.Context, email string) (*domain.Vote, error)
	ListProfessions(ctx context.Context) ([]string, error)
}
