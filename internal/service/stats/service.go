package stats

import (
	"context"

	"log/slog"

	"github.com/opinahq/opina/internal/domain"
	"github.com/opinahq/opina/internal/repository"
)

// DirectionCounts splits a count by vote direction.
type DirectionCounts struct {
	Favor  int `json:"favor"`
	Contra int `json:"contra"`
}

// ProfessionCount is the per-profession breakdown entry.
type ProfessionCount struct {
	Name   string `json:"name"`
	Favor  int    `json:"favor"`
	Contra int    `json:"contra"`
}

// Overview is the aggregate view over the full vote record set at a point in
// time. It is derived, never persisted.
type Overview struct {
	TotalVotes             int                        `json:"totalVotes"`
	FavorVotes             int                        `json:"favorVotes"`
	ContraVotes            int                        `json:"contraVotes"`
	AgeDistribution        map[string]DirectionCounts `json:"ageDistribution"`
	ProfessionDistribution []ProfessionCount          `json:"professionDistribution"`
}

// Service computes aggregate views over the current record set. Every call
// recomputes from a fresh store snapshot; nothing is cached.
type Service struct {
	votes  repository.VoteRepository
	logger *slog.Logger
}

// New constructs a Service.
func New(votes repository.VoteRepository, logger *slog.Logger) Service {
	return Service{votes: votes, logger: logger}
}

// Overview fetches the full record set and aggregates it.
func (s Service) Overview(ctx context.Context) (*Overview, error) {
	votes, err := s.votes.ListVotes(ctx, domain.VoteFilter{})
	if err != nil {
		return nil, err
	}
	return Compute(votes), nil
}

// Compute aggregates a record set synchronously and without side effects.
// Professions group by exact string equality, in first-seen order, so the
// output is deterministic for a given input sequence.
func Compute(votes []domain.Vote) *Overview {
	overview := &Overview{
		TotalVotes:             len(votes),
		AgeDistribution:        make(map[string]DirectionCounts, len(domain.AgeBrackets)),
		ProfessionDistribution: make([]ProfessionCount, 0),
	}
	for _, bracket := range domain.AgeBrackets {
		overview.AgeDistribution[bracket] = DirectionCounts{}
	}

	professionIndex := make(map[string]int)
	for _, vote := range votes {
		favor := vote.Direction == domain.DirectionFavor
		if favor {
			overview.FavorVotes++
		} else {
			overview.ContraVotes++
		}

		bracket := domain.BracketForAge(vote.Age)
		counts := overview.AgeDistribution[bracket]
		if favor {
			counts.Favor++
		} else {
			counts.Contra++
		}
		overview.AgeDistribution[bracket] = counts

		idx, ok := professionIndex[vote.Profession]
		if !ok {
			idx = len(overview.ProfessionDistribution)
			professionIndex[vote.Profession] = idx
			overview.ProfessionDistribution = append(overview.ProfessionDistribution, ProfessionCount{Name: vote.Profession})
		}
		if favor {
			overview.ProfessionDistribution[idx].Favor++
		} else {
			overview.ProfessionDistribution[idx].Contra++
		}
	}
	return overview
}
