package survey

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"log/slog"

	"github.com/opinahq/opina/internal/domain"
	"github.com/opinahq/opina/internal/repository"
	"github.com/opinahq/opina/internal/ws"
)

// ErrDuplicateSubmission rejects a second vote for the same contact e-mail:
// one voice, one vote.
var ErrDuplicateSubmission = errors.New("survey: a vote is already registered for this e-mail")

// ValidationError carries field-level messages for a rejected submission.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		names = append(names, field)
	}
	sort.Strings(names)
	return fmt.Sprintf("survey: invalid submission (%s)", strings.Join(names, ", "))
}

// Broadcaster fans an event payload out to live viewers.
type Broadcaster interface {
	Broadcast(payload []byte)
}

// Service is the submission pipeline: it validates a candidate vote,
// persists it and notifies live viewers. It also fronts the read paths the
// live view consumes.
type Service struct {
	votes  repository.VoteRepository
	hub    Broadcaster
	logger *slog.Logger
}

// New constructs a Service.
func New(votes repository.VoteRepository, hub Broadcaster, logger *slog.Logger) Service {
	return Service{votes: votes, hub: hub, logger: logger}
}

// SubmitInput is one candidate vote record.
type SubmitInput struct {
	InterviewerName  string `json:"interviewer_name"`
	IntervieweeName  string `json:"interviewee_name"`
	IntervieweeEmail string `json:"interviewee_email"`
	Age              int    `json:"age"`
	Profession       string `json:"profession"`
	CaseExample      string `json:"case_example"`
	Direction        string `json:"vote_type"`
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const (
	minAge = 18
	maxAge = 100
)

// Submit validates, persists and broadcasts one vote. Persistence strictly
// precedes broadcast; a broadcast failure never fails the submission.
func (s Service) Submit(ctx context.Context, input SubmitInput) (*domain.Vote, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	stored, err := s.votes.CreateVote(ctx, &domain.Vote{
		InterviewerName:  input.InterviewerName,
		IntervieweeName:  input.IntervieweeName,
		IntervieweeEmail: input.IntervieweeEmail,
		Age:              input.Age,
		Profession:       input.Profession,
		CaseExample:      input.CaseExample,
		Direction:        domain.Direction(input.Direction),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrDuplicateSubmission
		}
		return nil, err
	}

	s.broadcast(stored)
	s.logger.Info("vote recorded", "vote_id", stored.ID, "direction", stored.Direction)
	return stored, nil
}

// List returns votes matching the filter in ascending creation order.
func (s Service) List(ctx context.Context, filter domain.VoteFilter) ([]domain.Vote, error) {
	return s.votes.ListVotes(ctx, filter)
}

// Professions returns the distinct profession values observed so far.
func (s Service) Professions(ctx context.Context) ([]string, error) {
	return s.votes.ListProfessions(ctx)
}

func (s Service) broadcast(vote *domain.Vote) {
	payload, err := ws.Envelope(ws.MessageNewVote, vote)
	if err != nil {
		s.logger.Warn("failed to marshal vote payload", "error", err, "vote_id", vote.ID)
		return
	}
	s.hub.Broadcast(payload)
}

func validate(input SubmitInput) error {
	fields := make(map[string]string)
	if strings.TrimSpace(input.InterviewerName) == "" {
		fields["interviewer_name"] = "interviewer name is required"
	}
	if strings.TrimSpace(input.IntervieweeName) == "" {
		fields["interviewee_name"] = "interviewee name is required"
	}
	if !emailPattern.MatchString(input.IntervieweeEmail) {
		fields["interviewee_email"] = "invalid e-mail address"
	}
	if input.Age < minAge {
		fields["age"] = fmt.Sprintf("minimum age is %d", minAge)
	} else if input.Age > maxAge {
		fields["age"] = fmt.Sprintf("maximum age is %d", maxAge)
	}
	if strings.TrimSpace(input.Profession) == "" {
		fields["profession"] = "profession is required"
	}
	if !domain.Direction(input.Direction).Valid() {
		fields["vote_type"] = `vote type must be "favor" or "contra"`
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
