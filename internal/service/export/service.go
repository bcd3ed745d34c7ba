package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/opinahq/opina/internal/domain"
	"github.com/opinahq/opina/internal/repository"
)

// Service renders the full unfiltered vote sequence as a tabular file.
type Service struct {
	votes repository.VoteRepository
}

// New constructs a Service.
func New(votes repository.VoteRepository) Service {
	return Service{votes: votes}
}

// Filename is the suggested download name for the export.
const Filename = "votes.csv"

var header = []string{
	"ID", "Vote", "Interviewer", "Interviewee", "Email",
	"Age", "Profession", "Case Example", "Created At",
}

// WriteCSV streams every vote in ascending creation order as CSV rows.
func (s Service) WriteCSV(ctx context.Context, w io.Writer) error {
	votes, err := s.votes.ListVotes(ctx, domain.VoteFilter{})
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, vote := range votes {
		row := []string{
			strconv.FormatInt(vote.ID, 10),
			string(vote.Direction),
			vote.InterviewerName,
			vote.IntervieweeName,
			vote.IntervieweeEmail,
			strconv.Itoa(vote.Age),
			vote.Profession,
			vote.CaseExample,
			vote.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
