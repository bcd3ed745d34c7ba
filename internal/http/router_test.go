package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/opinahq/opina/internal/config"
	"github.com/opinahq/opina/internal/domain"
	"github.com/opinahq/opina/internal/repository"
	"github.com/opinahq/opina/internal/service/auth"
	"github.com/opinahq/opina/internal/service/export"
	"github.com/opinahq/opina/internal/service/stats"
	"github.com/opinahq/opina/internal/service/survey"
	"github.com/opinahq/opina/internal/ws"
)

type fakeAccountRepo struct {
	mu         sync.Mutex
	byUsername map[string]*domain.Account
	byID       map[string]*domain.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{
		byUsername: make(map[string]*domain.Account),
		byID:       make(map[string]*domain.Account),
	}
}

func (f *fakeAccountRepo) CreateAccount(_ context.Context, account *domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byUsername[account.Username] = account
	f.byID[account.ID] = account
	return nil
}

func (f *fakeAccountRepo) GetAccountByUsername(_ context.Context, username string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if account, ok := f.byUsername[username]; ok {
		return account, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAccountRepo) GetAccountByID(_ context.Context, id string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if account, ok := f.byID[id]; ok {
		return account, nil
	}
	return nil, repository.ErrNotFound
}

type fakeVoteRepo struct {
	mu     sync.Mutex
	votes  []domain.Vote
	nextID int64
}

func (f *fakeVoteRepo) CreateVote(_ context.Context, vote *domain.Vote) (*domain.Vote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.votes {
		if existing.IntervieweeEmail == vote.IntervieweeEmail {
			return nil, repository.ErrDuplicateEmail
		}
	}
	f.nextID++
	stored := *vote
	stored.ID = f.nextID
	stored.CreatedAt = time.Now().UTC()
	f.votes = append(f.votes, stored)
	return &stored, nil
}

func (f *fakeVoteRepo) ListVotes(_ context.Context, filter domain.VoteFilter) ([]domain.Vote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Vote, 0, len(f.votes))
	for _, v := range f.votes {
		if filter.Direction != "" && filter.Direction != domain.FilterAll && string(v.Direction) != filter.Direction {
			continue
		}
		if filter.Profession != "" && filter.Profession != domain.FilterAll && !strings.Contains(v.Profession, filter.Profession) {
			continue
		}
		if filter.AgeBracket != "" && filter.AgeBracket != domain.FilterAll {
			if rng, ok := domain.ParseAgeBracket(filter.AgeBracket); ok {
				if v.Age < rng.Min || (!rng.Open && v.Age > rng.Max) {
					continue
				}
			}
		}
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeVoteRepo) GetVoteByEmail(_ context.Context, email string) (*domain.Vote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.votes {
		if v.IntervieweeEmail == email {
			vote := v
			return &vote, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeVoteRepo) ListProfessions(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, v := range f.votes {
		if !seen[v.Profession] {
			seen[v.Profession] = true
			out = append(out, v.Profession)
		}
	}
	return out, nil
}

type recordingSubscriber struct {
	mu   sync.Mutex
	sent [][]byte
}

func (r *recordingSubscriber) Send(payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, payload)
	return nil
}

func (r *recordingSubscriber) Close() {}

func (r *recordingSubscriber) payloads() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.sent...)
}

type testEnv struct {
	router *Router
	hub    *ws.Hub
	votes  *fakeVoteRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		JWTSecret: "router-test-secret",
		TokenTTL:  time.Hour,
		Accounts: []config.AllowedAccount{
			{Username: "professor", Password: "pw-prof", Role: domain.RoleProfessor},
			{Username: "favor", Password: "pw-favor", Role: domain.RoleFavor},
			{Username: "contra", Password: "pw-contra", Role: domain.RoleContra},
		},
	}
	accounts := newFakeAccountRepo()
	votes := &fakeVoteRepo{}
	hub := ws.NewHub(log)

	authSvc := auth.New(accounts, cfg, log)
	surveySvc := survey.New(votes, hub, log)
	statsSvc := stats.New(votes, log)
	exportSvc := export.New(votes)

	router := NewRouter(log, authSvc, surveySvc, statsSvc, exportSvc, hub, NewMemoryRateLimiter(), nil)
	t.Cleanup(router.Close)
	return &testEnv{router: router, hub: hub, votes: votes}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed with status %d: %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if payload.Token == "" {
		t.Fatal("login response missing token")
	}
	return payload.Token
}

func sampleVote(email string, direction string) map[string]any {
	return map[string]any{
		"interviewer_name":  "Ana",
		"interviewee_name":  "Bruno",
		"interviewee_email": email,
		"age":               30,
		"profession":        "Estudante",
		"vote_type":         direction,
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"username": "professor",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestVotesRequireAuthentication(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/votes", "", sampleVote("a@x.com", "favor"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCreateVoteStoresAndNotifiesViewers(t *testing.T) {
	env := newTestEnv(t)
	viewer := &recordingSubscriber{}
	env.hub.Register(viewer)

	token := env.login(t, "favor", "pw-favor")
	rec := env.do(t, http.MethodPost, "/api/votes", token, sampleVote("b@x.com", "favor"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created domain.Vote
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created vote: %v", err)
	}
	if created.ID == 0 || created.IntervieweeEmail != "b@x.com" {
		t.Fatalf("unexpected created vote: %+v", created)
	}

	payloads := viewer.payloads()
	if len(payloads) != 2 {
		t.Fatalf("expected ack + new_vote, got %d payloads", len(payloads))
	}
	var msg ws.Message
	if err := json.Unmarshal(payloads[1], &msg); err != nil || msg.Type != ws.MessageNewVote {
		t.Fatalf("expected new_vote notification, got %s (err=%v)", payloads[1], err)
	}
}

func TestCreateVoteDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "favor", "pw-favor")

	if rec := env.do(t, http.MethodPost, "/api/votes", token, sampleVote("dup@x.com", "favor")); rec.Code != http.StatusCreated {
		t.Fatalf("first submission failed: %d", rec.Code)
	}
	second := sampleVote("dup@x.com", "contra")
	second["interviewee_name"] = "Someone Else"
	rec := env.do(t, http.MethodPost, "/api/votes", token, second)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(env.votes.votes) != 1 {
		t.Fatalf("store must hold exactly one record, got %d", len(env.votes.votes))
	}
}

func TestCreateVoteValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "favor", "pw-favor")

	bad := sampleVote("c@x.com", "favor")
	bad["age"] = 17
	bad["interviewee_email"] = "nope"
	rec := env.do(t, http.MethodPost, "/api/votes", token, bad)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var payload struct {
		Errors map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if _, ok := payload.Errors["age"]; !ok {
		t.Fatalf("expected age error, got %v", payload.Errors)
	}
	if _, ok := payload.Errors["interviewee_email"]; !ok {
		t.Fatalf("expected email error, got %v", payload.Errors)
	}
}

func TestListVotesRoleGating(t *testing.T) {
	env := newTestEnv(t)
	favorToken := env.login(t, "favor", "pw-favor")
	profToken := env.login(t, "professor", "pw-prof")

	if rec := env.do(t, http.MethodPost, "/api/votes", favorToken, sampleVote("list@x.com", "favor")); rec.Code != http.StatusCreated {
		t.Fatalf("seed submission failed: %d", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/votes?type=contra", favorToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("favor role reading contra votes: expected 403, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/votes?type=favor", favorToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("favor role reading own direction: expected 200, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/votes?type=all", profToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("professor listing: expected 200, got %d", rec.Code)
	}
	var votes []domain.Vote
	if err := json.Unmarshal(rec.Body.Bytes(), &votes); err != nil || len(votes) != 1 {
		t.Fatalf("expected one vote in listing, got %s (err=%v)", rec.Body.String(), err)
	}
}

func TestStatsRequireProfessorRole(t *testing.T) {
	env := newTestEnv(t)
	favorToken := env.login(t, "favor", "pw-favor")
	profToken := env.login(t, "professor", "pw-prof")

	if rec := env.do(t, http.MethodGet, "/api/votes/stats", favorToken, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for favor role, got %d", rec.Code)
	}

	if rec := env.do(t, http.MethodPost, "/api/votes", favorToken, sampleVote("stats@x.com", "favor")); rec.Code != http.StatusCreated {
		t.Fatalf("seed submission failed: %d", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/votes/stats", profToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for professor, got %d", rec.Code)
	}
	var overview stats.Overview
	if err := json.Unmarshal(rec.Body.Bytes(), &overview); err != nil {
		t.Fatalf("decode overview: %v", err)
	}
	if overview.TotalVotes != 1 || overview.FavorVotes != 1 {
		t.Fatalf("unexpected overview: %+v", overview)
	}
	if overview.FavorVotes+overview.ContraVotes != overview.TotalVotes {
		t.Fatalf("directions must sum to total: %+v", overview)
	}
}

func TestExportRequiresProfessorAndReturnsCSV(t *testing.T) {
	env := newTestEnv(t)
	favorToken := env.login(t, "favor", "pw-favor")
	profToken := env.login(t, "professor", "pw-prof")

	if rec := env.do(t, http.MethodGet, "/api/votes/export", favorToken, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for favor role, got %d", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/votes/export", profToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("expected text/csv, got %q", ct)
	}
	if disp := rec.Header().Get("Content-Disposition"); !strings.Contains(disp, export.Filename) {
		t.Fatalf("unexpected content disposition %q", disp)
	}
}

func TestProfessionsListing(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "favor", "pw-favor")
	if rec := env.do(t, http.MethodPost, "/api/votes", token, sampleVote("p@x.com", "favor")); rec.Code != http.StatusCreated {
		t.Fatalf("seed submission failed: %d", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/professions", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var professions []string
	if err := json.Unmarshal(rec.Body.Bytes(), &professions); err != nil || len(professions) != 1 || professions[0] != "Estudante" {
		t.Fatalf("unexpected professions %s (err=%v)", rec.Body.String(), err)
	}
}

func TestHealthzWithoutDatabaseProbe(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil || payload.Status != "ok" {
		t.Fatalf("unexpected health payload %s (err=%v)", rec.Body.String(), err)
	}
}

func TestLoginRateLimitHeaders(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"username": "favor",
		"password": "pw-favor",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Limit") == "" {
		t.Fatal("expected rate limit headers on login")
	}
}
