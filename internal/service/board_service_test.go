package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/concept-review-api/internal/dto"
	"github.com/noah-isme/concept-review-api/internal/models"
	"github.com/noah-isme/concept-review-api/internal/repository"
	appErrors "github.com/noah-isme/concept-review-api/pkg/errors"
)

type studentReaderStub struct {
	students map[string]*models.Student
}

func (s *studentReaderStub) FindByID(_ context.Context, id string) (*models.Student, error) {
	if st, ok := s.students[id]; ok {
		return st, nil
	}
	return nil, sql.ErrNoRows
}

type boardSourceStub struct {
	mu     sync.Mutex
	votes  []models.RankVote
	states []models.AssignmentRankState
	calls  int

	// gate pauses the next ListRankStates after it has read its rows.
	gate *buildGate
}

type buildGate struct {
	entered chan struct{}
	release chan struct{}
}

func (b *boardSourceStub) ListRankVotes(ctx context.Context, _ sqlx.ExtContext, _ string) ([]models.RankVote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	return append([]models.RankVote(nil), b.votes...), nil
}

func (b *boardSourceStub) ListRankStates(_ context.Context, _ sqlx.ExtContext, _ string) ([]models.AssignmentRankState, error) {
	b.mu.Lock()
	rows := append([]models.AssignmentRankState(nil), b.states...)
	gate := b.gate
	b.gate = nil
	b.mu.Unlock()

	if gate != nil {
		close(gate.entered)
		<-gate.release
	}
	return rows, nil
}

func (b *boardSourceStub) holdNextBuild() *buildGate {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gate = &buildGate{entered: make(chan struct{}), release: make(chan struct{})}
	return b.gate
}

func (b *boardSourceStub) setRank(i int, rank *int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states[i].RankOrder = rank
}

func scenarioSource() *boardSourceStub {
	return &boardSourceStub{
		votes: []models.RankVote{
			vote("a", "A", 1), vote("b", "B", 2), vote("c", "C", 3),
			vote("b", "B", 1), vote("a", "A", 2), vote("c", "C", 3),
		},
		states: []models.AssignmentRankState{
			{AssignmentID: "1", ReviewerRole: models.ReviewerRoleAdviser, RankOrder: intPtr(1)},
			{AssignmentID: "2", ReviewerRole: models.ReviewerRolePanel, RankOrder: intPtr(1)},
			{AssignmentID: "3", ReviewerRole: models.ReviewerRoleSubjectSpecialist},
		},
	}
}

func newBoardFixture(t *testing.T, source *boardSourceStub, cache *CacheService) *BoardService {
	t.Helper()
	students := &studentReaderStub{students: map[string]*models.Student{"student-1": {ID: "student-1", FullName: "Ana"}}}
	svc := NewBoardService(students, source, source, nil, cache, NewMetricsService(), nil, BoardServiceConfig{CacheTTL: time.Minute})
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }
	return svc
}

func TestBoardServiceGetStudentBoardPreliminary(t *testing.T) {
	svc := newBoardFixture(t, scenarioSource(), nil)

	board, hit, err := svc.GetStudentBoard(context.Background(), "student-1")
	require.NoError(t, err)

	assert.False(t, hit)
	assert.Equal(t, dto.BoardStatusPreliminary, board.Status)
	assert.Equal(t, dto.Completion{TotalAssignments: 3, RankedAssignments: 2}, board.Completion)
	assert.True(t, board.HasTieOnTop)
	require.NotNil(t, board.FinalPick)
	assert.Equal(t, "A", board.FinalPick.Title)
	assert.False(t, board.Final())
}

func TestBoardServiceUnknownStudent(t *testing.T) {
	svc := newBoardFixture(t, scenarioSource(), nil)

	_, _, err := svc.GetStudentBoard(context.Background(), "ghost")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestBoardServiceUsesSnapshotTransaction(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	svc := newBoardFixture(t, scenarioSource(), nil)
	svc.tx = tx
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, _, err := svc.GetStudentBoard(context.Background(), "student-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBoardServiceCachesAndInvalidates(t *testing.T) {
	source := scenarioSource()
	cache := NewCacheService(repository.NewMemoryCacheRepository(time.Minute), nil, time.Minute, nil, true)
	svc := newBoardFixture(t, source, cache)
	ctx := context.Background()

	_, hit, err := svc.GetStudentBoard(ctx, "student-1")
	require.NoError(t, err)
	assert.False(t, hit)

	cached, hit, err := svc.GetStudentBoard(ctx, "student-1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "A", cached.FinalPick.Title)
	assert.Equal(t, 1, source.calls)

	svc.InvalidateStudent(ctx, "student-1")
	_, hit, err = svc.GetStudentBoard(ctx, "student-1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, source.calls)
}

func TestBoardServiceConfirmFinalPickGate(t *testing.T) {
	source := scenarioSource()
	svc := newBoardFixture(t, source, nil)

	_, err := svc.ConfirmFinalPick(context.Background(), "student-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))

	source.setRank(2, intPtr(2))
	pick, err := svc.ConfirmFinalPick(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, "A", pick.Title)
}

func TestBoardServiceInvalidationDuringBuildIsNotCached(t *testing.T) {
	source := scenarioSource()
	source.setRank(2, intPtr(2))
	cache := NewCacheService(repository.NewMemoryCacheRepository(time.Minute), nil, time.Minute, nil, true)
	svc := newBoardFixture(t, source, cache)
	ctx := context.Background()

	gate := source.holdNextBuild()
	type result struct {
		board *dto.StudentBoardResponse
		err   error
	}
	inflight := make(chan result, 1)
	go func() {
		board, _, err := svc.GetStudentBoard(ctx, "student-1")
		inflight <- result{board, err}
	}()
	<-gate.entered

	// The build has read a fully ranked snapshot; a reviewer now clears a rank.
	source.setRank(2, nil)
	svc.InvalidateStudent(ctx, "student-1")

	fresh := make(chan result, 1)
	go func() {
		board, _, err := svc.GetStudentBoard(ctx, "student-1")
		fresh <- result{board, err}
	}()
	select {
	case r := <-fresh:
		require.NoError(t, r.err)
		assert.Equal(t, dto.BoardStatusPreliminary, r.board.Status, "callers after invalidation do not join the stale build")
	case <-time.After(2 * time.Second):
		t.Fatal("board request joined a build started before invalidation")
	}

	close(gate.release)
	stale := <-inflight
	require.NoError(t, stale.err)
	assert.Equal(t, dto.BoardStatusFinal, stale.board.Status)

	board, _, err := svc.GetStudentBoard(ctx, "student-1")
	require.NoError(t, err)
	assert.Equal(t, dto.BoardStatusPreliminary, board.Status)

	_, err = svc.ConfirmFinalPick(ctx, "student-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))
}

func TestBoardServiceConfirmFinalPickIgnoresCachedBoard(t *testing.T) {
	source := scenarioSource()
	source.setRank(2, intPtr(2))
	cache := NewCacheService(repository.NewMemoryCacheRepository(time.Minute), nil, time.Minute, nil, true)
	svc := newBoardFixture(t, source, cache)
	ctx := context.Background()

	board, _, err := svc.GetStudentBoard(ctx, "student-1")
	require.NoError(t, err)
	require.Equal(t, dto.BoardStatusFinal, board.Status)

	// Rank cleared without an invalidation reaching this instance.
	source.setRank(2, nil)
	cached, hit, err := svc.GetStudentBoard(ctx, "student-1")
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, dto.BoardStatusFinal, cached.Status)

	_, err = svc.ConfirmFinalPick(ctx, "student-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))

	refreshed, hit, err := svc.GetStudentBoard(ctx, "student-1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, dto.BoardStatusPreliminary, refreshed.Status)
}

func TestBoardServiceSharedBuildOutlivesCallerContext(t *testing.T) {
	svc := newBoardFixture(t, scenarioSource(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	board, _, err := svc.GetStudentBoard(ctx, "student-1")
	require.NoError(t, err)
	assert.Equal(t, dto.BoardStatusPreliminary, board.Status)
}

func TestBoardServiceExportCSV(t *testing.T) {
	svc := newBoardFixture(t, scenarioSource(), nil)

	out, err := svc.Export(context.Background(), "student-1", dto.ExportFormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "text/csv", out.ContentType)
	assert.Equal(t, "board-student-1.csv", out.Filename)
	body := string(out.Body)
	assert.True(t, strings.HasPrefix(body, "# Status: preliminary\n"))
	assert.Contains(t, body, "Position,Title,Rank 1,Rank 2,Rank 3\n1,A,1,1,0\n2,B,1,1,0\n3,C,0,0,2\n")
	assert.Contains(t, body, "# Tie on top\n")
}

func TestBoardServiceExportRejectsUnknownFormat(t *testing.T) {
	svc := newBoardFixture(t, scenarioSource(), nil)

	_, err := svc.Export(context.Background(), "student-1", "xlsx")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
