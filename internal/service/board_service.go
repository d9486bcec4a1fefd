package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/concept-review-api/internal/dto"
	"github.com/noah-isme/concept-review-api/internal/models"
	appErrors "github.com/noah-isme/concept-review-api/pkg/errors"
	"github.com/noah-isme/concept-review-api/pkg/export"
)

type boardVoteReader interface {
	ListRankVotes(ctx context.Context, exec sqlx.ExtContext, studentID string) ([]models.RankVote, error)
}

type boardStateReader interface {
	ListRankStates(ctx context.Context, exec sqlx.ExtContext, studentID string) ([]models.AssignmentRankState, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type documentRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

const defaultBoardBuildTimeout = 10 * time.Second

// BoardServiceConfig governs board caching.
type BoardServiceConfig struct {
	CacheTTL time.Duration
	// BuildTimeout bounds a shared board build, which outlives any single caller's context.
	BuildTimeout time.Duration
}

// BoardService assembles a student's ranking board with its completion gate.
type BoardService struct {
	students  studentReader
	votes     boardVoteReader
	states    boardStateReader
	tx        txProvider
	cache     *CacheService
	metrics   *MetricsService
	renderers map[dto.ExportFormat]documentRenderer
	logger    *zap.Logger
	cfg       BoardServiceConfig
	group     singleflight.Group
	now       func() time.Time

	mu          sync.Mutex
	generations map[string]uint64
}

// NewBoardService constructs the board service. cache may be nil.
func NewBoardService(
	students studentReader,
	votes boardVoteReader,
	states boardStateReader,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg BoardServiceConfig,
) *BoardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BuildTimeout <= 0 {
		cfg.BuildTimeout = defaultBoardBuildTimeout
	}
	return &BoardService{
		students: students,
		votes:    votes,
		states:   states,
		tx:       tx,
		cache:    cache,
		metrics:  metrics,
		renderers: map[dto.ExportFormat]documentRenderer{
			dto.ExportFormatCSV: export.NewCSVExporter(),
			dto.ExportFormatPDF: export.NewPDFExporter(),
		},
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
		generations: make(map[string]uint64),
	}
}

func boardCacheKey(studentID string) string {
	return fmt.Sprintf("board:v1:%s", studentID)
}

// GetStudentBoard returns the ordered board and completion state. The bool reports a cache hit.
func (s *BoardService) GetStudentBoard(ctx context.Context, studentID string) (*dto.StudentBoardResponse, bool, error) {
	if studentID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "studentId is required")
	}
	key := boardCacheKey(studentID)
	if s.cache != nil {
		var cached dto.StudentBoardResponse
		hit, err := s.cache.Get(ctx, key, &cached)
		if err == nil && hit {
			return &cached, true, nil
		}
	}

	value, err, _ := s.group.Do(studentID, func() (interface{}, error) {
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.BuildTimeout)
		defer cancel()

		gen := s.generation(studentID)
		board, err := s.compute(buildCtx, studentID)
		if err != nil {
			return nil, err
		}
		s.store(buildCtx, studentID, gen, board)
		return board, nil
	})
	if err != nil {
		return nil, false, err
	}
	board := *value.(*dto.StudentBoardResponse)
	return &board, false, nil
}

// ConfirmFinalPick returns the final pick only once every assignment carries a rank.
// It always reads a fresh snapshot and never trusts the cached board.
func (s *BoardService) ConfirmFinalPick(ctx context.Context, studentID string) (*dto.BoardEntry, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "studentId is required")
	}
	gen := s.generation(studentID)
	board, err := s.compute(ctx, studentID)
	if err != nil {
		return nil, err
	}
	s.store(ctx, studentID, gen, board)
	if !board.Final() {
		return nil, appErrors.WithDetail(
			appErrors.Clone(appErrors.ErrPreconditionFailed, "final pick is preliminary until every assignment is ranked"),
			"completion", board.Completion,
		)
	}
	if board.FinalPick == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no ranked concept titles")
	}
	return board.FinalPick, nil
}

// Export renders the board in the requested format.
func (s *BoardService) Export(ctx context.Context, studentID string, format dto.ExportFormat) (*dto.BoardExport, error) {
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	board, _, err := s.GetStudentBoard(ctx, studentID)
	if err != nil {
		return nil, err
	}
	body, err := renderer.Render(boardDocument(board))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render board")
	}
	contentType := "text/csv"
	if format == dto.ExportFormatPDF {
		contentType = "application/pdf"
	}
	return &dto.BoardExport{
		Filename:    fmt.Sprintf("board-%s.%s", studentID, format),
		ContentType: contentType,
		Body:        body,
	}, nil
}

// InvalidateStudent drops the cached board of a student. Builds already in
// flight for the student are detached so their result is never cached.
func (s *BoardService) InvalidateStudent(ctx context.Context, studentID string) {
	s.mu.Lock()
	s.generations[studentID]++
	s.mu.Unlock()
	s.group.Forget(studentID)

	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, boardCacheKey(studentID)); err != nil {
		s.logger.Warn("board cache invalidation failed", zap.String("student_id", studentID), zap.Error(err))
	}
}

func (s *BoardService) generation(studentID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[studentID]
}

// store caches board unless the student was invalidated after gen was read.
func (s *BoardService) store(ctx context.Context, studentID string, gen uint64, board *dto.StudentBoardResponse) {
	if s.cache == nil || s.generation(studentID) != gen {
		return
	}
	key := boardCacheKey(studentID)
	if err := s.cache.Set(ctx, key, board, s.cfg.CacheTTL); err != nil {
		return
	}
	// An invalidation that raced the write may have deleted the key before it landed.
	if s.generation(studentID) != gen {
		_ = s.cache.Invalidate(ctx, key)
	}
}

func (s *BoardService) compute(ctx context.Context, studentID string) (*dto.StudentBoardResponse, error) {
	start := time.Now()
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, storageError(err, "student not found", "failed to load student")
	}

	var exec sqlx.ExtContext
	if s.tx != nil {
		tx, err := s.tx.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open board snapshot")
		}
		defer func() { _ = tx.Rollback() }()
		exec = tx
	}

	votes, err := s.votes.ListRankVotes(ctx, exec, studentID)
	if err != nil {
		return nil, storageError(err, "student not found", "failed to load rank votes")
	}
	states, err := s.states.ListRankStates(ctx, exec, studentID)
	if err != nil {
		return nil, storageError(err, "student not found", "failed to load assignments")
	}

	board := BuildStudentBoard(votes)
	completion := ComputeCompletion(states, models.NewRoleSet(models.AllReviewerRoles...))
	s.metrics.ObserveBoardBuild(time.Since(start))

	return &dto.StudentBoardResponse{
		StudentID:   studentID,
		Status:      BoardStatusFor(completion),
		Entries:     board.Entries,
		FinalPick:   board.FinalPick,
		HasTieOnTop: board.HasTieOnTop,
		Completion:  completion,
		GeneratedAt: s.now().UTC(),
	}, nil
}

func boardDocument(board *dto.StudentBoardResponse) export.Document {
	headers := []string{"Position", "Title", "Rank 1", "Rank 2", "Rank 3"}
	rows := make([]map[string]string, 0, len(board.Entries))
	for i, e := range board.Entries {
		rows = append(rows, map[string]string{
			"Position": strconv.Itoa(i + 1),
			"Title":    e.Title,
			"Rank 1":   strconv.Itoa(e.RankOne),
			"Rank 2":   strconv.Itoa(e.RankTwo),
			"Rank 3":   strconv.Itoa(e.RankThree),
		})
	}
	summary := []string{
		fmt.Sprintf("Status: %s", board.Status),
		fmt.Sprintf("Ranked: %d of %d", board.Completion.RankedAssignments, board.Completion.TotalAssignments),
	}
	if board.FinalPick != nil {
		summary = append(summary, fmt.Sprintf("Final pick: %s", board.FinalPick.Title))
	}
	if board.HasTieOnTop {
		summary = append(summary, "Tie on top")
	}
	return export.Document{
		Title:   fmt.Sprintf("Concept title board %s", board.StudentID),
		Summary: summary,
		Data:    export.Dataset{Headers: headers, Rows: rows},
	}
}
