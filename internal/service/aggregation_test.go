package service

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/concept-review-api/internal/dto"
	"github.com/noah-isme/concept-review-api/internal/models"
)

func vote(id, title string, rank int) models.RankVote {
	return models.RankVote{ConceptTitleID: id, Title: title, RankOrder: rank}
}

func TestBuildStudentBoardTieOnTopFallsToTitle(t *testing.T) {
	votes := []models.RankVote{
		vote("a", "A", 1), vote("b", "B", 2), vote("c", "C", 3),
		vote("b", "B", 1), vote("a", "A", 2), vote("c", "C", 3),
	}

	board := BuildStudentBoard(votes)

	require.Len(t, board.Entries, 3)
	assert.Equal(t, dto.BoardEntry{ConceptTitleID: "a", Title: "A", RankOne: 1, RankTwo: 1}, board.Entries[0])
	assert.Equal(t, dto.BoardEntry{ConceptTitleID: "b", Title: "B", RankOne: 1, RankTwo: 1}, board.Entries[1])
	assert.Equal(t, dto.BoardEntry{ConceptTitleID: "c", Title: "C", RankThree: 2}, board.Entries[2])
	require.NotNil(t, board.FinalPick)
	assert.Equal(t, "A", board.FinalPick.Title)
	assert.True(t, board.HasTieOnTop)
}

func TestBuildStudentBoardOrdersBySecondaryCounts(t *testing.T) {
	votes := []models.RankVote{
		vote("z", "Zeta", 1), vote("z", "Zeta", 2),
		vote("a", "Alpha", 1), vote("a", "Alpha", 3),
		vote("m", "Mu", 2),
	}

	board := BuildStudentBoard(votes)

	require.Len(t, board.Entries, 3)
	assert.Equal(t, []string{"Zeta", "Alpha", "Mu"}, titles(board))
	assert.True(t, board.HasTieOnTop)
	assert.Equal(t, "Zeta", board.FinalPick.Title)
}

func TestBuildStudentBoardNoTieWithoutRankOneVotes(t *testing.T) {
	board := BuildStudentBoard([]models.RankVote{vote("a", "A", 2), vote("b", "B", 2)})

	require.Len(t, board.Entries, 2)
	assert.False(t, board.HasTieOnTop)
	assert.Equal(t, "A", board.FinalPick.Title)
}

func TestBuildStudentBoardExcludesUnrankedTitles(t *testing.T) {
	board := BuildStudentBoard([]models.RankVote{vote("a", "A", 1), vote("ghost", "Ghost", 0)})

	require.Len(t, board.Entries, 1)
	assert.Equal(t, "A", board.Entries[0].Title)
	assert.False(t, board.HasTieOnTop)
}

func TestBuildStudentBoardEmpty(t *testing.T) {
	board := BuildStudentBoard(nil)

	assert.Empty(t, board.Entries)
	assert.NotNil(t, board.Entries)
	assert.Nil(t, board.FinalPick)
	assert.False(t, board.HasTieOnTop)
}

func TestBuildStudentBoardDeterministic(t *testing.T) {
	votes := []models.RankVote{
		vote("a", "Same", 1), vote("b", "Same", 1),
		vote("c", "Other", 2), vote("d", "Beta", 2),
		vote("a", "Same", 3), vote("b", "Same", 3),
	}
	want := BuildStudentBoard(votes)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]models.RankVote(nil), votes...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, want, BuildStudentBoard(shuffled))
	}
	assert.Equal(t, "a", want.Entries[0].ConceptTitleID)
}

func TestComputeCompletionGating(t *testing.T) {
	all := models.NewRoleSet(models.AllReviewerRoles...)
	states := []models.AssignmentRankState{
		{AssignmentID: "1", ReviewerRole: models.ReviewerRoleAdviser, RankOrder: intPtr(1)},
		{AssignmentID: "2", ReviewerRole: models.ReviewerRolePanel, RankOrder: intPtr(2)},
		{AssignmentID: "3", ReviewerRole: models.ReviewerRolePanel},
	}

	c := ComputeCompletion(states, all)
	assert.Equal(t, dto.Completion{TotalAssignments: 3, RankedAssignments: 2}, c)
	assert.Equal(t, dto.BoardStatusPreliminary, BoardStatusFor(c))

	states[2].RankOrder = intPtr(3)
	c = ComputeCompletion(states, all)
	assert.True(t, c.RankingComplete)
	assert.Equal(t, dto.BoardStatusFinal, BoardStatusFor(c))
}

func TestComputeCompletionRespectsRoleSet(t *testing.T) {
	states := []models.AssignmentRankState{
		{AssignmentID: "1", ReviewerRole: models.ReviewerRoleAdviser, RankOrder: intPtr(1)},
		{AssignmentID: "2", ReviewerRole: models.ReviewerRolePanel},
	}

	c := ComputeCompletion(states, models.NewRoleSet(models.ReviewerRoleAdviser))
	assert.Equal(t, 1, c.TotalAssignments)
	assert.True(t, c.RankingComplete)

	empty := ComputeCompletion(nil, models.NewRoleSet(models.AllReviewerRoles...))
	assert.False(t, empty.RankingComplete, "no assignments is never complete")
}

func titles(board dto.Board) []string {
	out := make([]string, 0, len(board.Entries))
	for _, e := range board.Entries {
		out = append(out, e.Title)
	}
	return out
}
