package service

import (
	"sort"

	"github.com/noah-isme/concept-review-api/internal/dto"
	"github.com/noah-isme/concept-review-api/internal/models"
)

// BuildStudentBoard tallies rank votes per concept title and orders them by
// rank-1, rank-2 and rank-3 counts (descending), then title text and id.
func BuildStudentBoard(votes []models.RankVote) dto.Board {
	byTitle := make(map[string]*dto.BoardEntry)
	for _, vote := range votes {
		entry, ok := byTitle[vote.ConceptTitleID]
		if !ok {
			entry = &dto.BoardEntry{ConceptTitleID: vote.ConceptTitleID, Title: vote.Title}
			byTitle[vote.ConceptTitleID] = entry
		}
		switch vote.RankOrder {
		case 1:
			entry.RankOne++
		case 2:
			entry.RankTwo++
		case 3:
			entry.RankThree++
		}
	}

	entries := make([]dto.BoardEntry, 0, len(byTitle))
	for _, entry := range byTitle {
		if entry.RankOne+entry.RankTwo+entry.RankThree == 0 {
			continue
		}
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.RankOne != b.RankOne {
			return a.RankOne > b.RankOne
		}
		if a.RankTwo != b.RankTwo {
			return a.RankTwo > b.RankTwo
		}
		if a.RankThree != b.RankThree {
			return a.RankThree > b.RankThree
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ConceptTitleID < b.ConceptTitleID
	})

	board := dto.Board{Entries: entries}
	if len(entries) > 0 {
		pick := entries[0]
		board.FinalPick = &pick
	}
	if len(entries) >= 2 && entries[0].RankOne > 0 && entries[0].RankOne == entries[1].RankOne {
		board.HasTieOnTop = true
	}
	return board
}

// ComputeCompletion counts the assignments in roles and how many of them carry a rank.
func ComputeCompletion(states []models.AssignmentRankState, roles models.RoleSet) dto.Completion {
	var c dto.Completion
	for _, st := range states {
		if !roles.Has(st.ReviewerRole) {
			continue
		}
		c.TotalAssignments++
		if st.RankOrder != nil {
			c.RankedAssignments++
		}
	}
	c.RankingComplete = c.TotalAssignments > 0 && c.RankedAssignments >= c.TotalAssignments
	return c
}

// BoardStatusFor labels a board final only once ranking is complete.
func BoardStatusFor(c dto.Completion) dto.BoardStatus {
	if c.RankingComplete {
		return dto.BoardStatusFinal
	}
	return dto.BoardStatusPreliminary
}
