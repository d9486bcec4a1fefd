package dto

import "time"

// BoardStatus labels whether a board's final pick may be acted on.
type BoardStatus string

const (
	BoardStatusPreliminary BoardStatus = "preliminary"
	BoardStatusFinal       BoardStatus = "final"
)

// BoardEntry is one concept title's vote tally.
type BoardEntry struct {
	ConceptTitleID string `json:"concept_title_id"`
	Title          string `json:"title"`
	RankOne        int    `json:"rank_one"`
	RankTwo        int    `json:"rank_two"`
	RankThree      int    `json:"rank_three"`
}

// Board is the ordered tally for one student.
type Board struct {
	Entries     []BoardEntry `json:"entries"`
	FinalPick   *BoardEntry  `json:"final_pick,omitempty"`
	HasTieOnTop bool         `json:"has_tie_on_top"`
}

// Completion summarises how many of a student's assignments carry a rank.
type Completion struct {
	TotalAssignments  int  `json:"total_assignments"`
	RankedAssignments int  `json:"ranked_assignments"`
	RankingComplete   bool `json:"ranking_complete"`
}

// StudentBoardResponse is the board plus completion gating for one student.
type StudentBoardResponse struct {
	StudentID   string       `json:"student_id"`
	Status      BoardStatus  `json:"status"`
	Entries     []BoardEntry `json:"entries"`
	FinalPick   *BoardEntry  `json:"final_pick,omitempty"`
	HasTieOnTop bool         `json:"has_tie_on_top"`
	Completion  Completion   `json:"completion"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// Final reports whether the final pick may be acted on.
func (r *StudentBoardResponse) Final() bool {
	return r != nil && r.Status == BoardStatusFinal
}

// ExportFormat selects the board export encoding.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// BoardExport is a rendered board file.
type BoardExport struct {
	Filename    string
	ContentType string
	Body        []byte
}
