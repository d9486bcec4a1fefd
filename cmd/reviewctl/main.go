package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/concept-review-api/internal/dto"
	"github.com/noah-isme/concept-review-api/internal/repository"
	"github.com/noah-isme/concept-review-api/internal/service"
	"github.com/noah-isme/concept-review-api/pkg/config"
	"github.com/noah-isme/concept-review-api/pkg/database"
	"github.com/noah-isme/concept-review-api/pkg/logger"
)

type boardReader interface {
	GetStudentBoard(ctx context.Context, studentID string) (*dto.StudentBoardResponse, bool, error)
	Export(ctx context.Context, studentID string, format dto.ExportFormat) (*dto.BoardExport, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var boards boardReader
	var closeDB func() error

	rootCmd := &cobra.Command{
		Use:           "reviewctl",
		Short:         "Inspect concept title boards from the review database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			db, err := database.NewPostgres(cmd.Context(), cfg.Database)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			closeDB = db.Close
			reviews := repository.NewReviewRepository(db)
			boards = service.NewBoardService(
				repository.NewStudentRepository(db),
				reviews,
				repository.NewAssignmentRepository(db),
				reviews,
				nil,
				nil,
				logr.With(zap.String("component", "reviewctl")),
				service.BoardServiceConfig{},
			)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if closeDB != nil {
				return closeDB()
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		boardCommand(func() boardReader { return boards }),
		completionCommand(func() boardReader { return boards }),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func boardCommand(boards func() boardReader) *cobra.Command {
	var format string
	var out string

	cmd := &cobra.Command{
		Use:   "board [student-id]",
		Short: "Print a student's board",
		Long: `Print a student's concept title board.

Examples:
  reviewctl board 6f1c... --format json
  reviewctl board 6f1c... --format pdf --out board.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, closeOut, err := openOutput(cmd, out)
			if err != nil {
				return err
			}
			defer closeOut() //nolint:errcheck

			if format == "json" {
				board, _, err := boards().GetStudentBoard(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(board)
			}
			file, err := boards().Export(cmd.Context(), args[0], dto.ExportFormat(format))
			if err != nil {
				return err
			}
			_, err = w.Write(file.Body)
			return err
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "Output format: csv, pdf or json")
	cmd.Flags().StringVar(&out, "out", "", "Write to this file instead of stdout")
	return cmd
}

func completionCommand(boards func() boardReader) *cobra.Command {
	return &cobra.Command{
		Use:   "completion [student-id]",
		Short: "Report how many of a student's assignments are ranked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			board, _, err := boards().GetStudentBoard(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			writeCompletion(cmd.OutOrStdout(), board)
			return nil
		},
	}
}

func writeCompletion(w io.Writer, board *dto.StudentBoardResponse) {
	c := board.Completion
	fmt.Fprintf(w, "student:  %s\n", board.StudentID)
	fmt.Fprintf(w, "status:   %s\n", board.Status)
	fmt.Fprintf(w, "ranked:   %d of %d\n", c.RankedAssignments, c.TotalAssignments)
	if board.FinalPick != nil {
		fmt.Fprintf(w, "top:      %s\n", board.FinalPick.Title)
	}
	if board.HasTieOnTop {
		fmt.Fprintln(w, "warning:  tie on top")
	}
}

func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, f.Close, nil
}
