package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/EduCore-2025/exam-engine/internal/repositories"
	"github.com/EduCore-2025/exam-engine/internal/utils"
)

// ExportService produces xlsx downloads of finalized standings for the
// administrative surface.
type ExportService interface {
	ExportExamResults(ctx context.Context, examID uint) ([]byte, error)
	ExportContestResults(ctx context.Context, contestID uint) ([]byte, error)
}

type exportService struct {
	repo   repositories.Repository
	logger utils.Logger
}

func NewExportService(repo repositories.Repository, logger utils.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

func (s *exportService) ExportExamResults(ctx context.Context, examID uint) ([]byte, error) {
	exam, err := s.repo.Exam().GetByID(ctx, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	results, err := s.repo.Result().ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Rank < results[j].Rank })

	f := excelize.NewFile()
	sheetName := "Results"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"Rank", "User ID", "Score", "Correct", "Incorrect", "Unanswered",
		"Time Taken (s)", "Passed", "Percentile", "Finalized At",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, r := range results {
		row := []interface{}{
			r.Rank, r.UserID, r.Score, r.Correct, r.Incorrect, r.Unanswered,
			r.TimeTaken, r.Passed, r.Percentile, r.FinalizedAt.Format("2006-01-02 15:04:05"),
		}
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.InfoContext(ctx, "exam results exported",
		"exam_id", examID, "exam_title", exam.Title, "rows", len(results))
	return buf.Bytes(), nil
}

func (s *exportService) ExportContestResults(ctx context.Context, contestID uint) ([]byte, error) {
	contest, err := s.repo.Contest().GetByID(ctx, contestID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrContestNotFound
		}
		return nil, fmt.Errorf("failed to get contest: %w", err)
	}

	results, err := s.repo.ContestResult().ListByContest(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contest results: %w", err)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Rank < results[j].Rank })

	f := excelize.NewFile()
	sheetName := "Standings"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"Rank", "User ID", "Total Points", "Submissions", "Correct",
		"Time Taken (s)", "Percentile", "Finalized At",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, r := range results {
		row := []interface{}{
			r.Rank, r.UserID, r.TotalPoints, r.Submissions, r.Correct,
			r.TimeTaken, r.Percentile, r.FinalizedAt.Format("2006-01-02 15:04:05"),
		}
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.InfoContext(ctx, "contest results exported",
		"contest_id", contestID, "contest_title", contest.Title, "rows", len(results))
	return buf.Bytes(), nil
}
