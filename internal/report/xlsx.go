package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"meeting-minutes-go/internal/jobs"
)

const sheet = "Jobs"

var header = []string{
	"Job ID", "Filename", "Size (MB)", "Status", "Error", "Created", "Updated",
}

// JobsWorkbook builds an xlsx snapshot of the job registry for operators.
// The caller owns closing the returned file.
func JobsWorkbook(list []jobs.Job) (*excelize.File, error) {
	f := excelize.NewFile()

	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	for col, title := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return nil, err
		}
	}

	for row, job := range list {
		values := []interface{}{
			job.ID,
			job.OriginalFilename,
			fmt.Sprintf("%.2f", job.FileSizeMB),
			string(job.Status),
			deref(job.Error),
			job.CreatedAt.Format(time.RFC3339),
			job.UpdatedAt.Format(time.RFC3339),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	return f, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
