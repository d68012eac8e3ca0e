package ledger

import (
	"database/sql"
	"errors"
	"time"

	"sdportal/internal/api"
)

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		entry       Entry
		taskType    int
		status      int
		baseModel   sql.NullString
		prompt      sql.NullString
		vramLimit   sql.NullInt64
		abortReason sql.NullString
		imagesDir   sql.NullString
		imagesSaved int
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(
		&entry.ID,
		&entry.ClientID,
		&entry.TaskID,
		&taskType,
		&entry.TaskArgs,
		&baseModel,
		&prompt,
		&vramLimit,
		&entry.NumImages,
		&status,
		&abortReason,
		&imagesDir,
		&imagesSaved,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	entry.TaskType = api.TaskType(taskType)
	entry.Status = api.TaskStatus(status)
	entry.BaseModel = baseModel.String
	entry.Prompt = prompt.String
	if vramLimit.Valid {
		v := int(vramLimit.Int64)
		entry.VRAMLimit = &v
	}
	entry.AbortReason = abortReason.String
	entry.ImagesDir = imagesDir.String
	entry.ImagesSaved = imagesSaved != 0
	if t, err := parseTimeString(createdRaw); err == nil {
		entry.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		entry.UpdatedAt = t
	}
	return &entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
