package rdb

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yaegashi/iotops/domain"
	"github.com/yaegashi/iotops/domain/model"
)

type RunRepository struct{ db *gorm.DB }

func NewRunRepository(db *gorm.DB) *RunRepository { return &RunRepository{db: db} }

func runToRecord(m *model.Run) *RunRecord {
	return &RunRecord{
		ID:         m.ID,
		Stack:      m.Stack,
		Operation:  m.Operation,
		Backend:    string(m.Backend),
		Status:     string(m.Status),
		Changes:    m.Changes,
		Error:      m.Error,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
	}
}

func runToModel(r *RunRecord) *model.Run {
	return &model.Run{
		ID:         r.ID,
		Stack:      r.Stack,
		Operation:  r.Operation,
		Backend:    model.Backend(r.Backend),
		Status:     model.RunStatus(r.Status),
		Changes:    r.Changes,
		Error:      r.Error,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

func (r *RunRepository) Create(ctx context.Context, m *model.Run) error {
	rec := runToRecord(m)
	if rec.ID == "" {
		rec.ID = "run-" + uuid.NewString()
		m.ID = rec.ID
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *RunRepository) Update(ctx context.Context, m *model.Run) error {
	res := r.db.WithContext(ctx).Model(&RunRecord{}).Where("id = ?", m.ID).Select("*").Updates(runToRecord(m))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("run %s not found", m.ID)
	}
	return nil
}

func (r *RunRepository) List(ctx context.Context, stack string) ([]*model.Run, error) {
	var recs []RunRecord
	if err := r.db.WithContext(ctx).Where("stack = ?", stack).Order("started_at DESC").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.Run, 0, len(recs))
	for i := range recs {
		out = append(out, runToModel(&recs[i]))
	}
	return out, nil
}

var _ domain.RunRepository = (*RunRepository)(nil)
