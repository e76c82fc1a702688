package rdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yaegashi/iotops/domain"
	"github.com/yaegashi/iotops/domain/model"
)

type StateRepository struct{ db *gorm.DB }

func NewStateRepository(db *gorm.DB) *StateRepository { return &StateRepository{db: db} }

func stateToRecord(s *model.ResourceState) (*StateRecord, error) {
	attrs, err := json.Marshal(s.Attributes)
	if err != nil {
		return nil, fmt.Errorf("encode attributes of %s: %w", s.ID, err)
	}
	return &StateRecord{
		Stack:      s.Stack,
		ID:         s.ID,
		Kind:       string(s.Kind),
		Digest:     s.Digest,
		Order:      s.Order,
		Attributes: string(attrs),
		UpdatedAt:  s.UpdatedAt,
	}, nil
}

func stateToModel(r *StateRecord) (*model.ResourceState, error) {
	var attrs map[string]string
	if r.Attributes != "" {
		if err := json.Unmarshal([]byte(r.Attributes), &attrs); err != nil {
			return nil, fmt.Errorf("decode attributes of %s: %w", r.ID, err)
		}
	}
	return &model.ResourceState{
		Stack:      r.Stack,
		ID:         r.ID,
		Kind:       model.ResourceKind(r.Kind),
		Digest:     r.Digest,
		Order:      r.Order,
		Attributes: attrs,
		UpdatedAt:  r.UpdatedAt,
	}, nil
}

func (r *StateRepository) Get(ctx context.Context, stack, id string) (*model.ResourceState, error) {
	var rec StateRecord
	if err := r.db.WithContext(ctx).First(&rec, "stack = ? AND id = ?", stack, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrStateNotFound
		}
		return nil, err
	}
	return stateToModel(&rec)
}

func (r *StateRepository) List(ctx context.Context, stack string) ([]*model.ResourceState, error) {
	var recs []StateRecord
	if err := r.db.WithContext(ctx).Where("stack = ?", stack).Order("apply_order ASC, id ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.ResourceState, 0, len(recs))
	for i := range recs {
		s, err := stateToModel(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *StateRepository) Put(ctx context.Context, s *model.ResourceState) error {
	rec, err := stateToRecord(s)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(rec).Error
}

func (r *StateRepository) Delete(ctx context.Context, stack, id string) error {
	res := r.db.WithContext(ctx).Delete(&StateRecord{}, "stack = ? AND id = ?", stack, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrStateNotFound
	}
	return nil
}

var _ domain.StateRepository = (*StateRepository)(nil)
