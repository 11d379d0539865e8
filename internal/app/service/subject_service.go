package service

import (
	"context"
	"strings"

	"eduscore/internal/common"
	"eduscore/internal/common/validation"
	"eduscore/internal/domain/model"
	"eduscore/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SubjectService struct {
	subjectRepo repository.SubjectRepository
}

func NewSubjectService(subjectRepo repository.SubjectRepository) *SubjectService {
	return &SubjectService{subjectRepo: subjectRepo}
}

type CreateSubjectRequest struct {
	Code        string `json:"code" validate:"notblank,max=20"`
	Name        string `json:"name" validate:"notblank,max=200"`
	Description string `json:"description" validate:"omitempty,max=1000"`
	Credits     *int   `json:"credits" validate:"omitempty,min=1,max=10"`
}

type UpdateSubjectRequest struct {
	Code        *string `json:"code" validate:"omitempty,notblank,max=20"`
	Name        *string `json:"name" validate:"omitempty,notblank,max=200"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Credits     *int    `json:"credits" validate:"omitempty,min=1,max=10"`
	IsActive    *bool   `json:"isActive"`
}

func normalizeSubjectCode(code string) (string, error) {
	normalized := model.NormalizeCode(code)
	if normalized == "" {
		return "", common.BadRequest("Mã môn thi không hợp lệ.")
	}
	return normalized, nil
}

func (s *SubjectService) Create(ctx context.Context, req CreateSubjectRequest) (*model.Subject, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	code, err := normalizeSubjectCode(req.Code)
	if err != nil {
		return nil, err
	}
	subject := &model.Subject{
		Code:        code,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Credits:     model.DefaultSubjectCredits,
		IsActive:    true,
	}
	if req.Credits != nil {
		subject.Credits = *req.Credits
	}
	if err := s.subjectRepo.Create(ctx, subject); err != nil {
		return nil, err
	}
	return subject, nil
}

func (s *SubjectService) Get(ctx context.Context, id primitive.ObjectID) (*model.Subject, error) {
	subject, err := s.subjectRepo.FindByID(ctx, id)
	if err != nil {
		return nil, orNotFound(err, MsgSubjectNotFound)
	}
	return subject, nil
}

func (s *SubjectService) List(ctx context.Context, filter repository.SubjectFilter) ([]model.Subject, error) {
	return s.subjectRepo.List(ctx, filter)
}

func (s *SubjectService) Update(ctx context.Context, id primitive.ObjectID, req UpdateSubjectRequest) (*model.Subject, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	subject, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Code != nil {
		if subject.Code, err = normalizeSubjectCode(*req.Code); err != nil {
			return nil, err
		}
	}
	if req.Name != nil {
		subject.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		subject.Description = strings.TrimSpace(*req.Description)
	}
	if req.Credits != nil {
		subject.Credits = *req.Credits
	}
	if req.IsActive != nil {
		subject.IsActive = *req.IsActive
	}
	if err := s.subjectRepo.Update(ctx, subject); err != nil {
		return nil, orNotFound(err, MsgSubjectNotFound)
	}
	return subject, nil
}

func (s *SubjectService) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := s.subjectRepo.Delete(ctx, id); err != nil {
		return orNotFound(err, MsgSubjectNotFound)
	}
	return nil
}
