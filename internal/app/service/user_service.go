package service

import (
	"context"
	"fmt"
	"strings"

	"eduscore/internal/common"
	"eduscore/internal/common/security"
	"eduscore/internal/common/validation"
	"eduscore/internal/domain/model"
	"eduscore/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const msgStudentIDRequired = "Sinh viên phải có mã sinh viên gồm 9 chữ số."

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

type CreateUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	Name      string `json:"name" validate:"notblank,max=100"`
	Role      string `json:"role" validate:"required,oneof=admin teacher student"`
	StudentID string `json:"studentId" validate:"omitempty,studentid"`
	Phone     string `json:"phone" validate:"omitempty,max=20"`
	IsActive  *bool  `json:"isActive"`
}

type UpdateUserRequest struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	Password  *string `json:"password" validate:"omitempty,min=6"`
	Name      *string `json:"name" validate:"omitempty,notblank,max=100"`
	Role      *string `json:"role" validate:"omitempty,oneof=admin teacher student"`
	StudentID *string `json:"studentId" validate:"omitempty,studentid"`
	Phone     *string `json:"phone" validate:"omitempty,max=20"`
	IsActive  *bool   `json:"isActive"`
}

func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*model.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.StudentID = strings.TrimSpace(req.StudentID)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.Role == model.RoleStudent && req.StudentID == "" {
		return nil, common.BadRequest(msgStudentIDRequired)
	}

	hashed, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &model.User{
		Email:          req.Email,
		HashedPassword: hashed,
		Name:           strings.TrimSpace(req.Name),
		Role:           req.Role,
		StudentID:      req.StudentID,
		Phone:          strings.TrimSpace(req.Phone),
		IsActive:       req.IsActive == nil || *req.IsActive,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, orNotFound(err, MsgUserNotFound)
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, filter repository.UserFilter) ([]model.User, error) {
	return s.userRepo.List(ctx, filter)
}

func (s *UserService) Update(ctx context.Context, id primitive.ObjectID, req UpdateUserRequest) (*model.User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.StudentID != nil {
		user.StudentID = strings.TrimSpace(*req.StudentID)
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.Password != nil {
		hashed, err := security.HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.HashedPassword = hashed
	}
	if user.IsStudent() && user.StudentID == "" {
		return nil, common.BadRequest(msgStudentIDRequired)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, orNotFound(err, MsgUserNotFound)
	}
	return user, nil
}

// Delete removes the account only. Scores and rosters that reference it
// keep the id and render it as a missing reference.
func (s *UserService) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return orNotFound(err, MsgUserNotFound)
	}
	return nil
}
