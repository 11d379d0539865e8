package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"eduscore/internal/common"
	"eduscore/internal/common/security"
	"eduscore/internal/common/validation"
	"eduscore/internal/domain/model"
	"eduscore/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MinPasswordLength = 6

	msgLoginRequired      = "Vui lòng nhập email và mật khẩu."
	msgInvalidCredentials = "Email hoặc mật khẩu không đúng."
	msgRegisterRequired   = "Vui lòng nhập đầy đủ thông tin: mã sinh viên, họ tên, mật khẩu."
	msgInvalidStudentID   = "Mã sinh viên phải là 9 chữ số."
	msgPasswordTooShort   = "Mật khẩu phải có ít nhất 6 ký tự."
	msgPasswordTooSimilar = "Mật khẩu quá giống với thông tin cá nhân."
	msgStudentRegistered  = "Mã sinh viên này đã được đăng ký."
	msgWrongPassword      = "Mật khẩu hiện tại không đúng."
)

type AuthService struct {
	userRepo repository.UserRepository
	tokens   *security.TokenManager
}

func NewAuthService(userRepo repository.UserRepository, tokens *security.TokenManager) *AuthService {
	return &AuthService{userRepo: userRepo, tokens: tokens}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type UpdateProfileRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

type AuthUser struct {
	ID        primitive.ObjectID `json:"id"`
	Email     string             `json:"email"`
	Name      string             `json:"name"`
	Role      string             `json:"role"`
	StudentID string             `json:"studentId,omitempty"`
}

type AuthResponse struct {
	Token string   `json:"token"`
	User  AuthUser `json:"user"`
}

type Profile struct {
	ID        primitive.ObjectID `json:"id"`
	Email     string             `json:"email"`
	Name      string             `json:"name"`
	Role      string             `json:"role"`
	StudentID string             `json:"studentId,omitempty"`
	Phone     string             `json:"phone,omitempty"`
	IsActive  bool               `json:"isActive"`
	CreatedAt time.Time          `json:"createdAt"`
}

func NewProfile(u *model.User) *Profile {
	return &Profile{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		StudentID: u.StudentID,
		Phone:     u.Phone,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// NormalizeLogin lower-cases an email and completes a bare student id or
// username with the default student domain.
func NormalizeLogin(login string) string {
	login = strings.ToLower(strings.TrimSpace(login))
	if login != "" && !strings.Contains(login, "@") {
		login += model.StudentEmailDomain
	}
	return login
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := NormalizeLogin(req.Email)
	if email == "" || req.Password == "" {
		return nil, common.BadRequest(msgLoginRequired)
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Unauthorized(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	// Every failure gets the same answer so account existence is not revealed.
	if !security.CheckPasswordHash(req.Password, user.HashedPassword) || !user.IsActive {
		return nil, common.Unauthorized(msgInvalidCredentials)
	}
	return s.issue(user)
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	studentID := strings.TrimSpace(req.StudentID)
	name := strings.TrimSpace(req.Name)
	if studentID == "" || name == "" || req.Password == "" {
		return nil, common.BadRequest(msgRegisterRequired)
	}
	if !validation.IsStudentID(studentID) {
		return nil, common.BadRequest(msgInvalidStudentID)
	}
	if utf8.RuneCountInString(req.Password) < MinPasswordLength {
		return nil, common.BadRequest(msgPasswordTooShort)
	}

	email := model.StudentEmail(studentID)
	if taken, err := s.isRegistered(ctx, email, studentID); err != nil {
		return nil, err
	} else if taken {
		return nil, common.BadRequest(msgStudentRegistered)
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &model.User{
		Email:          email,
		HashedPassword: hashedPassword,
		Name:           name,
		Role:           model.RoleStudent,
		StudentID:      studentID,
		Phone:          strings.TrimSpace(req.Phone),
		IsActive:       true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrDuplicateKey) {
			return nil, common.BadRequest(msgStudentRegistered)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return s.issue(user)
}

func (s *AuthService) isRegistered(ctx context.Context, email, studentID string) (bool, error) {
	for _, find := range []func() (*model.User, error){
		func() (*model.User, error) { return s.userRepo.FindByEmail(ctx, email) },
		func() (*model.User, error) { return s.userRepo.FindByStudentID(ctx, studentID) },
	} {
		_, err := find()
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			return false, fmt.Errorf("failed to check registration: %w", err)
		}
	}
	return false, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResponse, error) {
	token, err := s.tokens.GenerateToken(user.ID.Hex(), user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{
		Token: token,
		User: AuthUser{
			ID:        user.ID,
			Email:     user.Email,
			Name:      user.Name,
			Role:      user.Role,
			StudentID: user.StudentID,
		},
	}, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, user *model.User, req ChangePasswordRequest) error {
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return common.BadRequest("Vui lòng nhập mật khẩu hiện tại và mật khẩu mới.")
	}
	if !security.CheckPasswordHash(req.CurrentPassword, user.HashedPassword) {
		return common.Unauthorized(msgWrongPassword)
	}
	return s.setPassword(ctx, user.ID, req.NewPassword)
}

// ResetPassword sets a new password without knowing the current one. It is
// the operator path, so it also refuses passwords that echo the account's
// name, email or student ID.
func (s *AuthService) ResetPassword(ctx context.Context, email, newPassword string) error {
	user, err := s.userRepo.FindByEmail(ctx, NormalizeLogin(email))
	if err != nil {
		return orNotFound(err, MsgUserNotFound)
	}
	if security.TooSimilar(newPassword, user.Name, user.Email, user.StudentID) {
		return common.BadRequest(msgPasswordTooSimilar)
	}
	return s.setPassword(ctx, user.ID, newPassword)
}

func (s *AuthService) setPassword(ctx context.Context, userID primitive.ObjectID, password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return common.BadRequest(msgPasswordTooShort)
	}
	hashed, err := security.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if _, err := s.userRepo.Patch(ctx, userID, repository.UserPatch{HashedPassword: &hashed}); err != nil {
		return orNotFound(err, MsgUserNotFound)
	}
	return nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, user *model.User, req UpdateProfileRequest) (*Profile, error) {
	var patch repository.UserPatch
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, common.BadRequest("Họ tên không được để trống.")
		}
		patch.Name = &name
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		patch.Phone = &phone
	}
	updated, err := s.userRepo.Patch(ctx, user.ID, patch)
	if err != nil {
		return nil, orNotFound(err, MsgUserNotFound)
	}
	return NewProfile(updated), nil
}
