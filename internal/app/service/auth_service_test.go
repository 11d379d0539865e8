package service

import (
	"testing"

	"eduscore/internal/common"
	"eduscore/internal/common/security"
	"eduscore/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	f.user(t, model.RoleAdmin, "admin@gmail.com", "")
	inactive := f.user(t, model.RoleTeacher, "off@gmail.com", "")
	inactive.IsActive = false
	require.NoError(t, f.repos.Users.Update(f.ctx, inactive))

	tests := []struct {
		name string
		req  LoginRequest
	}{
		{"unknown email", LoginRequest{Email: "nobody@gmail.com", Password: testPassword}},
		{"wrong password", LoginRequest{Email: "admin@gmail.com", Password: "wrong-password"}},
		{"inactive account", LoginRequest{Email: "off@gmail.com", Password: testPassword}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Auth.Login(f.ctx, tt.req)
			assertAppError(t, err, common.ErrUnauthorized, "Email hoặc mật khẩu không đúng.")
		})
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	student := f.user(t, model.RoleStudent, "110120001@gmail.com", "110120001")

	_, err := f.svc.Auth.Login(f.ctx, LoginRequest{Email: "110120001"})
	assertAppError(t, err, common.ErrBadRequest, "Vui lòng nhập email và mật khẩu.")

	res, err := f.svc.Auth.Login(f.ctx, LoginRequest{Email: "110120001", Password: testPassword})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, student.ID, res.User.ID)
	assert.Equal(t, model.RoleStudent, res.User.Role)
}

func TestRegister(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		req     RegisterRequest
		message string
	}{
		{"missing name", RegisterRequest{StudentID: "110120002", Password: testPassword}, "Vui lòng nhập đầy đủ thông tin: mã sinh viên, họ tên, mật khẩu."},
		{"bad student id", RegisterRequest{StudentID: "12345", Name: "An", Password: testPassword}, "Mã sinh viên phải là 9 chữ số."},
		{"short password", RegisterRequest{StudentID: "110120002", Name: "An", Password: "12345"}, "Mật khẩu phải có ít nhất 6 ký tự."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Auth.Register(f.ctx, tt.req)
			assertAppError(t, err, common.ErrBadRequest, tt.message)
		})
	}

	res, err := f.svc.Auth.Register(f.ctx, RegisterRequest{StudentID: "110120002", Name: "Trần An", Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, "110120002@gmail.com", res.User.Email)
	assert.Equal(t, model.RoleStudent, res.User.Role)

	_, err = f.svc.Auth.Register(f.ctx, RegisterRequest{StudentID: "110120002", Name: "Khác", Password: "abcdef"})
	assertAppError(t, err, common.ErrBadRequest, "Mã sinh viên này đã được đăng ký.")
}

func TestRegisterAcceptsAnyLongEnoughPassword(t *testing.T) {
	f := newFixture(t)

	tests := []RegisterRequest{
		{StudentID: "123456789", Name: "Nguyen Van A", Password: "1234567890"},
		{StudentID: "110122081", Name: "Lê Văn Hùng", Password: "110122081"},
		{StudentID: "110122082", Name: "hung1234", Password: "hung1234"},
	}
	for _, req := range tests {
		t.Run(req.StudentID, func(t *testing.T) {
			res, err := f.svc.Auth.Register(f.ctx, req)
			require.NoError(t, err)
			assert.Equal(t, req.StudentID, res.User.StudentID)

			_, err = f.svc.Auth.Login(f.ctx, LoginRequest{Email: req.StudentID, Password: req.Password})
			assert.NoError(t, err)
		})
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, model.RoleTeacher, "giaovien@gmail.com", "")

	err := f.svc.Auth.ChangePassword(f.ctx, u, ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "s3cret-pass"})
	assertAppError(t, err, common.ErrUnauthorized, "Mật khẩu hiện tại không đúng.")

	err = f.svc.Auth.ChangePassword(f.ctx, u, ChangePasswordRequest{CurrentPassword: testPassword, NewPassword: "abc"})
	assertAppError(t, err, common.ErrBadRequest, "Mật khẩu phải có ít nhất 6 ký tự.")

	require.NoError(t, f.svc.Auth.ChangePassword(f.ctx, u, ChangePasswordRequest{CurrentPassword: testPassword, NewPassword: "giaovien"}))
	_, err = f.svc.Auth.Login(f.ctx, LoginRequest{Email: "giaovien@gmail.com", Password: "giaovien"})
	assert.NoError(t, err)
}

func TestResetPasswordRejectsPersonalData(t *testing.T) {
	f := newFixture(t)
	f.user(t, model.RoleTeacher, "giaovien@gmail.com", "")

	err := f.svc.Auth.ResetPassword(f.ctx, "giaovien@gmail.com", "giaovien")
	assertAppError(t, err, common.ErrBadRequest, "Mật khẩu quá giống với thông tin cá nhân.")

	err = f.svc.Auth.ResetPassword(f.ctx, "nobody@gmail.com", "Kx9#bq2Lw")
	assertAppError(t, err, common.ErrNotFound, MsgUserNotFound)

	require.NoError(t, f.svc.Auth.ResetPassword(f.ctx, "giaovien@gmail.com", "Kx9#bq2Lw"))
	_, err = f.svc.Auth.Login(f.ctx, LoginRequest{Email: "giaovien@gmail.com", Password: "Kx9#bq2Lw"})
	assert.NoError(t, err)
}

// Self-service writes start from the user loaded at authentication time. An
// admin change landing in between must survive them.
func TestSelfServiceKeepsConcurrentAdminChanges(t *testing.T) {
	f := newFixture(t)
	loaded := f.user(t, model.RoleStudent, "110120001@gmail.com", "110120001")

	stored, err := f.repos.Users.FindByID(f.ctx, loaded.ID)
	require.NoError(t, err)
	stored.IsActive = false
	stored.Role = model.RoleTeacher
	require.NoError(t, f.repos.Users.Update(f.ctx, stored))

	name := "Trần Thị Mới"
	profile, err := f.svc.Auth.UpdateProfile(f.ctx, loaded, UpdateProfileRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, profile.Name)
	require.NoError(t, f.svc.Auth.ChangePassword(f.ctx, loaded, ChangePasswordRequest{CurrentPassword: testPassword, NewPassword: "s3cret-pass"}))

	after, err := f.repos.Users.FindByID(f.ctx, loaded.ID)
	require.NoError(t, err)
	assert.False(t, after.IsActive)
	assert.Equal(t, model.RoleTeacher, after.Role)
	assert.Equal(t, name, after.Name)
	assert.True(t, security.CheckPasswordHash("s3cret-pass", after.HashedPassword))
}
