package validation

import (
	"testing"

	"eduscore/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	StudentID string `json:"studentId" validate:"required,studentid"`
	Name      string `json:"name" validate:"notblank"`
	Password  string `json:"password" validate:"required,min=6"`
	Start     string `json:"startTime" validate:"omitempty,hhmm"`
	Date      string `json:"examDate" validate:"required,examdate"`
	Role      string `json:"role" validate:"omitempty,oneof=admin teacher student"`
	Credits   int    `json:"credits" validate:"omitempty,min=1,max=10"`
}

func TestStruct(t *testing.T) {
	valid := sample{
		StudentID: "110120001",
		Name:      "Sinh Viên",
		Password:  "123456",
		Start:     "08:00",
		Date:      "2025-03-10",
		Role:      "student",
		Credits:   3,
	}
	require.NoError(t, Struct(valid))

	tests := []struct {
		name    string
		mutate  func(s *sample)
		field   string
		message string
	}{
		{"bad student id", func(s *sample) { s.StudentID = "12345" }, "studentId", "Mã sinh viên phải là 9 chữ số"},
		{"blank name", func(s *sample) { s.Name = "   " }, "name", "name là bắt buộc"},
		{"short password", func(s *sample) { s.Password = "123" }, "password", "password phải có ít nhất 6 ký tự"},
		{"bad time", func(s *sample) { s.Start = "25:00" }, "startTime", "startTime phải có định dạng HH:mm"},
		{"bad date", func(s *sample) { s.Date = "10/03/2025" }, "examDate", "examDate không phải là ngày hợp lệ"},
		{"bad role", func(s *sample) { s.Role = "guest" }, "role", "role phải là một trong các giá trị: admin, teacher, student"},
		{"credits too high", func(s *sample) { s.Credits = 11 }, "credits", "credits không được lớn hơn 10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)

			err := Struct(s)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrValidation)

			verr, ok := err.(*Error)
			require.True(t, ok)
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
			assert.Equal(t, tt.message, verr.Fields[0].Message)
			assert.Equal(t, tt.message, common.MessageFromError(err, ""))
		})
	}
}

func TestIsStudentID(t *testing.T) {
	assert.True(t, IsStudentID("110120001"))
	assert.False(t, IsStudentID("11012000"))
	assert.False(t, IsStudentID("11012000a"))
}
