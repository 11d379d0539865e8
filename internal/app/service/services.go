package service

import (
	"eduscore/internal/app/notify"
	"eduscore/internal/common/security"
	"eduscore/internal/domain/repository"
)

// Services holds every use case, wired to one set of repositories.
type Services struct {
	Auth          *AuthService
	Users         *UserService
	Subjects      *SubjectService
	Exams         *ExamService
	Scores        *ScoreService
	Classes       *ClassService
	Notifications *NotificationService
}

// New wires the services. locker may be nil.
func New(repos repository.Repositories, tokens *security.TokenManager, publisher notify.Publisher, locker Locker) *Services {
	return &Services{
		Auth:          NewAuthService(repos.Users, tokens),
		Users:         NewUserService(repos.Users),
		Subjects:      NewSubjectService(repos.Subjects),
		Exams:         NewExamService(repos.Exams, repos.Subjects, repos.Users, repos.Scores, repos.Classes, publisher, locker),
		Scores:        NewScoreService(repos.Scores, repos.Exams, repos.Users, repos.Subjects, repos.Classes, publisher),
		Classes:       NewClassService(repos.Classes, repos.Subjects, repos.Users, repos.Exams, publisher),
		Notifications: NewNotificationService(repos.Notifications, publisher),
	}
}
