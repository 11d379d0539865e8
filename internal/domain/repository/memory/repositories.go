package memory

import "eduscore/internal/domain/repository"

// NewRepositories returns an empty in-memory store for every collection.
func NewRepositories() repository.Repositories {
	return repository.Repositories{
		Users:         NewUserRepository(),
		Subjects:      NewSubjectRepository(),
		Exams:         NewExamRepository(),
		Scores:        NewScoreRepository(),
		Classes:       NewClassRepository(),
		Notifications: NewNotificationRepository(),
	}
}
