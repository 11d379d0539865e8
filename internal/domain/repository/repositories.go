package repository

import "go.mongodb.org/mongo-driver/mongo"

// Repositories groups one store per collection.
type Repositories struct {
	Users         UserRepository
	Subjects      SubjectRepository
	Exams         ExamRepository
	Scores        ScoreRepository
	Classes       ClassRepository
	Notifications NotificationRepository
}

func NewMongoRepositories(db *mongo.Database) Repositories {
	return Repositories{
		Users:         NewMongoUserRepository(db),
		Subjects:      NewMongoSubjectRepository(db),
		Exams:         NewMongoExamRepository(db),
		Scores:        NewMongoScoreRepository(db),
		Classes:       NewMongoClassRepository(db),
		Notifications: NewMongoNotificationRepository(db),
	}
}
