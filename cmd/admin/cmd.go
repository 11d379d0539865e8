package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"eduscore/internal/app/service"
	"eduscore/internal/domain/model"

	"golang.org/x/term"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	services *service.Services
	clearDB  func(ctx context.Context) (map[string]int64, error)
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  seed                       - wipe the database and load demo data")
	fmt.Println("  cleardb                    - delete every document of every collection")
	fmt.Println("  cleanup-notifications      - delete legacy exam broadcast notifications")
	fmt.Println("  cleanup-scores             - delete scores whose exam no longer exists")
	fmt.Println("  resetpassword -email EMAIL - reset a user's password")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	ctx := context.Background()

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email or student ID. The password will be prompted next.")

	switch args[1] {
	case "seed":
		return cli.seed(ctx)
	case "cleardb":
		deleted, err := cli.clearDB(ctx)
		if err != nil {
			return err
		}
		for name, n := range deleted {
			fmt.Printf("  %s: %d deleted\n", name, n)
		}
		return nil
	case "cleanup-notifications":
		n, err := cli.services.Notifications.CleanupLegacyBroadcasts(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d legacy notification(s).\n", n)
		return nil
	case "cleanup-scores":
		n, err := cli.services.Scores.CleanupOrphans(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d orphan score(s).\n", n)
		return nil
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.services.Auth.ResetPassword(ctx, *resetPasswordEmail, string(pwd))
	default:
		cli.printUsage()
		return errHelp
	}
}

// seed replaces the database content with a small demo data set.
func (cli *commandLine) seed(ctx context.Context) error {
	if _, err := cli.clearDB(ctx); err != nil {
		return err
	}

	admin, err := cli.services.Users.Create(ctx, service.CreateUserRequest{
		Email: "admin@gmail.com", Password: "admin123", Name: "Quản trị viên", Role: model.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("seeding admin: %w", err)
	}
	teacher, err := cli.services.Users.Create(ctx, service.CreateUserRequest{
		Email: "giaovien@gmail.com", Password: "123456", Name: "Nguyễn Văn Giáo", Role: model.RoleTeacher,
	})
	if err != nil {
		return fmt.Errorf("seeding teacher: %w", err)
	}
	student, err := cli.services.Users.Create(ctx, service.CreateUserRequest{
		Email: "110120001@gmail.com", Password: "123456", Name: "Trần Thị Học", Role: model.RoleStudent, StudentID: "110120001",
	})
	if err != nil {
		return fmt.Errorf("seeding student: %w", err)
	}

	credits := 3
	subject, err := cli.services.Subjects.Create(ctx, service.CreateSubjectRequest{
		Code: "TA01", Name: "Tiếng Anh cơ bản", Credits: &credits,
	})
	if err != nil {
		return fmt.Errorf("seeding subject: %w", err)
	}

	exam, err := cli.services.Exams.Create(ctx, admin, service.CreateExamRequest{
		Name:         "Kỳ thi Tiếng Anh - Tháng 12/2024",
		Subject:      subject.ID.Hex(),
		ExamDate:     "2024-12-20",
		Room:         "A101",
		Semester:     "HK1",
		AcademicYear: "2024-2025",
	})
	if err != nil {
		return fmt.Errorf("seeding exam: %w", err)
	}

	maxStudents := 40
	class, err := cli.services.Classes.Create(ctx, service.CreateClassRequest{
		Code:         "TA01-01",
		Name:         "Tiếng Anh cơ bản - Lớp 01",
		Subject:      subject.ID.Hex(),
		Teacher:      teacher.ID.Hex(),
		Semester:     "HK1",
		AcademicYear: "2024-2025",
		Room:         "A101",
		MaxStudents:  &maxStudents,
		Password:     "1234",
	})
	if err != nil {
		return fmt.Errorf("seeding class: %w", err)
	}
	if _, _, err := cli.services.Classes.AddStudents(ctx, class.ID, service.AddStudentsRequest{
		StudentIDs: []string{student.ID.Hex()},
	}); err != nil {
		return fmt.Errorf("seeding roster: %w", err)
	}
	if _, err := cli.services.Classes.AttachExam(ctx, class.ID, service.AttachExamRequest{ExamID: exam.ID.Hex()}); err != nil {
		return fmt.Errorf("attaching exam: %w", err)
	}

	value := 8.5
	if _, _, err := cli.services.Scores.Upsert(ctx, teacher, service.UpsertScoreRequest{
		Student: student.ID.Hex(), Exam: exam.ID.Hex(), Score: &value,
	}); err != nil {
		return fmt.Errorf("seeding score: %w", err)
	}

	fmt.Println("Seed completed:")
	fmt.Println("  admin:   admin@gmail.com / admin123")
	fmt.Println("  teacher: giaovien@gmail.com / 123456")
	fmt.Println("  student: 110120001@gmail.com / 123456")
	fmt.Printf("  subject: %s, exam: %s, class: %s (password 1234)\n", subject.Code, exam.Code, class.Code)
	return nil
}
