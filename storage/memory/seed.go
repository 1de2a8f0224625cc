package memdb

import "github.com/trezcool/masomo-attendance/core/attendance"

// Seed fills db with a demo class section (6/A) and its timetable.
func Seed(db *DB) {
	db.AddStudents(
		Student{ID: "stu-001", RollNumber: "1", Name: "Amani Kabeya", ClassName: "6", Section: "A"},
		Student{ID: "stu-002", RollNumber: "2", Name: "Baraka Ilunga", ClassName: "6", Section: "A"},
		Student{ID: "stu-003", RollNumber: "3", Name: "Chausiku Mbuyi", ClassName: "6", Section: "A"},
		Student{ID: "stu-004", RollNumber: "4", Name: "Dalila Tshisekedi", ClassName: "6", Section: "A"},
		Student{ID: "stu-005", RollNumber: "5", Name: "Eliya Kasongo", ClassName: "6", Section: "A"},
	)
	db.SetPeriods(attendance.ClassRef{ClassName: "6", Section: "A"},
		attendance.PeriodDefinition{Period: 1, StartTime: "08:00", EndTime: "08:45", Subject: "Mathematics", TeacherName: "M. Mwamba"},
		attendance.PeriodDefinition{Period: 2, StartTime: "08:50", EndTime: "09:35", Subject: "French", TeacherName: "Mme Lukusa"},
		attendance.PeriodDefinition{Period: 3, StartTime: "09:50", EndTime: "10:35", Subject: "Sciences", TeacherName: "M. Kalala"},
	)
}
