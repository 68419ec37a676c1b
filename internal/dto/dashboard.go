package dto

// StudentDashboardResponse captures the aggregated student dashboard payload.
type StudentDashboardResponse struct {
	UserID           string               `json:"userId"`
	EnrolledCourses  int                  `json:"enrolledCourses"`
	CompletedCourses int                  `json:"completedCourses"`
	TimeSpentMinutes int                  `json:"timeSpentMinutes"`
	Courses          []CourseProgressCard `json:"courses"`
	RecentQuizzes    []QuizResultSummary  `json:"recentQuizzes"`
}

// CourseProgressCard summarises one enrolled course for the student view.
type CourseProgressCard struct {
	CourseID    string  `json:"courseId"`
	CourseTitle string  `json:"courseTitle"`
	Percentage  float64 `json:"percentage"`
	Status      string  `json:"status"`
}

// QuizResultSummary is a compact quiz attempt record.
type QuizResultSummary struct {
	QuizID      string  `json:"quizId"`
	QuizTitle   string  `json:"quizTitle"`
	Percentage  float64 `json:"percentage"`
	Passed      bool    `json:"passed"`
	SubmittedAt string  `json:"submittedAt"`
}

// InstructorDashboardResponse captures per-course teaching metrics.
type InstructorDashboardResponse struct {
	InstructorID string                  `json:"instructorId"`
	Courses      []InstructorCourseStats `json:"courses"`
}

// InstructorCourseStats aggregates engagement for one owned course.
type InstructorCourseStats struct {
	CourseID        string  `json:"courseId"`
	CourseTitle     string  `json:"courseTitle"`
	EnrolledCount   int     `json:"enrolledCount"`
	CompletedCount  int     `json:"completedCount"`
	AverageProgress float64 `json:"averageProgress"`
	QuizPassRate    float64 `json:"quizPassRate"`
}

// AdminDashboardResponse gathers platform-wide totals.
type AdminDashboardResponse struct {
	TotalUsers       int            `json:"totalUsers"`
	UsersByRole      map[string]int `json:"usersByRole"`
	TotalCourses     int            `json:"totalCourses"`
	PublishedCourses int            `json:"publishedCourses"`
	TotalEnrollments int            `json:"totalEnrollments"`
	QuizAttempts     int            `json:"quizAttempts"`
	QuizPassRate     float64        `json:"quizPassRate"`
}
