package postgres

import (
	"context"
	"fmt"

	"github.com/fahry-ali/hadirku-deploy/internal/database"
)

// CourseRepository reads course rows maintained by the admin side.
type CourseRepository struct {
	pool *Pool
}

// NewCourseRepository creates a new PostgreSQL course repository.
func NewCourseRepository(pool *Pool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

// ListCourses returns all courses ordered by code.
func (r *CourseRepository) ListCourses(ctx context.Context) ([]database.Course, error) {
	rows, err := r.pool.Query(ctx, "SELECT id, code, name, description FROM courses ORDER BY code")
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer rows.Close()

	var courses []database.Course
	for rows.Next() {
		var c database.Course
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate courses: %w", err)
	}
	return courses, nil
}
