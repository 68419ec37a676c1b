package service

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/skillforge/lms-api/internal/models"
)

// Default titles used when repairing legacy course documents.
const (
	defaultModuleTitle   = "Course Content"
	placeholderLessonTag = "Welcome"
)

// NormalizeCourseContent repairs legacy course document shapes into the
// canonical modules-with-lessons form. Historical write paths produced
// documents with lessons stored as a flat top-level array, modules with
// empty lesson lists, or lessons scattered into non-first modules.
//
// The repair is deterministic and priority ordered. It returns the repaired
// content together with a note per applied rule; an empty note list means
// the document was already canonical. Re-running the function on its own
// output never changes it again.
func NormalizeCourseContent(content models.CourseContent) (models.CourseContent, []string) {
	var notes []string

	hasTopLevel := len(content.Lessons) > 0
	hasModules := len(content.Modules) > 0

	switch {
	case hasTopLevel && hasModules:
		if modulesHaveLessons(content.Modules) {
			// Authored modules win. The top-level array is left in
			// place untouched; readers walk modules first and only
			// fall back to it when no module has lessons.
			return content, nil
		}
		content.Modules[0].Lessons = append(content.Modules[0].Lessons, content.Lessons...)
		notes = append(notes, fmt.Sprintf("moved %d top-level lessons into module %q", len(content.Lessons), content.Modules[0].Title))
		content.Lessons = nil

	case hasModules:
		if !modulesHaveLessons(content.Modules) {
			content.Modules[0].Lessons = append(content.Modules[0].Lessons, placeholderLesson())
			notes = append(notes, "synthesized placeholder lesson for empty course")
			break
		}
		if len(content.Modules[0].Lessons) == 0 {
			for i := range content.Modules {
				if len(content.Modules[i].Lessons) > 0 {
					content.Modules[0].Lessons = content.Modules[i].Lessons
					content.Modules[i].Lessons = nil
					notes = append(notes, fmt.Sprintf("moved lessons from module %q into first module", content.Modules[i].Title))
					break
				}
			}
		}

	case hasTopLevel:
		content.Modules = []models.Module{{
			ID:      uuid.NewString(),
			Title:   defaultModuleTitle,
			Lessons: content.Lessons,
		}}
		notes = append(notes, fmt.Sprintf("wrapped %d top-level lessons into a synthesized module", len(content.Lessons)))
		content.Lessons = nil
	}

	return content, notes
}

// CanonicalizeCourseContent is the migration-strength variant of
// NormalizeCourseContent: it additionally drops a top-level lessons array
// shadowed by authored modules. Readers never see those entries, so the
// visible lesson count is unchanged; only the persisted document shrinks.
func CanonicalizeCourseContent(content models.CourseContent) (models.CourseContent, []string) {
	content, notes := NormalizeCourseContent(content)
	if len(content.Lessons) > 0 && modulesHaveLessons(content.Modules) {
		notes = append(notes, fmt.Sprintf("dropped %d shadowed top-level lessons", len(content.Lessons)))
		content.Lessons = nil
	}
	return content, notes
}

func modulesHaveLessons(modules []models.Module) bool {
	for _, m := range modules {
		if len(m.Lessons) > 0 {
			return true
		}
	}
	return false
}

func placeholderLesson() models.Lesson {
	return models.Lesson{
		ID:       uuid.NewString(),
		Title:    placeholderLessonTag,
		Type:     models.LessonTypeText,
		Duration: 0,
	}
}
