package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/skillforge/lms-api/internal/models"
	"github.com/skillforge/lms-api/internal/service"
	appErrors "github.com/skillforge/lms-api/pkg/errors"
	"github.com/skillforge/lms-api/pkg/response"
)

// QuizHandler exposes quiz authoring and taking endpoints.
type QuizHandler struct {
	quizzes *service.QuizService
}

// NewQuizHandler constructs QuizHandler.
func NewQuizHandler(quizzes *service.QuizService) *QuizHandler {
	return &QuizHandler{quizzes: quizzes}
}

// List godoc
// @Summary List quizzes
// @Tags Quizzes
// @Produce json
// @Param courseId query string false "Filter by course"
// @Param search query string false "Search title"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /quizzes [get]
func (h *QuizHandler) List(c *gin.Context) {
	var filter models.QuizFilter
	filter.CourseID = c.Query("courseId")
	filter.Search = c.Query("search")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	quizzes, pagination, err := h.quizzes.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quizzes, pagination)
}

// Get godoc
// @Summary Fetch a quiz
// @Tags Quizzes
// @Produce json
// @Param id path string true "Quiz ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /quizzes/{id} [get]
func (h *QuizHandler) Get(c *gin.Context) {
	quiz, err := h.quizzes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quiz, nil)
}

// Create godoc
// @Summary Create a quiz
// @Tags Quizzes
// @Accept json
// @Produce json
// @Param payload body service.CreateQuizRequest true "Quiz payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /quizzes [post]
func (h *QuizHandler) Create(c *gin.Context) {
	var req service.CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	quiz, err := h.quizzes.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, quiz)
}

// Update godoc
// @Summary Update quiz metadata
// @Tags Quizzes
// @Accept json
// @Produce json
// @Param id path string true "Quiz ID"
// @Param payload body service.UpdateQuizRequest true "Quiz payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /quizzes/{id} [put]
func (h *QuizHandler) Update(c *gin.Context) {
	var req service.UpdateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	quiz, err := h.quizzes.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quiz, nil)
}

// ListQuestions godoc
// @Summary List the active questions of a quiz
// @Tags Quizzes
// @Produce json
// @Param id path string true "Quiz ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /quizzes/{id}/questions [get]
func (h *QuizHandler) ListQuestions(c *gin.Context) {
	questions, err := h.quizzes.ListQuestions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	// Students take quizzes blind; answers and explanations stay server-side.
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleStudent {
		for i := range questions {
			questions[i].CorrectAnswerIndex = -1
			questions[i].Explanation = nil
			questions[i].Feedback = nil
		}
	}

	response.JSON(c, http.StatusOK, questions, nil)
}

// AddQuestion godoc
// @Summary Add a question to a quiz
// @Tags Quizzes
// @Accept json
// @Produce json
// @Param id path string true "Quiz ID"
// @Param payload body service.CreateQuestionRequest true "Question payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /quizzes/{id}/questions [post]
func (h *QuizHandler) AddQuestion(c *gin.Context) {
	var req service.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	question, err := h.quizzes.AddQuestion(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, question)
}

// DeleteQuestion godoc
// @Summary Soft-delete a question
// @Tags Quizzes
// @Produce json
// @Param id path string true "Quiz ID"
// @Param questionId path string true "Question ID"
// @Success 204
// @Security BearerAuth
// @Router /quizzes/{id}/questions/{questionId} [delete]
func (h *QuizHandler) DeleteQuestion(c *gin.Context) {
	if err := h.quizzes.DeleteQuestion(c.Request.Context(), c.Param("id"), c.Param("questionId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Submit godoc
// @Summary Submit answers and receive the graded score
// @Tags Quizzes
// @Accept json
// @Produce json
// @Param id path string true "Quiz ID"
// @Param payload body models.QuizSubmission true "Submission payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /quizzes/{id}/submit [post]
func (h *QuizHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var submission models.QuizSubmission
	if err := c.ShouldBindJSON(&submission); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	score, err := h.quizzes.Submit(c.Request.Context(), c.Param("id"), claims.UserID, submission)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, score, nil)
}

// ListResults godoc
// @Summary List quiz attempts
// @Tags Quizzes
// @Produce json
// @Param id path string true "Quiz ID"
// @Param userId query string false "Filter by user"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /quizzes/{id}/results [get]
func (h *QuizHandler) ListResults(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.QuizResultFilter{QuizID: c.Param("id"), UserID: c.Query("userId")}
	// Students only see their own history.
	if claims.Role == models.RoleStudent {
		filter.UserID = claims.UserID
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	results, pagination, err := h.quizzes.ListResults(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, pagination)
}
