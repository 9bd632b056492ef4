package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-project-tracker/internal/application"
	"github.com/oksasatya/go-project-tracker/internal/domain/entity"
	"github.com/oksasatya/go-project-tracker/internal/interface/middleware"
	"github.com/oksasatya/go-project-tracker/pkg/response"
)

type ProjectHandler struct {
	Svc    *application.ProjectService
	Logger *logrus.Logger
}

func NewProjectHandler(svc *application.ProjectService, logger *logrus.Logger) *ProjectHandler {
	return &ProjectHandler{Svc: svc, Logger: logger}
}

// memberRef accepts either a bare user id or {"user": id, "role": role}.
type memberRef struct {
	User string `json:"user"`
	Role string `json:"role" binding:"omitempty,memberrole"`
}

func (m *memberRef) UnmarshalJSON(b []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(b), []byte(`"`)) {
		return json.Unmarshal(b, &m.User)
	}
	type plain memberRef
	return json.Unmarshal(b, (*plain)(m))
}

func toMemberInputs(refs []memberRef) []application.MemberInput {
	if refs == nil {
		return nil
	}
	out := make([]application.MemberInput, 0, len(refs))
	for _, r := range refs {
		out = append(out, application.MemberInput{UserID: r.User, Role: entity.MemberRole(r.Role)})
	}
	return out
}

type createProjectRequest struct {
	Name        string      `json:"name" binding:"required"`
	Description string      `json:"description" binding:"omitempty,max=500"`
	Members     []memberRef `json:"members" binding:"omitempty,dive"`
	StartDate   *time.Time  `json:"startDate"`
	EndDate     *time.Time  `json:"endDate"`
	Tags        []string    `json:"tags" binding:"omitempty,dive,max=30"`
}

type updateProjectRequest struct {
	Name        *string     `json:"name"`
	Description *string     `json:"description" binding:"omitempty,max=500"`
	Members     []memberRef `json:"members" binding:"omitempty,dive"`
	Tags        []string    `json:"tags" binding:"omitempty,dive,max=30"`
}

type memberRequest struct {
	UserID string `json:"userId" binding:"required"`
	Role   string `json:"role" binding:"omitempty,memberrole"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type datesRequest struct {
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

type transferRequest struct {
	NewOwnerID string `json:"newOwnerId" binding:"required"`
}

func (h *ProjectHandler) actor(c *gin.Context) (*entity.User, bool) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error[any](c, http.StatusUnauthorized, "Not authorized, user missing", nil)
	}
	return u, ok
}

// Create POST /api/projects/create
func (h *ProjectHandler) Create(c *gin.Context) {
	u, ok := h.actor(c)
	if !ok {
		return
	}
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	p, err := h.Svc.Create(c.Request.Context(), u, application.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Members:     toMemberInputs(req.Members),
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Tags:        req.Tags,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, p, "Project created successfully", nil)
}

// List GET /api/projects/
func (h *ProjectHandler) List(c *gin.Context) {
	ps, err := h.Svc.List(c.Request.Context())
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.List(c, ps, "Projects fetched successfully")
}

// Mine GET /api/projects/my-projects
func (h *ProjectHandler) Mine(c *gin.Context) {
	u, ok := h.actor(c)
	if !ok {
		return
	}
	ps, err := h.Svc.ListMine(c.Request.Context(), u)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.List(c, ps, "Projects fetched successfully")
}

// Search GET /api/projects/search?name=
func (h *ProjectHandler) Search(c *gin.Context) {
	ps, err := h.Svc.Search(c.Request.Context(), c.Query("name"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.List(c, ps, "Projects fetched successfully")
}

// Get GET /api/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	p, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, p, "Project fetched successfully", nil)
}

// Update PUT /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	p, err := h.Svc.Update(c.Request.Context(), c.Param("id"), application.UpdateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Members:     toMemberInputs(req.Members),
		Tags:        req.Tags,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, p, "Project updated", nil)
}

// Delete DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	u, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), u, c.Param("id")); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "Project deleted successfully", nil)
}

// AddMember PATCH /api/projects/:id/add-member
func (h *ProjectHandler) AddMember(c *gin.Context) {
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	p, err := h.Svc.AddMember(c.Request.Context(), c.Param("id"), req.UserID, entity.MemberRole(req.Role))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, p, "Member added", nil)
}

// RemoveMember PATCH /api/projects/:id/remove-member
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	p, err := h.Svc.RemoveMember(c.Request.Context(), c.Param("id"), req.UserID)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, p, "Member removed", nil)
}

// ToggleArchive PATCH /api/projects/:id/archive
func (h *ProjectHandler) ToggleArchive(c *gin.Context) {
	p, err := h.Svc.ToggleArchive(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	msg := "Project unarchived"
	if p.Archived {
		msg = "Project archived"
	}
	response.Success(c, http.StatusOK, p, msg, nil)
}

// SetStatus PATCH /api/projects/:id/status
func (h *ProjectHandler) SetStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	p, err := h.Svc.SetStatus(c.Request.Context(), c.Param("id"), entity.ProjectStatus(req.Status))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, p, "Project status updated", nil)
}

// SetDates PATCH /api/projects/:id/dates
func (h *ProjectHandler) SetDates(c *gin.Context) {
	var req datesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	p, err := h.Svc.SetDates(c.Request.Context(), c.Param("id"), req.StartDate, req.EndDate)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, p, "Project dates updated", nil)
}

// Transfer PATCH /api/projects/:id/transfer
func (h *ProjectHandler) Transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	p, err := h.Svc.TransferOwnership(c.Request.Context(), c.Param("id"), req.NewOwnerID)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, p, "Project ownership transferred", nil)
}
