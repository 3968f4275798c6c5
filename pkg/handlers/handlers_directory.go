package handlers

import (
	"net/http"

	"github.com/babisteps/admin-api/pkg/models"
	"github.com/gin-gonic/gin"
)

// ListInstructors returns every instructor row
func (h *Handler) ListInstructors(c *gin.Context) {
	list, err := h.Dir.Instructors(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.StatusSuccess, "data": list})
}

// AddInstructor appends an instructor row
func (h *Handler) AddInstructor(c *gin.Context) {
	var in models.Instructor
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	row, err := h.Dir.AddInstructor(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	h.Cache.Clear()
	c.JSON(http.StatusOK, gin.H{"status": models.StatusSuccess, "sheet_row": row})
}

// UpdateInstructor rewrites the instructor at :row
func (h *Handler) UpdateInstructor(c *gin.Context) {
	row, err := sheetRow(c)
	if err != nil {
		fail(c, err)
		return
	}
	var in models.Instructor
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	if err := h.Dir.UpdateInstructor(c.Request.Context(), row, in); err != nil {
		fail(c, err)
		return
	}
	h.Cache.Clear()
	c.JSON(http.StatusOK, gin.H{"status": models.StatusSuccess, "sheet_row": row})
}

// ListClients returns every client of :kind
func (h *Handler) ListClients(c *gin.Context) {
	kind, err := clientKind(c)
	if err != nil {
		fail(c, err)
		return
	}
	list, err := h.Dir.Clients(c.Request.Context(), kind)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.StatusSuccess, "data": list})
}

// AddClient appends a client row to the tab of :kind
func (h *Handler) AddClient(c *gin.Context) {
	kind, err := clientKind(c)
	if err != nil {
		fail(c, err)
		return
	}
	var in models.Client
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	in.Kind = kind
	row, err := h.Dir.AddClient(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	h.Cache.Clear()
	c.JSON(http.StatusOK, gin.H{"status": models.StatusSuccess, "sheet_row": row})
}

// UpdateClient rewrites the client at :row of the tab of :kind
func (h *Handler) UpdateClient(c *gin.Context) {
	kind, err := clientKind(c)
	if err != nil {
		fail(c, err)
		return
	}
	row, err := sheetRow(c)
	if err != nil {
		fail(c, err)
		return
	}
	var in models.Client
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}
	in.Kind = kind
	if err := h.Dir.UpdateClient(c.Request.Context(), row, in); err != nil {
		fail(c, err)
		return
	}
	h.Cache.Clear()
	c.JSON(http.StatusOK, gin.H{"status": models.StatusSuccess, "sheet_row": row})
}
