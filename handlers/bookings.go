package handlers

import (
	"net/http"
	"strconv"

	recordsRepo "meetsync/database/repository/records"
	"meetsync/utils"

	"github.com/gin-gonic/gin"
)

// BookingRecordsHandler exposes completed bookings to operators.
type BookingRecordsHandler struct {
	Repo recordsRepo.BookingRecordRepository
}

func NewBookingRecordsHandler(repo recordsRepo.BookingRecordRepository) *BookingRecordsHandler {
	return &BookingRecordsHandler{Repo: repo}
}

// ListRecent returns the latest booking records, optionally filtered by
// attendee email.
func (h *BookingRecordsHandler) ListRecent(c *gin.Context) {
	ctx := c.Request.Context()

	if email := c.Query("email"); email != "" {
		records, err := h.Repo.GetByAttendeeEmail(ctx, email)
		if err != nil {
			utils.JSONError(c, http.StatusInternalServerError, "Lookup failed", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": records})
		return
	}

	limit := int64(50)
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := h.Repo.ListRecent(ctx, limit)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Lookup failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}
