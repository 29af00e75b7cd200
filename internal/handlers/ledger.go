package handlers

import (
	"net/http"

	"quadra_financeiro/internal/models"

	"github.com/gin-gonic/gin"
)

type rentalRequest struct {
	Weekday        string  `json:"dia_semana"`
	ReferenceMonth string  `json:"mes_referencia"`
	StartTime      string  `json:"horario_inicio"`
	Hours          float64 `json:"horas_alugadas"`
	Client         string  `json:"cliente_time"`
	Amount         float64 `json:"valor"`
	Status         string  `json:"status"`
}

type transactionRequest struct {
	Date        string  `json:"data_transacao"`
	Type        string  `json:"tipo"`
	Description string  `json:"descricao"`
	Amount      float64 `json:"valor"`
	Note        string  `json:"observacao"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handlers) Options(c *gin.Context) {
	c.JSON(http.StatusOK, h.Ledger.Options())
}

func (h *Handlers) AddRental(c *gin.Context) {
	var req rentalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	if req.Status == "" {
		req.Status = string(models.StatusDue)
	}

	id, err := h.Ledger.AddRental(c.Request.Context(), models.Rental{
		Weekday:        req.Weekday,
		ReferenceMonth: req.ReferenceMonth,
		StartTime:      req.StartTime,
		Hours:          req.Hours,
		Client:         req.Client,
		Amount:         req.Amount,
		Status:         models.RentalStatus(req.Status),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handlers) AddTransaction(c *gin.Context) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	id, err := h.Ledger.AddTransaction(c.Request.Context(), models.Transaction{
		Date:        req.Date,
		Type:        models.TransactionType(req.Type),
		Description: req.Description,
		Amount:      req.Amount,
		Note:        req.Note,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handlers) UpdateRentalStatus(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	updated, err := h.Ledger.UpdateRentalStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (h *Handlers) Delete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	deleted, err := h.Ledger.Delete(c.Request.Context(), c.Param("collection"), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *Handlers) Month(c *gin.Context) {
	year, month, ok := h.yearMonth(c)
	if !ok {
		return
	}
	view, err := h.Ledger.FetchMonth(c.Request.Context(), year, month)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handlers) Summary(c *gin.Context) {
	year, month, ok := h.yearMonth(c)
	if !ok {
		return
	}
	sum, err := h.Ledger.Summarize(c.Request.Context(), year, month)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *Handlers) Year(c *gin.Context) {
	year, err := pathInt(c, "year")
	if err != nil {
		h.fail(c, err)
		return
	}
	view, err := h.Ledger.FetchYear(c.Request.Context(), year)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handlers) yearMonth(c *gin.Context) (int, int, bool) {
	year, err := pathInt(c, "year")
	if err != nil {
		h.fail(c, err)
		return 0, 0, false
	}
	month, err := pathInt(c, "month")
	if err != nil {
		h.fail(c, err)
		return 0, 0, false
	}
	return year, month, true
}
