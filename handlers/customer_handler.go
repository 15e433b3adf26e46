package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/duonguwu/notification-bot/config"
	"github.com/duonguwu/notification-bot/kafka"
	"github.com/duonguwu/notification-bot/models"
	"github.com/duonguwu/notification-bot/tasks"
)

type CustomerHandler struct {
	db       *gorm.DB
	producer *kafka.Producer
	upload   *config.UploadConfig
}

func NewCustomerHandler(db *gorm.DB, producer *kafka.Producer, upload *config.UploadConfig) *CustomerHandler {
	return &CustomerHandler{db: db, producer: producer, upload: upload}
}

type createCustomerRequest struct {
	Email    string  `json:"email"`
	FullName string  `json:"full_name"`
	Phone    *string `json:"phone,omitempty"`
	Company  string  `json:"company,omitempty"`
}

func (h *CustomerHandler) CreateCustomer(c echo.Context) error {
	var req createCustomerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.Email == "" || req.FullName == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "email and full_name are required"})
	}

	var count int64
	h.db.Model(&models.Customer{}).Where("email = ?", req.Email).Count(&count)
	if count > 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "customer with this email already exists"})
	}

	customer := models.Customer{
		Email:    req.Email,
		FullName: req.FullName,
		Phone:    req.Phone,
		Company:  req.Company,
		IsActive: true,
	}
	if err := h.db.Create(&customer).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create customer"})
	}
	return c.JSON(http.StatusCreated, customer)
}

func (h *CustomerHandler) ListCustomers(c echo.Context) error {
	skip, _ := strconv.Atoi(c.QueryParam("skip"))
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 || limit > 1000 {
		limit = 100
	}

	var customers []models.Customer
	if err := h.db.Order("created_at DESC").Offset(skip).Limit(limit).Find(&customers).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch customers"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"customers": customers,
		"total":     len(customers),
	})
}

func (h *CustomerHandler) GetCustomer(c echo.Context) error {
	id := c.Param("id")
	var customer models.Customer
	if err := h.db.First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "customer not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "database error"})
	}
	return c.JSON(http.StatusOK, customer)
}

// ImportCustomers accepts a CSV upload, parks it in the upload dir and
// enqueues an import job. Exactly one Task record is created, keyed by
// the job id the queue returned.
func (h *CustomerHandler) ImportCustomers(c echo.Context) error {
	user := c.Get("user").(*models.User)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file is required"})
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".csv") {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "only CSV files are supported"})
	}
	if fileHeader.Size > h.upload.MaxFileSize {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file too large"})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to read upload"})
	}
	defer src.Close()

	if err := os.MkdirAll(h.upload.Dir, 0o755); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to prepare upload dir"})
	}
	filePath := filepath.Join(h.upload.Dir, fmt.Sprintf("%s.csv", uuid.NewString()))
	dst, err := os.Create(filePath)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to store upload"})
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to store upload"})
	}

	payload := tasks.ImportCustomersPayload{
		FilePath: filePath,
		UserID:   user.ID,
	}
	jobID, err := h.producer.Enqueue(tasks.JobImportCustomers, payload)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to enqueue import job"})
	}

	task := models.NewTask(jobID, tasks.JobImportCustomers, user.ID, map[string]any{
		"file_path": filePath,
		"filename":  fileHeader.Filename,
	})
	if err := h.db.Create(task).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create task record"})
	}

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"message": "Customer import started",
		"job_id":  jobID,
		"task_id": task.ID,
	})
}
