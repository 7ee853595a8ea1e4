package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/netsnapshot/netsnapshot/addone/driver"
	"github.com/netsnapshot/netsnapshot/internal/database"
	"github.com/netsnapshot/netsnapshot/internal/model"
	"github.com/netsnapshot/netsnapshot/internal/script"
	"github.com/netsnapshot/netsnapshot/internal/service"
	"github.com/netsnapshot/netsnapshot/pkg/logger"
)

// DeviceHandler 设备处理器
type DeviceHandler struct {
	db       *gorm.DB
	snapshot *service.SnapshotService
}

// NewDeviceHandler 创建设备处理器
func NewDeviceHandler(db *gorm.DB, snapshot *service.SnapshotService) *DeviceHandler {
	return &DeviceHandler{db: db, snapshot: snapshot}
}

// CreateDeviceRequest 创建设备请求
type CreateDeviceRequest struct {
	Name              string `json:"name" binding:"required"`
	Driver            string `json:"driver" binding:"required"`
	ManagementAddress string `json:"management_address"`
	SerialNumber      string `json:"serial_number"`
	Location          string `json:"location"`
	Contact           string `json:"contact"`
	Comments          string `json:"comments"`
}

// CreateDevice 创建设备
// @Router /api/v1/devices [post]
func (h *DeviceHandler) CreateDevice(c *gin.Context) {
	var req CreateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_PARAMS", err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if _, found := driver.Get(req.Driver); !found {
		badRequest(c, "UNKNOWN_DRIVER", fmt.Errorf("driver %q is not registered", req.Driver))
		return
	}

	session := database.NewSession(h.db)
	if _, err := session.LoadDeviceByName(req.Name); err == nil {
		fail(c, http.StatusConflict, "DEVICE_EXISTS", "设备名称已存在")
		return
	} else if !errors.Is(err, model.ErrDeviceNotFound) {
		fail(c, http.StatusInternalServerError, "QUERY_FAILED", err.Error())
		return
	}

	device := &model.Device{
		Name:              req.Name,
		Driver:            req.Driver,
		ManagementAddress: req.ManagementAddress,
		SerialNumber:      req.SerialNumber,
		Location:          req.Location,
		Contact:           req.Contact,
		Comments:          req.Comments,
	}
	if err := session.CreateDevice(device); err != nil {
		logger.WithError(err).Error("Failed to create device")
		fail(c, http.StatusInternalServerError, "CREATE_FAILED", err.Error())
		return
	}
	logger.WithField("device_id", device.ID).Infof("Device %s created", device.Name)
	ok(c, http.StatusCreated, "设备创建成功", device)
}

// ListDevices 分页列出设备
// @Router /api/v1/devices [get]
func (h *DeviceHandler) ListDevices(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 200 {
		size = 20
	}
	devices, total, err := database.NewSession(h.db).ListDevices((page-1)*size, size)
	if err != nil {
		fail(c, http.StatusInternalServerError, "QUERY_FAILED", err.Error())
		return
	}
	ok(c, http.StatusOK, "SUCCESS", PageData{Items: devices, Total: total, Page: page, Size: size})
}

// GetDevice 获取设备详情（含接口、属性与最近配置）
// @Router /api/v1/devices/{id} [get]
func (h *DeviceHandler) GetDevice(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		badRequest(c, "INVALID_ID", err)
		return
	}
	device, err := database.NewSession(h.db).LoadDeviceByID(id)
	if err != nil {
		h.loadFailed(c, err)
		return
	}
	ok(c, http.StatusOK, "SUCCESS", device)
}

// GetItem 以只读方式读取设备数据项
// @Router /api/v1/devices/{id}/items/{item} [get]
func (h *DeviceHandler) GetItem(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		badRequest(c, "INVALID_ID", err)
		return
	}
	item := c.Param("item")
	value, logs, err := h.snapshot.Inspect(c.Request.Context(), script.DeviceID(id), item)
	if err != nil {
		h.loadFailed(c, err)
		return
	}
	ok(c, http.StatusOK, "SUCCESS", gin.H{"item": item, "value": value, "logs": logs})
}

func (h *DeviceHandler) loadFailed(c *gin.Context, err error) {
	if errors.Is(err, model.ErrDeviceNotFound) {
		fail(c, http.StatusNotFound, "DEVICE_NOT_FOUND", "设备不存在")
		return
	}
	fail(c, http.StatusInternalServerError, "QUERY_FAILED", err.Error())
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid device id %q", s)
	}
	return uint(id), nil
}
