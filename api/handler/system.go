package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/netsnapshot/netsnapshot/addone/driver"
	"github.com/netsnapshot/netsnapshot/internal/service"
)

// SystemHandler 健康检查与驱动列表
type SystemHandler struct {
	db       *gorm.DB
	snapshot *service.SnapshotService
}

// NewSystemHandler 创建系统处理器
func NewSystemHandler(db *gorm.DB, snapshot *service.SnapshotService) *SystemHandler {
	return &SystemHandler{db: db, snapshot: snapshot}
}

// Health 服务与数据库状态
// @Router /api/v1/health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	if !h.snapshot.IsRunning() {
		fail(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "快照服务未运行")
		return
	}
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		fail(c, http.StatusServiceUnavailable, "DATABASE_UNAVAILABLE", err.Error())
		return
	}
	ok(c, http.StatusOK, "服务正常", gin.H{
		"running": true,
		"tasks":   h.snapshot.Running(),
	})
}

// Drivers 已注册驱动及其属性定义
// @Router /api/v1/drivers [get]
func (h *SystemHandler) Drivers(c *gin.Context) {
	ok(c, http.StatusOK, "SUCCESS", driver.List())
}
