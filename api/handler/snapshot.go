package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/netsnapshot/netsnapshot/internal/model"
	"github.com/netsnapshot/netsnapshot/internal/service"
)

// SnapshotHandler 快照处理器
type SnapshotHandler struct {
	snapshot *service.SnapshotService
}

// NewSnapshotHandler 创建快照处理器
func NewSnapshotHandler(snapshot *service.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{snapshot: snapshot}
}

// RunSnapshot 对单台设备执行快照
// @Router /api/v1/snapshots [post]
func (h *SnapshotHandler) RunSnapshot(c *gin.Context) {
	var req service.SnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_PARAMS", err)
		return
	}
	if req.DeviceID == 0 && req.DeviceName == "" {
		badRequest(c, "MISSING_DEVICE", fmt.Errorf("device_id or device_name is required"))
		return
	}
	result, err := h.snapshot.RunSnapshot(c.Request.Context(), req)
	if err != nil {
		snapshotFailed(c, err)
		return
	}
	ok(c, http.StatusOK, result.Status, result)
}

// RunBatch 批量快照
// @Router /api/v1/snapshots/batch [post]
func (h *SnapshotHandler) RunBatch(c *gin.Context) {
	var req service.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_PARAMS", err)
		return
	}
	if len(req.DeviceIDs) == 0 {
		badRequest(c, "MISSING_DEVICE", fmt.Errorf("device_ids must not be empty"))
		return
	}
	results, err := h.snapshot.RunBatch(c.Request.Context(), req)
	if err != nil {
		snapshotFailed(c, err)
		return
	}
	succeeded := 0
	for _, r := range results {
		if r.Status == model.TaskStatusSuccess {
			succeeded++
		}
	}
	ok(c, http.StatusOK, "SUCCESS", gin.H{
		"total":     len(results),
		"succeeded": succeeded,
		"results":   results,
	})
}

func snapshotFailed(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrDeviceNotFound):
		fail(c, http.StatusNotFound, "DEVICE_NOT_FOUND", "设备不存在")
	case errors.Is(err, service.ErrServiceNotRunning):
		fail(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", err.Error())
	default:
		fail(c, http.StatusInternalServerError, "SNAPSHOT_FAILED", err.Error())
	}
}
