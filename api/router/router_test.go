package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsnapshot/netsnapshot/addone/driver"
	"github.com/netsnapshot/netsnapshot/internal/config"
	"github.com/netsnapshot/netsnapshot/internal/database"
	"github.com/netsnapshot/netsnapshot/internal/script"
	"github.com/netsnapshot/netsnapshot/internal/service"
)

type apiLabDriver struct{ d *driver.Descriptor }

func (a apiLabDriver) Descriptor() *driver.Descriptor { return a.d }

func (a apiLabDriver) Snapshot(_ context.Context, h driver.Helper, out driver.Outputs) error {
	h.Set("softwareVersion", script.Text(out.Get("show version")))
	h.Set("networkClass", script.Text("ROUTER"))
	return nil
}

func init() {
	gin.SetMode(gin.TestMode)
	driver.Register(apiLabDriver{&driver.Descriptor{Name: "api_lab", Description: "API Lab", Commands: []string{"show version"}}})
}

type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setup(t *testing.T) *gin.Engine {
	t.Helper()
	conn, err := database.Open(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "api.db"), LogLevel: "silent"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	cfg := &config.Config{
		Storage:  config.StorageConfig{Backend: "none"},
		Snapshot: config.SnapshotConfig{Concurrent: 2, TaskTimeout: 10 * time.Second},
	}
	svc := service.NewSnapshotService(cfg, conn)
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { _ = svc.Stop() })
	return SetupRouter(gin.TestMode, conn, svc)
}

func call(t *testing.T, r *gin.Engine, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func createDevice(t *testing.T, r *gin.Engine, name string) uint {
	t.Helper()
	status, env := call(t, r, http.MethodPost, "/api/v1/devices", gin.H{"name": name, "driver": "api_lab", "management_address": "192.0.2.7"})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var device struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &device))
	return device.ID
}

func TestHealthAndDrivers(t *testing.T) {
	r := setup(t)

	status, env := call(t, r, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "SUCCESS", env.Code)

	status, env = call(t, r, http.MethodGet, "/api/v1/drivers", nil)
	require.Equal(t, http.StatusOK, status)
	var drivers []driver.Descriptor
	require.NoError(t, json.Unmarshal(env.Data, &drivers))
	names := make([]string, 0, len(drivers))
	for _, d := range drivers {
		names = append(names, d.Name)
	}
	assert.Contains(t, names, "api_lab")
}

func TestDeviceEndpoints(t *testing.T) {
	r := setup(t)
	id := createDevice(t, r, "edge-1")

	status, env := call(t, r, http.MethodPost, "/api/v1/devices", gin.H{"name": "edge-1", "driver": "api_lab"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DEVICE_EXISTS", env.Code)

	status, env = call(t, r, http.MethodPost, "/api/v1/devices", gin.H{"name": "edge-2", "driver": "nope"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "UNKNOWN_DRIVER", env.Code)

	status, _ = call(t, r, http.MethodPost, "/api/v1/devices", gin.H{"driver": "api_lab"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = call(t, r, http.MethodGet, "/api/v1/devices?page=1&size=10", nil)
	require.Equal(t, http.StatusOK, status)
	var page struct {
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, int64(1), page.Total)

	status, _ = call(t, r, http.MethodGet, "/api/v1/devices/"+itoa(id), nil)
	assert.Equal(t, http.StatusOK, status)
	status, env = call(t, r, http.MethodGet, "/api/v1/devices/99", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "DEVICE_NOT_FOUND", env.Code)
	status, _ = call(t, r, http.MethodGet, "/api/v1/devices/abc", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSnapshotEndpoints(t *testing.T) {
	r := setup(t)
	id := createDevice(t, r, "edge-3")

	status, env := call(t, r, http.MethodPost, "/api/v1/snapshots", gin.H{
		"device_id": id,
		"outputs":   map[string]string{"show version": "9.9\n"},
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	var result service.SnapshotResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "success", result.Status, result.Error)
	assert.NotEmpty(t, result.TaskID)

	status, env = call(t, r, http.MethodGet, "/api/v1/devices/"+itoa(id)+"/items/softwareVersion", nil)
	require.Equal(t, http.StatusOK, status)
	var item struct {
		Value interface{} `json:"value"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &item))
	assert.Equal(t, "9.9", item.Value)

	status, env = call(t, r, http.MethodGet, "/api/v1/devices/"+itoa(id)+"/items/networkClass", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &item))
	assert.Equal(t, "ROUTER", item.Value)

	status, env = call(t, r, http.MethodPost, "/api/v1/snapshots", gin.H{"device_id": 4040, "outputs": map[string]string{"x": "y"}})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "DEVICE_NOT_FOUND", env.Code)

	status, _ = call(t, r, http.MethodPost, "/api/v1/snapshots", gin.H{})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestBatchEndpoint(t *testing.T) {
	r := setup(t)
	id := createDevice(t, r, "edge-4")

	status, env := call(t, r, http.MethodPost, "/api/v1/snapshots/batch", gin.H{"device_ids": []uint{id, 777}})
	require.Equal(t, http.StatusOK, status, env.Message)
	var summary struct {
		Total     int `json:"total"`
		Succeeded int `json:"succeeded"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 2, summary.Total)
	// 未配置 SSH 凭据的设备轮询失败，不存在的设备直接失败
	assert.Equal(t, 0, summary.Succeeded)

	status, env = call(t, r, http.MethodPost, "/api/v1/snapshots/batch", gin.H{"device_ids": []uint{}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "MISSING_DEVICE", env.Code)
}

func TestNoRoute(t *testing.T) {
	r := setup(t)

	status, env := call(t, r, http.MethodGet, "/api/v1/unknown", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Code)
}

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }
