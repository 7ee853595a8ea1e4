package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/netsnapshot/netsnapshot/internal/config"
	"github.com/netsnapshot/netsnapshot/pkg/logger"
)

const defaultContentType = "text/plain; charset=utf-8"

// ArchiveWriter 原始回显归档写入器
type ArchiveWriter interface {
	Write(ctx context.Context, meta ArchiveMeta, content string) (StoredObject, error)
}

// ArchiveMeta 写入元数据
type ArchiveMeta struct {
	TaskID     string
	DeviceName string
	Command    string
	// StartedAt 任务开始时间，同一任务的全部回显落在同一目录
	StartedAt time.Time
}

// StoredObject 已写入对象
type StoredObject struct {
	URI         string `json:"uri"`
	Size        int64  `json:"size"`
	Checksum    string `json:"checksum"`
	ContentType string `json:"content_type"`
}

// NewArchiveWriter 根据配置创建写入器；backend=none 时返回 nil
func NewArchiveWriter(cfg config.StorageConfig) ArchiveWriter {
	switch cfg.Backend {
	case "", "none":
		return nil
	case "minio":
		return &DelegatingArchiveWriter{local: &LocalArchiveWriter{cfg: cfg}, minio: initMinioWriter(cfg)}
	default:
		return &DelegatingArchiveWriter{local: &LocalArchiveWriter{cfg: cfg}}
	}
}

// DelegatingArchiveWriter 优先写 MinIO，失败回退到本地
type DelegatingArchiveWriter struct {
	local *LocalArchiveWriter
	minio *MinioArchiveWriter
}

func (w *DelegatingArchiveWriter) Write(ctx context.Context, meta ArchiveMeta, content string) (StoredObject, error) {
	if w.minio == nil {
		return w.local.Write(ctx, meta, content)
	}
	obj, err := w.minio.Write(ctx, meta, content)
	if err == nil {
		return obj, nil
	}
	logger.WithError(err).Warn("MinIO write failed; falling back to local")
	objLocal, lerr := w.local.Write(ctx, meta, content)
	if lerr != nil {
		return StoredObject{}, fmt.Errorf("minio write failed: %v; local fallback failed: %w", err, lerr)
	}
	return objLocal, nil
}

// objectDir 层级：prefix / device / 日期_时间 / taskID
func objectDir(prefix string, meta ArchiveMeta) []string {
	parts := []string{}
	if p := strings.TrimSpace(prefix); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, slug(meta.DeviceName))
	started := meta.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	parts = append(parts, started.Format("20060102_150405"))
	if tid := strings.TrimSpace(meta.TaskID); tid != "" {
		parts = append(parts, tid)
	}
	return parts
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// LocalArchiveWriter 本地文件写入
type LocalArchiveWriter struct {
	cfg config.StorageConfig
}

func (w *LocalArchiveWriter) Write(_ context.Context, meta ArchiveMeta, content string) (StoredObject, error) {
	baseDir := strings.TrimSpace(w.cfg.Local.BaseDir)
	if baseDir == "" {
		baseDir = "./data/raw"
	}
	dirPath := filepath.Join(append([]string{baseDir}, objectDir(w.cfg.Prefix, meta)...)...)
	if w.cfg.Local.MkdirIfMissing {
		if err := os.MkdirAll(dirPath, 0o755); err != nil {
			return StoredObject{}, fmt.Errorf("failed to create dir: %w", err)
		}
	}

	fullPath := filepath.Join(dirPath, slug(meta.Command)+".txt")
	data := []byte(content)
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return StoredObject{}, fmt.Errorf("failed to write file: %w", err)
	}
	return StoredObject{
		URI:         "file://" + fullPath,
		Size:        int64(len(data)),
		Checksum:    checksum(data),
		ContentType: defaultContentType,
	}, nil
}

// MinioArchiveWriter MinIO 对象存储写入
type MinioArchiveWriter struct {
	cfg           config.StorageConfig
	client        *minio.Client
	endpoint      string
	bucketEnsured bool
}

// initMinioWriter 初始化 MinIO 写入器（包含超时设置与连通性校验）
func initMinioWriter(cfg config.StorageConfig) *MinioArchiveWriter {
	host := strings.TrimSpace(cfg.Minio.Host)
	port := cfg.Minio.Port
	if host == "" || port <= 0 {
		logger.Warnf("MinIO configuration incomplete; host/port missing, archiving to local")
		return nil
	}
	endpoint := fmt.Sprintf("%s:%d", host, port)

	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 5 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.Minio.AccessKey, cfg.Minio.SecretKey, ""),
		Secure:    cfg.Minio.Secure,
		Transport: transport,
	})
	if err != nil {
		logger.WithError(err).Error("MinIO client initialization failed")
		return nil
	}

	w := &MinioArchiveWriter{cfg: cfg, client: client, endpoint: endpoint}
	bucket := strings.TrimSpace(cfg.Minio.Bucket)
	if bucket == "" {
		logger.Warnf("MinIO bucket not configured")
		return w
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := w.ensureBucket(ctx, bucket, 2); err != nil {
		logger.WithError(err).Warn("MinIO bucket ensure at init failed")
	} else {
		w.bucketEnsured = true
	}
	return w
}

// Write 将内容写入 MinIO
func (w *MinioArchiveWriter) Write(ctx context.Context, meta ArchiveMeta, content string) (StoredObject, error) {
	if w == nil || w.client == nil {
		return StoredObject{}, fmt.Errorf("minio client not initialized")
	}
	bucket := strings.TrimSpace(w.cfg.Minio.Bucket)
	if bucket == "" {
		return StoredObject{}, fmt.Errorf("minio bucket not configured")
	}
	objectName := path.Join(path.Join(objectDir(w.cfg.Prefix, meta)...), slug(meta.Command)+".txt")
	data := []byte(content)

	if err := w.fastConnectivityCheck(ctx); err != nil {
		return StoredObject{}, fmt.Errorf("minio connectivity failed to %s: %w", w.endpoint, err)
	}
	if !w.bucketEnsured {
		if err := w.ensureBucket(ctx, bucket, 3); err != nil {
			return StoredObject{}, fmt.Errorf("minio ensure bucket failed: %w", err)
		}
		w.bucketEnsured = true
	}

	// 带重试的对象写入（指数退避）
	var lastErr error
	for _, wait := range []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second} {
		attemptCtx, cancel := w.attemptContext(ctx, wait)
		_, err := w.client.PutObject(attemptCtx, bucket, objectName, bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: defaultContentType})
		cancel()
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return StoredObject{}, ctx.Err()
		case <-time.After(wait):
		}
	}
	if lastErr != nil {
		return StoredObject{}, fmt.Errorf("minio put object failed after retries: %w", lastErr)
	}

	return StoredObject{
		URI:         "minio://" + path.Join(bucket, objectName),
		Size:        int64(len(data)),
		Checksum:    checksum(data),
		ContentType: defaultContentType,
	}, nil
}

// fastConnectivityCheck 使用 TCP 直连做快速连通性校验
func (w *MinioArchiveWriter) fastConnectivityCheck(parent context.Context) error {
	d := &net.Dialer{Timeout: 3 * time.Second}
	conn, err := d.DialContext(parent, "tcp", w.endpoint)
	if err != nil {
		return err
	}
	_ = conn.Close()
	return nil
}

// ensureBucket 校验并创建 bucket，支持有限重试
func (w *MinioArchiveWriter) ensureBucket(parent context.Context, bucket string, retries int) error {
	var lastErr error
	for i := 0; i <= retries; i++ {
		ctx, cancel := w.attemptContext(parent, 10*time.Second)
		exists, err := w.client.BucketExists(ctx, bucket)
		cancel()
		if err == nil && exists {
			return nil
		}
		if err == nil {
			ctx2, cancel2 := w.attemptContext(parent, 10*time.Second)
			err = w.client.MakeBucket(ctx2, bucket, minio.MakeBucketOptions{})
			cancel2()
			if err == nil {
				return nil
			}
		}
		lastErr = err
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	return lastErr
}

// attemptContext 构造限时上下文，尊重父上下文的剩余截止时间
func (w *MinioArchiveWriter) attemptContext(parent context.Context, prefer time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := parent.Deadline(); ok {
		remain := time.Until(deadline)
		if remain > time.Second && prefer < remain {
			return context.WithTimeout(parent, prefer)
		}
		if remain > time.Second {
			return context.WithTimeout(parent, remain-time.Second)
		}
		return context.WithTimeout(parent, time.Second)
	}
	return context.WithTimeout(parent, prefer)
}

var slugRe = regexp.MustCompile(`[^a-z0-9._-]+`)

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "/", "_", "\\", "_").Replace(s)
	s = slugRe.ReplaceAllString(s, "")
	if s == "" {
		s = "unknown"
	}
	return s
}
