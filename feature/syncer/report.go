package syncer

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"db-sync/core/reconcile"
	"db-sync/core/storage"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Phase is the outcome of one operation inside a run.
type Phase struct {
	Operation string             `json:"operation"`
	Results   []reconcile.Result `json:"results"`
	TotalRows int64              `json:"totalRows"`
}

// RunReport summarizes a sync run.
type RunReport struct {
	RunID     uuid.UUID     `json:"runId"`
	Operation string        `json:"operation"`
	DryRun    bool          `json:"dryRun"`
	Phases    []Phase       `json:"phases"`
	TotalRows int64         `json:"totalRows"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"durationNs"`
	Error     string        `json:"error,omitempty"`
}

// TablesSummary describes a written show_tables file.
type TablesSummary struct {
	File       string `json:"file"`
	Size       int64  `json:"size"`
	TableCount int    `json:"tableCount"`
}

// ReportInfo describes a published report.
type ReportInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// Reporter publishes run reports to object storage.
type Reporter struct {
	client storage.Client
	bucket string
	prefix string
	region string
	logger *zap.Logger
}

// NewReporter creates a reporter writing to the configured bucket.
func NewReporter(client storage.Client, cfg storage.Config, logger *zap.Logger) *Reporter {
	return &Reporter{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		region: cfg.Region,
		logger: logger,
	}
}

// ObjectName returns the key a report is stored under.
func (r *Reporter) ObjectName(report *RunReport) string {
	return fmt.Sprintf("%s%s/%s-%s.json",
		r.prefix, report.StartedAt.UTC().Format("2006/01/02"), report.Operation, report.RunID)
}

// Publish uploads report as JSON and returns its object name.
func (r *Reporter) Publish(ctx context.Context, report *RunReport) (string, error) {
	if err := storage.EnsureBucket(ctx, r.client, r.bucket, r.region); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	name := r.ObjectName(report)
	_, err = r.client.PutObject(ctx, r.bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("failed to upload report %s: %w", name, err)
	}

	r.logger.Info("Published run report", zap.String("bucket", r.bucket), zap.String("object", name))
	return name, nil
}

// List returns the published reports, most recent key last.
func (r *Reporter) List(ctx context.Context) ([]ReportInfo, error) {
	var out []ReportInfo
	for obj := range r.client.ListObjects(ctx, r.bucket, minio.ListObjectsOptions{Prefix: r.prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list reports: %w", obj.Err)
		}
		if !strings.HasSuffix(obj.Key, ".json") {
			continue
		}
		out = append(out, ReportInfo{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}
	return out, nil
}
