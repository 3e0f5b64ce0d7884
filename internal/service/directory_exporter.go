package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/OnishkovValera/CyberSec1/internal/domain"
	"github.com/OnishkovValera/CyberSec1/internal/storage"
)

// ExportRecord is the JSON shape of one user in a directory export.
type ExportRecord struct {
	ID      int64   `json:"id"`
	Name    *string `json:"name"`
	Surname *string `json:"surname"`
	Login   string  `json:"login"`
}

// DirectoryLister yields the sanitized user directory.
type DirectoryLister interface {
	ListAll(ctx context.Context) ([]domain.PublicUser, error)
}

// DirectoryExporter writes snapshots of the sanitized user directory to object storage.
type DirectoryExporter struct {
	users     DirectoryLister
	store     storage.Service
	bucket    string
	keyPrefix string
	now       func() time.Time
	logger    logrus.FieldLogger
}

func NewDirectoryExporter(users DirectoryLister, store storage.Service, bucket, keyPrefix string, logger logrus.FieldLogger) *DirectoryExporter {
	if logger == nil {
		logger = logrus.New()
	}
	return &DirectoryExporter{
		users:     users,
		store:     store,
		bucket:    bucket,
		keyPrefix: strings.Trim(keyPrefix, "/"),
		now:       time.Now,
		logger:    logger,
	}
}

// Export uploads the current directory and returns the object location.
func (e *DirectoryExporter) Export(ctx context.Context) (string, error) {
	if e.bucket == "" {
		return "", fmt.Errorf("storage bucket is required")
	}

	views, err := e.users.ListAll(ctx)
	if err != nil {
		return "", fmt.Errorf("list users: %w", err)
	}

	records := make([]ExportRecord, len(views))
	for i := range views {
		records[i] = toExportRecord(views[i])
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(records); err != nil {
		return "", fmt.Errorf("encode export: %w", err)
	}

	name := fmt.Sprintf("users-%s-%s.json", e.now().UTC().Format("20060102T150405Z"), uuid.NewString())
	location, err := e.store.PutObject(ctx, &buf, storage.PutOptions{
		Bucket:      e.bucket,
		Key:         path.Join(e.keyPrefix, name),
		ContentType: "application/json",
	})
	if err != nil {
		return "", err
	}

	e.logger.WithFields(logrus.Fields{
		"location": location,
		"users":    len(records),
	}).Info("directory exported")
	return location, nil
}

// ListExports returns earlier exports, newest first.
func (e *DirectoryExporter) ListExports(ctx context.Context) ([]storage.ObjectInfo, error) {
	prefix := e.keyPrefix
	if prefix != "" {
		prefix += "/"
	}
	objects, err := e.store.ListObjects(ctx, e.bucket, prefix)
	if err != nil {
		return nil, err
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key > objects[j].Key })
	return objects, nil
}

func toExportRecord(view domain.PublicUser) ExportRecord {
	return ExportRecord{
		ID:      view.ID,
		Name:    view.Name,
		Surname: view.Surname,
		Login:   view.Login,
	}
}
