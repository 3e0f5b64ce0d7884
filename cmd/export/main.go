// Command export uploads a sanitized snapshot of the user directory to S3.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/OnishkovValera/CyberSec1/internal/config"
	"github.com/OnishkovValera/CyberSec1/internal/repository/sqlite"
	"github.com/OnishkovValera/CyberSec1/internal/sanitize"
	"github.com/OnishkovValera/CyberSec1/internal/service"
	"github.com/OnishkovValera/CyberSec1/internal/storage"
)

func main() {
	list := pflag.BoolP("list", "l", false, "list earlier exports instead of writing a new one")
	pflag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storageSvc, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}

	directory := service.NewDirectory(userRepo, sanitize.New())
	exporter := service.NewDirectoryExporter(directory, storageSvc, cfg.Storage.Bucket, cfg.Storage.KeyPrefix, logger)

	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if *list {
		objects, err := exporter.ListExports(runCtx)
		if err != nil {
			logger.Fatalf("list exports: %v", err)
		}
		for _, obj := range objects {
			modified := ""
			if obj.LastModified != nil {
				modified = obj.LastModified.Format(time.RFC3339)
			}
			fmt.Printf("%s\t%d\t%s\n", obj.Key, obj.Size, modified)
		}
		return
	}

	location, err := exporter.Export(runCtx)
	if err != nil {
		logger.Fatalf("export directory: %v", err)
	}
	fmt.Println(location)
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Storage.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}
