package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/hilayankonsky/movemix/internal/telemetry/tracing"
	"github.com/hilayankonsky/movemix/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Disk stores every key as a JSON file in one directory.
// Writes go to a temp file that is renamed over the target, so a crash never
// leaves a half written document behind.
type Disk struct {
	rootPath string
	mutex    sync.RWMutex
}

func NewDisk(rootPath string) (*Disk, error) {
	if rootPath == "" {
		return nil, errors.New("root path cannot be empty")
	}
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("create root dir: %w", err)
	}
	exists, err := pkg.PathExists(rootPath, true)
	if err != nil {
		return nil, fmt.Errorf("check root dir: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("root path is not a directory: %s", rootPath)
	}
	return &Disk{rootPath: rootPath}, nil
}

// FilePath returns the file backing the given key.
func (d *Disk) FilePath(key string) string {
	name := unsafeFileChars.ReplaceAllString(key, "_")
	return filepath.Join(d.rootPath, name+".json")
}

func (d *Disk) Get(ctx context.Context, key string) (_ []byte, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "disk.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	d.mutex.RLock()
	defer d.mutex.RUnlock()

	path := d.FilePath(key)
	span.SetAttributes(attribute.String("file.path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func (d *Disk) Set(ctx context.Context, key string, value []byte) (err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "disk.set")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	d.mutex.Lock()
	defer d.mutex.Unlock()

	path := d.FilePath(key)
	span.SetAttributes(attribute.String("file.path", path))
	span.SetAttributes(attribute.Int("file.size", len(value)))

	tmp, err := os.CreateTemp(d.rootPath, ".movemix-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				log.Errorf("disk: remove temp file %s: %s", tmpPath, removeErr)
			}
		}
	}()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}

	log.Debugf("disk: saved [%s], %d bytes", key, len(value))
	return nil
}

func (d *Disk) Remove(ctx context.Context, key string) (err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "disk.remove")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if err := os.Remove(d.FilePath(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
