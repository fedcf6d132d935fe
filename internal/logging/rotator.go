package logging

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// FileRotator is an io.Writer over a log file that rotates by size and
// by day. Rotated files are named <name>-<YYYYMMDD-HHMMSS><ext>, optionally
// gzipped, and pruned by MaxBackups and MaxAge.
type FileRotator struct {
	config   *Config
	mu       sync.Mutex
	file     *os.File
	size     int64
	openedAt time.Time
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewFileRotator opens cfg.FilePath for appending.
func NewFileRotator(cfg *Config) (*FileRotator, error) {
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("log file path is empty")
	}

	r := &FileRotator{
		config: cfg,
		now:    time.Now,
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	if err := r.openFile(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *FileRotator) openFile() error {
	file, err := os.OpenFile(r.config.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat log file: %w", err)
	}

	r.file = file
	r.size = info.Size()
	r.openedAt = r.now()
	return nil
}

// Write implements io.Writer.
func (r *FileRotator) Write(p []byte) (n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		if err := r.openFile(); err != nil {
			return 0, err
		}
	}

	if r.shouldRotate(int64(len(p))) {
		if err := r.rotate(); err != nil {
			return 0, fmt.Errorf("rotate log: %w", err)
		}
	}

	n, err = r.file.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *FileRotator) shouldRotate(writeSize int64) bool {
	if r.size == 0 {
		return false
	}
	if r.config.MaxSize > 0 && r.size+writeSize > r.config.MaxSize*1024*1024 {
		return true
	}
	y1, m1, d1 := r.openedAt.Date()
	y2, m2, d2 := r.now().Date()
	return y1 != y2 || m1 != m2 || d1 != d2
}

// parts splits the log path into directory, base name and extension.
func (r *FileRotator) parts() (dir, name, ext string) {
	base := filepath.Base(r.config.FilePath)
	ext = filepath.Ext(base)
	return filepath.Dir(r.config.FilePath), strings.TrimSuffix(base, ext), ext
}

func (r *FileRotator) rotate() error {
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("close current log: %w", err)
	}
	r.file = nil

	dir, name, ext := r.parts()
	rotatedPath := filepath.Join(dir, fmt.Sprintf("%s-%s%s", name, r.now().Format("20060102-150405"), ext))

	if err := os.Rename(r.config.FilePath, rotatedPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rename log file: %w", err)
	}

	if err := r.openFile(); err != nil {
		return err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if r.config.Compress {
			compressFile(rotatedPath)
		}
		r.cleanup()
	}()

	return nil
}

// compressFile replaces path with path.gz.
func compressFile(path string) {
	input, err := os.Open(path)
	if err != nil {
		return
	}
	defer input.Close()

	output, err := os.Create(path + ".gz")
	if err != nil {
		return
	}
	defer output.Close()

	gz := gzip.NewWriter(output)
	gz.Name = filepath.Base(path)

	if _, err := io.Copy(gz, input); err != nil {
		gz.Close()
		os.Remove(path + ".gz")
		return
	}
	if err := gz.Close(); err != nil {
		os.Remove(path + ".gz")
		return
	}

	os.Remove(path)
}

// cleanup removes rotated files beyond MaxBackups or older than MaxAge.
func (r *FileRotator) cleanup() {
	files, err := r.rotatedFiles()
	if err != nil {
		return
	}

	type aged struct {
		path    string
		modTime time.Time
	}
	var all []aged
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		all = append(all, aged{path: f, modTime: info.ModTime()})
	}

	// Newest first.
	slices.SortFunc(all, func(a, b aged) int { return b.modTime.Compare(a.modTime) })

	cutoff := r.now().AddDate(0, 0, -r.config.MaxAge)
	for i, f := range all {
		tooMany := r.config.MaxBackups > 0 && i >= r.config.MaxBackups
		tooOld := r.config.MaxAge > 0 && f.modTime.Before(cutoff)
		if tooMany || tooOld {
			os.Remove(f.path)
		}
	}
}

func (r *FileRotator) rotatedFiles() ([]string, error) {
	dir, name, ext := r.parts()
	return filepath.Glob(filepath.Join(dir, name+"-*"+ext+"*"))
}

// Close waits for background compression, then flushes and closes the
// file. Closing twice is a no-op.
func (r *FileRotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.wg.Wait()
	if r.file == nil {
		return nil
	}
	err := errors.Join(r.file.Sync(), r.file.Close())
	r.file = nil
	return err
}

// logFiles returns the current log file followed by the rotated ones.
func (r *FileRotator) logFiles() ([]string, error) {
	rotated, err := r.rotatedFiles()
	return append([]string{r.config.FilePath}, rotated...), err
}
