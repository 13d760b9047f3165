package logging

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

const megabyte = 1 << 20

// LogFile is an append-only log file that is shifted to numbered backups
// once it would grow past MaxSize: vigenere.log becomes vigenere.log.1
// (or vigenere.log.1.gz), the previous .1 becomes .2, and so on up to
// MaxBackups. Rotation is driven by size only.
type LogFile struct {
	path     string
	maxBytes int64
	backups  int
	maxAge   time.Duration
	compress bool

	mu   sync.Mutex
	f    *os.File
	size int64
}

// OpenLogFile opens cfg.FilePath for appending, creating its directory.
func OpenLogFile(cfg *Config) (*LogFile, error) {
	if cfg.FilePath == "" {
		return nil, errors.New("logging: file output needs a file path")
	}
	lf := &LogFile{
		path:     cfg.FilePath,
		maxBytes: cfg.MaxSize * megabyte,
		backups:  cfg.MaxBackups,
		maxAge:   time.Duration(cfg.MaxAge) * 24 * time.Hour,
		compress: cfg.Compress,
	}
	if err := os.MkdirAll(filepath.Dir(lf.path), 0750); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	if err := lf.open(); err != nil {
		return nil, err
	}
	return lf, nil
}

func (lf *LogFile) open() error {
	f, err := os.OpenFile(lf.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	lf.f = f
	lf.size = info.Size()
	return nil
}

// Write appends p, rotating first when p would push a non-empty file past
// the size limit. A single record larger than the limit still lands whole.
func (lf *LogFile) Write(p []byte) (int, error) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.f == nil {
		if err := lf.open(); err != nil {
			return 0, err
		}
	}
	if lf.maxBytes > 0 && lf.size > 0 && lf.size+int64(len(p)) > lf.maxBytes {
		if err := lf.rotate(); err != nil {
			return 0, fmt.Errorf("rotate log: %w", err)
		}
	}

	n, err := lf.f.Write(p)
	lf.size += int64(n)
	return n, err
}

func (lf *LogFile) rotate() error {
	if err := lf.f.Close(); err != nil {
		return err
	}
	lf.f = nil

	if lf.backups <= 0 {
		if err := os.Remove(lf.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return lf.open()
	}

	if err := lf.shift(); err != nil {
		return err
	}
	first := lf.backupName(1)
	if err := os.Rename(lf.path, first); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if lf.compress {
		if err := gzipFile(first); err != nil {
			return err
		}
	}
	lf.pruneAged()
	return lf.open()
}

// shift moves backup n to n+1, dropping the oldest.
func (lf *LogFile) shift() error {
	for n := lf.backups; n >= 1; n-- {
		src, ok := lf.existing(n)
		if !ok {
			continue
		}
		if n == lf.backups {
			if err := os.Remove(src); err != nil {
				return err
			}
			continue
		}
		dst := lf.backupName(n + 1)
		if filepath.Ext(src) == ".gz" {
			dst += ".gz"
		}
		if err := os.Rename(src, dst); err != nil {
			return err
		}
	}
	return nil
}

func (lf *LogFile) backupName(n int) string {
	return lf.path + "." + strconv.Itoa(n)
}

// existing returns the path of backup n, compressed or not.
func (lf *LogFile) existing(n int) (string, bool) {
	name := lf.backupName(n)
	for _, p := range []string{name, name + ".gz"} {
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

func (lf *LogFile) pruneAged() {
	if lf.maxAge <= 0 {
		return
	}
	cutoff := time.Now().Add(-lf.maxAge)
	for n := 1; n <= lf.backups; n++ {
		p, ok := lf.existing(n)
		if !ok {
			continue
		}
		if info, err := os.Stat(p); err == nil && info.ModTime().Before(cutoff) {
			os.Remove(p)
		}
	}
}

// gzipFile replaces path with path.gz.
func gzipFile(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(path+".gz", os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0640)
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(out)
	gz.Name = filepath.Base(path)
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		out.Close()
		os.Remove(path + ".gz")
		return err
	}
	if err := gz.Close(); err != nil {
		out.Close()
		os.Remove(path + ".gz")
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(path)
}

// Backups lists the rotated files, newest first.
func (lf *LogFile) Backups() []string {
	var list []string
	for n := 1; n <= lf.backups; n++ {
		if p, ok := lf.existing(n); ok {
			list = append(list, p)
		}
	}
	return list
}

// Sync flushes the file to disk.
func (lf *LogFile) Sync() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	if lf.f == nil {
		return nil
	}
	return lf.f.Sync()
}

// Close closes the file. A later Write reopens it.
func (lf *LogFile) Close() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	if lf.f == nil {
		return nil
	}
	err := lf.f.Close()
	lf.f = nil
	return err
}
