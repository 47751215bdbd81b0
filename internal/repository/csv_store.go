package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/user/moodreel/internal/logging"
	"github.com/user/moodreel/internal/notice"
)

// 文件锁，同一进程内按路径串行化读写
var fileLocks sync.Map

func lockFor(path string) *sync.Mutex {
	mu, _ := fileLocks.LoadOrStore(path, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// csvFile 带表头的 CSV 文件
type csvFile struct {
	path   string
	header []string
	mu     *sync.Mutex
}

func newCSVFile(dir, name string, header ...string) *csvFile {
	path := filepath.Join(dir, name)
	return &csvFile{path: path, header: header, mu: lockFor(path)}
}

// readLocked 读取全部数据行（不含表头），调用方持有锁
// 文件不存在返回空；格式损坏时挪到一旁并按空处理
func (f *csvFile) readLocked(ctx context.Context) ([][]string, error) {
	file, err := os.Open(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rows, err := f.parse(file)
	file.Close()
	if err != nil {
		quarantine(ctx, f.path, err)
		return nil, nil
	}
	return rows, nil
}

func (f *csvFile) parse(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(f.header)

	head, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !slices.Equal(head, f.header) {
		return nil, fmt.Errorf("unexpected header %v", head)
	}
	return reader.ReadAll()
}

// appendLocked 追加数据行，新文件先写表头
func (f *csvFile) appendLocked(rows ...[]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	w := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := w.Write(f.header); err != nil {
			return err
		}
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return file.Sync()
}

// rewriteLocked 整体重写文件；没有数据行时删除文件
func (f *csvFile) rewriteLocked(rows [][]string) error {
	if len(rows) == 0 {
		err := os.Remove(f.path)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(f.header); err != nil {
		tmp.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

// loadRows 读取并逐行解析，任一行无法解析视为整个文件损坏
func loadRows[T any](ctx context.Context, f *csvFile, parse func([]string) (T, error)) ([]T, error) {
	rows, err := f.readLocked(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(rows))
	for i, row := range rows {
		v, err := parse(row)
		if err != nil {
			quarantine(ctx, f.path, fmt.Errorf("row %d: %w", i+2, err))
			return nil, nil
		}
		out = append(out, v)
	}
	return out, nil
}

// corruptedName users.csv -> users_corrupted_20240102_150405.csv
func corruptedName(path string, now time.Time) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s_corrupted_%s%s", base, now.Format("20060102_150405"), ext)
}

// freeCorruptedName 同一秒内重复备份时追加序号，不覆盖已有备份
func freeCorruptedName(path string, now time.Time) string {
	dest := corruptedName(path, now)
	ext := filepath.Ext(dest)
	base := strings.TrimSuffix(dest, ext)
	for n := 2; ; n++ {
		if _, err := os.Lstat(dest); errors.Is(err, os.ErrNotExist) {
			return dest
		}
		dest = fmt.Sprintf("%s_%d%s", base, n, ext)
	}
}

// purgeCorrupted 删除 dir 下早于 before 的损坏文件备份
func purgeCorrupted(dir string, before time.Time) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*_corrupted_*"))
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || !info.ModTime().Before(before) {
			continue
		}
		if err := os.Remove(path); err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("[Storage] 删除过期备份失败")
			continue
		}
		removed++
	}
	return removed, nil
}

// quarantine 把损坏的文件改名保留
func quarantine(ctx context.Context, path string, cause error) {
	dest := freeCorruptedName(path, time.Now())
	if err := os.Rename(path, dest); err != nil {
		logging.Error().Err(err).Str("path", path).Msg("[Storage] 损坏文件改名失败")
		notice.Error(ctx, "Failed to read %s: %v", filepath.Base(path), cause)
		return
	}
	logging.Warn().Err(cause).Str("path", path).Str("backup", dest).Msg("[Storage] 文件损坏，已备份并重置")
	notice.Warn(ctx, "Corrupted %s detected. Backed up to %s and reset.", filepath.Base(path), filepath.Base(dest))
}
