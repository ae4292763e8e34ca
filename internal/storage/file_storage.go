// internal/storage/file_storage.go
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotFound 请求的记录不存在
var ErrNotFound = errors.New("记录不存在")

// FileStorage 提供JSON文档的文件存储。
// 写入是原子的（临时文件+改名），同一路径的读写通过文件级锁串行化。
type FileStorage struct {
	BaseDir string

	fileLocks sync.Map // path -> *sync.RWMutex
}

// NewFileStorage 创建文件存储服务
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}

	return &FileStorage{BaseDir: baseDir}, nil
}

func (fs *FileStorage) lockFor(fullPath string) *sync.RWMutex {
	value, _ := fs.fileLocks.LoadOrStore(fullPath, &sync.RWMutex{})

	return value.(*sync.RWMutex)
}

// SaveJSON 序列化并原子性写入JSON文档
func (fs *FileStorage) SaveJSON(relPath string, v any) error {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化JSON失败: %w", err)
	}

	fullPath := filepath.Join(fs.BaseDir, relPath)

	lock := fs.lockFor(fullPath)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	tempPath := fullPath + ".tmp"
	if err := os.WriteFile(tempPath, content, 0644); err != nil {
		return fmt.Errorf("保存临时文件失败: %w", err)
	}

	if err := os.Rename(tempPath, fullPath); err != nil {
		os.Remove(tempPath)

		return fmt.Errorf("保存文件失败: %w", err)
	}

	return nil
}

// LoadJSON 读取并解析JSON文档，文件不存在时返回 ErrNotFound
func (fs *FileStorage) LoadJSON(relPath string, v any) error {
	fullPath := filepath.Join(fs.BaseDir, relPath)

	lock := fs.lockFor(fullPath)
	lock.RLock()
	defer lock.RUnlock()

	content, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, relPath)
		}

		return fmt.Errorf("读取文件失败: %w", err)
	}

	if err := json.Unmarshal(content, v); err != nil {
		return fmt.Errorf("解析JSON失败 %s: %w", relPath, err)
	}

	return nil
}

// Delete 删除文档，文件不存在时返回 ErrNotFound
func (fs *FileStorage) Delete(relPath string) error {
	fullPath := filepath.Join(fs.BaseDir, relPath)

	lock := fs.lockFor(fullPath)
	lock.Lock()
	defer lock.Unlock()

	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, relPath)
	}

	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("删除文件失败: %w", err)
	}

	return nil
}

// Exists 检查文档是否存在
func (fs *FileStorage) Exists(relPath string) bool {
	_, err := os.Stat(filepath.Join(fs.BaseDir, relPath))

	return err == nil
}

// ListJSONFiles 列出目录下的所有JSON文档名（不含扩展名）
func (fs *FileStorage) ListJSONFiles(relDir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(fs.BaseDir, relDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("读取目录失败: %w", err)
	}

	var names []string

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}

	return names, nil
}

// ListDirs 列出目录下的所有子目录
func (fs *FileStorage) ListDirs(relDir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(fs.BaseDir, relDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("读取目录失败: %w", err)
	}

	var dirs []string

	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}

	return dirs, nil
}

// DeleteDir 删除目录及其全部内容
func (fs *FileStorage) DeleteDir(relDir string) error {
	fullPath := filepath.Join(fs.BaseDir, relDir)

	if err := os.RemoveAll(fullPath); err != nil {
		return fmt.Errorf("删除目录失败: %w", err)
	}

	return nil
}
