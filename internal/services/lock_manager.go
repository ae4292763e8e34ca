// internal/services/lock_manager.go
package services

import (
	"sync"
	"time"
)

// LockManager 章节级别的锁管理器。
// 同一章节的解析、批量合成和导出互斥，不同章节互不影响。
type LockManager struct {
	chapterLocks map[string]*LockInfo
	globalLock   sync.RWMutex
}

// LockInfo 包装锁和最后使用时间
type LockInfo struct {
	Mutex    *sync.RWMutex
	LastUsed time.Time
}

// NewLockManager 创建锁管理器
func NewLockManager() *LockManager {
	lm := &LockManager{
		chapterLocks: make(map[string]*LockInfo),
	}

	lm.startCleanup()
	return lm
}

// GetChapterLock 获取章节锁（线程安全）
func (lm *LockManager) GetChapterLock(chapterID string) *sync.RWMutex {
	lm.globalLock.RLock()
	if lockInfo, exists := lm.chapterLocks[chapterID]; exists {
		lm.globalLock.RUnlock()
		lockInfo.LastUsed = time.Now()
		return lockInfo.Mutex
	}
	lm.globalLock.RUnlock()

	// 升级为写锁
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	// 双重检查（在写锁保护下是安全的）
	if lockInfo, exists := lm.chapterLocks[chapterID]; exists {
		lockInfo.LastUsed = time.Now()
		return lockInfo.Mutex
	}

	lock := &sync.RWMutex{}
	lm.chapterLocks[chapterID] = &LockInfo{
		Mutex:    lock,
		LastUsed: time.Now(),
	}
	return lock
}

// ExecuteWithChapterLock 在章节写锁保护下执行操作
func (lm *LockManager) ExecuteWithChapterLock(chapterID string, fn func() error) error {
	lock := lm.GetChapterLock(chapterID)
	lock.Lock()
	defer lock.Unlock()

	return fn()
}

// ExecuteWithChapterReadLock 在章节读锁保护下执行操作
func (lm *LockManager) ExecuteWithChapterReadLock(chapterID string, fn func() error) error {
	lock := lm.GetChapterLock(chapterID)
	lock.RLock()
	defer lock.RUnlock()

	return fn()
}

// 定期清理未使用的锁
func (lm *LockManager) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	go func() {
		for range ticker.C {
			lm.cleanupUnusedLocks()
		}
	}()
}

func (lm *LockManager) cleanupUnusedLocks() {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	const maxLocks = 200
	const lockTimeout = 30 * time.Minute

	// 只有在锁数量过多时才清理长时间未使用的锁
	if len(lm.chapterLocks) > maxLocks {
		now := time.Now()
		for chapterID, lockInfo := range lm.chapterLocks {
			if now.Sub(lockInfo.LastUsed) > lockTimeout {
				delete(lm.chapterLocks, chapterID)
			}
		}
	}
}
