// internal/utils/metrics.go
package utils

import (
	"sync"
	"sync/atomic"
	"time"
)

// MetricsCollector 收集合成与导出的运行指标
type MetricsCollector struct {
	counters   map[string]*Counter
	histograms map[string]*Histogram

	mu sync.RWMutex
}

// Counter 单调递增计数器，值用原子操作维护
type Counter struct {
	name  string
	value int64
}

// Histogram 简单直方图，记录次数、总和、最小值和最大值
type Histogram struct {
	name  string
	count int64
	sum   int64
	min   int64
	max   int64
	mu    sync.Mutex
}

var (
	globalMetrics *MetricsCollector
	metricsOnce   sync.Once
)

// GetMetrics 获取全局指标收集器
func GetMetrics() *MetricsCollector {
	metricsOnce.Do(func() {
		globalMetrics = &MetricsCollector{
			counters:   make(map[string]*Counter),
			histograms: make(map[string]*Histogram),
		}
	})
	return globalMetrics
}

// Counter 获取或创建计数器
func (m *MetricsCollector) Counter(name string) *Counter {
	m.mu.RLock()
	if counter, exists := m.counters[name]; exists {
		m.mu.RUnlock()
		return counter
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if counter, exists := m.counters[name]; exists {
		return counter
	}

	counter := &Counter{name: name}
	m.counters[name] = counter
	return counter
}

// Histogram 获取或创建直方图
func (m *MetricsCollector) Histogram(name string) *Histogram {
	m.mu.RLock()
	if histogram, exists := m.histograms[name]; exists {
		m.mu.RUnlock()
		return histogram
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if histogram, exists := m.histograms[name]; exists {
		return histogram
	}

	histogram := &Histogram{name: name}
	m.histograms[name] = histogram
	return histogram
}

// Inc 计数器加一
func (c *Counter) Inc() {
	atomic.AddInt64(&c.value, 1)
}

// Add 计数器增加指定值
func (c *Counter) Add(delta int64) {
	atomic.AddInt64(&c.value, delta)
}

// Value 读取计数器当前值
func (c *Counter) Value() int64 {
	return atomic.LoadInt64(&c.value)
}

// Observe 记录一次观测值
func (h *Histogram) Observe(value int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 || value < h.min {
		h.min = value
	}
	if value > h.max {
		h.max = value
	}
	h.count++
	h.sum += value
}

// ObserveDuration 记录一段耗时(毫秒)
func (h *Histogram) ObserveDuration(start time.Time) {
	h.Observe(time.Since(start).Milliseconds())
}

// Snapshot 直方图的只读快照
type Snapshot struct {
	Count int64 `json:"count"`
	Sum   int64 `json:"sum"`
	Min   int64 `json:"min"`
	Max   int64 `json:"max"`
}

// Snapshot 读取当前统计值
func (h *Histogram) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	return Snapshot{Count: h.count, Sum: h.sum, Min: h.min, Max: h.max}
}

// Export 导出全部指标，用于状态接口
func (m *MetricsCollector) Export() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]interface{}, len(m.counters)+len(m.histograms))
	for name, counter := range m.counters {
		result[name] = counter.Value()
	}
	for name, histogram := range m.histograms {
		result[name] = histogram.Snapshot()
	}

	return result
}
