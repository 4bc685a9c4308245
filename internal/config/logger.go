package config

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hiershare/hiershare/internal/models"
)

// ringLogger is a logrus hook that keeps the most recent log entries in a
// fixed-size ring buffer so the daemon can serve them over /api/logs.
type ringLogger struct {
	sessionUID  uuid.UUID
	eventBuffer []*models.LogEntry
	maxSize     int
	currentPos  int
	isFull      bool
	mu          sync.RWMutex
}

func NewRingLogger() *ringLogger {
	return &ringLogger{
		sessionUID:  uuid.New(),
		eventBuffer: make([]*models.LogEntry, 1000),
		maxSize:     1000,
		currentPos:  0,
		isFull:      false,
	}
}

func (r *ringLogger) Fire(entry *logrus.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.eventBuffer[r.currentPos] = models.NewLogEntry(entry)
	r.currentPos = (r.currentPos + 1) % r.maxSize

	if r.currentPos == 0 {
		r.isFull = true
	}

	return nil
}

func (r *ringLogger) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
		logrus.WarnLevel,
		logrus.InfoLevel,
	}
}

func (r *ringLogger) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.eventBuffer = make([]*models.LogEntry, r.maxSize)
	r.currentPos = 0
	r.isFull = false
}

// GetEvents returns the buffered entries in chronological order.
func (r *ringLogger) GetEvents() []*models.LogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.isFull {
		result := make([]*models.LogEntry, r.currentPos)
		copy(result, r.eventBuffer[:r.currentPos])
		return result
	}

	result := make([]*models.LogEntry, r.maxSize)
	copy(result, r.eventBuffer[r.currentPos:])
	copy(result[r.maxSize-r.currentPos:], r.eventBuffer[:r.currentPos])
	return result
}

// GetRecentEvents returns up to count of the newest entries.
func (r *ringLogger) GetRecentEvents(count int) []*models.LogEntry {
	events := r.GetEvents()
	if len(events) <= count {
		return events
	}
	return events[len(events)-count:]
}
