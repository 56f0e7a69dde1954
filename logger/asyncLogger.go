package logger

import (
	"log"
	"sync"

	log_model "rental-ledger/models/log"
	"rental-ledger/types"

	"gorm.io/gorm"
)

// AsyncLogger persists request logs from a buffered channel
type AsyncLogger struct {
	db      *gorm.DB
	channel chan types.LogEntry
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewAsyncLogger(db *gorm.DB) *AsyncLogger {
	return &AsyncLogger{
		db:      db,
		channel: make(chan types.LogEntry, 100), // Buffered channel to hold log entries
		done:    make(chan struct{}),
	}
}

// ProcessLog drains the channel until Close is called
func (logger *AsyncLogger) ProcessLog() {
	log.Println("Starting asynchronous logger...")
	defer close(logger.done)

	for logEntry := range logger.channel {
		dbLog := log_model.Log{
			Method:          logEntry.Method,
			URL:             logEntry.URL,
			RequestBody:     logEntry.RequestBody,
			ResponseBody:    logEntry.ResponseBody,
			RequestHeaders:  logEntry.RequestHeaders,
			ResponseHeaders: logEntry.ResponseHeaders,
			StatusCode:      logEntry.StatusCode,
			LatencyMs:       logEntry.LatencyMs,
			CreatedAt:       logEntry.CreatedAt,
		}

		if err := logger.db.Create(&dbLog).Error; err != nil {
			log.Printf("Failed to insert new log entry: %v", err)
		}
	}
}

// Log pushes a log entry into the channel. Entries are dropped when the
// buffer is full so request handling never blocks on the database, and
// after Close.
func (logger *AsyncLogger) Log(entry types.LogEntry) {
	logger.mu.RLock()
	defer logger.mu.RUnlock()

	if logger.closed {
		log.Printf("Logger closed, dropping entry: %s %s", entry.Method, entry.URL)
		return
	}
	select {
	case logger.channel <- entry:
	default:
		log.Printf("Log buffer full, dropping entry: %s %s", entry.Method, entry.URL)
	}
}

// Close stops accepting entries and waits for the backlog to be written
func (logger *AsyncLogger) Close() {
	logger.mu.Lock()
	if !logger.closed {
		logger.closed = true
		close(logger.channel)
	}
	logger.mu.Unlock()

	<-logger.done
}
