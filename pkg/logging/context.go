package logging

import (
	"log/slog"
)

// WithTx creates a logger with transaction context.
//
// Example:
//
//	log := logging.WithTx(tid)
//	log.Info("acquiring lock")
func WithTx(tid int64) *slog.Logger {
	return GetLogger().With("tx_id", tid)
}

// WithTable creates a logger with table context.
func WithTable(tableName string) *slog.Logger {
	return GetLogger().With("table", tableName)
}

// WithPage creates a logger with page context. Useful for buffer pool and
// heap file operations.
func WithPage(tableID uint32, pageNo int) *slog.Logger {
	return GetLogger().With("table_id", tableID, "page_no", pageNo)
}

// WithLock creates a logger with lock-manager context.
func WithLock(tid int64, resource string) *slog.Logger {
	return GetLogger().With("tx_id", tid, "resource", resource)
}

// WithComponent creates a logger with component/subsystem context.
func WithComponent(component string) *slog.Logger {
	return GetLogger().With("component", component)
}

// WithError creates a logger with an error attached as a field, so a single
// log line carries both the message and the full error chain.
func WithError(err error) *slog.Logger {
	return GetLogger().With("error", err)
}
