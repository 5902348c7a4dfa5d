package postgresengine

import (
	"context"
	"math"
	"time"

	"github.com/shelfwise/inventory-coordinator-go/inventory"
)

const (
	logMsgSQLExecuted          = "executed sql for: "
	logMsgOperation            = "coordinator operation: "
	logMsgReleaseSkipped       = "release skipped, item status owned elsewhere"
	logMsgAvailabilityConflict = "availability conflict detected"
	logMsgRollbackFailed       = "failed to roll back transaction"
	logMsgCloseRowsFailed      = "failed to close database rows"

	logAttrError        = "error"
	logAttrQuery        = "query"
	logAttrDurationMS   = "duration_ms"
	logAttrOperation    = "operation"
	logAttrItemID       = "item_id"
	logAttrObligationID = "obligation_id"
	logAttrKind         = "kind"
	logAttrStatus       = "status"
	logAttrExpected     = "expected_status"

	metricOperationDuration    = "coordinator_operation_duration"
	metricAvailabilityConflict = "coordinator_availability_conflicts"
	metricReleaseSkips         = "coordinator_release_skips"
	metricDatabaseErrors       = "coordinator_database_errors"

	spanNamePrefix    = "coordinator."
	spanAttrOperation = "operation"
	spanAttrErrorType = "error_type"
	statusOK          = "ok"
	statusError       = "error"
	statusConflict    = "conflict"
)

// logQueryWithDuration logs SQL queries with execution time at debug level if a logger is configured.
func (c *Coordinator) logQueryWithDuration(ctx context.Context, sqlQuery string, action string, duration time.Duration) {
	if c.contextualLogger != nil {
		c.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
		return
	}

	if c.logger != nil {
		c.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logOperation logs operational information at info level if a logger is configured.
func (c *Coordinator) logOperation(ctx context.Context, action string, args ...any) {
	if c.contextualLogger != nil {
		c.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
		return
	}

	if c.logger != nil {
		c.logger.Info(logMsgOperation+action, args...)
	}
}

// logWarn logs non-critical issues at warn level if a logger is configured.
func (c *Coordinator) logWarn(ctx context.Context, message string, args ...any) {
	if c.contextualLogger != nil {
		c.contextualLogger.WarnContext(ctx, message, args...)
		return
	}

	if c.logger != nil {
		c.logger.Warn(message, args...)
	}
}

// logError logs error information at error level if a logger is configured.
func (c *Coordinator) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if c.contextualLogger != nil {
		c.contextualLogger.ErrorContext(ctx, message, allArgs...)
		return
	}

	if c.logger != nil {
		c.logger.Error(message, allArgs...)
	}
}

// recordDuration records an operation duration metric if a collector is configured.
func (c *Coordinator) recordDuration(ctx context.Context, operation string, status string, duration time.Duration) {
	if c.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		logAttrOperation: operation,
		logAttrStatus:    status,
	}

	if contextual, ok := c.metricsCollector.(inventory.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metricOperationDuration, duration, labels)
		return
	}

	c.metricsCollector.RecordDuration(metricOperationDuration, duration, labels)
}

// incrementCounter increments a counter metric if a collector is configured.
func (c *Coordinator) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if c.metricsCollector == nil {
		return
	}

	if contextual, ok := c.metricsCollector.(inventory.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	c.metricsCollector.IncrementCounter(metric, labels)
}

// startSpan starts a tracing span for a coordinator operation if a collector is configured.
func (c *Coordinator) startSpan(ctx context.Context, operation string) (context.Context, inventory.SpanContext) {
	if c.tracingCollector == nil {
		return ctx, nil
	}

	return c.tracingCollector.StartSpan(ctx, spanNamePrefix+operation, map[string]string{spanAttrOperation: operation})
}

// finishSpan finishes a tracing span with the given status if one was started.
func (c *Coordinator) finishSpan(span inventory.SpanContext, status string, attrs map[string]string) {
	if c.tracingCollector == nil || span == nil {
		return
	}

	c.tracingCollector.FinishSpan(span, status, attrs)
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
