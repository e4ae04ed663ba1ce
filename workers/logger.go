package workers

import (
	"context"
	"log"

	"car_tracker/models"
)

// LogFunc logs a run event to stdout and the run_logs table.
type LogFunc func(level models.LogLevel, location, message string)

func (o *BulkOrchestrator) logger(ctx context.Context, runID string) LogFunc {
	return func(level models.LogLevel, location, message string) {
		if location != "" {
			log.Printf("[bulk] [%s] %s: %s", level, location, message)
		} else {
			log.Printf("[bulk] [%s] %s", level, message)
		}
		if o.runs == nil {
			return
		}
		if err := o.runs.Log(context.WithoutCancel(ctx), runID, level, message, location); err != nil {
			log.Printf("[bulk] failed to write run log: %v", err)
		}
	}
}
