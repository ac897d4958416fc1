package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/courtbook/courtbook/internal/store"
)

const completionSweepTimeout = 2 * time.Minute

// RegisterCompletionSweep schedules the job that marks confirmed bookings
// whose end time has passed as completed. The store publishes a change per
// affected court, so live availability watchers pick the transition up
// without polling.
func RegisterCompletionSweep(st *store.Store, cronExpr string) error {
	if st == nil {
		return fmt.Errorf("completion sweep requires a store")
	}

	jobName := "booking_completion_sweep"
	jobLogger := log.With().
		Str("component", "booking_completion_sweep").
		Str("job_name", jobName).
		Str("cron", cronExpr).
		Logger()

	_, err := AddJob(jobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), completionSweepTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		completed, err := st.CompleteExpiredBookings(ctx, time.Now())
		if err != nil {
			jobLogger.Error().Err(err).Msg("Failed to complete expired bookings")
			return
		}
		if completed > 0 {
			jobLogger.Info().Int64("completed", completed).Msg("Completed expired bookings")
		}
	}, gocron.WithSingletonMode(gocron.LimitModeWait))
	if err != nil {
		return fmt.Errorf("add booking completion sweep job: %w", err)
	}

	jobLogger.Info().Msg("Booking completion sweep registered")
	return nil
}
