package timer

import (
	"time"

	"github.com/rs/zerolog/log"
)

// TimeTrack logs the time passed since start, use it deferred.
func TimeTrack(start time.Time, name string) time.Duration {
	elapsed := time.Since(start)
	log.Info().Str("task", name).Dur("took", elapsed).Msgf("%s took %s", name, elapsed.Round(time.Millisecond))

	return elapsed
}
