package timer_test

import (
	"testing"
	"time"

	"github.com/konstantinfoerster/doc-analyzer-go/internal/timer"
	"github.com/stretchr/testify/assert"
)

func TestTimeTrack(t *testing.T) {
	start := time.Now().Add(-time.Second)

	elapsed := timer.TimeTrack(start, "analysis")

	assert.GreaterOrEqual(t, elapsed, time.Second)
}
