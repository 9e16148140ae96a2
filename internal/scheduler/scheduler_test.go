package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart_InvalidScheduleErrors(t *testing.T) {
	s := New(nil, "not a schedule")
	err := s.Start()
	require.Error(t, err)
}

func TestStart_AcceptsDescriptorSchedules(t *testing.T) {
	for _, schedule := range []string{"@every 1m", "@hourly", "*/5 * * * *"} {
		s := New(nil, schedule)
		err := s.Start()
		assert.NoError(t, err, schedule)
		s.Stop()
	}
}
