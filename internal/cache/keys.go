package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func JobStatusKey(jobID uuid.UUID) string {
	return fmt.Sprintf("giftjob:%s", jobID)
}

func RateLimitKey(bucket string) string {
	return fmt.Sprintf("ratelimit:%s", bucket)
}
