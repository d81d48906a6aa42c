package ordering

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"fz-restaurant/internal/repository"
)

const orderNumberPrefix = "FZ"

func dayPrefix(t time.Time, loc *time.Location) string {
	return fmt.Sprintf("%s-%s-", orderNumberPrefix, t.In(loc).Format("20060102"))
}

// nextOrderNumber returns FZ-YYYYMMDD-NNN where NNN is one past the day's
// order count, shifted by the retry attempt. The last attempt switches to a
// millisecond timestamp plus a random tag so a create can always make
// progress, even when several creates fall back within the same millisecond.
func (s *Service) nextOrderNumber(ctx context.Context, tx *repository.Store, now time.Time, attempt int) (string, error) {
	prefix := dayPrefix(now, s.cfg.Location)
	if attempt > 0 && attempt == s.cfg.NumberAttempts-1 {
		return fmt.Sprintf("%s%d-%s", prefix, now.UnixMilli(), fallbackTag()), nil
	}

	count, err := tx.CountOrdersWithPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%03d", prefix, count+1+int64(attempt)), nil
}

// fallbackTag is the first eight hex digits of a random uuid.
func fallbackTag() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
