package directory

import (
	"github.com/30blay/biz-stats/internal/platform/config"
)

// FromConfig reads CORE_DIRECTORY_* env vars
func FromConfig() Options {
	c := config.New().Prefix("CORE_DIRECTORY_")
	return Options{
		BaseURL:    c.MayString("BASE_URL", ""),
		Token:      c.MayString("TOKEN", ""),
		UserAgent:  c.MayString("USER_AGENT", defaultUA),
		Timeout:    c.MayDuration("TIMEOUT", defaultTimeout),
		MaxRetries: c.MayInt("MAX_RETRIES", defaultMaxRetry),
		RetryBase:  c.MayDuration("RETRY_BASE", defaultRetryBase),
		RatePerSec: c.MayFloat64("RATE_PER_SEC", defaultRPS),
		Burst:      c.MayInt("BURST", defaultBurst),
	}
}

// Open picks the directory source: a static file when CORE_DIRECTORY_FILE is set, the API otherwise
func Open() (*Snapshot, error) {
	if path := config.New().Prefix("CORE_DIRECTORY_").MayString("FILE", ""); path != "" {
		st, err := LoadStatic(path)
		if err != nil {
			return nil, err
		}
		return NewSnapshot(st), nil
	}
	cl, err := NewClient(FromConfig())
	if err != nil {
		return nil, err
	}
	return NewSnapshot(cl), nil
}
