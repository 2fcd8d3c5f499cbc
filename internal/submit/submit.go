// Package submit provides routine.Submitter adapters: a dry-run logger, an
// HTTP endpoint, a Redis list queue, and a fan-out over several of them.
package submit

import (
	"context"
	"errors"
	"strings"
	"time"

	"routined/internal/routine"
	logx "routined/pkg/logx"
)

type Config struct {
	Log   bool
	HTTP  HTTPConfig
	Redis RedisConfig
}

type HTTPConfig struct {
	URL     string
	Timeout time.Duration
	Headers map[string]string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string // list key; default "routined:submissions"
}

// Batch is the wire form of one submission.
type Batch struct {
	BatchID     string         `json:"batch_id"`
	SubmittedAt time.Time      `json:"submitted_at"`
	Tasks       []routine.Task `json:"tasks"`
}

// New builds the configured submitters. With nothing configured it falls
// back to Log. The returned close func releases connections.
func New(cfg Config, log logx.Logger) (routine.Submitter, func() error, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	var (
		subs   []routine.Submitter
		closer []func() error
	)
	if cfg.Log {
		subs = append(subs, NewLog(log))
	}
	if strings.TrimSpace(cfg.HTTP.URL) != "" {
		h, err := NewHTTP(cfg.HTTP, log)
		if err != nil {
			return nil, nil, err
		}
		subs = append(subs, h)
	}
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		r, err := OpenRedis(context.Background(), cfg.Redis, log)
		if err != nil {
			return nil, nil, err
		}
		subs = append(subs, r)
		closer = append(closer, r.Close)
	}
	if len(subs) == 0 {
		subs = append(subs, NewLog(log))
	}

	closeAll := func() error {
		var errs []error
		for _, c := range closer {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}
	if len(subs) == 1 {
		return subs[0], closeAll, nil
	}
	return Multi(subs), closeAll, nil
}
