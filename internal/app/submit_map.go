package app

import (
	"strings"

	"routined/internal/config"
	"routined/internal/submit"
)

func mapSubmitConfig(cfg *Config) (submit.Config, error) {
	out := submit.Config{Log: cfg.Submit.Log}
	if h := cfg.Submit.HTTP; h != nil {
		timeout, err := config.ParseDurationField("submit.http.timeout", h.Timeout)
		if err != nil {
			return submit.Config{}, err
		}
		out.HTTP = submit.HTTPConfig{
			URL:     strings.TrimSpace(h.URL),
			Timeout: timeout,
			Headers: h.Headers,
		}
	}
	if r := cfg.Submit.Redis; r != nil {
		out.Redis = submit.RedisConfig{
			Addr:     strings.TrimSpace(r.Addr),
			Password: r.Password,
			DB:       r.DB,
			Key:      strings.TrimSpace(r.Key),
		}
	}
	return out, nil
}
