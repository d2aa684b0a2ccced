package config

import "time"

// Settings содержит общие параметры клиппинга. Значения по умолчанию
// подобраны эмпирически под сайты из встроенного каталога.
type Settings struct {
	MaxRetries              int
	InitialBackoff          time.Duration
	MaxBackoff              time.Duration
	BackoffFactor           float64
	DelayMin                time.Duration
	DelayMax                time.Duration
	ScrollPause             time.Duration
	ScrollIncrement         int
	FastScroll              bool
	LoadMoreMaxAttempts     int
	SlowStart               bool
	AccelerationThreshold   int
	RateLimitDetection      bool
	RateLimitThreshold      int
	RateLimitMainOnly       bool
	ForceRateLimitChecks    bool
	MaxRecoveryAttempts     int
	ConnectionCheckInterval int
	RapidMinDelay           time.Duration
	RapidMaxDelay           time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		MaxRetries:              5,
		InitialBackoff:          time.Second,
		MaxBackoff:              30 * time.Second,
		BackoffFactor:           1.5,
		DelayMin:                500 * time.Millisecond,
		DelayMax:                1500 * time.Millisecond,
		ScrollPause:             800 * time.Millisecond,
		ScrollIncrement:         500,
		FastScroll:              true,
		LoadMoreMaxAttempts:     10,
		SlowStart:               true,
		AccelerationThreshold:   3,
		RateLimitDetection:      true,
		RateLimitThreshold:      3,
		RateLimitMainOnly:       true,
		MaxRecoveryAttempts:     3,
		ConnectionCheckInterval: 5,
		RapidMinDelay:           50 * time.Millisecond,
		RapidMaxDelay:           200 * time.Millisecond,
	}
}

// SettingsFromEnv накладывает переменные окружения CLIP_* поверх base.
func SettingsFromEnv(base Settings) Settings {
	s := base
	s.MaxRetries = envInt("CLIP_MAX_RETRIES", s.MaxRetries)
	s.InitialBackoff = envDuration("CLIP_INITIAL_BACKOFF", s.InitialBackoff)
	s.MaxBackoff = envDuration("CLIP_MAX_BACKOFF", s.MaxBackoff)
	s.BackoffFactor = envFloat("CLIP_BACKOFF_FACTOR", s.BackoffFactor)
	s.DelayMin = envDuration("CLIP_DELAY_MIN", s.DelayMin)
	s.DelayMax = envDuration("CLIP_DELAY_MAX", s.DelayMax)
	s.ScrollPause = envDuration("CLIP_SCROLL_PAUSE", s.ScrollPause)
	s.ScrollIncrement = envInt("CLIP_SCROLL_INCREMENT", s.ScrollIncrement)
	s.FastScroll = envBoolDefault("CLIP_FAST_SCROLL", s.FastScroll)
	s.LoadMoreMaxAttempts = envInt("CLIP_LOAD_MORE_MAX_ATTEMPTS", s.LoadMoreMaxAttempts)
	s.SlowStart = envBoolDefault("CLIP_SLOW_START", s.SlowStart)
	s.AccelerationThreshold = envInt("CLIP_ACCELERATION_THRESHOLD", s.AccelerationThreshold)
	s.RateLimitDetection = envBoolDefault("CLIP_RATE_LIMIT_DETECTION", s.RateLimitDetection)
	s.RateLimitThreshold = envInt("CLIP_RATE_LIMIT_THRESHOLD", s.RateLimitThreshold)
	s.RateLimitMainOnly = envBoolDefault("CLIP_RATE_LIMIT_MAIN_ONLY", s.RateLimitMainOnly)
	s.ForceRateLimitChecks = envBoolDefault("CLIP_FORCE_RATE_LIMIT_CHECKS", s.ForceRateLimitChecks)
	s.MaxRecoveryAttempts = envInt("CLIP_MAX_RECOVERY_ATTEMPTS", s.MaxRecoveryAttempts)
	s.ConnectionCheckInterval = envInt("CLIP_CONNECTION_CHECK_INTERVAL", s.ConnectionCheckInterval)
	s.RapidMinDelay = envDuration("CLIP_RAPID_MIN_DELAY", s.RapidMinDelay)
	s.RapidMaxDelay = envDuration("CLIP_RAPID_MAX_DELAY", s.RapidMaxDelay)

	if s.MaxRetries < 1 {
		s.MaxRetries = 1
	}
	if s.ScrollIncrement <= 0 {
		s.ScrollIncrement = base.ScrollIncrement
	}
	if s.ConnectionCheckInterval <= 0 {
		s.ConnectionCheckInterval = base.ConnectionCheckInterval
	}
	if s.BackoffFactor < 1 {
		s.BackoffFactor = 1
	}
	if s.DelayMax < s.DelayMin {
		s.DelayMax = s.DelayMin
	}
	return s
}
