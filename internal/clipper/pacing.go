package clipper

import (
	"fmt"
	"time"

	"couponClipper/internal/config"
)

const (
	minCustomDelay = 100 * time.Millisecond
	slowStartScale = 1.5
	afterHitScale  = 1.2
)

// Presets задает диапазоны задержек; medium берется из настроек.
var Presets = map[Speed][2]time.Duration{
	SpeedSlow: {1500 * time.Millisecond, 3 * time.Second},
	SpeedFast: {100 * time.Millisecond, 500 * time.Millisecond},
}

// pacing - диапазон задержки между кликами для текущего прохода.
type pacing struct {
	min   time.Duration
	max   time.Duration
	rapid bool
}

func (p pacing) String() string {
	return fmt.Sprintf("%s-%s", p.min, p.max)
}

// resolvePacing выбирает диапазон. Custom и rapid важнее переопределений
// сайта, переопределения сайта важнее пресета.
func resolvePacing(choice SpeedChoice, site config.Site, s config.Settings) pacing {
	switch choice.Speed {
	case SpeedRapid:
		if site.SiteSettings.RapidModeCompatible {
			return pacing{min: s.RapidMinDelay, max: s.RapidMaxDelay, rapid: true}
		}
	case SpeedCustom:
		lo := choice.Min
		if lo < minCustomDelay {
			lo = minCustomDelay
		}
		hi := choice.Max
		if hi < lo {
			hi = lo
		}
		return pacing{min: lo, max: hi}
	}

	p := pacing{min: s.DelayMin, max: s.DelayMax}
	if preset, ok := Presets[choice.Speed]; ok {
		p.min, p.max = preset[0], preset[1]
	}

	if v, ok := site.SiteSettings.MinDelay(); ok {
		p.min = v
	}
	if v, ok := site.SiteSettings.MaxDelay(); ok {
		p.max = v
	}
	if p.max < p.min {
		p.max = p.min
	}
	return p
}

// delay - случайная задержка с учетом медленного старта и прошлых срабатываний.
func (p pacing) delay(r *rateLimiter, s config.Settings, rnd func() float64) time.Duration {
	lo, hi := p.min, p.max

	if s.SlowStart && !p.rapid {
		switch {
		case r.consecutiveSuccess < s.AccelerationThreshold:
			lo, hi = scale(lo, slowStartScale), scale(hi, slowStartScale)
		case r.hit:
			lo, hi = scale(lo, afterHitScale), scale(hi, afterHitScale)
		}
	}

	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rnd()*float64(hi-lo))
}

func scale(d time.Duration, k float64) time.Duration {
	return time.Duration(float64(d) * k)
}
