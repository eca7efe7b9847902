package runner

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type arrivalController interface {
	Wait(ctx context.Context) error
}

// newArrivalController returns nil when no QPS cap is configured.
func newArrivalController(opt Options) arrivalController {
	if opt.QPS <= 0 {
		return nil
	}

	switch opt.ArrivalModel {
	case ArrivalModelUniform:
		return &uniformArrival{limiter: opt.LimiterFactory(opt.QPS)}
	case ArrivalModelPoisson:
		var sampler func() float64
		if opt.PoissonSampler != nil {
			sampler = opt.PoissonSampler
		} else {
			seeded := rand.New(rand.NewSource(opt.RandomSeed))
			sampler = seeded.ExpFloat64
		}
		// Each worker contributes qps/connections to the aggregate rate.
		return &poissonArrival{rate: opt.QPS / float64(opt.Connections), sample: sampler}
	default:
		return &fixedArrival{interval: opt.expectedInterval()}
	}
}

// fixedArrival sleeps the same interval before every request of a worker.
type fixedArrival struct {
	interval time.Duration
}

func (f *fixedArrival) Wait(ctx context.Context) error {
	return sleep(ctx, f.interval)
}

// uniformArrival delegates pacing to a shared rate.Limiter (uniform spacing).
type uniformArrival struct {
	limiter *rate.Limiter
}

func (u *uniformArrival) Wait(ctx context.Context) error {
	if u == nil || u.limiter == nil {
		return nil
	}
	return u.limiter.Wait(ctx)
}

// poissonArrival samples exponential inter-arrival times to approximate a Poisson process.
type poissonArrival struct {
	mu     sync.Mutex
	rate   float64
	sample func() float64
}

func (p *poissonArrival) Wait(ctx context.Context) error {
	return sleep(ctx, p.nextDelay())
}

func (p *poissonArrival) nextDelay() time.Duration {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rate <= 0 || p.sample == nil {
		return 0
	}

	value := p.sample()
	delay := float64(time.Second) * value / p.rate
	if delay > math.MaxInt64 {
		delay = math.MaxInt64
	}
	return time.Duration(delay)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
