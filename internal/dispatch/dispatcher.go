package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Outcome is the result of one call attempt.
type Outcome struct {
	PhoneNumber string
	Success     bool
	CallID      string
	Err         error

	// Skipped is set when cancellation stopped the number before it was attempted.
	Skipped bool
}

// AttemptFunc places one call. It must not panic and must report failures
// through Outcome rather than aborting.
type AttemptFunc func(ctx context.Context, phoneNumber string) Outcome

// Tally aggregates a dispatch. Outcomes is in input order and
// Success+Failure always equals the number of inputs.
type Tally struct {
	Success   int
	Failure   int
	Waves     int
	WaveSizes []int
	Outcomes  []Outcome
}

func (t *Tally) add(o Outcome) {
	if o.Success {
		t.Success++
	} else {
		t.Failure++
	}
}

// Policy decides how attempts are scheduled under a concurrency limit.
type Policy interface {
	Run(ctx context.Context, numbers []string, limit int, attempt AttemptFunc) Tally
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// WavePolicy splits numbers into ordered waves of at most limit, runs each
// wave fully concurrently, waits for all of it, then sleeps Cooldown before
// the next wave. There is no sleep after the last wave.
type WavePolicy struct {
	Cooldown time.Duration
	Sleep    SleepFunc
}

func (p WavePolicy) Run(ctx context.Context, numbers []string, limit int, attempt AttemptFunc) Tally {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	waves := chunk(numbers, limit)
	t := Tally{Outcomes: make([]Outcome, len(numbers))}

	offset := 0
	for i, wave := range waves {
		if err := ctx.Err(); err != nil {
			cancelRemaining(&t, numbers, offset, err)
			return t
		}

		var g errgroup.Group
		for j, number := range wave {
			idx, number := offset+j, number
			g.Go(func() error {
				t.Outcomes[idx] = attempt(ctx, number)
				return nil
			})
		}
		_ = g.Wait()

		for j := range wave {
			t.add(t.Outcomes[offset+j])
		}
		t.Waves++
		t.WaveSizes = append(t.WaveSizes, len(wave))
		offset += len(wave)

		if i < len(waves)-1 {
			if err := sleep(ctx, p.Cooldown); err != nil {
				cancelRemaining(&t, numbers, offset, err)
				return t
			}
		}
	}
	return t
}

// PoolPolicy keeps up to limit attempts in flight and starts the next one as
// soon as a slot frees. Cooldown, when set, is held on the slot after each
// attempt to throttle the provider.
type PoolPolicy struct {
	Cooldown time.Duration
	Sleep    SleepFunc
}

func (p PoolPolicy) Run(ctx context.Context, numbers []string, limit int, attempt AttemptFunc) Tally {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	t := Tally{Outcomes: make([]Outcome, len(numbers))}
	sem := semaphore.NewWeighted(int64(limit))

	var wg sync.WaitGroup
	started := len(numbers)
	for i, number := range numbers {
		if err := sem.Acquire(ctx, 1); err != nil {
			started = i
			break
		}
		wg.Add(1)
		go func(idx int, number string) {
			defer wg.Done()
			defer sem.Release(1)
			t.Outcomes[idx] = attempt(ctx, number)
			if p.Cooldown > 0 {
				_ = sleep(ctx, p.Cooldown)
			}
		}(i, number)
	}
	wg.Wait()

	for i := 0; i < started; i++ {
		t.add(t.Outcomes[i])
	}
	if started < len(numbers) {
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		cancelRemaining(&t, numbers, started, err)
	}
	// Pool dispatch has no barriers; report the equivalent limit-sized batches.
	t.Waves = ceilDiv(len(numbers), limit)
	return t
}

// Dispatcher fans call attempts out under a Policy.
type Dispatcher struct {
	policy Policy
}

func NewDispatcher(policy Policy) *Dispatcher {
	if policy == nil {
		policy = WavePolicy{Cooldown: 3 * time.Second}
	}
	return &Dispatcher{policy: policy}
}

var ErrInvalidLimit = errors.New("concurrent limit must be >= 1")

// Run attempts every number once. Individual failures never stop other attempts;
// cancellation stops scheduling and counts unstarted numbers as failures.
func (d *Dispatcher) Run(ctx context.Context, numbers []string, limit int, attempt AttemptFunc) (Tally, error) {
	if limit < 1 {
		return Tally{}, ErrInvalidLimit
	}
	if len(numbers) == 0 {
		return Tally{Outcomes: []Outcome{}}, nil
	}
	return d.policy.Run(ctx, numbers, limit, attempt), nil
}

func cancelRemaining(t *Tally, numbers []string, from int, err error) {
	for i := from; i < len(numbers); i++ {
		t.Outcomes[i] = Outcome{PhoneNumber: numbers[i], Err: err, Skipped: true}
		t.Failure++
	}
}

func chunk(numbers []string, size int) [][]string {
	out := make([][]string, 0, ceilDiv(len(numbers), size))
	for i := 0; i < len(numbers); i += size {
		end := i + size
		if end > len(numbers) {
			end = len(numbers)
		}
		out = append(out, numbers[i:end])
	}
	return out
}

func ceilDiv(n, d int) int {
	if d <= 0 {
		return 0
	}
	return (n + d - 1) / d
}
