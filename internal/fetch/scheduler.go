package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const userAgent = "glbtiles/1.0"

// Options configures a download run.
type Options struct {
	// Concurrency is the strict upper bound on in-flight requests.
	Concurrency int
	// Force overwrites existing tile files instead of skipping them.
	Force bool
	// Rate caps requests per second across all workers. 0 disables the cap.
	Rate float64
	// Policy bounds retries per job. Zero value means DefaultPolicy.
	Policy Policy
	// Client is the shared HTTP client. Nil means NewClient().
	Client *http.Client
	// OnDone is called once per job as it reaches a terminal state.
	OnDone func(Job, Outcome)
}

// NewClient returns an HTTP client tuned for bulk tile fetching.
func NewClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			TLSNextProto:        make(map[string]func(string, *tls.Conn) http.RoundTripper),
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
		Timeout: 30 * time.Second,
	}
}

// Run executes the jobs on a fixed pool of workers and returns the aggregate
// summary once every started job has reached a terminal state. Jobs are
// independent: one job's failure never aborts another. Cancelling the context
// stops feeding new jobs and lets in-flight ones finish or abort cleanly.
func Run(ctx context.Context, jobs []Job, opts Options) *Summary {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 100
	}
	if opts.Policy.Attempts <= 0 {
		opts.Policy = DefaultPolicy()
	}
	if opts.Client == nil {
		opts.Client = NewClient()
	}

	var limiter *rate.Limiter
	if opts.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), opts.Concurrency)
	}

	queue := make(chan Job)
	go func() {
		defer close(queue)
		for _, j := range jobs {
			select {
			case queue <- j:
			case <-ctx.Done():
				return
			}
		}
	}()

	summary := &Summary{}

	var wg sync.WaitGroup
	for range opts.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range queue {
				outcome, err := runJob(ctx, j, opts, limiter)
				summary.record(j, outcome, err)

				if outcome == Failed {
					log.Debug().
						Err(err).
						Int("zoom", j.Tile.Z).
						Int("x", j.Tile.X).
						Int("y", j.Tile.Y).
						Msg("Tile failed")
				}
				if opts.OnDone != nil {
					opts.OnDone(j, outcome)
				}
			}
		}()
	}
	wg.Wait()

	return summary
}

// runJob drives one job to a terminal state, retrying transient failures
// within the policy budget.
func runJob(ctx context.Context, j Job, opts Options, limiter *rate.Limiter) (Outcome, error) {
	if !opts.Force {
		if info, err := os.Stat(j.Path); err == nil && info.Size() > 0 {
			return Skipped, nil
		}
	}

	var lastErr error
	for attempt := 1; attempt <= opts.Policy.Attempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, opts.Policy.Delay(attempt-1)); err != nil {
				return Failed, err
			}
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return Failed, err
			}
		}

		err := fetchOnce(ctx, opts.Client, j)
		if err == nil {
			return Succeeded, nil
		}
		lastErr = err

		if !Retryable(err) {
			break
		}
		log.Debug().
			Err(err).
			Int("attempt", attempt).
			Str("url", j.URL).
			Msg("Retrying tile")
	}

	return Failed, lastErr
}

// fetchOnce performs a single request and, on success, writes the body to the
// destination with a temp-file-plus-rename so a crash never leaves a truncated
// tile at the final path.
func fetchOnce(ctx context.Context, client *http.Client, j Job) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.URL, nil)
	if err != nil {
		return &NetError{Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return &NetError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetError{Err: err}
	}
	if len(body) == 0 {
		return ErrEmptyBody
	}

	return writeAtomic(j.Path, body)
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &IOError{Err: fmt.Errorf("create dir: %w", err)}
	}

	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return &IOError{Err: fmt.Errorf("write temp: %w", err)}
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return &IOError{Err: fmt.Errorf("rename: %w", err)}
	}

	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
