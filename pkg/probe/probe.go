package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// CheckFunc performs one health check, nil meaning healthy.
type CheckFunc func(ctx context.Context) error

// Probe is a single startup check. Critical failures abort startup;
// non-critical ones only log, the feature they guard degrades.
type Probe struct {
	Name     string
	Check    CheckFunc
	Critical bool
}

// Result is the outcome of one probe.
type Result struct {
	Probe    Probe
	Error    error
	Duration time.Duration
}

// Run executes the probes in order, capping each at 5 seconds so a hung
// dependency cannot stall startup.
func Run(ctx context.Context, probes []Probe) []Result {
	results := make([]Result, len(probes))
	for i, p := range probes {
		start := time.Now()
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := p.Check(checkCtx)
		cancel()
		results[i] = Result{Probe: p, Error: err, Duration: time.Since(start)}
	}
	return results
}

// AnalyzeResults logs every result and returns the joined critical
// failures, nil when none.
func AnalyzeResults(results []Result) error {
	var criticalErrors []error

	slog.Info("Startup Checks Summary")
	for _, r := range results {
		status := "PASS"
		if r.Error != nil {
			status = "FAIL"
		}
		msg := fmt.Sprintf("[%s] %-20s (%v)", status, r.Probe.Name, r.Duration.Round(time.Millisecond))
		if r.Error != nil {
			slog.Error(msg, "error", r.Error)
			if r.Probe.Critical {
				criticalErrors = append(criticalErrors, fmt.Errorf("%s: %w", r.Probe.Name, r.Error))
			}
		} else {
			slog.Info(msg)
		}
	}

	if len(criticalErrors) > 0 {
		return errors.Join(criticalErrors...)
	}
	return nil
}
