package health

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/offolaunch/launchtrack/internal/municipal"
	"github.com/offolaunch/launchtrack/internal/realtime"
	"github.com/offolaunch/launchtrack/internal/scheduler"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
)

type RealtimeStats interface {
	Stats() realtime.Stats
}

type SchedulerStatus interface {
	Status() scheduler.Status
}

// RateLimits reports the outbound limiters guarding government APIs.
type RateLimits interface {
	Limits() []municipal.LimiterState
}

type Uptime struct {
	Seconds   int64  `json:"seconds"`
	Formatted string `json:"formatted"`
}

type Memory struct {
	Used       string `json:"used"`
	Total      string `json:"total"`
	Percentage int    `json:"percentage"`
}

type Platform struct {
	Type       string `json:"type"`
	Arch       string `json:"arch"`
	CPUs       int    `json:"cpus"`
	GoVersion  string `json:"goVersion"`
	Goroutines int    `json:"goroutines"`
}

type SystemReport struct {
	Status   string   `json:"status"`
	Uptime   Uptime   `json:"uptime"`
	Memory   Memory   `json:"memory"`
	Platform Platform `json:"platform"`
}

type DatabaseReport struct {
	Status          string `json:"status"`
	Error           string `json:"error,omitempty"`
	LatencyMs       int64  `json:"latencyMs"`
	OpenConnections int    `json:"openConnections"`
	InUse           int    `json:"inUse"`
	Idle            int    `json:"idle"`
	WaitCount       int64  `json:"waitCount"`
}

type Report struct {
	Timestamp  time.Time                `json:"timestamp"`
	Version    string                   `json:"version"`
	System     SystemReport             `json:"system"`
	Database   DatabaseReport           `json:"database"`
	Realtime   *realtime.Stats          `json:"realtime,omitempty"`
	Scheduler  *scheduler.Status        `json:"scheduler,omitempty"`
	RateLimits []municipal.LimiterState `json:"rateLimits,omitempty"`
	Errors     ErrorRateReport          `json:"errors"`
	Overall    string                   `json:"overall"`
}

type ReporterOptions struct {
	DB        *sql.DB
	Realtime  RealtimeStats
	Scheduler SchedulerStatus
	Limits    RateLimits
	Errors    *ErrorRate
	Version   string
	// PingTimeout bounds the database probe; defaults to 5s.
	PingTimeout time.Duration
	Now         func() time.Time
}

// Reporter assembles the detailed health report.
type Reporter struct {
	opts    ReporterOptions
	started time.Time
}

func NewReporter(opts ReporterOptions) *Reporter {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = 5 * time.Second
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	return &Reporter{opts: opts, started: opts.Now()}
}

func (r *Reporter) Uptime() time.Duration {
	return r.opts.Now().Sub(r.started)
}

func (r *Reporter) System() SystemReport {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	pct := 0
	if mem.HeapSys > 0 {
		pct = int(float64(mem.HeapAlloc) / float64(mem.HeapSys) * 100)
	}

	up := r.Uptime()
	return SystemReport{
		Status: StatusHealthy,
		Uptime: Uptime{Seconds: int64(up.Seconds()), Formatted: FormatUptime(up)},
		Memory: Memory{
			Used:       fmt.Sprintf("%dMB", mem.HeapAlloc/1024/1024),
			Total:      fmt.Sprintf("%dMB", mem.HeapSys/1024/1024),
			Percentage: pct,
		},
		Platform: Platform{
			Type:       runtime.GOOS,
			Arch:       runtime.GOARCH,
			CPUs:       runtime.NumCPU(),
			GoVersion:  runtime.Version(),
			Goroutines: runtime.NumGoroutine(),
		},
	}
}

// Database pings the pool and reports its stats.
func (r *Reporter) Database(ctx context.Context) DatabaseReport {
	if r.opts.DB == nil {
		return DatabaseReport{Status: StatusUnhealthy, Error: "database not configured"}
	}

	start := time.Now()
	err := CheckDatabase(ctx, r.opts.DB, r.opts.PingTimeout)
	stats := r.opts.DB.Stats()

	report := DatabaseReport{
		Status:          StatusHealthy,
		LatencyMs:       time.Since(start).Milliseconds(),
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		WaitCount:       stats.WaitCount,
	}
	if err != nil {
		report.Status = StatusUnhealthy
		report.Error = err.Error()
	}
	return report
}

func (r *Reporter) Full(ctx context.Context) Report {
	report := Report{
		Timestamp: r.opts.Now().UTC(),
		Version:   r.opts.Version,
		System:    r.System(),
		Database:  r.Database(ctx),
		Overall:   StatusHealthy,
	}
	if r.opts.Realtime != nil {
		stats := r.opts.Realtime.Stats()
		report.Realtime = &stats
	}
	if r.opts.Scheduler != nil {
		status := r.opts.Scheduler.Status()
		report.Scheduler = &status
	}
	if r.opts.Limits != nil {
		report.RateLimits = r.opts.Limits.Limits()
	}
	if r.opts.Errors != nil {
		report.Errors = r.opts.Errors.Report(time.Minute)
	} else {
		report.Errors = ErrorRateReport{Recent: []RecordedError{}}
	}

	if report.Database.Status != StatusHealthy || report.System.Status != StatusHealthy {
		report.Overall = StatusDegraded
	}
	return report
}

// CheckDatabase pings db within timeout.
func CheckDatabase(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

func FormatUptime(d time.Duration) string {
	secs := int64(d.Seconds())
	days := secs / 86400
	hours := (secs % 86400) / 3600
	minutes := (secs % 3600) / 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if len(parts) == 0 {
		return "0m"
	}
	return strings.Join(parts, " ")
}
