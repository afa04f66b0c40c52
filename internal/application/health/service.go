package health

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	"vectorium-backend/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// DBPinger is optional for health check. If nil, database is reported as disconnected.
type DBPinger interface {
	Ping() error
}

// Result is the body of /health/json and the data behind the dashboard.
type Result struct {
	Status       string               `json:"status"`
	Runtime      RuntimeInfo          `json:"runtime"`
	Traffic      TrafficInfo          `json:"traffic"`
	Dependencies map[string]DepStatus `json:"dependencies"`
}

type RuntimeInfo struct {
	UptimeSeconds int64  `json:"uptimeSeconds"`
	HeapMB        int    `json:"heapMb"`
	Goroutines    int    `json:"goroutines"`
	Platform      string `json:"platform"`
	GoVersion     string `json:"goVersion"`
	ActiveDesks   int    `json:"activeDesks"`
}

type TrafficInfo struct {
	TotalRequests   int                    `json:"totalRequests"`
	SuccessCount    int                    `json:"successCount"`
	FailedCount     int                    `json:"failedCount"`
	SuccessRate     string                 `json:"successRate"`
	AvgResponseTime string                 `json:"avgResponseTime"`
	LastRequest     map[string]interface{} `json:"lastRequest"`
}

type DepStatus struct {
	Status string `json:"status"`
	PingMs *int64 `json:"pingMs"`
}

// Collector gathers health data from Redis, the database and external HTTP probes.
type Collector struct {
	Redis  *redis.Client
	DB     DBPinger
	Probes map[string]string // dependency name to URL
	Client *http.Client
	Desks  func() int // optional
}

// Collect runs every check. Status is "ok" only when the database and Redis answer.
func (c *Collector) Collect(ctx context.Context) Result {
	result := Result{Dependencies: make(map[string]DepStatus)}

	dbStatus := DepStatus{Status: "disconnected"}
	if c.DB != nil {
		start := time.Now()
		if err := c.DB.Ping(); err == nil {
			dbStatus = DepStatus{Status: "connected", PingMs: since(start)}
		} else {
			dbStatus.Status = "error"
		}
	}
	result.Dependencies["database"] = dbStatus

	redisStatus := DepStatus{Status: "disconnected"}
	stats := TrafficInfo{AvgResponseTime: "0", SuccessRate: "100"}
	startTimeMs := time.Now().UnixMilli()
	if c.Redis != nil {
		start := time.Now()
		if err := c.Redis.Ping(ctx).Err(); err == nil {
			redisStatus = DepStatus{Status: "connected", PingMs: since(start)}
			startTimeMs = c.traffic(ctx, &stats, startTimeMs)
		} else {
			redisStatus.Status = "error"
		}
	}
	result.Dependencies["redis"] = redisStatus
	result.Traffic = stats

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptime := (time.Now().UnixMilli() - startTimeMs) / 1000
	if uptime < 0 {
		uptime = 0
	}
	result.Runtime = RuntimeInfo{
		UptimeSeconds: uptime,
		HeapMB:        int(m.HeapInuse / 1024 / 1024),
		Goroutines:    runtime.NumGoroutine(),
		Platform:      runtime.GOOS + " (" + runtime.GOARCH + ")",
		GoVersion:     runtime.Version(),
	}
	if c.Desks != nil {
		result.Runtime.ActiveDesks = c.Desks()
	}

	for name, st := range c.probe(ctx) {
		result.Dependencies[name] = st
	}

	if dbStatus.Status == "connected" && redisStatus.Status == "connected" {
		result.Status = "ok"
	} else {
		result.Status = "issue"
	}
	return result
}

// DependencyNames lists dependencies in display order: database, redis, then probes by name.
func (r Result) DependencyNames() []string {
	names := make([]string, 0, len(r.Dependencies))
	for n := range r.Dependencies {
		if n != "database" && n != "redis" {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return append([]string{"database", "redis"}, names...)
}

func (c *Collector) traffic(ctx context.Context, stats *TrafficInfo, startTimeMs int64) int64 {
	vals, err := c.Redis.MGet(ctx,
		middleware.KeyReqTotal, middleware.KeyReqErrors, middleware.KeyResTime,
		middleware.KeyResCount, middleware.KeyStartTime, middleware.KeyLastReq,
	).Result()
	if err != nil || len(vals) != 6 {
		return startTimeMs
	}
	str := func(i int) string {
		s, _ := vals[i].(string)
		return s
	}

	if s := str(4); s != "" {
		if t, err := strconv.ParseInt(s, 10, 64); err == nil {
			startTimeMs = t
		}
	} else {
		c.Redis.SetNX(ctx, middleware.KeyStartTime, startTimeMs, 0)
	}

	stats.TotalRequests, _ = strconv.Atoi(str(0))
	stats.FailedCount, _ = strconv.Atoi(str(1))
	stats.SuccessCount = stats.TotalRequests - stats.FailedCount
	if stats.TotalRequests > 0 {
		stats.SuccessRate = strconv.FormatFloat(float64(stats.SuccessCount)/float64(stats.TotalRequests)*100, 'f', 1, 64)
	}
	timeSum, _ := strconv.ParseFloat(str(2), 64)
	count, _ := strconv.Atoi(str(3))
	if count > 0 {
		stats.AvgResponseTime = strconv.FormatFloat(timeSum/float64(count), 'f', 2, 64)
	}
	if s := str(5); s != "" {
		var last map[string]interface{}
		if json.Unmarshal([]byte(s), &last) == nil {
			stats.LastRequest = last
		}
	}
	return startTimeMs
}

// probe pings every configured URL concurrently.
func (c *Collector) probe(ctx context.Context) map[string]DepStatus {
	out := make(map[string]DepStatus, len(c.Probes))
	if len(c.Probes) == 0 {
		return out
	}
	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Second}
	}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, url := range c.Probes {
		wg.Add(1)
		go func(name, url string) {
			defer wg.Done()
			st := DepStatus{Status: "unreachable"}
			if ms := httpPing(ctx, client, url); ms != nil {
				st = DepStatus{Status: "reachable", PingMs: ms}
			}
			mu.Lock()
			out[name] = st
			mu.Unlock()
		}(name, url)
	}
	wg.Wait()
	return out
}

func httpPing(ctx context.Context, client *http.Client, url string) *int64 {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	return since(start)
}

func since(start time.Time) *int64 {
	ms := time.Since(start).Milliseconds()
	return &ms
}
