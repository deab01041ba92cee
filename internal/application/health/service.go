package health

import (
	"context"
	"encoding/json"
	"runtime"
	"strconv"
	"time"

	"commenergy-backend/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// DBPinger is optional for health check. If nil, the database is reported as disabled.
type DBPinger interface {
	Ping() error
}

// RemotePinger checks that the remote Commenergy API answers.
type RemotePinger interface {
	Ping(ctx context.Context) error
}

// Deps are the dependencies whose state the health report covers.
type Deps struct {
	Rdb *redis.Client
	DB  DBPinger
	API RemotePinger
}

// CollectResult is the shape of /health/json and of the dashboard payload.
type CollectResult struct {
	Status       string               `json:"status"`
	Runtime      RuntimeInfo          `json:"runtime"`
	Traffic      TrafficInfo          `json:"traffic"`
	Dependencies map[string]DepStatus `json:"dependencies"`
}

type RuntimeInfo struct {
	UptimeSeconds int64      `json:"uptimeSeconds"`
	Memory        MemoryInfo `json:"memory"`
	Goroutines    int        `json:"goroutines"`
	Platform      string     `json:"platform"`
	GoVersion     string     `json:"goVersion"`
}

type MemoryInfo struct {
	AllocMB  int `json:"allocMb"`
	HeapUsed int `json:"heapUsed"`
}

type TrafficInfo struct {
	TotalRequests   int          `json:"totalRequests"`
	SuccessCount    int          `json:"successCount"`
	FailedCount     int          `json:"failedCount"`
	SuccessRate     string       `json:"successRate"`
	AvgResponseTime string       `json:"avgResponseTime"`
	LastRequest     *LastRequest `json:"lastRequest"`
}

type LastRequest struct {
	Time   time.Time `json:"time"`
	IP     string    `json:"ip"`
	Path   string    `json:"path"`
	Method string    `json:"method"`
}

type DepStatus struct {
	Status string `json:"status"`
	PingMs *int64 `json:"pingMs"`
}

const (
	statusConnected    = "connected"
	statusDisconnected = "disconnected"
	statusDisabled     = "disabled"
	statusError        = "error"
	statusReachable    = "reachable"
	statusUnreachable  = "unreachable"
)

// CollectHealth gathers health data from Redis, the optional database and the remote API.
func CollectHealth(ctx context.Context, deps Deps) CollectResult {
	result := CollectResult{Dependencies: make(map[string]DepStatus)}

	dbStatus := DepStatus{Status: statusDisabled}
	if deps.DB != nil {
		dbStatus = timed(func() error { return deps.DB.Ping() }, statusConnected, statusError)
	}
	result.Dependencies["database"] = dbStatus

	redisStatus := DepStatus{Status: statusDisconnected}
	traffic := TrafficInfo{SuccessRate: "100", AvgResponseTime: "0"}
	startTimeMs := time.Now().UnixMilli()
	if deps.Rdb != nil {
		redisStatus = timed(func() error { return deps.Rdb.Ping(ctx).Err() }, statusConnected, statusError)
		if redisStatus.Status == statusConnected {
			traffic, startTimeMs = readTraffic(ctx, deps.Rdb, startTimeMs)
		}
	}
	result.Dependencies["redis"] = redisStatus

	apiStatus := DepStatus{Status: statusUnreachable}
	if deps.API != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		apiStatus = timed(func() error { return deps.API.Ping(pingCtx) }, statusReachable, statusUnreachable)
		cancel()
	}
	result.Dependencies["commenergyApi"] = apiStatus

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptimeSec := (time.Now().UnixMilli() - startTimeMs) / 1000
	if uptimeSec < 0 {
		uptimeSec = 0
	}
	result.Runtime = RuntimeInfo{
		UptimeSeconds: uptimeSec,
		Memory:        MemoryInfo{AllocMB: int(m.Alloc / 1024 / 1024), HeapUsed: int(m.HeapInuse / 1024 / 1024)},
		Goroutines:    runtime.NumGoroutine(),
		Platform:      runtime.GOOS + " (" + runtime.GOARCH + ")",
		GoVersion:     runtime.Version(),
	}
	result.Traffic = traffic

	result.Status = "issue"
	if redisStatus.Status == statusConnected && apiStatus.Status == statusReachable && dbStatus.Status != statusError {
		result.Status = "ok"
	}
	return result
}

func timed(ping func() error, okStatus, failStatus string) DepStatus {
	start := time.Now()
	if err := ping(); err != nil {
		return DepStatus{Status: failStatus}
	}
	ms := time.Since(start).Milliseconds()
	return DepStatus{Status: okStatus, PingMs: &ms}
}

func readTraffic(ctx context.Context, rdb *redis.Client, startTimeMs int64) (TrafficInfo, int64) {
	stats := TrafficInfo{SuccessRate: "100", AvgResponseTime: "0"}
	vals, err := rdb.MGet(ctx,
		middleware.KeyReqTotal, middleware.KeyReqErrors, middleware.KeyResTime,
		middleware.KeyResCount, middleware.KeyStartTime, middleware.KeyLastReq).Result()
	if err != nil {
		return stats, startTimeMs
	}
	str := func(i int) string {
		s, _ := vals[i].(string)
		return s
	}

	if t, err := strconv.ParseInt(str(4), 10, 64); err == nil {
		startTimeMs = t
	} else {
		rdb.Set(ctx, middleware.KeyStartTime, startTimeMs, 0)
	}

	stats.TotalRequests, _ = strconv.Atoi(str(0))
	stats.FailedCount, _ = strconv.Atoi(str(1))
	stats.SuccessCount = stats.TotalRequests - stats.FailedCount
	if stats.TotalRequests > 0 {
		stats.SuccessRate = strconv.FormatFloat(float64(stats.SuccessCount)/float64(stats.TotalRequests)*100, 'f', 1, 64)
	}
	timeSum, _ := strconv.ParseFloat(str(2), 64)
	countSum, _ := strconv.Atoi(str(3))
	if countSum > 0 {
		stats.AvgResponseTime = strconv.FormatFloat(timeSum/float64(countSum), 'f', 2, 64)
	}
	if last := str(5); last != "" {
		var lr LastRequest
		if json.Unmarshal([]byte(last), &lr) == nil {
			stats.LastRequest = &lr
		}
	}
	return stats, startTimeMs
}
