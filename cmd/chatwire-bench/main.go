// Command chatwire-bench drives a relay with synthetic chat traffic and
// reports delivery latency, throughput, and GC behavior. By default it
// benchmarks an in-process relay; -addr points it at a running one.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"net"
	"os"
	"os/exec"
	"runtime"
	"runtime/debug"
	"runtime/metrics"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chatwire/chatwire/pkg/client"
	"github.com/chatwire/chatwire/pkg/server"
)

const (
	gib = int64(1024 * 1024 * 1024)

	modeBroadcast = "broadcast"
	modeUnicast   = "unicast"

	// drainGrace is how long receivers keep draining after the send
	// window closes, so in-flight fan-out still counts as delivered.
	drainGrace = 2 * time.Second
)

type profile struct {
	Name          string
	Mode          string
	Clients       int
	Duration      time.Duration
	RPS           float64
	PayloadBytes  int
	MaxProcs      int
	MemLimitBytes int64
}

var profiles = map[string]profile{
	"fast": {
		Name:         "fast",
		Mode:         modeUnicast,
		Clients:      20,
		Duration:     10 * time.Second,
		RPS:          5,
		PayloadBytes: 64,
	},
	"standard": {
		Name:         "standard",
		Mode:         modeUnicast,
		Clients:      100,
		Duration:     30 * time.Second,
		RPS:          10,
		PayloadBytes: 64,
	},
	"stress": {
		Name:          "stress",
		Mode:          modeBroadcast,
		Clients:       200,
		Duration:      60 * time.Second,
		RPS:           2,
		PayloadBytes:  128,
		MaxProcs:      4,
		MemLimitBytes: 2 * gib,
	},
}

type benchConfig struct {
	Profile       string
	Mode          string
	Clients       int
	Duration      time.Duration
	RPS           float64
	PayloadBytes  int
	MaxProcs      int
	MemLimitBytes int64
	Addr          string
	JSONOutput    string
}

type benchCounters struct {
	messagesSent atomic.Uint64
	delivered    atomic.Uint64
	destUnknown  atomic.Uint64
}

type benchErrors struct {
	registerFailures atomic.Uint64
	sendFailures     atomic.Uint64
	disconnects      atomic.Uint64
	totalErrors      atomic.Uint64
}

func main() {
	log.SetFlags(0)

	cfg, err := parseConfig()
	if err != nil {
		log.Fatal(err)
	}

	if cfg.MaxProcs > 0 {
		runtime.GOMAXPROCS(cfg.MaxProcs)
	}
	if cfg.MemLimitBytes > 0 {
		debug.SetMemoryLimit(cfg.MemLimitBytes)
	}

	debug.SetGCPercent(100)

	addr := cfg.Addr
	if addr == "" {
		srv := server.New(nil)
		lis, err := net.Listen("tcp4", "127.0.0.1:0")
		if err != nil {
			log.Fatalf("listen: %v", err)
		}
		go func() {
			_ = srv.Serve(lis)
		}()
		defer func() {
			_ = srv.Shutdown(context.Background())
		}()
		addr = lis.Addr().String()
	}

	var counters benchCounters
	var errCounts benchErrors

	clients := dialClients(cfg, addr, &errCounts)
	if len(clients) == 0 {
		log.Fatalf("no clients registered (relay %s)", addr)
	}
	if cfg.Mode == modeUnicast && len(clients) < 2 {
		log.Fatalf("unicast needs at least 2 registered clients, got %d", len(clients))
	}
	handles := make([]string, len(clients))
	for i, c := range clients {
		handles[i] = c.Handle()
	}

	samplesCh := make(chan time.Duration, sampleBuffer(cfg.Clients))
	var samples []time.Duration
	var samplesMu sync.Mutex
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for d := range samplesCh {
			samplesMu.Lock()
			samples = append(samples, d)
			samplesMu.Unlock()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var before runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	beforeMetrics := readRuntimeMetrics()

	var readers sync.WaitGroup
	readers.Add(len(clients))
	for _, c := range clients {
		c := c
		go func() {
			defer readers.Done()
			runReader(ctx, c, &counters, &errCounts, samplesCh)
		}()
	}

	start := time.Now()
	var senders sync.WaitGroup
	senders.Add(len(clients))
	for i, c := range clients {
		i, c := i, c
		go func() {
			defer senders.Done()
			runSender(ctx, c, i, handles, cfg, &counters, &errCounts)
		}()
	}

	senders.Wait()
	elapsed := time.Since(start)

	// Let fan-out in flight at the deadline reach its receivers before
	// the sessions close.
	time.Sleep(drainGrace)
	for _, c := range clients {
		_ = c.Close()
	}
	readers.Wait()
	close(samplesCh)
	<-collectorDone

	var after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&after)
	afterMetrics := readRuntimeMetrics()

	samplesMu.Lock()
	latencies := append([]time.Duration(nil), samples...)
	samplesMu.Unlock()
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	report := buildReport(cfg, addr, len(clients), elapsed, latencies, &counters, &errCounts, before, after, beforeMetrics, afterMetrics)

	writeSummary(os.Stderr, report)
	if err := writeJSON(cfg.JSONOutput, report); err != nil {
		log.Fatalf("write json: %v", err)
	}
}

func sampleBuffer(clients int) int {
	if clients < 1 {
		return 1024
	}
	buf := clients * 4
	if buf < 1024 {
		buf = 1024
	}
	return buf
}

func parseConfig() (benchConfig, error) {
	profileFlag := flag.String("profile", "standard", "profile: fast|standard|stress")
	modeFlag := flag.String("mode", "", "traffic mode: broadcast|unicast")
	clientsFlag := flag.Int("clients", -1, "number of concurrent clients")
	durationFlag := flag.String("duration", "", "benchmark duration, e.g. 30s")
	rpsFlag := flag.Float64("rps", -1, "target messages/sec per client")
	payloadFlag := flag.Int("payload-bytes", -1, "minimum bytes of text per message")
	addrFlag := flag.String("addr", "", "relay address (empty runs an in-process relay)")
	maxProcsFlag := flag.Int("max-procs", -1, "GOMAXPROCS cap (0 to leave unchanged)")
	memLimitFlag := flag.String("mem-limit", "", "GOMEMLIMIT (e.g. 2GiB)")
	jsonFlag := flag.String("json", "-", "JSON output path ('-' for stdout)")
	flag.Parse()

	name := strings.ToLower(strings.TrimSpace(*profileFlag))
	if name == "" {
		name = "standard"
	}

	base, ok := profiles[name]
	if !ok {
		return benchConfig{}, fmt.Errorf("unknown profile %q", name)
	}

	cfg := benchConfig{
		Profile:       base.Name,
		Mode:          base.Mode,
		Clients:       base.Clients,
		Duration:      base.Duration,
		RPS:           base.RPS,
		PayloadBytes:  base.PayloadBytes,
		MaxProcs:      base.MaxProcs,
		MemLimitBytes: base.MemLimitBytes,
		Addr:          strings.TrimSpace(*addrFlag),
		JSONOutput:    strings.TrimSpace(*jsonFlag),
	}

	if *modeFlag != "" {
		cfg.Mode = strings.ToLower(strings.TrimSpace(*modeFlag))
	}
	if *clientsFlag != -1 {
		cfg.Clients = *clientsFlag
	}
	if *durationFlag != "" {
		d, err := time.ParseDuration(*durationFlag)
		if err != nil {
			return benchConfig{}, fmt.Errorf("invalid -duration: %w", err)
		}
		cfg.Duration = d
	}
	if *rpsFlag != -1 {
		cfg.RPS = *rpsFlag
	}
	if *payloadFlag != -1 {
		cfg.PayloadBytes = *payloadFlag
	}
	if *maxProcsFlag != -1 {
		cfg.MaxProcs = *maxProcsFlag
	}
	if *memLimitFlag != "" {
		limit, err := parseBytes(*memLimitFlag)
		if err != nil {
			return benchConfig{}, fmt.Errorf("invalid -mem-limit: %w", err)
		}
		cfg.MemLimitBytes = limit
	}
	if cfg.JSONOutput == "" {
		cfg.JSONOutput = "-"
	}

	if cfg.Mode != modeBroadcast && cfg.Mode != modeUnicast {
		return benchConfig{}, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
	if cfg.Clients <= 0 {
		return benchConfig{}, errors.New("-clients must be > 0")
	}
	if cfg.Mode == modeUnicast && cfg.Clients < 2 {
		return benchConfig{}, errors.New("unicast mode needs -clients >= 2")
	}
	if cfg.Duration <= 0 {
		return benchConfig{}, errors.New("-duration must be > 0")
	}
	if cfg.RPS <= 0 {
		return benchConfig{}, errors.New("-rps must be > 0")
	}
	if cfg.PayloadBytes <= 0 {
		return benchConfig{}, errors.New("-payload-bytes must be > 0")
	}
	if cfg.MaxProcs < 0 {
		return benchConfig{}, errors.New("-max-procs must be >= 0")
	}
	if cfg.MemLimitBytes < 0 {
		return benchConfig{}, errors.New("-mem-limit must be >= 0")
	}

	return cfg, nil
}

func parseBytes(input string) (int64, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, errors.New("empty size")
	}

	var i int
	for i < len(s) {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '.' {
			i++
			continue
		}
		break
	}
	if i == 0 {
		return 0, fmt.Errorf("invalid size %q", input)
	}

	numPart := strings.TrimSpace(s[:i])
	suffix := strings.ToLower(strings.TrimSpace(s[i:]))

	value, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, err
	}

	multiplier := float64(1)
	switch suffix {
	case "", "b":
		multiplier = 1
	case "kb":
		multiplier = 1e3
	case "mb":
		multiplier = 1e6
	case "gb":
		multiplier = 1e9
	case "kib":
		multiplier = 1024
	case "mib":
		multiplier = 1024 * 1024
	case "gib":
		multiplier = 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unknown size suffix %q", suffix)
	}

	bytes := value * multiplier
	if bytes < 0 {
		return 0, fmt.Errorf("invalid size %q", input)
	}

	return int64(bytes + 0.5), nil
}

func dialClients(cfg benchConfig, addr string, errCounts *benchErrors) []*client.Client {
	clients := make([]*client.Client, 0, cfg.Clients)
	for i := 0; i < cfg.Clients; i++ {
		ccfg := client.DefaultConfig().
			WithAddr(addr).
			WithHandle(fmt.Sprintf("bench-%d", i))
		ccfg.EventBuffer = 256
		c, err := client.Dial(ccfg)
		if err != nil {
			errCounts.registerFailures.Add(1)
			errCounts.totalErrors.Add(1)
			continue
		}
		clients = append(clients, c)
	}
	return clients
}

// runSender pushes messages at the target rate until the send window
// closes.
func runSender(
	ctx context.Context,
	c *client.Client,
	idx int,
	handles []string,
	cfg benchConfig,
	counters *benchCounters,
	errCounts *benchErrors,
) {
	period := time.Duration(float64(time.Second) / cfg.RPS)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		seq++
		token := makeToken(idx, seq, cfg.PayloadBytes)

		var err error
		if cfg.Mode == modeBroadcast {
			err = c.Broadcast(token)
		} else {
			offset := 1 + int(seq%uint64(len(handles)-1))
			err = c.Unicast(handles[(idx+offset)%len(handles)], token)
		}
		if err != nil {
			errCounts.sendFailures.Add(1)
			errCounts.totalErrors.Add(1)
			if errors.Is(err, client.ErrClosed) {
				return
			}
			continue
		}
		counters.messagesSent.Add(1)
	}
}

// runReader consumes relay events until the session closes, turning
// each delivered message's embedded timestamp into a latency sample.
func runReader(
	ctx context.Context,
	c *client.Client,
	counters *benchCounters,
	errCounts *benchErrors,
	samples chan<- time.Duration,
) {
	for ev := range c.Events() {
		switch ev := ev.(type) {
		case *client.Message:
			counters.delivered.Add(1)
			if nanos, ok := tokenNanos(ev.Text); ok {
				if d := time.Duration(time.Now().UnixNano() - nanos); d >= 0 {
					samples <- d
				}
			}
		case *client.DestinationUnknown:
			counters.destUnknown.Add(1)
		case *client.Disconnected:
			if ctx.Err() == nil {
				errCounts.disconnects.Add(1)
				errCounts.totalErrors.Add(1)
			}
		}
	}
}

// makeToken builds a message of at least payloadBytes whose prefix
// carries the sender, sequence, and send timestamp.
func makeToken(clientID int, seq uint64, payloadBytes int) string {
	head := fmt.Sprintf("%d.%d.%d.", clientID, seq, time.Now().UnixNano())
	if len(head) >= payloadBytes {
		return head
	}
	return head + strings.Repeat("x", payloadBytes-len(head))
}

// tokenNanos extracts the send timestamp a token carries.
func tokenNanos(text string) (int64, bool) {
	parts := strings.SplitN(text, ".", 4)
	if len(parts) < 4 {
		return 0, false
	}
	nanos, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, false
	}
	return nanos, true
}

type runtimeMetricsSnapshot struct {
	cpuTotalSeconds float64
	cpuGCSeconds    float64

	heapAllocsBytes   uint64
	heapAllocsObjects uint64
}

func readRuntimeMetrics() runtimeMetricsSnapshot {
	samples := []metrics.Sample{
		{Name: "/cpu/classes/total:cpu-seconds"},
		{Name: "/cpu/classes/gc/total:cpu-seconds"},
		{Name: "/gc/heap/allocs:bytes"},
		{Name: "/gc/heap/allocs:objects"},
	}
	metrics.Read(samples)

	var out runtimeMetricsSnapshot
	for _, s := range samples {
		switch s.Name {
		case "/cpu/classes/total:cpu-seconds":
			out.cpuTotalSeconds = s.Value.Float64()
		case "/cpu/classes/gc/total:cpu-seconds":
			out.cpuGCSeconds = s.Value.Float64()
		case "/gc/heap/allocs:bytes":
			out.heapAllocsBytes = s.Value.Uint64()
		case "/gc/heap/allocs:objects":
			out.heapAllocsObjects = s.Value.Uint64()
		}
	}
	return out
}

func cpuFraction(after, before runtimeMetricsSnapshot) float64 {
	total := after.cpuTotalSeconds - before.cpuTotalSeconds
	if total <= 0 {
		return 0
	}
	gc := after.cpuGCSeconds - before.cpuGCSeconds
	if gc < 0 {
		return 0
	}
	return gc / total
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func avgPause(after, before runtime.MemStats) time.Duration {
	gcCount := after.NumGC - before.NumGC
	if gcCount == 0 {
		return 0
	}
	return time.Duration((after.PauseTotalNs - before.PauseTotalNs) / uint64(gcCount))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

type benchReport struct {
	Version    string         `json:"version"`
	Run        runInfo        `json:"run"`
	Workload   workloadInfo   `json:"workload"`
	LatencyMS  latencyInfo    `json:"latency_ms"`
	Throughput throughputInfo `json:"throughput"`
	Delivery   deliveryInfo   `json:"delivery"`
	GC         gcInfo         `json:"gc"`
	Errors     errorInfo      `json:"errors"`
}

type runInfo struct {
	Timestamp string `json:"timestamp"`
	Go        string `json:"go"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPUCount  int    `json:"cpu_count"`
	GitCommit string `json:"git_commit,omitempty"`
}

type workloadInfo struct {
	Profile       string  `json:"profile"`
	Mode          string  `json:"mode"`
	Relay         string  `json:"relay"`
	Clients       int     `json:"clients"`
	Registered    int     `json:"registered"`
	DurationMS    int64   `json:"duration_ms"`
	RPSPerClient  float64 `json:"rps_per_client"`
	PayloadBytes  int     `json:"payload_bytes"`
	MaxProcs      int     `json:"max_procs"`
	MemLimitBytes int64   `json:"mem_limit_bytes"`
}

type latencyInfo struct {
	Min float64 `json:"min"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

type throughputInfo struct {
	MessagesSent    uint64  `json:"messages_sent"`
	SentPerSec      float64 `json:"sent_per_sec"`
	Delivered       uint64  `json:"delivered"`
	DeliveredPerSec float64 `json:"delivered_per_sec"`
}

type deliveryInfo struct {
	Expected    uint64  `json:"expected"`
	Delivered   uint64  `json:"delivered"`
	Ratio       float64 `json:"ratio"`
	DestUnknown uint64  `json:"dest_unknown"`
}

type gcInfo struct {
	AllocMB       float64 `json:"alloc_mb"`
	HeapLiveMB    float64 `json:"heap_live_mb"`
	NumGC         uint32  `json:"num_gc"`
	PauseTotalMS  float64 `json:"pause_total_ms"`
	PauseAvgMS    float64 `json:"pause_avg_ms"`
	GCCPUFraction float64 `json:"gc_cpu_fraction"`
	AllocsObjects uint64  `json:"allocs_objects"`
}

type errorInfo struct {
	TotalErrors      uint64 `json:"total_errors"`
	RegisterFailures uint64 `json:"register_failures"`
	SendFailures     uint64 `json:"send_failures"`
	Disconnects      uint64 `json:"disconnects"`
}

func buildReport(
	cfg benchConfig,
	addr string,
	registered int,
	elapsed time.Duration,
	latencies []time.Duration,
	counters *benchCounters,
	errCounts *benchErrors,
	before runtime.MemStats,
	after runtime.MemStats,
	beforeMetrics runtimeMetricsSnapshot,
	afterMetrics runtimeMetricsSnapshot,
) benchReport {
	sent := counters.messagesSent.Load()
	delivered := counters.delivered.Load()
	destUnknown := counters.destUnknown.Load()

	var expected uint64
	if cfg.Mode == modeBroadcast {
		expected = sent * uint64(registered-1)
	} else {
		expected = sent - destUnknown
	}
	ratio := 0.0
	if expected > 0 {
		ratio = float64(delivered) / float64(expected)
	}

	elapsedSeconds := math.Max(0.001, elapsed.Seconds())

	latency := latencyInfo{}
	if len(latencies) > 0 {
		latency = latencyInfo{
			Min: ms(latencies[0]),
			P50: ms(percentile(latencies, 0.50)),
			P95: ms(percentile(latencies, 0.95)),
			P99: ms(percentile(latencies, 0.99)),
			Max: ms(latencies[len(latencies)-1]),
		}
	}

	relay := addr
	if cfg.Addr == "" {
		relay = "in-process"
	}

	pauseTotal := time.Duration(after.PauseTotalNs - before.PauseTotalNs)
	pauseAvg := avgPause(after, before)

	return benchReport{
		Version: "1",
		Run: runInfo{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Go:        runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPUCount:  runtime.NumCPU(),
			GitCommit: gitCommit(),
		},
		Workload: workloadInfo{
			Profile:       cfg.Profile,
			Mode:          cfg.Mode,
			Relay:         relay,
			Clients:       cfg.Clients,
			Registered:    registered,
			DurationMS:    cfg.Duration.Milliseconds(),
			RPSPerClient:  cfg.RPS,
			PayloadBytes:  cfg.PayloadBytes,
			MaxProcs:      cfg.MaxProcs,
			MemLimitBytes: cfg.MemLimitBytes,
		},
		LatencyMS: latency,
		Throughput: throughputInfo{
			MessagesSent:    sent,
			SentPerSec:      float64(sent) / elapsedSeconds,
			Delivered:       delivered,
			DeliveredPerSec: float64(delivered) / elapsedSeconds,
		},
		Delivery: deliveryInfo{
			Expected:    expected,
			Delivered:   delivered,
			Ratio:       ratio,
			DestUnknown: destUnknown,
		},
		GC: gcInfo{
			AllocMB:       float64(after.TotalAlloc-before.TotalAlloc) / (1024 * 1024),
			HeapLiveMB:    float64(after.HeapAlloc) / (1024 * 1024),
			NumGC:         after.NumGC - before.NumGC,
			PauseTotalMS:  ms(pauseTotal),
			PauseAvgMS:    ms(pauseAvg),
			GCCPUFraction: cpuFraction(afterMetrics, beforeMetrics),
			AllocsObjects: afterMetrics.heapAllocsObjects - beforeMetrics.heapAllocsObjects,
		},
		Errors: errorInfo{
			TotalErrors:      errCounts.totalErrors.Load(),
			RegisterFailures: errCounts.registerFailures.Load(),
			SendFailures:     errCounts.sendFailures.Load(),
			Disconnects:      errCounts.disconnects.Load(),
		},
	}
}

func writeSummary(w io.Writer, report benchReport) {
	fmt.Fprintln(w, "=== Chatwire Relay Benchmark ===")
	fmt.Fprintf(w, "Profile: %s (%s)\n", report.Workload.Profile, report.Workload.Mode)
	fmt.Fprintf(w, "Relay: %s\n", report.Workload.Relay)
	fmt.Fprintf(w, "Clients: %d registered of %d\n", report.Workload.Registered, report.Workload.Clients)
	fmt.Fprintf(w, "Duration: %s\n", time.Duration(report.Workload.DurationMS)*time.Millisecond)
	fmt.Fprintf(w, "Target per-client rate: %.2f msgs/s\n", report.Workload.RPSPerClient)
	fmt.Fprintf(w, "Payload bytes: %d\n", report.Workload.PayloadBytes)
	if report.Workload.MaxProcs > 0 {
		fmt.Fprintf(w, "GOMAXPROCS cap: %d\n", report.Workload.MaxProcs)
	}
	if report.Workload.MemLimitBytes > 0 {
		fmt.Fprintf(w, "GOMEMLIMIT cap: %.2f GiB\n", float64(report.Workload.MemLimitBytes)/float64(gib))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Messages sent: %d (%.1f/s)\n", report.Throughput.MessagesSent, report.Throughput.SentPerSec)
	fmt.Fprintf(w, "Delivered: %d (%.1f/s, %.2f%% of expected %d)\n",
		report.Delivery.Delivered, report.Throughput.DeliveredPerSec, report.Delivery.Ratio*100, report.Delivery.Expected)
	fmt.Fprintf(w, "Unknown destinations: %d\n", report.Delivery.DestUnknown)
	fmt.Fprintf(w, "Errors: %d\n", report.Errors.TotalErrors)
	fmt.Fprintln(w)

	if report.LatencyMS.Max == 0 {
		fmt.Fprintln(w, "No latency samples recorded.")
	} else {
		fmt.Fprintln(w, "Delivery latency (sender write -> receiver decode):")
		fmt.Fprintf(w, "  min: %.2f ms\n", report.LatencyMS.Min)
		fmt.Fprintf(w, "  p50: %.2f ms\n", report.LatencyMS.P50)
		fmt.Fprintf(w, "  p95: %.2f ms\n", report.LatencyMS.P95)
		fmt.Fprintf(w, "  p99: %.2f ms\n", report.LatencyMS.P99)
		fmt.Fprintf(w, "  max: %.2f ms\n", report.LatencyMS.Max)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Go runtime / GC (process-wide):")
	fmt.Fprintf(w, "  alloc:     %.2f MB\n", report.GC.AllocMB)
	fmt.Fprintf(w, "  heap_live: %.2f MB\n", report.GC.HeapLiveMB)
	fmt.Fprintf(w, "  num_gc:    %d\n", report.GC.NumGC)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (total)\n", report.GC.PauseTotalMS)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (avg)\n", report.GC.PauseAvgMS)
	fmt.Fprintf(w, "  gc_cpu:    %.2f%%\n", report.GC.GCCPUFraction*100)
}

func writeJSON(path string, report benchReport) error {
	var out io.Writer
	if path == "-" {
		out = os.Stdout
	} else {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func gitCommit() string {
	if val := strings.TrimSpace(os.Getenv("CHATWIRE_GIT_COMMIT")); val != "" {
		return val
	}
	if val := strings.TrimSpace(os.Getenv("GIT_COMMIT")); val != "" {
		return val
	}
	cmd := exec.Command("git", "rev-parse", "HEAD")
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
