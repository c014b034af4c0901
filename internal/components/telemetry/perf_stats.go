package telemetry

import (
	"context"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/process"
	"go.opentelemetry.io/otel"
)

const report_perf_stats = "perf-stats"

var meter = otel.Meter("wenshu.perf_stats")
var cpuGauge, _ = meter.Float64Gauge("cpu_usage")
var rssGauge, _ = meter.Int64Gauge("rss_mb")
var allocGauge, _ = meter.Int64Gauge("allocated_mb")

// ReportPerfStats reports the resource usage of the current process, it is
// called once at the end of a run.
func ReportPerfStats(ctx context.Context, tel API) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	allocMb := int64(memStats.Alloc / 1_000_000)
	allocGauge.Record(ctx, allocMb)
	tel.ReportCount("allocated_mb", allocMb)

	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		tel.ReportWarning(report_perf_stats, err)
		return
	}

	cpuUsage, err := proc.CPUPercentWithContext(ctx)
	if err != nil {
		tel.ReportWarning(report_perf_stats, err)
	} else {
		cpuGauge.Record(ctx, cpuUsage)
		tel.ReportCount("cpu_percent", int64(cpuUsage))
	}

	mem, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		tel.ReportWarning(report_perf_stats, err)
		return
	}
	rssMb := int64(mem.RSS / 1_000_000)
	rssGauge.Record(ctx, rssMb)
	tel.ReportCount("rss_mb", rssMb)
}
