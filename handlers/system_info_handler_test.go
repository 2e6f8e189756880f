package handlers

import (
	"testing"
	"time"

	"modlog-bot/scanner"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
)

func TestSweepSummary(t *testing.T) {
	assert.Equal(t, "No sweep has run yet.", SweepSummary(nil))

	started := time.Date(2026, 10, 16, 12, 0, 5, 0, time.UTC)
	got := SweepSummary([]scanner.SweepStats{
		{Rule: "unban", Started: started, Took: 12 * time.Millisecond, Expired: 2, Reversed: 1, Failed: 1},
		{Rule: "unmute", Started: started},
	})
	assert.Equal(t,
		"**unban** at 12:00:05: 2 expired, 1 reversed, 1 failed (12ms)\n"+
			"**unmute** at 12:00:05: 0 expired, 0 reversed, 0 failed (0s)\n", got)
}

func TestHostFields_ToleratesMissingProbes(t *testing.T) {
	assert.Len(t, hostFields(nil, 4, nil, nil), 3)

	fields := hostFields(&host.InfoStat{Platform: "debian", PlatformVersion: "12"}, 4, []float64{12.5},
		&mem.VirtualMemoryStat{Total: 2048 * 1024 * 1024, Used: 1024 * 1024 * 1024, UsedPercent: 50})
	assert.Len(t, fields, 6)
	assert.Equal(t, "debian 12", fields[3].Value)
	assert.Equal(t, "12.5%", fields[4].Value)
	assert.Equal(t, "50.0% (1024 MB / 2048 MB)", fields[5].Value)
}
