package handlers

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"modlog-bot/bot"
	"modlog-bot/scanner"
	"modlog-bot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemInfoHandler answers /modlog-status with host load and the outcome
// of the latest expiry sweep.
func SystemInfoHandler(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	cpuCount, _ := cpu.Counts(true)
	cpuPercent, _ := cpu.Percent(0, false)
	vm, _ := mem.VirtualMemory()
	hostInfo, _ := host.Info()

	embed := &discordgo.MessageEmbed{
		Title:  "Modlog Status",
		Color:  utils.ColorBlurple,
		Fields: hostFields(hostInfo, cpuCount, cpuPercent, vm),
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Store: %s・%s", b.Config.StoreBackend, time.Now().UTC().Format("15:04 UTC")),
		},
	}
	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: "⏱️ WebSocket latency", Value: s.HeartbeatLatency().String(), Inline: true},
		&discordgo.MessageEmbedField{Name: "🧹 Last expiry sweep", Value: SweepSummary(b.LastSweep()), Inline: false},
	)
	utils.SendEmbedResponse(s, i, true, embed)
}

func hostFields(hostInfo *host.InfoStat, cpuCount int, cpuPercent []float64, vm *mem.VirtualMemoryStat) []*discordgo.MessageEmbedField {
	fields := []*discordgo.MessageEmbedField{
		{Name: "🐹 Go version", Value: runtime.Version(), Inline: true},
		{Name: "🚀 Goroutines", Value: fmt.Sprintf("%d", runtime.NumGoroutine()), Inline: true},
		{Name: "🔼 CPUs", Value: fmt.Sprintf("%d", cpuCount), Inline: true},
	}
	if hostInfo != nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "💻 OS", Value: fmt.Sprintf("%s %s", hostInfo.Platform, hostInfo.PlatformVersion), Inline: true,
		})
	}
	if len(cpuPercent) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "🔥 CPU usage", Value: fmt.Sprintf("%.1f%%", cpuPercent[0]), Inline: true,
		})
	}
	if vm != nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "🧠 Memory",
			Value:  fmt.Sprintf("%.1f%% (%d MB / %d MB)", vm.UsedPercent, vm.Used/1024/1024, vm.Total/1024/1024),
			Inline: true,
		})
	}
	return fields
}

// SweepSummary renders one line per expiry rule.
func SweepSummary(stats []scanner.SweepStats) string {
	if len(stats) == 0 {
		return "No sweep has run yet."
	}
	var b strings.Builder
	for _, st := range stats {
		fmt.Fprintf(&b, "**%s** at %s: %d expired, %d reversed, %d failed (%s)\n",
			st.Rule, st.Started.UTC().Format("15:04:05"), st.Expired, st.Reversed, st.Failed, st.Took.Round(time.Millisecond))
	}
	return b.String()
}
