package perf

import (
	"bufio"
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/devicelab-dev/droid-harness/pkg/core"
	"github.com/devicelab-dev/droid-harness/pkg/logger"
)

// CPUInfo is parsed from /proc/cpuinfo.
type CPUInfo struct {
	Processors int `json:"processors"`
}

// MemoryInfo is parsed from /proc/meminfo. Sizes are in kB.
type MemoryInfo struct {
	TotalKB      int64 `json:"total"`
	FreeKB       int64 `json:"free"`
	UsedKB       int64 `json:"used"`
	UsagePercent int   `json:"usagePercent"`
}

// BatteryInfo is parsed from dumpsys battery.
type BatteryInfo struct {
	Level int `json:"level"`
}

// StorageInfo is the /data row of df, kept as the device printed it.
type StorageInfo struct {
	Total        string `json:"total"`
	Used         string `json:"used"`
	Available    string `json:"available"`
	UsagePercent string `json:"usagePercent"`
}

// DevicePerformance is one resource sample. A field is nil when its
// query failed or its output could not be parsed.
type DevicePerformance struct {
	CPU     *CPUInfo     `json:"cpu,omitempty"`
	Memory  *MemoryInfo  `json:"memory,omitempty"`
	Battery *BatteryInfo `json:"battery,omitempty"`
	Storage *StorageInfo `json:"storage,omitempty"`
}

// MemoryDeltaKB returns how much used memory grew from d to after.
// ok is false unless both samples carry memory data.
func (d DevicePerformance) MemoryDeltaKB(after DevicePerformance) (delta int64, ok bool) {
	if d.Memory == nil || after.Memory == nil {
		return 0, false
	}
	return after.Memory.UsedKB - d.Memory.UsedKB, true
}

// CollectDevicePerformance samples CPU, memory, battery and storage.
// Each query is independent; a failed one leaves its field nil.
func CollectDevicePerformance(ctx context.Context, session core.Session, log *logger.Logger) DevicePerformance {
	if log == nil {
		log = logger.Nop()
	}
	query := func(command string, args ...string) string {
		out, err := session.Shell(ctx, command, args...)
		if err != nil {
			log.Debug("Performance query failed", logger.Fields{"command": command, "error": err.Error()})
			return ""
		}
		return out
	}

	var perf DevicePerformance
	perf.CPU = ParseCPUInfo(query("cat", "/proc/cpuinfo"))
	perf.Memory = ParseMemoryInfo(query("cat", "/proc/meminfo"))
	perf.Battery = ParseBatteryInfo(query("dumpsys", "battery"))
	perf.Storage = ParseStorageInfo(query("df", "/data"))
	return perf
}

// ParseCPUInfo counts "processor" entries.
func ParseCPUInfo(raw string) *CPUInfo {
	n := 0
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		if strings.HasPrefix(strings.TrimSpace(scanner.Text()), "processor") {
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return &CPUInfo{Processors: n}
}

var meminfoLine = regexp.MustCompile(`^(\w+):\s+(\d+)`)

// ParseMemoryInfo reads MemTotal and MemFree.
func ParseMemoryInfo(raw string) *MemoryInfo {
	values := make(map[string]int64)
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		m := meminfoLine.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if m == nil {
			continue
		}
		if v, err := strconv.ParseInt(m[2], 10, 64); err == nil {
			values[m[1]] = v
		}
	}
	total, free := values["MemTotal"], values["MemFree"]
	if total <= 0 {
		return nil
	}
	used := total - free
	return &MemoryInfo{
		TotalKB:      total,
		FreeKB:       free,
		UsedKB:       used,
		UsagePercent: int(math.Round(float64(used) / float64(total) * 100)),
	}
}

var batteryLevel = regexp.MustCompile(`level:\s*(\d+)`)

// ParseBatteryInfo reads the "level: N" line.
func ParseBatteryInfo(raw string) *BatteryInfo {
	m := batteryLevel.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}
	level, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &BatteryInfo{Level: level}
}

// ParseStorageInfo reads the df row mounted on /data.
func ParseStorageInfo(raw string) *StorageInfo {
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "/data") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}
		return &StorageInfo{
			Total:        fields[1],
			Used:         fields[2],
			Available:    fields[3],
			UsagePercent: fields[4],
		}
	}
	return nil
}
