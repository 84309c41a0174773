package device

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/devicelab-dev/droid-harness/pkg/logger"
)

// PreviewLimit bounds NetworkInfo.RawPreview, in characters.
const PreviewLimit = 500

// connectivityMarkers are the dumpsys lines taken to mean "connected".
// A device online through any other transport (ethernet, VPN-only, or a
// dumpsys format without NetworkInfo lines) reads as disconnected.
var connectivityMarkers = []string{
	"NetworkInfo: type: WIFI",
	"NetworkInfo: type: MOBILE",
}

// NetworkInfo is the parsed result of `dumpsys connectivity`.
type NetworkInfo struct {
	Connected  bool   `json:"connected"`
	RawPreview string `json:"rawData,omitempty"`
}

// ParseConnectivity applies the connectivity heuristic to a dumpsys dump.
func ParseConnectivity(dump string) NetworkInfo {
	connected := false
	for _, marker := range connectivityMarkers {
		if strings.Contains(dump, marker) {
			connected = true
			break
		}
	}
	return NetworkInfo{Connected: connected, RawPreview: preview(dump, PreviewLimit)}
}

// preview returns at most n characters of s without splitting a rune.
func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// networkInfo queries connectivity and reports command failures.
func (u *Utils) networkInfo(ctx context.Context) (NetworkInfo, error) {
	dump, err := u.shell(ctx, "dumpsys", "connectivity")
	if err != nil {
		return NetworkInfo{}, err
	}
	return ParseConnectivity(dump), nil
}

// NetworkInfo returns connectivity inferred from `dumpsys connectivity`.
// A failed query reads as disconnected with an empty preview.
func (u *Utils) NetworkInfo(ctx context.Context) NetworkInfo {
	info, err := u.networkInfo(ctx)
	if err != nil {
		u.log.Warn("Get network info failed", logger.Fields{"error": err.Error()})
		return NetworkInfo{}
	}
	return info
}
