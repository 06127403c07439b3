package common

import (
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner.
// Only the http transport prints it; stdout is the protocol channel under stdio.
func PrintBanner(version string) {
	banner.PrintSimple("EODHD MCP", version)
}
