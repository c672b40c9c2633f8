// forge/pkg/yarax/cli.go

package yarax

import (
	"strconv"
	"strings"
)

// ScanOptions configures the local `yr scan` command line.
type ScanOptions struct {
	RulePath       string `json:"rulePath" validate:"required"`
	ScanPath       string `json:"scanPath" validate:"required"`
	Threads        int    `json:"threads" validate:"min=0"`
	PrintStrings   bool   `json:"printStrings"`
	PrintNamespace bool   `json:"printNamespace"`
}

func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		RulePath:       "generated_rule.yar",
		ScanPath:       "/path/to/scan",
		Threads:        4,
		PrintStrings:   true,
		PrintNamespace: true,
	}
}

// ScanCommand builds `yr scan [--threads N] [-s] [-n] <rules> <target>`. A zero
// thread count omits the flag.
func ScanCommand(o ScanOptions) string {
	var sb strings.Builder
	sb.WriteString("yr scan ")
	if o.Threads != 0 {
		sb.WriteString("--threads " + strconv.Itoa(o.Threads) + " ")
	}
	if o.PrintStrings {
		sb.WriteString("-s ")
	}
	if o.PrintNamespace {
		sb.WriteString("-n ")
	}
	sb.WriteString(o.RulePath + " " + o.ScanPath)
	return sb.String()
}
