package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/corey/licscan/internal/adapters/socket"
	"github.com/corey/licscan/internal/app"
	"github.com/corey/licscan/internal/ports"
)

// ANSI color codes for terminal output.
const (
	colorReset   = "\033[0m"
	colorBold    = "\033[1m"
	colorCyan    = "\033[36m"
	colorMagenta = "\033[35m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorGray    = "\033[90m"
	colorRed     = "\033[31m"
)

// palette returns color codes, or empty strings when color is off.
type palette struct {
	reset, bold, cyan, magenta, green, yellow, gray, red string
}

func newPalette(color bool) palette {
	if !color {
		return palette{}
	}
	return palette{colorReset, colorBold, colorCyan, colorMagenta, colorGreen, colorYellow, colorGray, colorRed}
}

// formatJSON renders all results as one indented JSON array.
func formatJSON(reports []socket.Report) (string, error) {
	out, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out) + "\n", nil
}

// formatResults renders results for terminal display.
//
//	⚡ 3 detections │ 2 files │ 12ms
//	  LICENSE  mit
//	    mit_1  lines 1-1  tokens 0-3  score 100  coverage 100  hash
func formatResults(reports []socket.Report, diagnostics, color bool, elapsed time.Duration) string {
	p := newPalette(color)
	var sb strings.Builder

	detections, files := 0, 0
	for _, r := range reports {
		if r.Found() {
			detections += len(r.Detections)
			files++
		}
	}
	sb.WriteString(fmt.Sprintf("%s⚡ %d detections%s │ %d files │ %s\n",
		p.bold, detections, p.reset, files, elapsed.Round(time.Millisecond)))

	for _, r := range reports {
		if r.Error != "" {
			sb.WriteString(fmt.Sprintf("  %s%s%s  %serror: %s%s\n", p.cyan, r.Path, p.reset, p.red, r.Error, p.reset))
			continue
		}
		if len(r.Detections) == 0 {
			continue
		}
		expr := r.LicenseExpression
		if expr == "" {
			expr = strings.Join(r.Expressions, ", ")
		}
		sb.WriteString(fmt.Sprintf("  %s%s%s  %s%s%s", p.cyan, r.Path, p.reset, p.magenta, expr, p.reset))
		if r.SPDXLicenseExpression != "" && r.SPDXLicenseExpression != expr {
			sb.WriteString(fmt.Sprintf("  %sspdx: %s%s", p.gray, r.SPDXLicenseExpression, p.reset))
		}
		if r.Truncated {
			sb.WriteString(fmt.Sprintf("  %s(truncated)%s", p.yellow, p.reset))
		}
		sb.WriteString("\n")

		for _, d := range r.Detections {
			sb.WriteString(fmt.Sprintf("    %s  %slines %d-%d  tokens %d-%d%s  score %s%.2f%s  coverage %.2f  %s\n",
				d.RuleIdentifier, p.gray, d.StartLine, d.EndLine, d.StartToken, d.EndToken, p.reset,
				p.green, d.Score, p.reset, d.Coverage, d.Matcher))
			if diagnostics {
				sb.WriteString(fmt.Sprintf("      %smatched:%s %s\n", p.gray, p.reset, d.MatchedText))
				sb.WriteString(fmt.Sprintf("      %srule:   %s %s\n", p.gray, p.reset, d.RuleText))
			}
		}
	}
	return sb.String()
}

// formatStats renders cache metadata for terminal display.
func formatStats(meta *ports.CacheMeta, cfg app.Config) string {
	var sb strings.Builder
	sb.WriteString("⚡ licscan index\n")
	sb.WriteString(fmt.Sprintf("  Cache:     %s\n", cfg.DBPath))
	if meta == nil {
		sb.WriteString("  Status:    not built\n")
		return sb.String()
	}
	sb.WriteString(fmt.Sprintf("  Rules:     %d\n", meta.Rules))
	sb.WriteString(fmt.Sprintf("  Licenses:  %d\n", meta.Licenses))
	sb.WriteString(fmt.Sprintf("  Tokens:    %d (%d legalese)\n", meta.Tokens, meta.LenLegalese))
	sb.WriteString(fmt.Sprintf("  Format:    v%d\n", meta.FormatVersion))
	sb.WriteString(fmt.Sprintf("  Built:     %s\n", meta.BuiltAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("  Key:       %s\n", meta.CacheKey))
	return sb.String()
}
