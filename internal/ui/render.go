package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/aniongithub/balena-cli/internal/provisioning"
	"github.com/aniongithub/balena-cli/internal/scan"
)

// styleFunc is a single-string styling function.
type styleFunc func(string) string

// sf wraps a lipgloss.Style into a styleFunc.
func sf(s lipgloss.Style) styleFunc {
	return func(str string) string { return s.Render(str) }
}

// ConfigureSummary renders the outcome of an image configuration run.
func ConfigureSummary(imagePath string, res *provisioning.Result) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("balena: %s", imagePath)))
	b.WriteString(" " + okStyle.Render("Configured"))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("  Image"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "    %s %-16s %s\n", okStyle.Render(checkMark), "Device type", res.DeviceType)
	fmt.Fprintf(&b, "    %s %-16s %s\n", okStyle.Render(checkMark), "OS version", res.Version)

	b.WriteString(sectionStyle.Render("  Written"))
	b.WriteString("\n")
	for _, loc := range res.Written {
		fmt.Fprintf(&b, "    %s %s\n", okStyle.Render(checkMark), dimStyle.Render(loc.String()))
	}

	return b.String()
}

// ScanResults renders discovered devices, or a dim notice when none were found.
func ScanResults(devices []scan.Device) string {
	var b strings.Builder

	b.WriteString(sectionStyle.Render("  Devices"))
	b.WriteString("\n")

	if len(devices) == 0 {
		b.WriteString("    " + dimStyle.Render("no devices found") + "\n")
		return b.String()
	}

	for _, d := range devices {
		fmt.Fprintf(&b, "    %s %-24s %s\n",
			okStyle.Render(checkMark), d.Host, dimStyle.Render(d.Addr))
	}
	return b.String()
}

// Event renders a diagnostic event emitted during provisioning.
func Event(ev provisioning.Event) string {
	icon, style := eventIcon(ev.Level)
	line := fmt.Sprintf("%s %s", style(icon), ev.Message)
	if len(ev.Fields) > 0 {
		parts := make([]string, 0, len(ev.Fields))
		for k, v := range ev.Fields {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
		line += " " + dimStyle.Render(strings.Join(parts, " "))
	}
	return line
}

// Error renders a terminal failure line.
func Error(err error) string {
	return fmt.Sprintf("%s %s", failedStyle.Render(crossMark), err.Error())
}

func eventIcon(level provisioning.EventLevel) (string, styleFunc) {
	if level == provisioning.LevelWarn {
		return warnMark, sf(warningStyle)
	}
	return checkMark, sf(okStyle)
}
