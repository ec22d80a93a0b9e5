package render

import (
	"strings"

	"github.com/fatih/color"
	"github.com/trebuchet-org/treb-deploy/internal/domain/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	verifiedStyle = color.New(color.FgGreen)
	deployedStyle = color.New(color.FgCyan)
	pendingStyle  = color.New(color.FgYellow)
	failedStyle   = color.New(color.FgRed)
	faintStyle    = color.New(color.Faint)
	headerStyle   = color.New(color.FgCyan, color.Bold)
)

// FormatWarning formats a warning message with the warning icon
func FormatWarning(message string) string {
	return color.New(color.FgYellow).Sprintf("⚠️  %s", message)
}

// FormatError formats an error message with the error icon
func FormatError(message string) string {
	// Extract just the error message part (after the last colon if it's an error chain)
	parts := strings.Split(message, ": ")
	msg := parts[len(parts)-1]

	// Capitalize first letter
	if len(msg) > 0 {
		msg = strings.ToUpper(msg[:1]) + msg[1:]
	}

	return color.New(color.FgRed).Sprintf("❌ %s", msg)
}

// FormatSuccess formats a success message with the success icon
func FormatSuccess(message string) string {
	return color.New(color.FgGreen).Sprintf("✅ %s", message)
}

// FormatStatus renders a status as a colored, human readable label
func FormatStatus(status models.DeploymentStatus) string {
	label := cases.Title(language.English).String(strings.ReplaceAll(strings.ToLower(string(status)), "_", " "))
	switch status {
	case models.StatusVerified:
		return verifiedStyle.Sprint("✓ " + label)
	case models.StatusDeployed:
		return deployedStyle.Sprint("● " + label)
	case models.StatusPending, models.StatusVerificationPending:
		return pendingStyle.Sprint("⏳ " + label)
	case models.StatusFailed:
		return failedStyle.Sprint("✗ " + label)
	default:
		return label
	}
}

// shortHash abbreviates a hash or address for table cells
func shortHash(s string) string {
	if len(s) <= 14 {
		return s
	}
	return s[:8] + "…" + s[len(s)-4:]
}
