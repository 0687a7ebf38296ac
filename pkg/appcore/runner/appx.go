package runner

import (
	"fmt"
	"strings"

	"winforge/pkg/appcore"
)

// APPX packages are managed through the platform package manager rather
// than invoked directly; on Windows that is the Appx PowerShell module.
func composeAPPXInstall(d appcore.PackageDescriptor, path string) []string {
	return []string{"powershell.exe", "-NoProfile", "-NonInteractive", "-Command", "Add-AppxPackage", "-Path", path}
}

func composeAPPXUninstall(d appcore.PackageDescriptor) []string {
	script := fmt.Sprintf("Get-AppxPackage -Name %s | Remove-AppxPackage", quotePSArg(d.Name))
	return []string{"powershell.exe", "-NoProfile", "-NonInteractive", "-Command", script}
}

// quotePSArg wraps a value in single quotes for interpolation into a
// PowerShell -Command script string, doubling any embedded single quotes
// per PowerShell's escaping rule.
func quotePSArg(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
