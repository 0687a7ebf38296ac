package runner

import "winforge/pkg/appcore"

func composeMSIInstall(d appcore.PackageDescriptor, path string) []string {
	argv := []string{"msiexec", "/i", path, "/qn"}
	return append(argv, d.SilentArgs...)
}

func composeMSIUninstall(d appcore.PackageDescriptor, path string) ([]string, error) {
	if path == "" {
		return nil, appcore.NewError(appcore.KindUninstallUnsupported, "msi uninstall requires the installer path").WithAppID(d.AppID)
	}
	return []string{"msiexec", "/x", path, "/qn"}, nil
}
