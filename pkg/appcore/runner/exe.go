package runner

import "winforge/pkg/appcore"

func composeEXEInstall(d appcore.PackageDescriptor, path string) []string {
	argv := []string{path}
	return append(argv, d.SilentArgs...)
}

func composeEXEUninstall(d appcore.PackageDescriptor) ([]string, error) {
	if len(d.UninstallCommand) == 0 {
		return nil, appcore.NewError(appcore.KindUninstallUnsupported, "no uninstall_command configured for this exe package").WithAppID(d.AppID)
	}
	return d.UninstallCommand, nil
}
