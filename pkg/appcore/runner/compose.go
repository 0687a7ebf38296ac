package runner

import "winforge/pkg/appcore"

// composeInstall and composeUninstall are the tagged-variant dispatch
// table over installer kinds, which keeps the Runner pure over its
// inputs.
func composeInstall(d appcore.PackageDescriptor, path string) ([]string, error) {
	switch d.InstallerKind {
	case appcore.KindMSI:
		return composeMSIInstall(d, path), nil
	case appcore.KindEXE:
		return composeEXEInstall(d, path), nil
	case appcore.KindAPPX:
		return composeAPPXInstall(d, path), nil
	default:
		return nil, appcore.NewError(appcore.KindUninstallUnsupported, "unknown installer_kind %q", d.InstallerKind).WithAppID(d.AppID)
	}
}

func composeUninstall(d appcore.PackageDescriptor, path string) ([]string, error) {
	switch d.InstallerKind {
	case appcore.KindMSI:
		return composeMSIUninstall(d, path)
	case appcore.KindEXE:
		return composeEXEUninstall(d)
	case appcore.KindAPPX:
		return composeAPPXUninstall(d), nil
	default:
		return nil, appcore.NewError(appcore.KindUninstallUnsupported, "unknown installer_kind %q", d.InstallerKind).WithAppID(d.AppID)
	}
}
