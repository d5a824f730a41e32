package environment

import "slices"

// posixAllowlist holds the variables a POSIX shell and its common tools need.
// None of them carry credentials by convention.
var posixAllowlist = []string{
	// Paths and identity
	"PATH", "HOME", "USER", "LOGNAME", "SHELL", "TMPDIR",
	// Locale
	"LANG", "LANGUAGE", "LC_ALL", "LC_CTYPE", "LC_MESSAGES", "LC_COLLATE",
	"LC_NUMERIC", "LC_TIME", "LC_MONETARY", "TZ",
	// Display
	"DISPLAY", "WAYLAND_DISPLAY", "XAUTHORITY",
	// Session and runtime directories
	"XDG_RUNTIME_DIR", "XDG_SESSION_TYPE", "XDG_SESSION_ID", "XDG_CURRENT_DESKTOP",
	"XDG_CONFIG_HOME", "XDG_DATA_HOME", "XDG_CACHE_HOME", "XDG_STATE_HOME",
	"DBUS_SESSION_BUS_ADDRESS",
	// Agent socket; the socket itself enforces access
	"SSH_AUTH_SOCK",
	// Editors and pagers
	"EDITOR", "VISUAL", "PAGER",
}

// windowsAllowlist holds the variables cmd.exe, PowerShell and common tools need.
var windowsAllowlist = []string{
	"PATH", "PATHEXT", "COMSPEC",
	"SYSTEMROOT", "SYSTEMDRIVE", "WINDIR",
	"USERPROFILE", "USERNAME", "USERDOMAIN", "HOMEDRIVE", "HOMEPATH",
	"APPDATA", "LOCALAPPDATA", "PROGRAMDATA", "PROGRAMFILES", "PROGRAMFILES(X86)",
	"TEMP", "TMP",
	"LANG",
	"PROCESSOR_ARCHITECTURE", "NUMBER_OF_PROCESSORS", "OS",
}

// allowlists maps each platform to its allowlist. PlatformUnknown is absent on purpose.
var allowlists = map[Platform][]string{
	PlatformPOSIX:   posixAllowlist,
	PlatformWindows: windowsAllowlist,
}

// Allowlist returns a copy of the allowlist for platform.
// It returns nil for PlatformUnknown.
func Allowlist(platform Platform) []string {
	return slices.Clone(allowlists[platform])
}
