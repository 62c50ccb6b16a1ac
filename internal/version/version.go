package version

// Version is stamped at build time:
//
//	-ldflags "-X github.com/KumVivek/copilot-instruction-agent/internal/version.Version=v1.0.0"
//
// Unstamped builds report "dev".
var Version = "dev"
