package version

// Version is the tool version and the protocol version sent to external
// stages. Override at build time:
// go build -ldflags "-X github.com/rust-lang/mdBook-sub001/internal/version.Version=v0.5.0".
var Version = "0.5.0-dev"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)
