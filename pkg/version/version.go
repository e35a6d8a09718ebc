package version

// EmptyValue is the version of binaries built without a release version, such
// as `go build` or `go test` runs.
const EmptyValue = "dev"

// Version is the release version. Release builds set it at link time with
//
//	go build -ldflags "-X github.com/dnmp/dnmp/pkg/version.Version=v1.0.0"
var Version = EmptyValue
