package sourcetool

// Version is the release of this module. Builds override it with
// -ldflags "-X github.com/trysourcetool/sourcetool.Version=...".
var Version = "0.1.0-dev"
