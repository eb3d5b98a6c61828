package switchback

// Version is the library version. Builds may override it via
// -ldflags "-X github.com/aretw0/switchback.Version=...".
var Version = "0.1.0"
