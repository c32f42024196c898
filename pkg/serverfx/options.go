package serverfx

// Options identify the service and the bundle directory it hosts.
type Options struct {
	Service   string // for logs only
	BundleDir string // directory whose subdirectories are applications
}
