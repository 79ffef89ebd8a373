// Package meta holds build information for servicewrap.
package meta

import "fmt"

var (
	// Version is the compile-time set version of servicewrap.
	Version = "v0.0.0-unknown"

	// UserAgent is the http client identifier derived from Version.
	UserAgent string
)

func init() {
	UserAgent = fmt.Sprintf("servicewrap/%v", Version)
}
