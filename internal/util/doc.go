// Package util provides small formatting helpers shared by the servicewrap commands.
//
// Usage example:
//
//	log.Info("Note that the next probe will be performed in " + util.FormatDuration(time.Until(next)))
package util
