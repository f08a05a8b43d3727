// Package log provides the application's slog setup.
//
// Every logger is wrapped in a SecureHandler, which:
//   - masks credential-like attributes (passwords, tokens, authorization
//     headers) by key name or value pattern
//   - redacts passwords embedded in URLs, such as a SOCKS5 proxy address
//   - strips control characters from strings and truncates them, because
//     banners logged during identification are untrusted remote text
//
// # Usage
//
//	logger, closer, err := log.New(os.Stderr, log.Options{Verbose: true, File: "portvapt.log"})
//	if err != nil {
//	    return err
//	}
//	defer closer.Close()
//	slog.SetDefault(logger)
//
// Log files are rotated by size with lumberjack.
package log
