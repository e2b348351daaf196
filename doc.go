// Package main implements wingui, a terminal front-end for the Windows
// Package Manager (winget).
//
// wingui provides an interactive terminal interface to:
//   - Search the winget catalogue and browse the results
//   - Read each package's description, fetched in the background
//   - Install and uninstall packages with winget's output streamed live
//   - Review and apply pending upgrades in bulk
//
// The application uses the Bubbletea framework with the Elm architecture pattern
// for state management. Every command is run as a discrete argument vector,
// never through a shell.
//
// # Architecture
//
// The codebase is organized into the following components:
//
//   - winget.go: Command construction (Winget) and captured queries (PackageSource interface)
//   - streamer.go: Live process streaming into a LineSink, one busy window per run
//   - classify.go: Chunk splitting and progress classification with the extensible ChunkClassifier interface
//   - buffer.go: The DisplayBuffer line model behind the log panel
//   - parser.go: Search table and description parsing
//   - reducer.go: ScreenState, the search/detail navigation and description cache
//   - decode.go: Output decoding to UTF-8
//   - model.go, upgrades.go: Search/detail and upgrade-manager TUI models
//   - sink.go: Sinks that carry streamed output to the TUI or a plain terminal
//   - cli.go, config.go, logging.go: Command line, YAML config and slog setup
//   - styles.go, keys.go, messages.go, helpers.go: Presentation support
//
// # Extensibility
//
// Custom progress classifiers can be registered using RegisterClassifier:
//
//	RegisterClassifier(&MyClassifier{})
//
// The PackageSource, LineSink and BusyGuard interfaces allow for custom
// implementations and easier testing through dependency injection.
package main
