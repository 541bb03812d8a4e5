// Package app provides the application context for ai-pod.
//
// This package manages application-wide dependencies using the functional
// options pattern, enabling easy testing through dependency injection.
//
// # App Context
//
// The App struct holds core dependencies:
//
//	type App struct {
//	    Paths    *config.Paths     // File system paths
//	    Settings *config.Settings  // config.toml plus env overrides
//	    Runtime  runtime.Runtime   // Container runtime
//	    ...
//	}
//
// and builds the components a command needs from them: ImageGate,
// Controller, Supervisor, Materializer and Audit.
//
// # Creating an App
//
//	// Production usage
//	a, err := app.New()
//
//	// Testing with custom dependencies
//	a, err := app.New(
//	    app.WithPaths(testPaths),
//	    app.WithSettings(config.DefaultSettings()),
//	    app.WithRuntime(mockRuntime),
//	)
package app
