// Package app wires one export run together and owns its lifecycle.
//
// # Initialization Flow
//
//	1. Take a loaded and validated configuration
//	2. Initialize logging and OpenTelemetry
//	3. Build the progress reporter, export tracer and exporter
//	4. Bind the optional status endpoint
//	5. Connect, run the query and export the result
//
// The export and the status server run in one errgroup. The server stops
// as soon as the export returns, whether it succeeded or not.
//
// # Usage
//
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return err
//	}
//	defer application.Close(context.Background())
//	summary, err := application.Run(ctx)
//
// # Error Handling
//
// Errors are returned as typed application errors. The app never calls
// os.Exit; the command maps error types to exit codes.
package app
