// Package app wires the GridPulse server together: configuration, logging,
// telemetry, the dataset pipeline and store, the realtime hub and the HTTP
// router.
//
// # Initialization Flow
//
//	1. Load configuration (defaults, YAML file, environment)
//	2. Initialize logging and OpenTelemetry
//	3. Resolve and create the data, exports and logs directories
//	4. Build the pipeline, dataset store, source fetcher and hub
//	5. Mount middleware and routes
//
// # Usage
//
//	a, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return a.Run(ctx)
//
// Run blocks until ctx is cancelled or the server fails. It preloads the
// default source in the background; a missing or malformed source is logged
// and the server keeps running without a default dataset. When a refresh
// schedule is configured the default source is re-fetched on that schedule
// and every load is pushed to websocket clients.
//
// The package never calls os.Exit; the command decides how to exit.
package app
