// Package bootstrap runs a service through its lifecycle: validate config,
// start components, run hooks, log a startup summary, wait for a signal and
// shut down in reverse order.
//
// # Quick Start
//
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil { ... }
//	app.RegisterComponent(telemetry)
//	app.RegisterComponent(server.NewComponent(srv))
//	app.RegisterComponent(streams)
//	return app.Run(ctx)
//
// RunTask is the variant for finite work such as the names demo: the task
// runs once the service is up and shutdown follows when it returns.
package bootstrap
