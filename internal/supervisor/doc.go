// Cascade - Flight Delay Cascade Risk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cascade

/*
Package supervisor runs Cascade's long-lived services under a suture v4
supervisor tree.

The tree has two layers below the root:

	cascade (root)
	├── data-layer  reference refresh loop
	└── api-layer   HTTP server

A failing refresh loop is restarted with backoff without taking the HTTP
server down; the API keeps answering from the upstream service, snapshots
and the mirror it already has. Supervisor events are logged through
sutureslog, bridged to zerolog by logging.NewSlogLogger.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddDataService(services.NewRefreshService(refresher, interval, true))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	errCh := tree.ServeBackground(ctx)
*/
package supervisor
