// Package app is the composition root of the lattice viewer.
//
// Run loads the TOML config and the saved preferences, opens the row source
// (the HTTP row API or a local SQLite file), builds a grid with the selected
// theme and restores the remembered column layout. It then starts a Poller
// and hands control to the Bubble Tea UI. When the UI exits, the current
// theme and column layout are written back to the preferences file.
//
// The Poller re-reads the row count of the open store on an interval. A
// change invalidates the row cache so the UI fetches fresh pages; failures
// back off exponentially up to 30 seconds and are reported to subscribers
// without stopping the loop.
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//	if err := app.Run(ctx, app.Options{StoreID: "orders"}); err != nil {
//		log.Fatal(err)
//	}
package app
