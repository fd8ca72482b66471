// Package app is the composition root for the tarmac console.
//
// Run loads the configuration, opens the logger, the record store and the
// gate's session store, then starts the engine subscription and the terminal
// UI. When metrics.addr is set an admin listener serving /metrics and
// /healthz runs next to the UI in the same errgroup; quitting the UI stops
// it.
//
// # Store selection
//
// store.backend picks mongo, redis or file. The mongo and redis backends are
// pinged at startup. If the ping fails and store.fallback is true the local
// file store is used instead and the header shows LOCAL FALLBACK; otherwise
// Run returns the error.
//
// # Startup order
//
//	config.Load ─> logging.New ─> openStore ─> openSession
//	    ─> gate.New(ui.SecretPrompter) ─> engine.New ─> Subscribe
//	    ─> errgroup{ ui.Run, metrics.Serve }
//
// A failed initial subscription is logged, not fatal: the header shows the
// error and the console still starts.
package app
