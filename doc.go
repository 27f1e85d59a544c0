// Package hearth is the Composition Root for the hearth application.
//
// It connects the HTTP framework (pkg/server), the file-per-record JSON store
// (pkg/core over pkg/adapters/fs) and the token authority (pkg/token) into a
// small JSON API server.
//
// Philosophy:
//
// Hearth needs no database. Every record is a JSON file under
// <data-dir>/<collection>/<key>.json, written atomically, so the data can be
// inspected and edited with ordinary tools while the server runs.
//
// Features:
//
//   - **Handler Contract**: Handlers receive a decoded Request and return a Response value; the dispatcher owns the wire.
//   - **Panic Isolation**: A failing handler yields a 500 for that request only.
//   - **Atomic Records**: Temp-file + link/rename writes, optional per-key locks for read-modify-write.
//   - **Typed Collections**: Generic wrapper (`NewCollection[T]`) for type-safe record access.
//   - **Session Tokens**: Random 20-character ids with a sliding one hour expiry.
//
// Usage:
//
//	cfg, err := hearth.LoadConfig("hearth.yaml")
//	app, err := hearth.NewApp(ctx, cfg, logger)
//	err = app.Run(ctx)
package hearth
