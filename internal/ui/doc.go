// Package ui is the Bubble Tea console for tarmac.
//
// # Layout
//
//	tarmac  ● MONGO LIVE  Flights: 2/3  Passengers: 180  Babies: 3  Undo TK-601 (7s)
//	n:New  e:Edit  d:Delete  u:Undo  f:All  m/M:Month  c:Company  /:Filters  r:Reset
//	┌──────────────────────────── Flights 2/3 ─────────────────────────────┐
//	│ Date       Movement  Company   Flight  Registration  Authorization … │
//	└──────────────────────────────────────────────────────────────────────┘
//	Filter: March · Departure
//
// The header shows the active record store and whether its push stream is
// live, the visible and total flight counts, passenger totals for the
// visible rows and the undo countdown. The footer shows the latest
// notification for three seconds, then the active filters.
//
// # Data Flow
//
// The model never mutates engine state. It reads engine.Snapshot after each
// signal on Engine.Updates and derives the rows with view.Compute. Mutating
// actions run as commands: each one goes through Gate.RunIfAuthenticated,
// calls the engine, and returns exactly one actionResultMsg, which becomes
// one notification.
//
// # Authentication
//
// SecretPrompter implements gate.Prompter. When the gate needs the secret it
// blocks in the action's command goroutine while the model shows a masked
// input modal; Enter or Esc answers the gate.
//
// # Files
//
//   - app.go: Model, Update loop, selection and commands
//   - actions.go: create, update, delete and undo commands and their notifications
//   - form.go, filter.go, prompt.go: modals built on fields.go
//   - header.go, table.go, activity.go, help.go: rendering
//   - theme.go, style_helpers.go: palettes and background-safe rendering
package ui
