// Package tui provides the terminal dashboard for watching a workflow run.
//
// The dashboard is strictly a consumer: it renders orchestrator events and
// status snapshots sent to it as messages and never mutates orchestrator
// state. The run command wires it up like this:
//
//	program, _ := tui.NewWatchProgram("my workflow")
//	go func() {
//		for ev := range orch.Events() {
//			program.Send(tui.EventMsg{Event: ev})
//		}
//	}()
//	program.Send(tui.StatusMsg{Snapshot: snapshot})
//	program.Send(tui.DoneMsg{Err: err})
//
// Users can only quit, with 'q' or Ctrl+C.
package tui
