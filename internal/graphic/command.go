// Package graphic implements the Graphic Proxy and Engine Thread (C7): a
// command/response channel pair between script adapters and a single
// dedicated render-engine goroutine, plus the window/widget/ECS facade
// mediated across that boundary, per spec §4.7.
//
// The command/result shape — every command carries a one-shot reply
// channel, submitted non-blockingly with a full-queue timeout — is
// grounded on the teacher's UnifiedSupervisor.Submit/SubmitBatch
// (kernel/threads/supervisor/unified.go).
package graphic

import "fmt"

// CommandKind enumerates the non-exhaustive command set from spec §4.7.
type CommandKind int

const (
	EnableEngine CommandKind = iota
	Shutdown
	CreateWindow
	CloseWindow
	SetMainWindow
	SetWindowSize
	SetWindowTitle
	SetWindowMode
	SetWindowVisible
	SetWindowFont
	LoadFont
	UnloadFont
	LoadResource
	UnloadResource
	SpawnEntity
	DespawnEntity
	InsertComponent
	UpdateComponent
	RemoveComponent
	QueryEntities
	DeclareSystem
	SetSystemEnabled
	RemoveSystem
	CreateWidget
	DestroyWidget
	SetWidgetProperty
)

// Command is a Proxy->Engine message; every command carries a one-shot
// reply channel for its Result, as spec §4.7 requires.
type Command struct {
	Kind    CommandKind
	Payload interface{}
	Reply   chan *Result
}

// Result is the one-shot reply delivered for every Command.
type Result struct {
	OK      bool
	Error   error
	Payload interface{}
}

// ErrEngineShutdown is returned to every command still in flight when the
// engine thread is shutting down.
var ErrEngineShutdown = fmt.Errorf("engine shutdown")

// ErrQueueFull is returned when the command channel could not accept a
// submission within the submit timeout.
var ErrQueueFull = fmt.Errorf("graphic command queue full")
