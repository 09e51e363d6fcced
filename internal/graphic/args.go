package graphic

// Argument payloads for the commands declared in command.go. Kept as plain
// structs (rather than variadic interface{} params) so callers get compile
// time field checking while Command.Payload stays a single interface{} slot.

type CreateWindowArgs struct {
	Title         string
	Width, Height int
}

type SetWindowSizeArgs struct {
	WindowID      uint64
	Width, Height int
}

type SetWindowTitleArgs struct {
	WindowID uint64
	Title    string
}

type SetWindowModeArgs struct {
	WindowID uint64
	Mode     WindowMode
}

type SetWindowVisibleArgs struct {
	WindowID uint64
	Visible  bool
}

type SetWindowFontArgs struct {
	WindowID uint64
	Font     string
}

type LoadResourceArgs struct {
	Alias        string
	ResolvedPath string
}

type ComponentArgs struct {
	EntityID  uint64
	Component string
	Fields    map[string]interface{}
}

type SetSystemEnabledArgs struct {
	Name    string
	Enabled bool
}

type CreateWidgetArgs struct {
	WindowID   uint64
	Kind       string
	Properties map[string]interface{}
	ResourceID string
}

type SetWidgetPropertyArgs struct {
	WidgetID uint64
	Key      string
	Value    interface{}
}
