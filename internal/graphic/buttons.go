package graphic

// EffectiveButtonColor computes the fallback cascade from spec §4.7: when a
// button entity carries the pseudo-components
// HoverBackgroundColor/PressedBackgroundColor/DisabledBackgroundColor,
// interaction-state changes cascade pressed -> hover -> normal, and
// disabled short-circuits to the disabled colour (or normal, if none is
// configured).
func EffectiveButtonColor(e *Entity, state InteractionState, disabled bool, normal string) string {
	if disabled {
		if c, ok := colorField(e, "DisabledBackgroundColor"); ok {
			return c
		}
		return normal
	}

	if state == InteractionPressed {
		if c, ok := colorField(e, "PressedBackgroundColor"); ok {
			return c
		}
	}
	if state == InteractionPressed || state == InteractionHovered {
		if c, ok := colorField(e, "HoverBackgroundColor"); ok {
			return c
		}
	}
	return normal
}

func colorField(e *Entity, component string) (string, bool) {
	fields, ok := e.Components[component]
	if !ok {
		return "", false
	}
	c, ok := fields["color"].(string)
	return c, ok
}
