// api/schemas/states.go
package schemas

// -- Element States --

// ElementState is a single observable state of an element. StateStable is
// only meaningful inside a multi-state query; it has its own evaluation path.
type ElementState string

const (
	StateVisible       ElementState = "visible"
	StateHidden        ElementState = "hidden"
	StateEnabled       ElementState = "enabled"
	StateDisabled      ElementState = "disabled"
	StateEditable      ElementState = "editable"
	StateChecked       ElementState = "checked"
	StateUnchecked     ElementState = "unchecked"
	StateIndeterminate ElementState = "indeterminate"
	StateStable        ElementState = "stable"
	StateInView        ElementState = "inview"
	StateNotInView     ElementState = "notinview"
	StateUnviewable    ElementState = "unviewable"
)

// InteractionType names a simulated user interaction.
type InteractionType string

const (
	InteractClick       InteractionType = "click"
	InteractDoubleClick InteractionType = "doubleclick"
	InteractHover       InteractionType = "hover"
	InteractDrag        InteractionType = "drag"
	InteractType        InteractionType = "type"
	InteractClear       InteractionType = "clear"
	InteractScreenshot  InteractionType = "screenshot"
)

// RequiredStates returns the states an element must hold before the
// interaction may be simulated.
func (t InteractionType) RequiredStates() []ElementState {
	states := []ElementState{StateStable, StateVisible, StateInView}
	switch t {
	case InteractClick, InteractDoubleClick, InteractHover, InteractDrag:
		states = append(states, StateEnabled)
	case InteractType, InteractClear:
		states = append(states, StateEnabled, StateEditable)
	}
	return states
}

// -- Query Results --

// StateResult is the outcome of a single-state query. Received carries the
// observed state name, or an "error:..." value when the element could not be
// inspected at all.
type StateResult struct {
	Matches  bool   `json:"matches"`
	Received string `json:"received"`
}

// StatesStatus is the tri-state outcome of a multi-state query.
type StatesStatus string

const (
	StatesSuccess StatesStatus = "success"
	StatesFailure StatesStatus = "failure"
	StatesError   StatesStatus = "error"
)

// StatesResult reports a multi-state query: success when every requested
// state matched, failure naming the first state that did not, or error.
type StatesResult struct {
	Status       StatesStatus `json:"status"`
	MissingState ElementState `json:"missingState,omitempty"`
	Message      string       `json:"message,omitempty"`
}

// -- Click Point Resolution --

// PointStatus is the outcome of click-point resolution.
type PointStatus string

const (
	PointResolved PointStatus = "point"
	PointError    PointStatus = "error"
)

// ClickPointResult carries either the resolved hit point or a human-readable
// message identifying what obscures the target.
type ClickPointResult struct {
	Status  PointStatus `json:"status"`
	Point   Point       `json:"point,omitempty"`
	Message string      `json:"message,omitempty"`
}

// -- Interaction Readiness --

// Readiness classifies an interaction-readiness probe.
type Readiness string

const (
	// Ready means every required state holds and a hit point was resolved.
	Ready Readiness = "ready"
	// NeedsScroll means the element is out of view but scrolling can fix it.
	NeedsScroll Readiness = "needsscroll"
	// NotReady means a required state is missing but retrying may help.
	NotReady Readiness = "notready"
)

// ReadinessResult reports an interaction-readiness probe. Point is set only
// when Status is Ready.
type ReadinessResult struct {
	Status       Readiness    `json:"status"`
	Point        *Point       `json:"point,omitempty"`
	MissingState ElementState `json:"missingState,omitempty"`
}
