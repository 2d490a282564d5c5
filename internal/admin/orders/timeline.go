package orders

// Stage is a named point in an order's fulfilment sequence.
type Stage string

const (
	StagePlaced    Stage = "placed"
	StageConfirmed Stage = "confirmed"
	StagePacked    Stage = "packed"
	StageShipped   Stage = "shipped"
)

// Label returns the display label for the stage.
func (s Stage) Label() string {
	switch s {
	case StagePlaced:
		return "Placed"
	case StageConfirmed:
		return "Payment confirmed"
	case StagePacked:
		return "Packed"
	case StageShipped:
		return "Shipped"
	default:
		return string(s)
	}
}

// TimelineStep is a stage with its activation state.
type TimelineStep struct {
	Stage  Stage
	Active bool
}

var orderStages = []Stage{StagePlaced, StageConfirmed, StagePacked, StageShipped}

// Project derives the ordered fulfilment timeline for a status.
// Returns have no timeline: a valid return status yields an empty slice.
func Project(kind Kind, status string) ([]TimelineStep, error) {
	flags, err := Classify(kind, status)
	if err != nil {
		return nil, err
	}
	if kind == KindReturn {
		return []TimelineStep{}, nil
	}
	return projectOrder(flags), nil
}

// ProjectOrder is Project for an already parsed order status.
func ProjectOrder(status OrderStatus) []TimelineStep {
	return projectOrder(ClassifyOrder(status))
}

func projectOrder(flags StageFlags) []TimelineStep {
	steps := make([]TimelineStep, 0, len(orderStages))
	for _, stage := range orderStages {
		steps = append(steps, TimelineStep{Stage: stage, Active: stageActive(stage, flags)})
	}
	return steps
}

func stageActive(stage Stage, flags StageFlags) bool {
	// Cancelled orders never progress past placement, whatever the other flags say.
	if flags.IsTerminalFailure {
		return stage == StagePlaced
	}
	switch stage {
	case StagePlaced:
		return true
	case StageConfirmed:
		return flags.IsPaid
	case StagePacked, StageShipped:
		// The backend exposes no separate packing or shipping signal.
		return flags.IsTerminalSuccess
	default:
		return false
	}
}

// Milestone is a step of the condensed order detail timeline.
type Milestone struct {
	Label  string
	Active bool
}

// DetailMilestones projects the three-step timeline shown on the order detail page.
func DetailMilestones(status OrderStatus) []Milestone {
	flags := ClassifyOrder(status)
	return []Milestone{
		{Label: "Order received", Active: true},
		{Label: "Payment confirmed", Active: flags.IsPaid && !flags.IsTerminalFailure},
		{Label: "Ready to ship", Active: flags.IsTerminalSuccess},
	}
}
