package reconciliation

// Stage identifies one step of the reconciliation workflow. Stages are
// strictly ordered; forward movement is gated, backward movement is free.
type Stage int

const (
	StageImport Stage = iota
	StageAutomatic
	StageManual
	StageConfirmation
)

const stageCount = 4

var stageNames = [stageCount]string{"import", "automatic", "manual", "confirmation"}

func (s Stage) String() string {
	if s < StageImport || s > StageConfirmation {
		return "unknown"
	}
	return stageNames[s]
}

// ParseStage maps a wire name to a Stage.
func ParseStage(name string) (Stage, error) {
	for i, candidate := range stageNames {
		if candidate == name {
			return Stage(i), nil
		}
	}
	return StageImport, ErrUnknownStage
}

// StageGuard exposes the session facts the controller gates on.
type StageGuard interface {
	HasStatement() bool
	MatchingCompleted() bool
	LedgerComplete() bool
}

// StageController is the finite-state machine over workflow stages.
type StageController struct {
	current Stage
	guard   StageGuard
}

// NewStageController constructs a controller at the initial stage.
func NewStageController(guard StageGuard) *StageController {
	return &StageController{current: StageImport, guard: guard}
}

// Current returns the active stage.
func (c *StageController) Current() Stage { return c.current }

// CanEnter reports whether the stage's entry guard is satisfied.
func (c *StageController) CanEnter(stage Stage) bool {
	return c.enterCheck(stage) == nil
}

// Advance moves to the next stage when its guard is satisfied. On guard
// failure the controller stays put and the unmet precondition is returned.
func (c *StageController) Advance() error {
	if c.current >= StageConfirmation {
		return ErrAtFinalStage
	}
	next := c.current + 1
	if err := c.enterCheck(next); err != nil {
		return err
	}
	c.current = next
	return nil
}

// Retreat moves one stage back. Only the initial stage refuses.
func (c *StageController) Retreat() error {
	if c.current <= StageImport {
		return ErrAtInitialStage
	}
	c.current--
	return nil
}

// JumpTo moves directly to the given stage if its guard is satisfied;
// otherwise the controller is left unchanged.
func (c *StageController) JumpTo(stage Stage) error {
	if err := c.enterCheck(stage); err != nil {
		return err
	}
	c.current = stage
	return nil
}

// Reset returns the controller to the initial stage. Used when a new
// statement import discards downstream session data.
func (c *StageController) Reset() {
	c.current = StageImport
}

func (c *StageController) enterCheck(stage Stage) error {
	switch stage {
	case StageImport:
		return nil
	case StageAutomatic:
		if !c.guard.HasStatement() {
			return ErrStatementRequired
		}
		return nil
	case StageManual:
		if !c.guard.MatchingCompleted() {
			return ErrMatchingRequired
		}
		return nil
	case StageConfirmation:
		if !c.guard.MatchingCompleted() {
			return ErrMatchingRequired
		}
		if !c.guard.LedgerComplete() {
			return ErrPendingDecisions
		}
		return nil
	default:
		return ErrUnknownStage
	}
}
