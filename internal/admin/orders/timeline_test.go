package orders

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func activeStages(steps []TimelineStep) []Stage {
	var active []Stage
	for _, step := range steps {
		if step.Active {
			active = append(active, step.Stage)
		}
	}
	return active
}

func TestProjectOrderTimeline(t *testing.T) {
	t.Parallel()

	steps, err := Project(KindOrder, "Confirmed")
	require.NoError(t, err)
	require.Len(t, steps, 4)
	require.Equal(t, []Stage{StagePlaced, StageConfirmed, StagePacked, StageShipped}, activeStages(steps))

	steps, err = Project(KindOrder, "PendingPayment")
	require.NoError(t, err)
	require.Equal(t, []Stage{StagePlaced}, activeStages(steps))
}

func TestProjectCancelledShortCircuits(t *testing.T) {
	t.Parallel()

	first, err := Project(KindOrder, "Cancelled")
	require.NoError(t, err)
	require.Equal(t, []Stage{StagePlaced}, activeStages(first))

	for i := 0; i < 3; i++ {
		again, err := Project(KindOrder, "Cancelled")
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestProjectStageOrderIsFixed(t *testing.T) {
	t.Parallel()

	for _, status := range OrderStatuses() {
		steps := ProjectOrder(status)
		stages := make([]Stage, 0, len(steps))
		for _, step := range steps {
			stages = append(stages, step.Stage)
		}
		require.Equal(t, []Stage{StagePlaced, StageConfirmed, StagePacked, StageShipped}, stages)
		require.True(t, steps[0].Active)
	}
}

func TestProjectReturnHasNoTimeline(t *testing.T) {
	t.Parallel()

	steps, err := Project(KindReturn, "Approved")
	require.NoError(t, err)
	require.Empty(t, steps)

	_, err = Project(KindReturn, "Shipped")
	require.ErrorIs(t, err, ErrUnknownStatus)
}

func TestDetailMilestones(t *testing.T) {
	t.Parallel()

	milestones := DetailMilestones(StatusConfirmed)
	require.Len(t, milestones, 3)
	require.Equal(t, "Order received", milestones[0].Label)
	for _, m := range milestones {
		require.True(t, m.Active, m.Label)
	}

	pending := DetailMilestones(StatusPendingPayment)
	require.True(t, pending[0].Active)
	require.False(t, pending[1].Active)
	require.False(t, pending[2].Active)

	cancelled := DetailMilestones(StatusCancelled)
	require.True(t, cancelled[0].Active)
	require.False(t, cancelled[1].Active)
	require.False(t, cancelled[2].Active)
}
