package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/trowel/internal/core/domain"
)

func TestBuildPlan(t *testing.T) {
	plan := domain.BuildPlan()

	require.Len(t, plan.Stages, 3)
	assert.Equal(t, []string{"html", "font", "js", "img"}, plan.Stages[0].Names())
	assert.Equal(t, []string{"sprite"}, plan.Stages[1].Names())
	assert.Equal(t, []string{"css"}, plan.Stages[2].Names())

	g, err := domain.DefaultGraph()
	require.NoError(t, err)
	require.NoError(t, g.ValidatePlan(plan))
}

func TestValidatePlan(t *testing.T) {
	g, err := domain.DefaultGraph()
	require.NoError(t, err)

	tests := []struct {
		name    string
		plan    domain.Plan
		wantErr error
	}{
		{
			name: "style alongside sprite",
			plan: domain.Plan{Name: "flat", Stages: []domain.Stage{
				domain.InternAll("html", "sprite", "css"),
			}},
			wantErr: domain.ErrArtifactOrdering,
		},
		{
			name: "style before sprite",
			plan: domain.Plan{Name: "reversed", Stages: []domain.Stage{
				domain.InternAll("css"),
				domain.InternAll("sprite"),
			}},
			wantErr: domain.ErrArtifactOrdering,
		},
		{
			name: "style without sprite",
			plan: domain.Plan{Name: "style-only", Stages: []domain.Stage{
				domain.InternAll("css"),
			}},
			wantErr: domain.ErrArtifactOrdering,
		},
		{
			name: "unknown task",
			plan: domain.Plan{Name: "typo", Stages: []domain.Stage{
				domain.InternAll("htlm"),
			}},
			wantErr: domain.ErrTaskNotFound,
		},
		{
			name: "aggregate overlaps member",
			plan: domain.Plan{Name: "overlap", Stages: []domain.Stage{
				domain.InternAll("js"),
				domain.InternAll("js:app"),
			}},
			wantErr: domain.ErrTaskPlannedTwice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.ValidatePlan(tt.plan)
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.wantErr.Error())
		})
	}
}
