package command

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestGhRunner_GetPRBaseBranch(t *testing.T) {
	prView := Request{
		Name: "gh",
		Args: []string{"pr", "view", "42", "--json", "baseRefName", "--jq", ".baseRefName"},
		Dir:  "/test/repo",
	}

	tests := []struct {
		name        string
		setupMock   func(*MockRunner)
		want        string
		wantErr     bool
		errContains string
	}{
		{
			name: "returns trimmed base branch",
			setupMock: func(m *MockRunner) {
				m.EXPECT().
					Run(gomock.Any(), prView).
					Return(&Result{Stdout: "main\n"}, nil)
			},
			want: "main",
		},
		{
			name: "fails when gh exits non-zero",
			setupMock: func(m *MockRunner) {
				m.EXPECT().
					Run(gomock.Any(), prView).
					Return(&Result{ExitCode: 1, Stderr: "no pull requests found"}, nil)
			},
			wantErr:     true,
			errContains: "no pull requests found",
		},
		{
			name: "fails when gh is missing",
			setupMock: func(m *MockRunner) {
				m.EXPECT().
					Run(gomock.Any(), prView).
					Return(nil, fmt.Errorf("%w: gh", ErrScriptSpawn))
			},
			wantErr:     true,
			errContains: "failed to get PR base branch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockRunner := NewMockRunner(ctrl)
			tt.setupMock(mockRunner)

			got, err := NewGhRunner(mockRunner).GetPRBaseBranch(context.Background(), "/test/repo", "42")

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
