package category_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/NickArm/Invoice-System-sub001/internal/apperror"
	"github.com/NickArm/Invoice-System-sub001/internal/category"
)

func TestService_Create(t *testing.T) {
	ownerID := uuid.New()

	type testCase struct {
		name      string
		params    category.Params
		setupMock func(m *category.MockRepository)
		wantErr   error
	}

	tests := []testCase{
		{
			name:   "Success",
			params: category.Params{Name: " Utilities ", Color: "#ff8800"},
			setupMock: func(m *category.MockRepository) {
				m.EXPECT().
					CreateCategory(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, c *category.Category) error {
						assert.Equal(t, "Utilities", c.Name)
						assert.Equal(t, ownerID, c.UserID)
						return nil
					})
			},
		},
		{
			name:    "BadColor",
			params:  category.Params{Name: "Utilities", Color: "orange"},
			wantErr: &apperror.ValidationError{},
		},
		{
			name:   "DuplicateName",
			params: category.Params{Name: "Utilities"},
			setupMock: func(m *category.MockRepository) {
				m.EXPECT().CreateCategory(gomock.Any(), gomock.Any()).Return(category.ErrNameTaken)
			},
			wantErr: apperror.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := category.NewMockRepository(ctrl)

			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			_, err := category.NewService(repo).Create(context.Background(), ownerID, tt.params)

			switch want := tt.wantErr.(type) {
			case nil:
				assert.NoError(t, err)
			case *apperror.ValidationError:
				require.ErrorAs(t, err, &want)
				assert.Equal(t, "must be a hex color", want.Fields["color"])
			default:
				assert.ErrorIs(t, err, want)
			}
		})
	}
}

func TestService_UpdateNotOwned(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := category.NewMockRepository(ctrl)

	ownerID, id := uuid.New(), uuid.New()
	repo.EXPECT().GetCategory(gomock.Any(), ownerID, id).Return(nil, category.ErrNotFound)

	_, err := category.NewService(repo).Update(context.Background(), ownerID, id, category.Params{Name: "x"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
