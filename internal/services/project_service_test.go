// internal/services/project_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/stillhouse/shotlist/internal/errors"
	"github.com/stillhouse/shotlist/internal/models"
)

func validCreateRequest() CreateProjectRequest {
	return CreateProjectRequest{
		Title:     "Night Shift",
		LookWords: []string{"muted", "practical", "close"},
		Constraints: models.ProjectConstraints{
			Budget:       models.BudgetMicro,
			CrewSize:     models.CrewSkeleton,
			CoverageMode: models.CoverageMinimal,
		},
	}
}

func TestNormalizeLookWords(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "trims and lowercases",
			input:    []string{"  Muted ", "PRACTICAL"},
			expected: []string{"muted", "practical"},
		},
		{
			name:     "dedupes preserving first occurrence order",
			input:    []string{"muted", "close", "Muted", "close"},
			expected: []string{"muted", "close"},
		},
		{
			name:     "drops blanks",
			input:    []string{"muted", "   ", ""},
			expected: []string{"muted"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeLookWords(tt.input))
		})
	}
}

func TestCreateProject(t *testing.T) {
	t.Run("valid request persists normalized look words", func(t *testing.T) {
		s := newTestStore(t)
		svc := NewProjectService(s)

		req := validCreateRequest()
		req.LookWords = []string{" Muted ", "PRACTICAL", "muted", "close"}

		project, err := svc.CreateProject(testUserID, req)
		require.NoError(t, err)
		assert.Equal(t, []string{"muted", "practical", "close"}, []string(project.LookWords))
		assert.Equal(t, testUserID, project.UserID)
		assert.NotEmpty(t, project.ID)
	})

	t.Run("blank title is rejected", func(t *testing.T) {
		svc := NewProjectService(newTestStore(t))
		req := validCreateRequest()
		req.Title = "   "

		_, err := svc.CreateProject(testUserID, req)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidationError(err))
	})

	t.Run("look word count is enforced after normalization", func(t *testing.T) {
		svc := NewProjectService(newTestStore(t))

		// 去重后只剩2个
		req := validCreateRequest()
		req.LookWords = []string{"muted", "Muted", "close"}
		_, err := svc.CreateProject(testUserID, req)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidationError(err))

		req = validCreateRequest()
		req.LookWords = []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"}
		_, err = svc.CreateProject(testUserID, req)
		assert.Error(t, err)
	})

	t.Run("invalid constraint tiers are rejected", func(t *testing.T) {
		svc := NewProjectService(newTestStore(t))

		req := validCreateRequest()
		req.Constraints.Budget = "blockbuster"
		_, err := svc.CreateProject(testUserID, req)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidationError(err))

		req = validCreateRequest()
		req.Constraints.CoverageMode = "everything"
		_, err = svc.CreateProject(testUserID, req)
		assert.Error(t, err)
	})
}

func TestProjectOwnership(t *testing.T) {
	t.Run("another user's project reads as not found", func(t *testing.T) {
		s := newTestStore(t)
		svc := NewProjectService(s)
		project := insertTestProject(t, s, testUserID)

		_, err := svc.GetProject("user-other", project.ID)
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFoundError(err))

		_, err = svc.GetProject(testUserID, project.ID)
		assert.NoError(t, err)
	})

	t.Run("shot ownership is resolved through the chain", func(t *testing.T) {
		s := newTestStore(t)
		svc := NewProjectService(s)
		project := insertTestProject(t, s, testUserID)
		scene := insertTestScene(t, s, project.ID, 1)
		shot := insertTestShot(t, s, scene.ID, 0, nil)

		got, gotProject, err := svc.GetShotForUser(testUserID, shot.ID)
		require.NoError(t, err)
		assert.Equal(t, shot.ID, got.ID)
		assert.Equal(t, project.ID, gotProject.ID)

		_, _, err = svc.GetShotForUser("user-other", shot.ID)
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFoundError(err))
	})

	t.Run("reference deletion respects the chain", func(t *testing.T) {
		s := newTestStore(t)
		svc := NewProjectService(s)
		project := insertTestProject(t, s, testUserID)
		scene := insertTestScene(t, s, project.ID, 1)
		shot := insertTestShot(t, s, scene.ID, 0, nil)
		require.NoError(t, s.InsertReferences([]models.ShotReference{
			{ID: "ref-1", ShotID: shot.ID, Kind: models.ReferenceKindRecommended, URL: "https://x"},
		}))

		err := svc.DeleteReferenceForUser("user-other", "ref-1")
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFoundError(err))

		require.NoError(t, svc.DeleteReferenceForUser(testUserID, "ref-1"))

		refs, err := s.ReferencesByShot(shot.ID)
		require.NoError(t, err)
		assert.Empty(t, refs)
	})
}

func TestGetProjectTree(t *testing.T) {
	s := newTestStore(t)
	svc := NewProjectService(s)
	project := insertTestProject(t, s, testUserID)

	// 倒序插入，读取必须按场景号升序
	scene2 := insertTestScene(t, s, project.ID, 2)
	scene1 := insertTestScene(t, s, project.ID, 1)
	shotB := insertTestShot(t, s, scene1.ID, 1, nil)
	shotA := insertTestShot(t, s, scene1.ID, 0, nil)
	require.NoError(t, s.InsertReferences([]models.ShotReference{
		{ID: "ref-1", ShotID: shotA.ID, Kind: models.ReferenceKindRecommended, URL: "https://x"},
	}))

	tree, err := svc.GetProjectTree(context.Background(), testUserID, project.ID)
	require.NoError(t, err)

	require.Len(t, tree.Scenes, 2)
	assert.Equal(t, scene1.ID, tree.Scenes[0].ID)
	assert.Equal(t, scene2.ID, tree.Scenes[1].ID)

	require.Len(t, tree.Scenes[0].Shots, 2)
	assert.Equal(t, shotA.ID, tree.Scenes[0].Shots[0].ID)
	assert.Equal(t, shotB.ID, tree.Scenes[0].Shots[1].ID)

	require.Len(t, tree.Scenes[0].Shots[0].References, 1)
	assert.Equal(t, "ref-1", tree.Scenes[0].Shots[0].References[0].ID)
}

func TestUpdateShot(t *testing.T) {
	t.Run("whitelisted fields only", func(t *testing.T) {
		s := newTestStore(t)
		svc := NewProjectService(s)
		project := insertTestProject(t, s, testUserID)
		scene := insertTestScene(t, s, project.ID, 1)
		shot := insertTestShot(t, s, scene.ID, 0, nil)

		newSize := "CU"
		newIntent := "Closer now, she has decided."
		updated, err := svc.UpdateShot(shot.ID, UpdateShotRequest{
			ShotSize:      &newSize,
			IntentText:    &newIntent,
			SearchPrompts: []string{"woman decision close up low light"},
		})
		require.NoError(t, err)
		assert.Equal(t, "CU", updated.ShotSize)
		assert.Equal(t, newIntent, updated.IntentText)
		assert.Equal(t, models.StringList{"woman decision close up low light"}, updated.SearchPrompts)
		// 未提交的字段不变
		assert.Equal(t, "eye-level", updated.Angle)
		assert.Equal(t, 0, updated.PositionIndex)
	})

	t.Run("empty patch is rejected", func(t *testing.T) {
		svc := NewProjectService(newTestStore(t))

		_, err := svc.UpdateShot("any", UpdateShotRequest{})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidationError(err))
	})

	t.Run("unknown shot is not found", func(t *testing.T) {
		svc := NewProjectService(newTestStore(t))

		code := "2A"
		_, err := svc.UpdateShot("missing", UpdateShotRequest{ShotCode: &code})
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFoundError(err))
	})
}
