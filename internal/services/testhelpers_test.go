// internal/services/testhelpers_test.go
package services

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/stillhouse/shotlist/internal/llm"
	"github.com/stillhouse/shotlist/internal/models"
	"github.com/stillhouse/shotlist/internal/pexels"
	"github.com/stillhouse/shotlist/internal/store"
)

const testUserID = "user-test-1"

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "shotlist_test.db"))
	require.NoError(t, err)
	return s
}

// fakeProvider 按队列回放预设响应，记录收到的请求
type fakeProvider struct {
	mu        sync.Mutex
	responses []string
	err       error
	requests  []llm.CompletionRequest
}

func (f *fakeProvider) Initialize(config map[string]string) error { return nil }
func (f *fakeProvider) GetName() string                           { return "fake" }
func (f *fakeProvider) GetSupportedModels() []string              { return []string{"fake-model"} }

func (f *fakeProvider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return nil, errors.New("fake provider: no responses queued")
	}
	text := f.responses[0]
	f.responses = f.responses[1:]
	return &llm.CompletionResponse{Text: text}, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeProvider) lastRequest() llm.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newFakeLLM(responses ...string) (*LLMService, *fakeProvider) {
	provider := &fakeProvider{responses: responses}
	return NewLLMServiceWithProvider("fake", provider), provider
}

// fakeSearcher 每个查询返回固定数量的可区分候选图片
type fakeSearcher struct {
	mu       sync.Mutex
	perQuery int
	err      error
	queries  []string
	perPages []int
}

func (f *fakeSearcher) Search(ctx context.Context, query string, perPage int) ([]pexels.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queries = append(f.queries, query)
	f.perPages = append(f.perPages, perPage)
	if f.err != nil {
		return nil, f.err
	}

	n := f.perQuery
	if n > perPage {
		n = perPage
	}
	photos := make([]pexels.Photo, 0, n)
	for i := 0; i < n; i++ {
		photos = append(photos, pexels.Photo{
			ID:              len(f.queries)*1000 + i,
			Photographer:    "Photographer " + query,
			PhotographerURL: "https://pexels.com/@" + query,
			Alt:             query + " candidate",
			Src: pexels.PhotoSrc{
				Large:  "https://images.example/" + query + "/large/" + strconv.Itoa(i),
				Medium: "https://images.example/" + query + "/medium/" + strconv.Itoa(i),
			},
		})
	}
	return photos, nil
}

func insertTestProject(t *testing.T, s *store.Store, userID string) *models.Project {
	t.Helper()

	project := &models.Project{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     "Night Shift",
		LookWords: models.StringList{"muted", "practical", "close"},
		Constraints: models.ProjectConstraints{
			Budget:       models.BudgetMicro,
			CrewSize:     models.CrewSkeleton,
			CoverageMode: models.CoverageMinimal,
		},
	}
	require.NoError(t, s.CreateProject(project))
	return project
}

func insertTestScene(t *testing.T, s *store.Store, projectID string, number int) *models.Scene {
	t.Helper()

	scene := &models.Scene{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		SceneNumber: number,
		IntExt:      "INT",
		Location:    "APARTMENT - KITCHEN",
		TimeOfDay:   "NIGHT",
		Characters:  models.StringList{"MARA"},
		BeatSummary: "Mara waits for a call that does not come.",
		CreatedAt:   time.Now(),
	}
	require.NoError(t, s.InsertScenes([]models.Scene{*scene}))
	return scene
}

func insertTestShot(t *testing.T, s *store.Store, sceneID string, position int, searchPrompts []string) *models.Shot {
	t.Helper()

	shot := &models.Shot{
		ID:            uuid.NewString(),
		SceneID:       sceneID,
		ShotCode:      "1A",
		PositionIndex: position,
		ShotSize:      "MCU",
		Angle:         "eye-level",
		Movement:      "static",
		IntentText:    "Hold on Mara's stillness.",
		SearchPrompts: searchPrompts,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	require.NoError(t, s.InsertShots([]models.Shot{*shot}))
	return shot
}
