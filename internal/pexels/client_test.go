// internal/pexels/client_test.go
package pexels

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("Authorization"))
		assert.Equal(t, "kitchen night practical light", r.URL.Query().Get("query"))
		assert.Equal(t, "5", r.URL.Query().Get("per_page"))
		assert.Equal(t, "landscape", r.URL.Query().Get("orientation"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"photos":[{"id":101,"url":"https://pexels.com/photo/101","photographer":"Ana Reyes","photographer_url":"https://pexels.com/@ana","alt":"woman at kitchen table, single lamp","src":{"original":"https://img/o","large":"https://img/l","medium":"https://img/m"}}],"total_results":1}`))
	}))
	defer server.Close()

	client := NewClient("test-api-key")
	client.SetBaseURL(server.URL)

	photos, err := client.Search(context.Background(), "kitchen night practical light", 5)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, 101, photos[0].ID)
	assert.Equal(t, "Ana Reyes", photos[0].Photographer)
	assert.Equal(t, "https://img/l", photos[0].Src.Large)
}

func TestSearchRequiresAPIKey(t *testing.T) {
	client := NewClient("")

	_, err := client.Search(context.Background(), "anything", 5)
	assert.Error(t, err)
}

func TestSearchNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer server.Close()

	client := NewClient("test-api-key")
	client.SetBaseURL(server.URL)

	_, err := client.Search(context.Background(), "anything", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestFormatAttribution(t *testing.T) {
	photo := Photo{
		ID:              101,
		Photographer:    "Ana Reyes",
		PhotographerURL: "https://pexels.com/@ana",
		Src: PhotoSrc{
			Large:  "https://img/l",
			Medium: "https://img/m",
		},
	}

	attribution := FormatAttribution(photo)
	assert.Equal(t, "https://img/l", attribution.URL)
	assert.Equal(t, "https://img/m", attribution.PreviewURL)
	assert.Equal(t, "Photo by Ana Reyes", attribution.AttributionText)
	assert.Equal(t, "https://pexels.com/@ana", attribution.AttributionURL)
	assert.Equal(t, LicenseInfo, attribution.LicenseInfo)
	assert.Equal(t, "pexels", attribution.Provider)
}
