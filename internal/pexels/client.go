// internal/pexels/client.go
package pexels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.pexels.com/v1"

	// Pexels免费配额为200次/小时，客户端侧限速避免触发429
	requestsPerSecond = 1
	requestBurst      = 3
)

// LicenseInfo 固定的许可说明，随每条推荐图片引用一起保存
const LicenseInfo = "Pexels License - Free to use"

// Photo 一条图片搜索候选
type Photo struct {
	ID              int      `json:"id"`
	URL             string   `json:"url"`
	Photographer    string   `json:"photographer"`
	PhotographerURL string   `json:"photographer_url"`
	Src             PhotoSrc `json:"src"`
	Alt             string   `json:"alt"`
}

// PhotoSrc 同一张图片的多种分辨率地址
type PhotoSrc struct {
	Original  string `json:"original"`
	Large     string `json:"large"`
	Medium    string `json:"medium"`
	Small     string `json:"small"`
	Landscape string `json:"landscape"`
	Tiny      string `json:"tiny"`
}

// Attribution 归属信息的固定映射：大图→url，中图→preview_url
type Attribution struct {
	URL             string `json:"url"`
	PreviewURL      string `json:"preview_url"`
	AttributionText string `json:"attribution_text"`
	AttributionURL  string `json:"attribution_url"`
	LicenseInfo     string `json:"license_info"`
	Provider        string `json:"provider"`
}

type searchResponse struct {
	Photos       []Photo `json:"photos"`
	TotalResults int     `json:"total_results"`
}

// Client 调用Pexels图片搜索API
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient 创建Pexels客户端
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
	}
}

// SetBaseURL 覆盖API地址（测试用）
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// Search 搜索横向构图的图片候选，按相关性排序返回
func (c *Client) Search(ctx context.Context, query string, perPage int) ([]Photo, error) {
	if c.apiKey == "" {
		return nil, errors.New("pexels api密钥未配置")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("orientation", "landscape")

	req, err := http.NewRequestWithContext(ctx, "GET",
		c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("pexels api错误(%d): %s", resp.StatusCode, string(body))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("解析pexels响应失败: %w", err)
	}

	return result.Photos, nil
}

// FormatAttribution 将候选图片映射为固定的归属信息
func FormatAttribution(photo Photo) Attribution {
	return Attribution{
		URL:             photo.Src.Large,
		PreviewURL:      photo.Src.Medium,
		AttributionText: "Photo by " + photo.Photographer,
		AttributionURL:  photo.PhotographerURL,
		LicenseInfo:     LicenseInfo,
		Provider:        "pexels",
	}
}
