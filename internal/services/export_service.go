// internal/services/export_service.go
package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"strings"

	apperrors "github.com/stillhouse/shotlist/internal/errors"
	"github.com/stillhouse/shotlist/internal/models"
)

// 导出行内多值字段的连接符
const exportListSeparator = " | "

var exportHeader = []string{
	"scene_number",
	"shot_code",
	"shot_size",
	"angle",
	"movement",
	"lens_suggestion",
	"intent_text",
	"time_cost_estimate",
	"reference_urls",
	"search_prompts",
}

// ExportService 将项目的完整镜头列表展平为CSV，供剧组下载使用。
type ExportService struct {
	projects *ProjectService
}

// NewExportService 创建导出服务
func NewExportService(projects *ProjectService) *ExportService {
	return &ExportService{projects: projects}
}

// ExportResult 一次CSV导出的结果
type ExportResult struct {
	Filename string
	Data     []byte
}

// ExportCSV 导出项目的镜头列表：场景按场景号升序，镜头按排列序号升序，
// 每个镜头一行，参考URL和搜索词用" | "连接。文件名取项目标题。
func (e *ExportService) ExportCSV(ctx context.Context, userID, projectID string) (*ExportResult, error) {
	project, err := e.projects.GetProjectTree(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(exportHeader); err != nil {
		return nil, apperrors.NewProcessingError("写入CSV失败", err)
	}

	for _, scene := range project.Scenes {
		for _, shot := range scene.Shots {
			if err := w.Write(exportRow(&scene, &shot)); err != nil {
				return nil, apperrors.NewProcessingError("写入CSV失败", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, apperrors.NewProcessingError("写入CSV失败", err)
	}

	return &ExportResult{
		Filename: project.Title + ".csv",
		Data:     buf.Bytes(),
	}, nil
}

func exportRow(scene *models.Scene, shot *models.Shot) []string {
	refURLs := make([]string, 0, len(shot.References))
	for _, ref := range shot.References {
		refURLs = append(refURLs, ref.URL)
	}

	return []string{
		strconv.Itoa(scene.SceneNumber),
		shot.ShotCode,
		shot.ShotSize,
		shot.Angle,
		shot.Movement,
		shot.LensSuggestion,
		shot.IntentText,
		shot.TimeCostEstimate,
		strings.Join(refURLs, exportListSeparator),
		strings.Join(shot.SearchPrompts, exportListSeparator),
	}
}
