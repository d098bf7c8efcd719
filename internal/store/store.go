// internal/store/store.go
package store

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stillhouse/shotlist/internal/models"
)

// ErrNotFound 查询目标行不存在
var ErrNotFound = errors.New("记录不存在")

// Store 封装数据库访问。对上层只暴露表语义：
// 批量插入、按父ID删除、按ID部分更新、按ID/按父ID有序查询。
type Store struct {
	db *gorm.DB
}

// Open 打开sqlite数据库并执行迁移
func Open(dsn string) (*Store, error) {
	// 级联删除依赖外键约束，sqlite默认关闭
	if !strings.Contains(dsn, "_foreign_keys") {
		if strings.Contains(dsn, "?") {
			dsn += "&_foreign_keys=on"
		} else {
			dsn += "?_foreign_keys=on"
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) migrate() error {
	err := s.db.AutoMigrate(
		&models.Project{},
		&models.Scene{},
		&models.Shot{},
		&models.ShotReference{},
	)
	if err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	return nil
}

// DB 返回底层连接（测试用）
func (s *Store) DB() *gorm.DB {
	return s.db
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// ---------------------------------------------
// Project
// ---------------------------------------------

// CreateProject 插入新项目
func (s *Store) CreateProject(project *models.Project) error {
	return s.db.Create(project).Error
}

// ProjectByID 按ID查询项目
func (s *Store) ProjectByID(id string) (*models.Project, error) {
	var project models.Project
	if err := s.db.First(&project, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &project, nil
}

// ProjectsByUser 查询用户的所有项目，按更新时间倒序
func (s *Store) ProjectsByUser(userID string) ([]models.Project, error) {
	var projects []models.Project
	err := s.db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&projects).Error
	return projects, err
}

// UpdateProjectFields 按ID部分更新项目字段
func (s *Store) UpdateProjectFields(id string, fields map[string]interface{}) error {
	result := s.db.Model(&models.Project{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProject 删除项目，子行由外键级联删除
func (s *Store) DeleteProject(id string) error {
	result := s.db.Delete(&models.Project{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------
// Scene
// ---------------------------------------------

// InsertScenes 批量插入场景（单事务）
func (s *Store) InsertScenes(scenes []models.Scene) error {
	if len(scenes) == 0 {
		return nil
	}
	return s.db.Create(&scenes).Error
}

// DeleteScenesByProject 删除项目的全部场景
func (s *Store) DeleteScenesByProject(projectID string) error {
	return s.db.Delete(&models.Scene{}, "project_id = ?", projectID).Error
}

// ScenesByProject 查询项目的场景，按场景号升序
func (s *Store) ScenesByProject(projectID string) ([]models.Scene, error) {
	var scenes []models.Scene
	err := s.db.Where("project_id = ?", projectID).
		Order("scene_number ASC").
		Find(&scenes).Error
	return scenes, err
}

// SceneByID 按ID查询场景
func (s *Store) SceneByID(id string) (*models.Scene, error) {
	var scene models.Scene
	if err := s.db.First(&scene, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &scene, nil
}

// ---------------------------------------------
// Shot
// ---------------------------------------------

// InsertShots 批量插入镜头（单事务）
func (s *Store) InsertShots(shots []models.Shot) error {
	if len(shots) == 0 {
		return nil
	}
	return s.db.Create(&shots).Error
}

// DeleteShotsByScene 删除场景的全部镜头
func (s *Store) DeleteShotsByScene(sceneID string) error {
	return s.db.Delete(&models.Shot{}, "scene_id = ?", sceneID).Error
}

// ShotsByScene 查询场景的镜头，按排列序号升序
func (s *Store) ShotsByScene(sceneID string) ([]models.Shot, error) {
	var shots []models.Shot
	err := s.db.Where("scene_id = ?", sceneID).
		Order("position_index ASC").
		Find(&shots).Error
	return shots, err
}

// ShotByID 按ID查询镜头
func (s *Store) ShotByID(id string) (*models.Shot, error) {
	var shot models.Shot
	if err := s.db.First(&shot, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &shot, nil
}

// UpdateShotFields 按ID部分更新镜头字段
func (s *Store) UpdateShotFields(id string, fields map[string]interface{}) error {
	result := s.db.Model(&models.Shot{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteShot 删除单个镜头
func (s *Store) DeleteShot(id string) error {
	result := s.db.Delete(&models.Shot{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------
// ShotReference
// ---------------------------------------------

// InsertReferences 批量插入镜头参考
func (s *Store) InsertReferences(refs []models.ShotReference) error {
	if len(refs) == 0 {
		return nil
	}
	return s.db.Create(&refs).Error
}

// DeleteReferencesByShotAndKind 只删除指定类型的参考行。
// 重新生成推荐图片时external_link行必须原样保留。
func (s *Store) DeleteReferencesByShotAndKind(shotID, kind string) error {
	return s.db.Delete(&models.ShotReference{}, "shot_id = ? AND kind = ?", shotID, kind).Error
}

// ReferencesByShot 查询镜头的全部参考（无序）
func (s *Store) ReferencesByShot(shotID string) ([]models.ShotReference, error) {
	var refs []models.ShotReference
	err := s.db.Where("shot_id = ?", shotID).Find(&refs).Error
	return refs, err
}

// ReferenceByID 按ID查询参考
func (s *Store) ReferenceByID(id string) (*models.ShotReference, error) {
	var ref models.ShotReference
	if err := s.db.First(&ref, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &ref, nil
}

// DeleteReference 删除单条参考
func (s *Store) DeleteReference(id string) error {
	result := s.db.Delete(&models.ShotReference{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
