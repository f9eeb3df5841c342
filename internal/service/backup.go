// Package service 彩票数据备份
package service

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/smysle/sakura-lottery-go/internal/database/models"
	"github.com/smysle/sakura-lottery-go/pkg/logger"
)

const backupVersion = "1"

// BackupService 备份服务
type BackupService struct {
	db        *gorm.DB
	backupDir string
	now       func() time.Time
}

// BackupData 备份数据结构
type BackupData struct {
	Version   string           `json:"version"`
	CreatedAt time.Time        `json:"created_at"`
	Tickets   []models.Ticket  `json:"tickets"`
	Bindings  []models.Binding `json:"bindings"`
}

// BackupResult 备份结果
type BackupResult struct {
	Filename   string
	FilePath   string
	Size       int64
	Duration   time.Duration
	Records    int
	Compressed bool
}

// BackupInfo 备份信息
type BackupInfo struct {
	Filename  string
	Size      int64
	CreatedAt time.Time
}

// NewBackupService 创建备份服务，dir 为空时使用 ./backups
func NewBackupService(db *gorm.DB, dir string) (*BackupService, error) {
	if dir == "" {
		dir = "./backups"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建备份目录失败: %w", err)
	}
	return &BackupService{db: db, backupDir: dir, now: time.Now}, nil
}

// Backup 导出彩票与绑定记录
func (s *BackupService) Backup(compress bool) (*BackupResult, error) {
	startTime := time.Now()

	data := BackupData{Version: backupVersion, CreatedAt: s.now()}
	if err := s.db.Order("id").Find(&data.Tickets).Error; err != nil {
		return nil, fmt.Errorf("备份彩票失败: %w", err)
	}
	if err := s.db.Order("tg").Find(&data.Bindings).Error; err != nil {
		return nil, fmt.Errorf("备份绑定失败: %w", err)
	}

	filename := fmt.Sprintf("backup_%s.json", data.CreatedAt.Format("20060102_150405"))
	if compress {
		filename += ".gz"
	}
	filePath := filepath.Join(s.backupDir, filename)

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("序列化失败: %w", err)
	}

	var fileSize int64
	if compress {
		fileSize, err = writeCompressed(filePath, jsonData)
	} else {
		fileSize, err = writeRaw(filePath, jsonData)
	}
	if err != nil {
		return nil, err
	}

	records := len(data.Tickets) + len(data.Bindings)
	logger.Info().
		Str("file", filename).
		Int64("size", fileSize).
		Int("records", records).
		Msg("数据备份完成")

	return &BackupResult{
		Filename:   filename,
		FilePath:   filePath,
		Size:       fileSize,
		Duration:   time.Since(startTime),
		Records:    records,
		Compressed: compress,
	}, nil
}

func writeRaw(path string, data []byte) (int64, error) {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return 0, fmt.Errorf("写入文件失败: %w", err)
	}
	return fileSize(path)
}

func writeCompressed(path string, data []byte) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("创建文件失败: %w", err)
	}

	gz := gzip.NewWriter(file)
	if _, err := gz.Write(data); err != nil {
		file.Close()
		return 0, fmt.Errorf("压缩写入失败: %w", err)
	}
	if err := gz.Close(); err != nil {
		file.Close()
		return 0, fmt.Errorf("压缩写入失败: %w", err)
	}
	if err := file.Close(); err != nil {
		return 0, err
	}
	return fileSize(path)
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Restore 从备份恢复，已存在的记录按主键覆盖
func (s *BackupService) Restore(filePath string) (int, error) {
	var (
		raw []byte
		err error
	)
	if strings.HasSuffix(filePath, ".gz") {
		raw, err = readCompressed(filePath)
	} else {
		raw, err = os.ReadFile(filePath)
	}
	if err != nil {
		return 0, fmt.Errorf("读取备份文件失败: %w", err)
	}

	var data BackupData
	if err := json.Unmarshal(raw, &data); err != nil {
		return 0, fmt.Errorf("解析备份数据失败: %w", err)
	}
	if data.Version != backupVersion {
		return 0, fmt.Errorf("不支持的备份版本: %q", data.Version)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		upsert := tx.Clauses(clause.OnConflict{UpdateAll: true})
		if len(data.Tickets) > 0 {
			if err := upsert.Create(&data.Tickets).Error; err != nil {
				return fmt.Errorf("恢复彩票失败: %w", err)
			}
		}
		if len(data.Bindings) > 0 {
			if err := upsert.Create(&data.Bindings).Error; err != nil {
				return fmt.Errorf("恢复绑定失败: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Info().
		Int("tickets", len(data.Tickets)).
		Int("bindings", len(data.Bindings)).
		Msg("数据恢复完成")
	return len(data.Tickets) + len(data.Bindings), nil
}

func readCompressed(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	return io.ReadAll(gz)
}

// ListBackups 列出所有备份，按时间倒序
func (s *BackupService) ListBackups() ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return nil, err
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "backup_") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{
			Filename:  entry.Name(),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// CleanOldBackups 清理 keepDays 天前的备份
func (s *BackupService) CleanOldBackups(keepDays int) (int, error) {
	if keepDays <= 0 {
		keepDays = 7
	}

	backups, err := s.ListBackups()
	if err != nil {
		return 0, err
	}

	cutoff := s.now().AddDate(0, 0, -keepDays)
	deleted := 0
	for _, b := range backups {
		if !b.CreatedAt.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.backupDir, b.Filename)); err != nil {
			logger.Warn().Err(err).Str("file", b.Filename).Msg("删除旧备份失败")
			continue
		}
		deleted++
	}
	return deleted, nil
}

// Run 备份并清理旧文件，供定时任务调用
func (s *BackupService) Run(keepDays int) error {
	if _, err := s.Backup(true); err != nil {
		return err
	}
	n, err := s.CleanOldBackups(keepDays)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Info().Int("deleted", n).Msg("已清理旧备份")
	}
	return nil
}

// FormatSize 格式化文件大小
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
