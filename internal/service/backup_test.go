package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/smysle/sakura-lottery-go/internal/database"
	"github.com/smysle/sakura-lottery-go/internal/database/models"
	"github.com/smysle/sakura-lottery-go/internal/lottery"
)

func openDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), name)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func TestBackupAndRestore(t *testing.T) {
	for _, compress := range []bool{false, true} {
		src := openDB(t, "src.db")
		require.NoError(t, src.Create(&models.Ticket{ProfileID: 1, DrawID: 2, ValueStr: "1,2", PurchaseDate: now, Status: lottery.TicketActive}).Error)
		require.NoError(t, src.Create(&models.Binding{TG: 100, ProfileID: 1, VIP: true}).Error)

		svc, err := NewBackupService(src, t.TempDir())
		require.NoError(t, err)
		svc.now = func() time.Time { return now }

		res, err := svc.Backup(compress)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Records)
		assert.Equal(t, compress, filepath.Ext(res.Filename) == ".gz")
		assert.Positive(t, res.Size)

		dst := openDB(t, "dst.db")
		restore, err := NewBackupService(dst, t.TempDir())
		require.NoError(t, err)
		n, err := restore.Restore(res.FilePath)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		var tickets []models.Ticket
		require.NoError(t, dst.Find(&tickets).Error)
		require.Len(t, tickets, 1)
		assert.Equal(t, "1,2", tickets[0].ValueStr)
		assert.NotEmpty(t, tickets[0].UUID)

		var b models.Binding
		require.NoError(t, dst.First(&b, "tg = ?", 100).Error)
		assert.True(t, b.VIP)

		// 重复恢复不会产生重复记录
		_, err = restore.Restore(res.FilePath)
		require.NoError(t, err)
		var count int64
		dst.Model(&models.Ticket{}).Count(&count)
		assert.Equal(t, int64(1), count)
	}
}

func TestBackup_RestoreRejectsUnknownVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backup_bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"9"}`), 0644))

	svc, err := NewBackupService(openDB(t, "x.db"), dir)
	require.NoError(t, err)
	_, err = svc.Restore(path)
	assert.Error(t, err)
}

func TestCleanOldBackups(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewBackupService(openDB(t, "x.db"), dir)
	require.NoError(t, err)
	svc.now = func() time.Time { return now }

	old := filepath.Join(dir, "backup_old.json")
	fresh := filepath.Join(dir, "backup_fresh.json")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, fresh, other} {
		require.NoError(t, os.WriteFile(p, []byte("{}"), 0644))
	}
	require.NoError(t, os.Chtimes(old, now.AddDate(0, 0, -10), now.AddDate(0, 0, -10)))
	require.NoError(t, os.Chtimes(fresh, now.Add(-time.Hour), now.Add(-time.Hour)))
	require.NoError(t, os.Chtimes(other, now.AddDate(0, 0, -30), now.AddDate(0, 0, -30)))

	deleted, err := svc.CleanOldBackups(7)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	list, err := svc.ListBackups()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "backup_fresh.json", list[0].Filename)
	assert.FileExists(t, other)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.5 KB", FormatSize(1536))
	assert.Equal(t, "2.0 MB", FormatSize(2*1024*1024))
}
