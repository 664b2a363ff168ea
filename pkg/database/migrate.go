package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationsTable 记录迁移版本的表
const migrationsTable = "university_schema_migrations"

// RunMigrations 执行数据库迁移
// 库处于 dirty 状态时拒绝执行，需人工修复后用 migrate force 重置版本
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	target, err := latestMigration(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("读取迁移文件失败: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("加载迁移文件失败: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return fmt.Errorf("创建迁移驱动失败: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("初始化迁移实例失败: %w", err)
	}

	from, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		from = 0
	case err != nil:
		return fmt.Errorf("读取迁移版本失败: %w", err)
	case dirty:
		logger.Error("数据库迁移处于 dirty 状态", zap.Uint("version", from))
		return fmt.Errorf("迁移版本 %d 处于 dirty 状态", from)
	}

	if from >= target {
		logger.Info("数据库结构已是最新", zap.Uint("version", from))
		return nil
	}

	start := time.Now()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("执行迁移失败 (%d → %d): %w", from, target, err)
	}

	to, _, _ := m.Version()
	logger.Info("数据库迁移完成",
		zap.Uint("from_version", from),
		zap.Uint("to_version", to),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// latestMigration 返回迁移目录中最大的版本号，文件名形如 000001_init_schema.up.sql
func latestMigration(fsys fs.FS, dir string) (uint, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return 0, err
	}
	var latest uint
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			return 0, fmt.Errorf("迁移文件名无效: %s", name)
		}
		v, err := strconv.ParseUint(prefix, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("迁移文件名无效: %s", name)
		}
		if uint(v) > latest {
			latest = uint(v)
		}
	}
	return latest, nil
}
