package database

import (
	"fmt"
	"time"

	"yourmind-go/pkg/log"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open 按驱动名打开数据库连接，支持 postgres 和 sqlite。
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres", "":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// 内存库每个连接都是独立的数据库
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)           // 设置空闲连接池中连接的最大数量
		sqlDB.SetMaxOpenConns(100)          // 设置打开数据库连接的最大数量
		sqlDB.SetConnMaxLifetime(time.Hour) // 设置了连接可复用的最大时间
	}
	return db, nil
}

// InitDB 初始化全局数据库连接并执行迁移
func InitDB(driver, dsn string, models ...interface{}) {
	var err error
	DB, err = Open(driver, dsn)
	if err != nil {
		log.Fatal("failed to connect database", err)
	}
	if err := DB.AutoMigrate(models...); err != nil {
		log.Fatal("failed to migrate database", err)
	}
	log.Infof("%s database connected successfully", driver)
}
