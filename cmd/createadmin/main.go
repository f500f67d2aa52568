// Command createadmin bootstraps the canonical roles and the first
// SUPER_ADMIN user from ADMIN_EMAIL and ADMIN_PASSWORD.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/smallgrid/aquabill/internal/config"
	"github.com/smallgrid/aquabill/internal/seed"
	"github.com/smallgrid/aquabill/pkg/db"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	cfg := config.Load()
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		fatal("ADMIN_EMAIL and ADMIN_PASSWORD must be set")
	}

	dialector, err := db.Dialect(cfg)
	if err != nil {
		fatal("resolve database: %v", err)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		fatal("open database: %v", err)
	}

	if err := seed.EnsureRoles(conn); err != nil {
		fatal("seed roles: %v", err)
	}

	if err := seed.EnsureAdmin(conn, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		if errors.Is(err, seed.ErrAdminExists) {
			fmt.Printf("admin %s already exists, nothing to do\n", cfg.AdminEmail)
			return
		}
		fatal("create admin: %v", err)
	}

	fmt.Printf("admin %s created\n", cfg.AdminEmail)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
