// Package database provides SQLite connectivity for Gray Logic Grow.
//
// It opens the database with WAL mode and a busy timeout, keeps a single
// writer connection, and applies embedded schema migrations in version order.
// The grow daemon stores its entity registry and the action_log table here.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
