package sqlsource

import (
	"context"
	"fmt"
	"time"
)

var seedNames = []string{
	"anchor", "bramble", "cobalt", "dune", "ember", "fjord", "garnet", "harbor",
	"indigo", "juniper", "kestrel", "lumen", "meadow", "nimbus", "onyx", "prairie",
}

// Seed creates table with n demo rows, replacing any existing table. Every
// tenth row is drawn as a group header, every seventh carries a validation
// error on qty and every fifth a taller row height.
func (s *Source) Seed(ctx context.Context, table string, n int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed %s: %w", table, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		`DROP TABLE IF EXISTS ` + quoteIdent(table),
		`CREATE TABLE ` + quoteIdent(table) + ` (
			id INTEGER,
			name TEXT,
			qty REAL,
			active BOOLEAN,
			created DATE,
			_renderer TEXT,
			_height INTEGER,
			_error_qty TEXT,
			_tooltip_name TEXT
		)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("seed %s: %w", table, err)
		}
	}

	insert, err := tx.PrepareContext(ctx, `INSERT INTO `+quoteIdent(table)+` VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("seed %s: %w", table, err)
	}
	defer insert.Close()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range n {
		var renderer, errMsg, tooltip any
		var height any
		name := fmt.Sprintf("%s-%03d", seedNames[i%len(seedNames)], i)
		qty := float64((i*37)%1000) / 4
		if i%10 == 0 {
			renderer = "group-header"
			name = fmt.Sprintf("Group %d", i/10+1)
		}
		if i%7 == 3 {
			errMsg = "quantity exceeds stock"
		}
		if i%5 == 4 {
			height = 2
		}
		if i%11 == 5 {
			tooltip = "imported from legacy system"
		}
		created := start.AddDate(0, 0, i).Format("2006-01-02")
		if _, err := insert.ExecContext(ctx, i+1, name, qty, i%3 != 0, created, renderer, height, errMsg, tooltip); err != nil {
			return fmt.Errorf("seed %s row %d: %w", table, i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed %s: %w", table, err)
	}
	s.Forget(table)
	s.log.Info("seeded table", map[string]any{"table": table, "rows": n})
	return nil
}
