package database

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// SplitScript splits a SQL script into statements on ";".
// A literal semicolon inside a statement is written as "$$" and restored
// after splitting. Blank statements are dropped.
func SplitScript(script string) []string {
	parts := strings.Split(script, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(strings.ReplaceAll(p, "$$", ";"))
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}

// ExecuteScript runs every statement of the script file at path, in order,
// and returns the summed affected-row count. It stops at the first failure.
func (e *Executor) ExecuteScript(ctx context.Context, cur Cursor, path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read script %s: %w", path, err)
	}

	statements := SplitScript(string(data))
	e.log.Info("Executing script", zap.String("file", path), zap.Int("statements", len(statements)))

	var total int64
	for i, stmt := range statements {
		n, err := e.Execute(ctx, cur, stmt, nil)
		if err != nil {
			return total, fmt.Errorf("script %s statement %d: %w", path, i+1, err)
		}
		total += n
	}
	return total, nil
}
