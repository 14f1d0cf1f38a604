package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitScript(t *testing.T) {
	script := `
CREATE TRIGGER trg AFTER INSERT ON t BEGIN UPDATE c SET n = n + 1$$ END;
INSERT INTO t (id) VALUES (1);

;
`
	got := SplitScript(script)
	assert.Equal(t, []string{
		"CREATE TRIGGER trg AFTER INSERT ON t BEGIN UPDATE c SET n = n + 1; END",
		"INSERT INTO t (id) VALUES (1)",
	}, got)

	assert.Empty(t, SplitScript(" ;\n; "))
}
