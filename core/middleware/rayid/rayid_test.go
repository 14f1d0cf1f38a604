package rayid

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRayID(t *testing.T) {
	app := fiber.New()
	app.Use(New())
	var seen string
	app.Get("/", func(c *fiber.Ctx) error {
		seen, _ = c.Locals(LocalsKey).(string)
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	rid := resp.Header.Get(HeaderName)
	_, err = uuid.Parse(rid)
	assert.NoError(t, err)
	assert.Equal(t, rid, seen)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(HeaderName, "upstream-1")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "upstream-1", resp.Header.Get(HeaderName))
}
