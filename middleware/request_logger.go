package middleware

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"rental-ledger/types"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// maxLoggedBody caps the request and response bodies persisted per entry
const maxLoggedBody = 4096

// LogSink receives one entry per handled request
type LogSink interface {
	Log(entry types.LogEntry)
}

// RequestLogger records every API request and response through sink
func RequestLogger(sink LogSink) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/metrics") {
			return c.Next()
		}

		start := time.Now()
		requestBody := truncate(string(c.Body()))

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}

		// fiber reuses the request buffers once the handler returns and the
		// sink persists entries later
		sink.Log(types.LogEntry{
			Method:          utils.CopyString(c.Method()),
			URL:             utils.CopyString(c.OriginalURL()),
			RequestBody:     requestBody,
			ResponseBody:    truncate(string(c.Response().Body())),
			RequestHeaders:  encodeHeaders(c.GetReqHeaders()),
			ResponseHeaders: encodeHeaders(c.GetRespHeaders()),
			StatusCode:      status,
			LatencyMs:       time.Since(start).Milliseconds(),
			CreatedAt:       start.UTC(),
		})

		return err
	}
}

func encodeHeaders(headers map[string][]string) string {
	delete(headers, fiber.HeaderAuthorization)
	delete(headers, fiber.HeaderCookie)
	b, err := json.Marshal(headers)
	if err != nil {
		return ""
	}
	return string(b)
}

func truncate(s string) string {
	if len(s) <= maxLoggedBody {
		return s
	}
	return s[:maxLoggedBody] + "...(truncated)"
}
