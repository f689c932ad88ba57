package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pocketomega/fsmagent/internal/tool"
)

type timeArgs struct {
	Timezone string `json:"timezone"`
}

// RegisterTime installs "get_time" into r.
func RegisterTime(r *tool.Registry) {
	schema := tool.BuildSchema(
		tool.SchemaParam{Name: "timezone", Type: "string", Description: "IANA timezone name, e.g. America/New_York (optional)"},
	)
	r.Register("get_time", "Return the current time, optionally in a given timezone", schema,
		func(_ context.Context, args json.RawMessage) (string, error) {
			var a timeArgs
			if len(args) > 0 {
				if err := json.Unmarshal(args, &a); err != nil {
					return "", fmt.Errorf("parsing arguments: %w", err)
				}
			}

			now := time.Now()
			if a.Timezone != "" {
				loc, err := time.LoadLocation(a.Timezone)
				if err != nil {
					return "", fmt.Errorf("invalid timezone %q: %w", a.Timezone, err)
				}
				now = now.In(loc)
			}
			return now.Format("2006-01-02 15:04:05 MST (Monday)"), nil
		})
}
