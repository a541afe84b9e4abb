package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `waitwatch measures how long people wait in a monitored waiting area and predicts future waits.

Core concepts:
- Session: one continuous presence of a tracked person, from entry to exit. Its duration is the wait.
- Context: a weekday (0-6, Sunday is 0) and hour (0-23) in the site time zone, optionally narrowed to visits of a scheduled length.
- Prediction: a scalar Kalman filter folded over matching past waits. With no history it returns the prior of 10 minutes.
- Category: Low under 2 minutes, Moderate under 10 minutes, High otherwise.

Workflow:
1) predict_wait for a time or weekday/hour. Use mode=average for a single update with the mean wait.
2) list_open_sessions to see who is waiting now and their remaining wait.
3) get_overview, arrivals_by_hour and wait_distribution for a time window (default the last 24 hours).
4) suggest_slots to space appointments by the scheduled length plus the predicted delay.

All times are RFC3339. Set exclude_outliers to drop unusually long waits.

Docs:
- waitwatch://docs/estimator
- waitwatch://docs/statistics
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "waitwatch://docs/estimator",
		Name:        "docs_estimator",
		Title:       "Wait estimator",
		Description: "How predictions are computed from past sessions.",
		Content: `# Wait estimator

Each prediction starts from the prior (600 s, covariance 500) and applies one
update per matching past wait, oldest first:

    P_pred = P + Q
    K      = P_pred / (P_pred + R)
    x      = x + K (z - x)
    P      = (1 - K) P_pred

with process variance Q = 100 and measurement variance R = 200 by default.

Matching waits are closed sessions that entered on the same weekday and hour
in the site time zone within the lookback window (8 weeks by default). When
scheduled_minutes is given, only waits within tolerance_minutes of it count.

mode=average applies a single update with the mean of the matching waits.
Predictions are never clamped.
`,
	},
	{
		URI:         "waitwatch://docs/statistics",
		Name:        "docs_statistics",
		Title:       "Dashboard statistics",
		Description: "Windows, outlier exclusion and histogram bins.",
		Content: `# Dashboard statistics

- Windows select sessions by entry time. The default is the 24 hours before now.
- Completed waits are closed sessions longer than one second.
- exclude_outliers drops waits above mean + 3 sample standard deviations,
  and only when at least two waits are present. Arrivals are then counted
  from the remaining waits.
- wait_distribution bins are labeled "a-b min".
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
