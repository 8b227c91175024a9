// Package snapshotcontract defines the response returned by the snapshot
// trigger function to its invocation host.
package snapshotcontract

// Response is the function's only output
type Response struct {
	StatusCode int    `json:"statusCode"` // 200 when the snapshot was started
	Body       string `json:"body"`       // e.g. "Started snapshot prod-db-snapshot-2024-03-05-14-07"
}
