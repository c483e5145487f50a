// Package test provides the integration test harness for promote-cleanup.
//
// A Suite runs the real HTTP server, backed by a mocks.MockCompute and an in-memory
// SQLite run ledger, behind an httptest server, and hands out a real API client
// pointed at it. Sleeps between polls are disabled so whole workflow runs finish
// immediately.
//
// Example Usage:
//
//	func TestExample(t *testing.T) {
//	    s := test.NewSuite(t)
//	    defer s.Cleanup()
//
//	    s.Compute.AddInstance("vm-1", types.LifecycleRunning)
//	    res, err := s.APIClient.PublishEvent(s.Context(), msg)
//	}
package test
