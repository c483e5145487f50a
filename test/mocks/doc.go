// Package mocks provides mock implementations of the compute backends used in testing.
//
// MockCompute keeps a small in-memory world of instances, images and operations so that the
// standard responses behave like a real backend, and every function can be replaced to
// simulate failures. All calls are recorded in order.
package mocks
