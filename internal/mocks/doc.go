// Package mocks provides shared mock implementations for tests.
//
// Mocks expose a function field per method; when the field is nil the mock
// returns its default values. Calls are recorded for later assertions.
//
//	gen := &mocks.MockGenerator{
//	    Summary: "A calm month.",
//	}
//	h := service.ReportHandler(gen)
package mocks
