// Package testutil provides deterministic data generation for tests.
package testutil
