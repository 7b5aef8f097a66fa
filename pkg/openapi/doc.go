// Package openapi derives form registrations from OpenAPI 3 operations. The
// public contracts (Source, Loader, Parser and the Operation/Schema wrappers)
// live here; the kin-openapi backed implementations live under
// internal/openapi and are constructed through the root formstate package.
package openapi
