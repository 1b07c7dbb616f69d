// Package api provides the operations portal REST API.
//
//	@title			Operations Portal API
//	@version		1.0
//	@description	Git backup catalog and restore orchestration
//	@BasePath		/api
package api
