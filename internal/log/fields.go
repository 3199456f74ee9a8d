// Package log defines the shared field and component names used across
// structured log lines so they stay greppable.
package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldSourceFile = "source_file"
	FieldRowIndex   = "row_index"
	FieldCategory   = "category"
	FieldRowCount   = "row_count"
	FieldRunID      = "run_id"
	FieldBackend    = "backend"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentMapping   = "mapping"
	ComponentRegistry  = "registry"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentExport    = "export"
	ComponentSuggest   = "suggest"
	ComponentAutoMap   = "automap"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
)

// Operations defines standard operation names
const (
	OpUpload   = "upload"
	OpMap      = "map"
	OpSuggest  = "suggest"
	OpAutoMap  = "automap"
	OpSummary  = "summary"
	OpExport   = "export"
	OpReset    = "reset"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)
