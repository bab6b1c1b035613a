package log

// Common field names for structured logging.
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status_code"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
	FieldOperation = "operation"
	FieldUserID    = "user_id"
	FieldRecordID  = "record_id"
	FieldAccountID = "account_id"
	FieldCategory  = "category"
	FieldAmount    = "amount"
	FieldKind      = "kind"
	FieldBackend   = "backend"
)

// Standard component names.
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentAuth    = "auth"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentBackend = "backend"
)

// Standard operation names.
const (
	OpCreate  = "create"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpList    = "list"
	OpRefresh = "refresh"
	OpSignUp  = "signup"
	OpSignIn  = "signin"
	OpSignOut = "signout"
	OpMirror  = "mirror"
	OpStartup = "startup"
)
