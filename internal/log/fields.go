package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldError         = "error"
	FieldErrorType     = "error_type"
	FieldOperation     = "operation"
	FieldMonth         = "month"
	FieldTransactionID = "transaction_id"
	FieldAmountCents   = "amount_cents"
	FieldKind          = "kind"
	FieldCategory      = "category"
	FieldUsefulLife    = "useful_life_months"
)

// Components
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentLedger     = "ledger"
	ComponentClassifier = "classifier"
	ComponentStorage    = "storage"
	ComponentAMQP       = "amqp"
	ComponentWorker     = "worker"
	ComponentSheets     = "sheets"
	ComponentRateLimit  = "rate_limit"
)

// Operations
const (
	OpRecord   = "record"
	OpEdit     = "edit"
	OpDelete   = "delete"
	OpQuery    = "query"
	OpReport   = "report"
	OpClassify = "classify"
	OpExport   = "export"
)

// Error categories, matching the ledger's error taxonomy.
const (
	ErrorTypeValidation     = "invalid_input"
	ErrorTypeNotFound       = "not_found"
	ErrorTypeClassification = "classification_unavailable"
	ErrorTypeConsistency    = "consistency_violation"
	ErrorTypeInternal       = "internal_error"
)

// Fields accumulates key/value pairs in insertion order.
type Fields []any

func NewFields() Fields {
	return Fields{}
}

func (f Fields) With(key string, value any) Fields {
	return append(f, key, value)
}

func (f Fields) WithError(err error) Fields {
	if err == nil {
		return f
	}
	return append(f, FieldError, err.Error())
}

func (f Fields) WithOperation(op string) Fields {
	return append(f, FieldOperation, op)
}

func (f Fields) WithTransaction(id string, amountCents int64, kind, category string, lifeMonths int) Fields {
	return append(f,
		FieldTransactionID, id,
		FieldAmountCents, amountCents,
		FieldKind, kind,
		FieldCategory, category,
		FieldUsefulLife, lifeMonths,
	)
}

func (f Fields) WithHTTPRequest(method, path, query, userAgent string) Fields {
	return append(f,
		FieldMethod, method,
		FieldPath, path,
		FieldQuery, query,
		FieldUserAgent, userAgent,
	)
}
