package response

// ErrorBody is returned for authorization, tenant and lookup failures
type ErrorBody struct {
	Error string `json:"error"`
}

// MessageBody is returned for plain acknowledgements and unexpected failures
type MessageBody struct {
	Message string `json:"message"`
}

// ValidationBody is returned with 422 and carries per-field messages
type ValidationBody struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// Meta represents metadata for paginated responses
type Meta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Collection wraps a list under "data", optionally with pagination metadata
type Collection struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

// PaginationParams represents pagination input parameters
type PaginationParams struct {
	Page    int
	PerPage int
}

// DefaultPageSize is the fixed page size for tenant listings
const DefaultPageSize = 10

// NewPaginationParams normalizes a requested page against the fixed page size
func NewPaginationParams(page int) PaginationParams {
	if page < 1 {
		page = 1
	}
	return PaginationParams{Page: page, PerPage: DefaultPageSize}
}

// Offset returns the number of rows to skip
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// DefaultValidationMessage is the top-level message of every 422 body
const DefaultValidationMessage = "Validation failed."

// Error creates an {"error": ...} body
func Error(message string) ErrorBody {
	return ErrorBody{Error: message}
}

// Message creates a {"message": ...} body
func Message(message string) MessageBody {
	return MessageBody{Message: message}
}

// InternalError creates the generic 500 body
func InternalError(message string) MessageBody {
	if message == "" {
		message = "An internal error occurred."
	}
	return MessageBody{Message: message}
}

// ValidationFailed creates a validation error response with field details
func ValidationFailed(fields map[string][]string) ValidationBody {
	if fields == nil {
		fields = map[string][]string{}
	}
	return ValidationBody{
		Message: DefaultValidationMessage,
		Errors:  fields,
	}
}

// Data wraps a list without pagination metadata
func Data(data interface{}) *Collection {
	return &Collection{Data: data}
}

// Paginated wraps a page of results with its metadata
func Paginated(data interface{}, params PaginationParams, total int64) *Collection {
	totalPages := 0
	if params.PerPage > 0 {
		totalPages = int(total) / params.PerPage
		if int(total)%params.PerPage > 0 {
			totalPages++
		}
	}

	return &Collection{
		Data: data,
		Meta: &Meta{
			Page:       params.Page,
			PerPage:    params.PerPage,
			Total:      total,
			TotalPages: totalPages,
		},
	}
}

// Unauthenticated creates the body returned when a bearer token is required
func Unauthenticated() ErrorBody {
	return Error("Unauthenticated.")
}

// TooManyRequests creates a rate limit error response
func TooManyRequests() ErrorBody {
	return Error("Too Many Attempts.")
}
