package bulk

// Operation is the kind of work a job performs. The string values are the
// Bulk API's exact operation names.
type Operation string

const (
	OpQuery      Operation = "query"
	OpInsert     Operation = "insert"
	OpUpsert     Operation = "upsert"
	OpUpdate     Operation = "update"
	OpDelete     Operation = "delete"
	OpHardDelete Operation = "hardDelete"
)

// Valid reports whether the operation is one the Bulk API recognizes.
func (o Operation) Valid() bool {
	switch o {
	case OpQuery, OpInsert, OpUpsert, OpUpdate, OpDelete, OpHardDelete:
		return true
	default:
		return false
	}
}

// BatchState is the lifecycle state the Bulk API reports for a batch:
// Queued or InProcess while pending, then exactly one terminal state.
// Pending states may alternate freely before a terminal state is reached.
type BatchState string

const (
	BatchQueued       BatchState = "Queued"
	BatchInProcess    BatchState = "InProcess"
	BatchCompleted    BatchState = "Completed"
	BatchFailed       BatchState = "Failed"
	BatchNotProcessed BatchState = "Not Processed"
)

// Terminal reports whether no further transition can occur from the state.
func (s BatchState) Terminal() bool {
	return s == BatchCompleted || s.Err()
}

// Err reports whether the state is a terminal error state.
func (s BatchState) Err() bool {
	return s == BatchFailed || s == BatchNotProcessed
}

// BatchProgress is the outcome of one status check: the observed state and,
// for error terminals, the remote state message. Terminal outcomes are plain
// values here; only transport and consistency failures surface as errors.
type BatchProgress struct {
	State   BatchState
	Message string
}

// Done reports terminal success.
func (p BatchProgress) Done() bool {
	return p.State == BatchCompleted
}

// Failed reports a terminal error state.
func (p BatchProgress) Failed() bool {
	return p.State.Err()
}

// Field is one jobInfo element, used for fields beyond the recognized set.
type Field struct {
	Name  string
	Value string
}

// JobConfig describes a job to create. Object is always required;
// ExternalIDField is required iff Operation is upsert. Extra fields are
// serialized after the recognized ones, in slice order.
type JobConfig struct {
	Operation       Operation
	Object          string
	ExternalIDField string
	ConcurrencyMode string
	ContentType     string
	Extra           []Field
}

func (c JobConfig) validate() error {
	if !c.Operation.Valid() {
		return &ValidationError{Field: "operation", Message: "unrecognized operation " + string(c.Operation)}
	}
	if c.Object == "" {
		return &ValidationError{Field: "object", Message: "object is required"}
	}
	if c.Operation == OpUpsert && c.ExternalIDField == "" {
		return &ValidationError{Field: "externalIdFieldName", Message: "external id field is required for upsert"}
	}
	return nil
}

// ValidationError reports an invalid job configuration before anything is
// sent to the remote API.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "bulk: invalid job config: " + e.Message
}
